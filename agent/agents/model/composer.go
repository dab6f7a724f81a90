package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

// composerDocument is the trimmed document view shipped to the composer model.
// Content is included verbatim; the catalog documents are short.
type composerDocument struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Type     string            `json:"type"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type composerImpl struct {
	runners        map[contractx.Intent]compose.Runnable[map[string]any, *schema.Message]
	fallbackIntent contractx.Intent
}

var _ contractx.Composer = (*composerImpl)(nil)

func (c *composerImpl) Compose(ctx context.Context, req contractx.ComposeRequest) (string, error) {
	runner, ok := c.runners[req.Intent]
	if !ok {
		runner, ok = c.runners[c.fallbackIntent]
		if !ok {
			return "", fmt.Errorf("%w: no composer runner for intent=%s", contractx.ErrPromptMissing, req.Intent)
		}
	}

	payload := map[string]any{
		"user_message": req.UserMessage,
	}
	if req.Summary != "" {
		payload["conversation_summary"] = req.Summary
	}
	if len(req.Documents) > 0 {
		docs := make([]composerDocument, 0, len(req.Documents))
		for _, d := range req.Documents {
			docs = append(docs, composerDocument(d))
		}
		payload["documents"] = docs
	}
	if len(req.ToolNotes) > 0 {
		payload["tool_notes"] = req.ToolNotes
	}

	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal composer input: %w", err)
	}

	msg, err := runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return "", fmt.Errorf("%w: composer intent=%s: %v", contractx.ErrModelInvoke, req.Intent, err)
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", fmt.Errorf("%w: composer returned empty content", contractx.ErrSchemaViolation)
	}
	return text, nil
}
