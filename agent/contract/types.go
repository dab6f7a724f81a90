package contract

import (
	"encoding/json"
	"fmt"
	"time"
)

// Intent is the closed classification of a user message's purpose.
type Intent string

const (
	IntentQA            Intent = "qa"
	IntentSummarization Intent = "summarization"
	IntentCalculation   Intent = "calculation"
	IntentOther         Intent = "other"
)

// ParseIntent rejects unknown labels at the mapping boundary.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentQA, IntentSummarization, IntentCalculation, IntentOther:
		return Intent(s), nil
	default:
		return "", fmt.Errorf("%w: unknown intent=%q", ErrSchemaViolation, s)
	}
}

// ModelRole selects per-role model overrides in the LLM config.
type ModelRole string

const (
	RoleClassifier ModelRole = "classifier"
	RoleComposer   ModelRole = "composer"
)

// Document is a catalog entry. Numeric amounts live in Metadata as strings so
// downstream decimal parsing stays exact.
type Document struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Type     string            `json:"type"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ClassifyRequest struct {
	Message    string `json:"message"`
	Summary    string `json:"summary,omitempty"`
	PrevIntent Intent `json:"previous_intent,omitempty"`
}

type ClassifyResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

type ComposeRequest struct {
	Intent      Intent     `json:"intent"`
	UserMessage string     `json:"user_message"`
	Summary     string     `json:"summary,omitempty"`
	Documents   []Document `json:"documents,omitempty"`
	ToolNotes   []string   `json:"tool_notes,omitempty"`
}

// AssistantReply is what the front-end renders: the text plus the metadata
// block (intent, sources, tools used) that must never be misleading.
type AssistantReply struct {
	Text      string   `json:"text"`
	Intent    Intent   `json:"intent"`
	Sources   []string `json:"sources,omitempty"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

// ToolResult is the immediate outcome of one tool execution. A tool-level
// failure is carried in Error with a nil transport error, so a failing tool
// still produces an audit record instead of aborting the turn.
type ToolResult struct {
	Tool     string `json:"tool"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
	NotFound bool   `json:"not_found,omitempty"`
}

// ToolInvocation is the append-only provenance record kept per turn and
// mirrored into the audit log. Never mutated after creation.
type ToolInvocation struct {
	Tool      string          `json:"tool"`
	Args      map[string]any  `json:"args,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	OK        bool            `json:"ok"`
	NotFound  bool            `json:"not_found,omitempty"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"started_at"`
}

// SourceDocuments returns the document ids this invocation actually touched,
// in argument order. Used to enforce the no-uncited-grounding invariant.
func (inv ToolInvocation) SourceDocuments() []string {
	var ids []string
	if id, ok := inv.Args["document_id"].(string); ok && id != "" {
		ids = append(ids, id)
	}
	switch raw := inv.Args["document_ids"].(type) {
	case []string:
		ids = append(ids, raw...)
	case []any:
		for _, v := range raw {
			if id, ok := v.(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
