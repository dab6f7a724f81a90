package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

// classifierLLMOutput is the JSON shape the classifier model must emit.
type classifierLLMOutput struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type classifierImpl struct {
	runner compose.Runnable[map[string]any, classifierLLMOutput]
}

var _ contractx.Classifier = (*classifierImpl)(nil)

func (c *classifierImpl) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.ClassifyResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		// Nothing to classify; an empty message is not a model concern.
		return contractx.ClassifyResult{
			Intent:     contractx.IntentOther,
			Confidence: 1,
			Reasoning:  "empty message",
		}, nil
	}

	payload := map[string]any{
		"message": req.Message,
	}
	if req.Summary != "" {
		payload["conversation_summary"] = req.Summary
	}
	if req.PrevIntent != "" {
		payload["previous_intent"] = string(req.PrevIntent)
	}

	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.ClassifyResult{}, fmt.Errorf("marshal classifier input: %w", err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.ClassifyResult{}, fmt.Errorf("%w: classifier: %v", contractx.ErrModelInvoke, err)
	}

	intent, err := contractx.ParseIntent(strings.ToLower(strings.TrimSpace(out.Intent)))
	if err != nil {
		return contractx.ClassifyResult{}, err
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return contractx.ClassifyResult{}, fmt.Errorf("%w: confidence=%v out of range", contractx.ErrSchemaViolation, out.Confidence)
	}

	return contractx.ClassifyResult{
		Intent:     intent,
		Confidence: out.Confidence,
		Reasoning:  strings.TrimSpace(out.Reasoning),
	}, nil
}
