package model

import (
	"context"
	"testing"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

func TestClassifyEmptyMessageSkipsModel(t *testing.T) {
	t.Parallel()

	// nil runner: an empty message must never reach the model
	c := &classifierImpl{}
	res, err := c.Classify(context.Background(), contractx.ClassifyRequest{Message: "   "})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Intent != contractx.IntentOther {
		t.Fatalf("intent = %s, want other", res.Intent)
	}
	if res.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", res.Confidence)
	}
}
