package prompt

import (
	"strings"
	"testing"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

func TestLoadPromptSetAllPresent(t *testing.T) {
	t.Parallel()

	p := LoadPromptSet()
	for name, content := range map[string]string{
		"classifier":    p.Classifier,
		"qa":            p.QA,
		"summarization": p.Summarization,
		"calculation":   p.Calculation,
		"conversation":  p.Conversation,
	} {
		if strings.TrimSpace(content) == "" {
			t.Errorf("prompt %s is empty", name)
		}
		// prompts pass through FString formatting, so literal braces would
		// be treated as placeholders
		if strings.ContainsAny(content, "{}") {
			t.Errorf("prompt %s contains braces", name)
		}
	}
}

func TestForIntentSelection(t *testing.T) {
	t.Parallel()

	p := LoadPromptSet()
	if p.ForIntent(contractx.IntentSummarization) != p.Summarization {
		t.Error("summarization intent should select summarization prompt")
	}
	if p.ForIntent(contractx.IntentCalculation) != p.Calculation {
		t.Error("calculation intent should select calculation prompt")
	}
	if p.ForIntent(contractx.IntentOther) != p.Conversation {
		t.Error("other intent should select conversation prompt")
	}
	if p.ForIntent(contractx.Intent("bogus")) != p.QA {
		t.Error("unknown intent should fall back to qa prompt")
	}
}
