package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/qa.txt
	qaRaw string

	//go:embed template/summarization.txt
	summarizationRaw string

	//go:embed template/calculation.txt
	calculationRaw string

	//go:embed template/conversation.txt
	conversationRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier    string
	QA            string
	Summarization string
	Calculation   string
	Conversation  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:    strings.TrimSpace(classifierRaw),
		QA:            strings.TrimSpace(qaRaw),
		Summarization: strings.TrimSpace(summarizationRaw),
		Calculation:   strings.TrimSpace(calculationRaw),
		Conversation:  strings.TrimSpace(conversationRaw),
	}
}

// ForIntent returns the system prompt driving answer composition for an
// intent. Unrecognized intents fall back to the QA prompt.
func (p PromptSet) ForIntent(intent contractx.Intent) string {
	switch intent {
	case contractx.IntentSummarization:
		return p.Summarization
	case contractx.IntentCalculation:
		return p.Calculation
	case contractx.IntentOther:
		return p.Conversation
	default:
		return p.QA
	}
}
