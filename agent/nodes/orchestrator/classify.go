package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/pattarawat/docassist/agent/contract"
	statex "github.com/pattarawat/docassist/agent/state"
)

// lowConfidenceThreshold is the tie-break line: below it the classifier's
// label is not trusted and the previous assistant intent carries over.
const lowConfidenceThreshold = 0.5

// ValidateRequest rejects unusable input before any collaborator is touched
// and snapshots the per-turn facts the later nodes read.
func (n *Nodes) ValidateRequest(ctx context.Context, st *GraphState) (*GraphState, error) {
	if st.Session == nil {
		return nil, statex.ErrNilSession
	}
	st.Text = strings.TrimSpace(st.Text)
	if st.Text == "" {
		return nil, ErrInvalidMessage
	}

	st.Now = n.now()
	if last := st.Session.LastAssistantTurn(); last != nil {
		st.PrevIntent = last.Intent
	}
	return st, nil
}

// ClassifyIntent maps the message to an intent. A classifier failure is
// recovered by routing to the conversational path; low confidence inherits
// the previous turn's intent so follow-ups stay on topic.
func (n *Nodes) ClassifyIntent(ctx context.Context, st *GraphState) (*GraphState, error) {
	result, err := n.Models.Classifier().Classify(ctx, contractx.ClassifyRequest{
		Message:    st.Text,
		Summary:    st.Session.Context.Summary,
		PrevIntent: st.PrevIntent,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("session_id", st.Session.ID).
			Msg("classifier failed, routing to conversational path")
		st.Classification = contractx.ClassifyResult{
			Intent:    contractx.IntentOther,
			Reasoning: fmt.Sprintf("classifier unavailable: %v", err),
		}
		st.ClassifierFallback = true
		st.Intent = contractx.IntentOther
		return st, nil
	}

	st.Classification = result
	st.Intent = result.Intent
	if result.Confidence < lowConfidenceThreshold {
		inherited := st.PrevIntent
		if inherited == "" {
			inherited = contractx.IntentQA
		}
		log.Debug().
			Str("session_id", st.Session.ID).
			Str("classified", string(result.Intent)).
			Float64("confidence", result.Confidence).
			Str("inherited", string(inherited)).
			Msg("low confidence classification, inheriting intent")
		st.Intent = inherited
	}
	return st, nil
}
