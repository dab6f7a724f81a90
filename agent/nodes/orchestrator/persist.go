package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/pattarawat/docassist/agent/contract"
	statex "github.com/pattarawat/docassist/agent/state"
)

// UpdateContext builds the exchange turns, enforces the citation invariant,
// and folds the exchange into the next context snapshot.
func (n *Nodes) UpdateContext(ctx context.Context, st *GraphState) (*GraphState, error) {
	if st.SetPhase != nil {
		st.SetPhase(PhaseUpdating)
	}
	st.UserTurn = statex.Turn{
		Role:      statex.RoleUser,
		Text:      st.Text,
		CreatedAt: st.Now,
	}

	assistant := statex.Turn{
		Role:        statex.RoleAssistant,
		Text:        st.ReplyText,
		CreatedAt:   st.Now,
		Intent:      st.Intent,
		Sources:     st.Sources,
		Invocations: st.Invocations,
	}
	if st.ClassifierFallback || st.ModelFallback || st.Recovered {
		assistant.Meta = map[string]string{}
		if st.ClassifierFallback {
			assistant.Meta[statex.MetaClassifierFallback] = "true"
		}
		if st.ModelFallback {
			assistant.Meta[statex.MetaModelFallback] = "true"
		}
		if st.Recovered {
			assistant.Meta[statex.MetaRecoveredError] = "true"
		}
	}

	if err := statex.ValidateTurn(assistant); err != nil {
		return nil, fmt.Errorf("validate assistant turn: %w", err)
	}

	st.AssistantTurn = assistant
	st.NextContext = statex.UpdateContext(st.Session.Context, st.Text, assistant, n.MaxSummaryRunes)
	return st, nil
}

// PersistExchange commits the exchange atomically. On store failure nothing is
// applied in memory and the caller sees the turn as never having happened.
func (n *Nodes) PersistExchange(ctx context.Context, st *GraphState) (*GraphState, error) {
	err := n.Store.AppendExchange(ctx, st.Session.ID, st.UserTurn, st.AssistantTurn, st.NextContext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSaved, err)
	}
	st.Session.AppendExchange(st.UserTurn, st.AssistantTurn, st.NextContext, st.Now)
	return st, nil
}

// RecordAudit mirrors the turn's invocations into the audit log. Best-effort:
// a sink failure is logged and the turn still succeeds.
func (n *Nodes) RecordAudit(ctx context.Context, st *GraphState) (*GraphState, error) {
	for _, inv := range st.Invocations {
		if err := n.Audit.Record(ctx, st.Session.ID, inv); err != nil {
			log.Warn().Err(err).
				Str("session_id", st.Session.ID).
				Str("tool", inv.Tool).
				Msg("audit record failed")
		}
	}
	return st, nil
}

// FinalizeReply projects the committed assistant turn into the reply payload.
func (n *Nodes) FinalizeReply(ctx context.Context, st *GraphState) (*contractx.AssistantReply, error) {
	var tools []string
	seen := make(map[string]bool)
	for _, inv := range st.Invocations {
		if !seen[inv.Tool] {
			seen[inv.Tool] = true
			tools = append(tools, inv.Tool)
		}
	}

	st.Reply = contractx.AssistantReply{
		Text:      st.AssistantTurn.Text,
		Intent:    st.AssistantTurn.Intent,
		Sources:   st.AssistantTurn.Sources,
		ToolsUsed: tools,
	}
	return &st.Reply, nil
}
