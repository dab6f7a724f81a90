// Package orchestratornode holds the per-turn pipeline nodes: validate,
// classify, dispatch tools, fold context, persist, audit, finalize. Each node
// is a pure-ish step over GraphState so the pipeline composes as an eino graph.
package orchestratornode

import (
	"errors"
	"time"

	contractx "github.com/pattarawat/docassist/agent/contract"
	statex "github.com/pattarawat/docassist/agent/state"
	toolx "github.com/pattarawat/docassist/agent/tool"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrNotSaved       = errors.New("exchange was not saved")
)

// Phase is the observable position of a session within a turn.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseClassifying
	PhaseDispatching
	PhaseUpdating
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseClassifying:
		return "classifying"
	case PhaseDispatching:
		return "dispatching"
	case PhaseUpdating:
		return "updating"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// GraphInput is what the orchestrator feeds into the compiled turn graph.
type GraphInput struct {
	Session *statex.Session
	Text    string
}

// GraphState is threaded through every node of one turn.
type GraphState struct {
	Session *statex.Session
	Text    string
	Now     time.Time

	// SetPhase, when non-nil, is notified as the turn advances. Used by the
	// session handle to expose where an in-flight turn currently is.
	SetPhase func(Phase)

	PrevIntent         contractx.Intent
	Classification     contractx.ClassifyResult
	ClassifierFallback bool

	Intent        contractx.Intent
	ReplyText     string
	Sources       []string
	Invocations   []contractx.ToolInvocation
	ModelFallback bool
	// Recovered marks a turn whose reply reports a locally recovered error
	// (unknown document, tool failure) instead of answering from content.
	Recovered bool

	UserTurn      statex.Turn
	AssistantTurn statex.Turn
	NextContext   statex.Context

	Reply contractx.AssistantReply
}

// Nodes bundles the collaborators the pipeline steps need.
type Nodes struct {
	Models          contractx.Registry
	Catalog         contractx.DocumentCatalog
	Audit           contractx.AuditLog
	Store           statex.Store
	Exec            toolx.Executor
	MaxSummaryRunes int
	Now             func() time.Time
}

func (n *Nodes) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}
