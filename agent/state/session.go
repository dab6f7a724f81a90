package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn meta keys. Recovered errors are flagged here so the turn is
// distinguishable in logs from a genuine answer.
const (
	MetaClassifierFallback = "classifier_fallback"
	MetaModelFallback      = "model_fallback"
	MetaRecoveredError     = "recovered_error"
)

// Turn is one message within a session's ordered history. Immutable once
// appended; turns are never reordered or deleted.
type Turn struct {
	Role        Role                       `json:"role"`
	Text        string                     `json:"text"`
	CreatedAt   time.Time                  `json:"created_at"`
	Intent      contractx.Intent           `json:"intent,omitempty"`
	Sources     []string                   `json:"sources,omitempty"`
	Invocations []contractx.ToolInvocation `json:"invocations,omitempty"`
	Meta        map[string]string          `json:"meta,omitempty"`
}

// Context is the accumulated conversational grounding: the set of documents
// discussed so far (insertion ordered, membership matters) plus a bounded
// rolling summary.
type Context struct {
	Documents []string `json:"documents,omitempty"`
	Summary   string   `json:"summary,omitempty"`
}

func (c Context) HasDocument(id string) bool {
	for _, d := range c.Documents {
		if d == id {
			return true
		}
	}
	return false
}

// LastDocument returns the most recently added document id.
func (c Context) LastDocument() (string, bool) {
	if len(c.Documents) == 0 {
		return "", false
	}
	return c.Documents[len(c.Documents)-1], true
}

func (c Context) clone() Context {
	return Context{
		Documents: append([]string(nil), c.Documents...),
		Summary:   c.Summary,
	}
}

// Session is the persistent source-of-truth for one conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns,omitempty"`
	Context   Context   `json:"context"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionSummary is the list-view projection of a session.
type SessionSummary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// LastAssistantTurn returns the most recent assistant turn, or nil.
func (s *Session) LastAssistantTurn() *Turn {
	if s == nil {
		return nil
	}
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleAssistant {
			return &s.Turns[i]
		}
	}
	return nil
}

// AppendExchange applies a committed user/assistant pair to the in-memory
// session. Callers persist first; this runs only after the store accepted it.
func (s *Session) AppendExchange(userTurn, assistantTurn Turn, next Context, now time.Time) {
	s.Turns = append(s.Turns, userTurn, assistantTurn)
	s.Context = next
	s.Touch(now)
}

var (
	ErrEmptyTurn        = errors.New("turn text is empty")
	ErrUngroundedSource = errors.New("source not backed by a tool invocation")
	ErrMissingSources   = errors.New("grounded answer must cite sources")
)

// ValidateTurn enforces the no-uncited-grounding invariant before an
// assistant turn is persisted: every cited source must have been passed to a
// recorded tool invocation, and a qa/calculation turn that successfully
// consulted a document must cite at least one source. A turn flagged as a
// recovered error (not-found reply, clarification after a tool failure) keeps
// the first check but is exempt from the citation requirement, since its text
// reports the problem rather than document content.
func ValidateTurn(t Turn) error {
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyTurn
	}
	if t.Role != RoleAssistant {
		return nil
	}
	if _, err := contractx.ParseIntent(string(t.Intent)); err != nil {
		return err
	}
	if t.Intent != contractx.IntentQA && t.Intent != contractx.IntentCalculation {
		return nil
	}

	touched := make(map[string]bool)
	consulted := false
	for _, inv := range t.Invocations {
		for _, id := range inv.SourceDocuments() {
			touched[id] = true
			if inv.OK {
				consulted = true
			}
		}
	}
	for _, src := range t.Sources {
		if !touched[src] {
			return fmt.Errorf("%w: %s", ErrUngroundedSource, src)
		}
	}
	if consulted && len(t.Sources) == 0 && t.Meta[MetaRecoveredError] != "true" {
		return ErrMissingSources
	}
	return nil
}
