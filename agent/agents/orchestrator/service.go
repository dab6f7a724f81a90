// Package orchestrator coordinates one conversation turn end to end: intent
// classification, tool dispatch, context accumulation, durable persistence,
// and audit. One handle per live session serializes its turns.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	auditx "github.com/pattarawat/docassist/agent/audit"
	contractx "github.com/pattarawat/docassist/agent/contract"
	nodex "github.com/pattarawat/docassist/agent/nodes/orchestrator"
	statex "github.com/pattarawat/docassist/agent/state"
	toolx "github.com/pattarawat/docassist/agent/tool"
)

var (
	ErrTurnInFlight  = errors.New("a turn is already in flight for this session")
	ErrSessionClosed = errors.New("session is closed")
)

// SessionHandle is the in-memory face of one live session. Turns are strictly
// sequential per handle; a second SendMessage while one is in flight is
// rejected, never queued.
type SessionHandle struct {
	session *statex.Session

	phase          atomic.Int32
	closeRequested atomic.Bool
}

func newSessionHandle(s *statex.Session) *SessionHandle {
	return &SessionHandle{session: s}
}

func (h *SessionHandle) ID() string     { return h.session.ID }
func (h *SessionHandle) UserID() string { return h.session.UserID }

// Session returns the live in-memory session. Callers must not mutate it.
func (h *SessionHandle) Session() *statex.Session { return h.session }

// Phase reports where the session currently is.
func (h *SessionHandle) Phase() nodex.Phase {
	return nodex.Phase(h.phase.Load())
}

// begin claims the handle for one turn.
func (h *SessionHandle) begin() error {
	if h.phase.CompareAndSwap(int32(nodex.PhaseIdle), int32(nodex.PhaseClassifying)) {
		return nil
	}
	if nodex.Phase(h.phase.Load()) == nodex.PhaseClosed {
		return ErrSessionClosed
	}
	return ErrTurnInFlight
}

func (h *SessionHandle) setPhase(p nodex.Phase) {
	// Never resurrect a closed handle.
	if nodex.Phase(h.phase.Load()) == nodex.PhaseClosed {
		return
	}
	h.phase.Store(int32(p))
}

// finish releases the handle after a turn. A close requested while the turn
// was in flight takes effect here.
func (h *SessionHandle) finish() {
	if h.closeRequested.Load() {
		h.phase.Store(int32(nodex.PhaseClosed))
		return
	}
	h.setPhase(nodex.PhaseIdle)
}

// close marks the handle closed. If a turn is in flight the close is deferred
// until that turn finishes.
func (h *SessionHandle) close() {
	h.closeRequested.Store(true)
	h.phase.CompareAndSwap(int32(nodex.PhaseIdle), int32(nodex.PhaseClosed))
}

// Config tunes the orchestrator.
type Config struct {
	MaxSummaryRunes int `envconfig:"MAX_SUMMARY_RUNES" split_words:"true" default:"2000"`
}

// Orchestrator owns the turn pipeline and the set of live session handles.
type Orchestrator struct {
	store   statex.Store
	models  contractx.Registry
	catalog contractx.DocumentCatalog
	audit   contractx.AuditLog

	runner compose.Runnable[*nodex.GraphState, *contractx.AssistantReply]

	mu      sync.Mutex
	handles map[string]*SessionHandle

	cfg Config
	now func() time.Time
}

func New(ctx context.Context, cfg Config, store statex.Store, models contractx.Registry, catalog contractx.DocumentCatalog, audit contractx.AuditLog) (*Orchestrator, error) {
	if cfg.MaxSummaryRunes <= 0 {
		cfg.MaxSummaryRunes = statex.DefaultMaxSummaryRunes
	}
	if audit == nil {
		audit = auditx.Noop{}
	}

	nodes := &nodex.Nodes{
		Models:          models,
		Catalog:         catalog,
		Audit:           audit,
		Store:           store,
		Exec:            toolx.NewExecutor(catalog, models.Composer()),
		MaxSummaryRunes: cfg.MaxSummaryRunes,
		Now:             time.Now,
	}

	runner, err := compileTurnGraph(ctx, nodes)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		store:   store,
		models:  models,
		catalog: catalog,
		audit:   audit,
		runner:  runner,
		handles: make(map[string]*SessionHandle),
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// StartSession creates a new session, or resumes an existing one when
// resumeID is set. Resume rebuilds the context by replaying the persisted
// history through the accumulator, so a stale stored snapshot cannot leak in.
func (o *Orchestrator) StartSession(ctx context.Context, userID, resumeID string) (*SessionHandle, error) {
	if resumeID != "" {
		return o.resume(ctx, resumeID)
	}

	session, err := o.store.Create(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	handle := newSessionHandle(session)
	o.mu.Lock()
	o.handles[session.ID] = handle
	o.mu.Unlock()

	log.Info().Str("session_id", session.ID).Str("user_id", userID).Msg("session started")
	return handle, nil
}

func (o *Orchestrator) resume(ctx context.Context, sessionID string) (*SessionHandle, error) {
	o.mu.Lock()
	if handle, ok := o.handles[sessionID]; ok {
		o.mu.Unlock()
		if handle.Phase() == nodex.PhaseClosed {
			return nil, ErrSessionClosed
		}
		return handle, nil
	}
	o.mu.Unlock()

	session, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	session.Context = statex.ReplayContext(session.Turns, o.cfg.MaxSummaryRunes)

	handle := newSessionHandle(session)
	o.mu.Lock()
	if existing, ok := o.handles[sessionID]; ok {
		// Lost the race; reuse the earlier handle.
		handle = existing
	} else {
		o.handles[sessionID] = handle
	}
	o.mu.Unlock()

	log.Info().Str("session_id", sessionID).Int("turns", len(session.Turns)).Msg("session resumed")
	return handle, nil
}

// Session returns the live handle for a session, loading and replaying it
// from the store when it is not in memory.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*SessionHandle, error) {
	return o.resume(ctx, sessionID)
}

// SendMessage runs one full turn. On any pipeline error before the exchange
// is persisted, the session is unchanged and the same message can be retried.
func (o *Orchestrator) SendMessage(ctx context.Context, handle *SessionHandle, text string) (contractx.AssistantReply, error) {
	if handle == nil {
		return contractx.AssistantReply{}, statex.ErrNilSession
	}
	if err := handle.begin(); err != nil {
		return contractx.AssistantReply{}, err
	}
	defer handle.finish()

	st := &nodex.GraphState{
		Session:  handle.session,
		Text:     text,
		SetPhase: handle.setPhase,
	}

	reply, err := o.runner.Invoke(ctx, st)
	if err != nil {
		return contractx.AssistantReply{}, err
	}
	return *reply, nil
}

// ListSessions returns the stored sessions of one user.
func (o *Orchestrator) ListSessions(ctx context.Context, userID string) ([]statex.SessionSummary, error) {
	return o.store.List(ctx, userID)
}

// ListDocuments returns the ids of every document in the catalog.
func (o *Orchestrator) ListDocuments(ctx context.Context) ([]string, error) {
	return o.catalog.List(ctx)
}

// AuditTrail returns the recorded tool invocations of one session.
func (o *Orchestrator) AuditTrail(ctx context.Context, sessionID string) ([]contractx.ToolInvocation, error) {
	return o.audit.List(ctx, sessionID)
}

// Close closes one session handle and forgets it. Safe to call while a turn
// is in flight; the close takes effect when the turn completes. The session
// itself stays in the store and can be resumed again with a fresh handle.
func (o *Orchestrator) Close(sessionID string) {
	o.mu.Lock()
	handle, ok := o.handles[sessionID]
	delete(o.handles, sessionID)
	o.mu.Unlock()
	if ok {
		handle.close()
	}
}

// CloseAll closes every live handle, e.g. on shutdown.
func (o *Orchestrator) CloseAll() {
	o.mu.Lock()
	handles := make([]*SessionHandle, 0, len(o.handles))
	for _, h := range o.handles {
		handles = append(handles, h)
	}
	o.handles = make(map[string]*SessionHandle)
	o.mu.Unlock()
	for _, h := range handles {
		h.close()
	}
}
