package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	catalogx "github.com/pattarawat/docassist/agent/catalog"
	contractx "github.com/pattarawat/docassist/agent/contract"
	nodex "github.com/pattarawat/docassist/agent/nodes/orchestrator"
	statex "github.com/pattarawat/docassist/agent/state"
	toolx "github.com/pattarawat/docassist/agent/tool"
)

type fakeClassifier struct {
	fn func(req contractx.ClassifyRequest) (contractx.ClassifyResult, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.ClassifyResult, error) {
	return f.fn(req)
}

type fakeComposer struct {
	fn func(req contractx.ComposeRequest) (string, error)
}

func (f *fakeComposer) Compose(ctx context.Context, req contractx.ComposeRequest) (string, error) {
	return f.fn(req)
}

type fakeRegistry struct {
	classifier contractx.Classifier
	composer   contractx.Composer
}

func (f *fakeRegistry) Classifier() contractx.Classifier { return f.classifier }
func (f *fakeRegistry) Composer() contractx.Composer     { return f.composer }

func fixedClassifier(intent contractx.Intent, confidence float64) *fakeClassifier {
	return &fakeClassifier{fn: func(contractx.ClassifyRequest) (contractx.ClassifyResult, error) {
		return contractx.ClassifyResult{Intent: intent, Confidence: confidence}, nil
	}}
}

func echoComposer() *fakeComposer {
	return &fakeComposer{fn: func(req contractx.ComposeRequest) (string, error) {
		var ids []string
		for _, d := range req.Documents {
			ids = append(ids, d.ID)
		}
		return fmt.Sprintf("[%s] %s (%s)", req.Intent, req.UserMessage, strings.Join(ids, ",")), nil
	}}
}

// memStore is an in-memory Store with a switchable append failure.
type memStore struct {
	mu         sync.Mutex
	sessions   map[string]*statex.Session
	seq        int
	failAppend bool
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*statex.Session)}
}

func (m *memStore) Create(ctx context.Context, userID string) (*statex.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, statex.ErrInvalidUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s := statex.NewSession(fmt.Sprintf("s-%d", m.seq), userID, time.Now())
	m.sessions[s.ID] = copySession(s)
	return s, nil
}

func (m *memStore) AppendExchange(ctx context.Context, sessionID string, userTurn, assistantTurn statex.Turn, next statex.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return errors.New("disk full")
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return statex.ErrSessionNotFound
	}
	s.AppendExchange(userTurn, assistantTurn, next, time.Now())
	return nil
}

func (m *memStore) Load(ctx context.Context, sessionID string) (*statex.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, statex.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (m *memStore) List(ctx context.Context, userID string) ([]statex.SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []statex.SessionSummary
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, statex.SessionSummary{
				ID: s.ID, UserID: s.UserID, CreatedAt: s.CreatedAt,
				UpdatedAt: s.UpdatedAt, TurnCount: len(s.Turns),
			})
		}
	}
	return out, nil
}

func (m *memStore) setFail(fail bool) {
	m.mu.Lock()
	m.failAppend = fail
	m.mu.Unlock()
}

func (m *memStore) turnCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return len(s.Turns)
	}
	return 0
}

func copySession(s *statex.Session) *statex.Session {
	cp := *s
	cp.Turns = append([]statex.Turn(nil), s.Turns...)
	cp.Context = statex.Context{
		Documents: append([]string(nil), s.Context.Documents...),
		Summary:   s.Context.Summary,
	}
	return &cp
}

type memAudit struct {
	mu      sync.Mutex
	records map[string][]contractx.ToolInvocation
}

func newMemAudit() *memAudit {
	return &memAudit{records: make(map[string][]contractx.ToolInvocation)}
}

func (m *memAudit) Record(ctx context.Context, sessionID string, inv contractx.ToolInvocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sessionID] = append(m.records[sessionID], inv)
	return nil
}

func (m *memAudit) List(ctx context.Context, sessionID string) ([]contractx.ToolInvocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]contractx.ToolInvocation(nil), m.records[sessionID]...), nil
}

func newTestOrchestrator(t *testing.T, store statex.Store, registry contractx.Registry, audit contractx.AuditLog) *Orchestrator {
	t.Helper()
	orch, err := New(context.Background(), Config{}, store, registry, catalogx.Seeded(), audit)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch
}

func TestQATurnGroundsAnswerInLookup(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	audit := newMemAudit()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.92),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, audit)
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := orch.SendMessage(ctx, handle, "What is the total amount of INV-001?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Intent != contractx.IntentQA {
		t.Fatalf("intent = %s", reply.Intent)
	}
	if len(reply.Sources) != 1 || reply.Sources[0] != "INV-001" {
		t.Fatalf("sources = %v", reply.Sources)
	}
	if len(reply.ToolsUsed) != 1 || reply.ToolsUsed[0] != toolx.ToolDocumentLookup {
		t.Fatalf("tools = %v", reply.ToolsUsed)
	}
	if store.turnCount(handle.ID()) != 2 {
		t.Fatalf("persisted turns = %d, want 2", store.turnCount(handle.ID()))
	}

	invs, err := audit.List(ctx, handle.ID())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(invs) != 1 || invs[0].Tool != toolx.ToolDocumentLookup || !invs[0].OK {
		t.Fatalf("audit records = %+v", invs)
	}
}

func TestCalculationSumsInvoiceTotalsExactly(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentCalculation, 0.9),
		composer: &fakeComposer{fn: func(req contractx.ComposeRequest) (string, error) {
			if len(req.ToolNotes) != 1 {
				return "", fmt.Errorf("expected one tool note, got %v", req.ToolNotes)
			}
			return "Together they come to " + req.ToolNotes[0], nil
		}},
	}
	audit := newMemAudit()
	orch := newTestOrchestrator(t, store, registry, audit)
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := orch.SendMessage(ctx, handle, "Add the totals of INV-001 and INV-002")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(reply.Text, "4013.46") {
		t.Fatalf("reply = %q, want exact sum 4013.46", reply.Text)
	}
	if len(reply.Sources) != 2 {
		t.Fatalf("sources = %v", reply.Sources)
	}
	wantTools := []string{toolx.ToolDocumentLookup, toolx.ToolCalculator}
	if len(reply.ToolsUsed) != 2 || reply.ToolsUsed[0] != wantTools[0] || reply.ToolsUsed[1] != wantTools[1] {
		t.Fatalf("tools = %v, want %v", reply.ToolsUsed, wantTools)
	}

	invs, _ := audit.List(ctx, handle.ID())
	if len(invs) != 3 {
		t.Fatalf("audit records = %d, want 3 (two lookups, one calculation)", len(invs))
	}
}

func TestCalculationFromMessageNumbers(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentCalculation, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := orch.SendMessage(ctx, handle, "Calculate the sum of 100.10 and 200.20")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(reply.Text, "300.3") {
		t.Fatalf("reply = %q, want exact 300.3", reply.Text)
	}
	if len(reply.Sources) != 0 {
		t.Fatalf("sources = %v, want none for pure arithmetic", reply.Sources)
	}
	if len(reply.ToolsUsed) != 1 || reply.ToolsUsed[0] != toolx.ToolCalculator {
		t.Fatalf("tools = %v", reply.ToolsUsed)
	}
}

func TestSummarizationByDocumentType(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentSummarization, 0.88),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := orch.SendMessage(ctx, handle, "Summarize all contracts")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Intent != contractx.IntentSummarization {
		t.Fatalf("intent = %s", reply.Intent)
	}
	if len(reply.Sources) != 2 || reply.Sources[0] != "CON-001" || reply.Sources[1] != "CON-002" {
		t.Fatalf("sources = %v", reply.Sources)
	}
	if len(reply.ToolsUsed) != 1 || reply.ToolsUsed[0] != toolx.ToolSummarizer {
		t.Fatalf("tools = %v", reply.ToolsUsed)
	}
}

func TestAnaphoraResolvesToLastDocument(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := orch.SendMessage(ctx, handle, "What is the total of INV-002?"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	reply, err := orch.SendMessage(ctx, handle, "When is that due?")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if len(reply.Sources) != 1 || reply.Sources[0] != "INV-002" {
		t.Fatalf("sources = %v, want the previously discussed INV-002", reply.Sources)
	}
}

func TestUnknownDocumentProducesHonestReply(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.9),
		composer:   echoComposer(),
	}
	audit := newMemAudit()
	orch := newTestOrchestrator(t, store, registry, audit)
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := orch.SendMessage(ctx, handle, "What is the total of INV-999?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(reply.Text, "INV-999") {
		t.Fatalf("reply should name the missing document: %q", reply.Text)
	}
	if len(reply.Sources) != 0 {
		t.Fatalf("sources = %v, want none", reply.Sources)
	}

	invs, _ := audit.List(ctx, handle.ID())
	if len(invs) != 1 || !invs[0].NotFound {
		t.Fatalf("audit records = %+v, want one not-found lookup", invs)
	}
	if store.turnCount(handle.ID()) != 2 {
		t.Fatal("not-found turn must still be persisted")
	}
}

func TestMixedLookupReportsMissingDocument(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// one id resolves and one does not; the turn must still complete
	reply, err := orch.SendMessage(ctx, handle, "Compare INV-001 with INV-999")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(reply.Text, "INV-999") {
		t.Fatalf("reply should name the missing document: %q", reply.Text)
	}
	if len(reply.Sources) != 0 {
		t.Fatalf("sources = %v, want none", reply.Sources)
	}
	if store.turnCount(handle.ID()) != 2 {
		t.Fatal("mixed-lookup turn must still be persisted")
	}

	loaded, err := store.Load(ctx, handle.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Turns[1].Meta[statex.MetaRecoveredError] != "true" {
		t.Fatalf("meta = %v, want recovered error flag", loaded.Turns[1].Meta)
	}
}

func TestCalculationWithoutRecordedAmount(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentCalculation, 0.9),
		composer:   echoComposer(),
	}
	cat := catalogx.NewMemoryCatalog(contractx.Document{
		ID:      "REP-001",
		Title:   "Quarterly Operations Report",
		Type:    "report",
		Content: "Operations review for Q1.",
	})
	orch, err := New(context.Background(), Config{}, store, registry, cat, newMemAudit())
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := orch.SendMessage(ctx, handle, "Calculate the total of REP-001")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(reply.Text, "REP-001") {
		t.Fatalf("reply should name the document without an amount: %q", reply.Text)
	}
	if len(reply.Sources) != 0 {
		t.Fatalf("sources = %v, want none", reply.Sources)
	}
	if store.turnCount(handle.ID()) != 2 {
		t.Fatal("missing-amount turn must still be persisted")
	}

	loaded, err := store.Load(ctx, handle.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Turns[1].Meta[statex.MetaRecoveredError] != "true" {
		t.Fatalf("meta = %v, want recovered error flag", loaded.Turns[1].Meta)
	}
}

func TestClassifierFailureRoutesToConversation(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: &fakeClassifier{fn: func(contractx.ClassifyRequest) (contractx.ClassifyResult, error) {
			return contractx.ClassifyResult{}, errors.New("model timeout")
		}},
		composer: echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	reply, err := orch.SendMessage(ctx, handle, "hello there")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Intent != contractx.IntentOther {
		t.Fatalf("intent = %s, want other", reply.Intent)
	}

	loaded, err := store.Load(ctx, handle.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	meta := loaded.Turns[1].Meta
	if meta[statex.MetaClassifierFallback] != "true" {
		t.Fatalf("meta = %v, want classifier fallback flag", meta)
	}
}

func TestLowConfidenceInheritsPreviousIntent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	call := 0
	registry := &fakeRegistry{
		classifier: &fakeClassifier{fn: func(contractx.ClassifyRequest) (contractx.ClassifyResult, error) {
			call++
			if call == 1 {
				return contractx.ClassifyResult{Intent: contractx.IntentSummarization, Confidence: 0.95}, nil
			}
			return contractx.ClassifyResult{Intent: contractx.IntentOther, Confidence: 0.2}, nil
		}},
		composer: echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := orch.SendMessage(ctx, handle, "Summarize CON-001"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	reply, err := orch.SendMessage(ctx, handle, "and the same for CON-002 please")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if reply.Intent != contractx.IntentSummarization {
		t.Fatalf("intent = %s, want inherited summarization", reply.Intent)
	}
}

func TestPersistFailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	store.setFail(true)
	_, err = orch.SendMessage(ctx, handle, "What is the total of INV-001?")
	if !errors.Is(err, nodex.ErrNotSaved) {
		t.Fatalf("expected ErrNotSaved, got %v", err)
	}
	if store.turnCount(handle.ID()) != 0 {
		t.Fatal("failed exchange must not be persisted")
	}
	if len(handle.Session().Turns) != 0 {
		t.Fatal("failed exchange must not be applied in memory")
	}

	// the same message can be retried once the store recovers
	store.setFail(false)
	if _, err := orch.SendMessage(ctx, handle, "What is the total of INV-001?"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if store.turnCount(handle.ID()) != 2 {
		t.Fatalf("persisted turns = %d, want 2", store.turnCount(handle.ID()))
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := orch.SendMessage(ctx, handle, "   "); !errors.Is(err, nodex.ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if store.turnCount(handle.ID()) != 0 {
		t.Fatal("rejected message must not be persisted")
	}
}

func TestResumeReplaysContext(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := orch.SendMessage(ctx, handle, "What is the total of CLM-001?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	// a fresh orchestrator sees only the store, as after a restart
	orch2 := newTestOrchestrator(t, store, registry, newMemAudit())
	resumed, err := orch2.StartSession(ctx, "", handle.ID())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	session := resumed.Session()
	if len(session.Turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(session.Turns))
	}
	if !session.Context.HasDocument("CLM-001") {
		t.Fatalf("replayed context = %+v, want CLM-001 tracked", session.Context)
	}
	if !strings.Contains(session.Context.Summary, "assistant(qa)") {
		t.Fatalf("replayed summary = %q", session.Context.Summary)
	}

	// the replayed context must drive anaphora on the next turn
	reply, err := orch2.SendMessage(ctx, resumed, "What is the status of that claim?")
	if err != nil {
		t.Fatalf("send after resume: %v", err)
	}
	if len(reply.Sources) != 1 || reply.Sources[0] != "CLM-001" {
		t.Fatalf("sources = %v, want CLM-001", reply.Sources)
	}
}

func TestSessionHandleLifecycle(t *testing.T) {
	t.Parallel()

	h := newSessionHandle(statex.NewSession("s1", "u1", time.Now()))
	if h.Phase() != nodex.PhaseIdle {
		t.Fatalf("phase = %s, want idle", h.Phase())
	}

	if err := h.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := h.begin(); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}

	// close requested mid-turn takes effect at finish
	h.close()
	if h.Phase() == nodex.PhaseClosed {
		t.Fatal("close must wait for the in-flight turn")
	}
	h.finish()
	if h.Phase() != nodex.PhaseClosed {
		t.Fatalf("phase = %s, want closed", h.Phase())
	}
	if err := h.begin(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestCloseIdleSession(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentOther, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	orch.Close(handle.ID())
	if _, err := orch.SendMessage(ctx, handle, "hello"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestClosedSessionCanBeResumed(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	registry := &fakeRegistry{
		classifier: fixedClassifier(contractx.IntentQA, 0.9),
		composer:   echoComposer(),
	}
	orch := newTestOrchestrator(t, store, registry, newMemAudit())
	ctx := context.Background()

	handle, err := orch.StartSession(ctx, "u1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	orch.Close(handle.ID())

	// the closed handle is forgotten, so the session loads fresh from the store
	resumed, err := orch.Session(ctx, handle.ID())
	if err != nil {
		t.Fatalf("resume after close: %v", err)
	}
	if resumed == handle {
		t.Fatal("resume must build a fresh handle, not revive the closed one")
	}
	if _, err := orch.SendMessage(ctx, resumed, "What is the total of INV-001?"); err != nil {
		t.Fatalf("send after resume: %v", err)
	}
}
