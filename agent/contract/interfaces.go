package contract

import "context"

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResult, error)
}

type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (string, error)
}

type Registry interface {
	Classifier() Classifier
	Composer() Composer
}

// DocumentCatalog is the read-only document collaborator.
type DocumentCatalog interface {
	Lookup(ctx context.Context, documentID string) (Document, error)
	Search(ctx context.Context, query string) ([]string, error)
	List(ctx context.Context) ([]string, error)
}

// AuditLog is the append-only tool invocation record stream, one per session.
// Recording is best-effort: the orchestrator never fails a turn on a sink error.
type AuditLog interface {
	Record(ctx context.Context, sessionID string, inv ToolInvocation) error
	List(ctx context.Context, sessionID string) ([]ToolInvocation, error)
}
