package state

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrInvalidUser     = errors.New("user id is empty")
)

// Store is the durable session persistence contract. AppendExchange is the
// durability boundary: once it returns nil, both turns of the exchange are
// recoverable by a subsequent Load even across process restart. The append is
// atomic; a failure leaves the prior committed state untouched.
type Store interface {
	Create(ctx context.Context, userID string) (*Session, error)
	AppendExchange(ctx context.Context, sessionID string, userTurn, assistantTurn Turn, next Context) error
	Load(ctx context.Context, sessionID string) (*Session, error)
	List(ctx context.Context, userID string) ([]SessionSummary, error)
}
