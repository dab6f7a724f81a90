package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/pattarawat/docassist/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
	Context   []byte    `bun:"context"`
}

type turnRow struct {
	bun.BaseModel `bun:"table:turns,alias:t"`

	ID          int64     `bun:"id,pk,autoincrement"`
	SessionID   string    `bun:"session_id,notnull"`
	Seq         int       `bun:"seq,notnull"`
	Role        string    `bun:"role,notnull"`
	Text        string    `bun:"text,notnull"`
	Intent      string    `bun:"intent"`
	Sources     []byte    `bun:"sources"`
	Invocations []byte    `bun:"invocations"`
	Meta        []byte    `bun:"meta"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// SQLiteStore is the default durable Store, backed by bun over SQLite.
// A unique (session_id, seq) index rejects out-of-order or concurrent
// appends to the same session at the storage layer.
type SQLiteStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:docassist.db?_fk=1"
	}
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return store, nil
}

// DB exposes the underlying handle so the audit log can share one database.
func (s *SQLiteStore) DB() *bun.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	if _, err := s.db.NewCreateTable().
		Model((*turnRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	if _, err := s.db.NewCreateIndex().
		Model((*turnRow)(nil)).
		Index("idx_turns_session_seq").
		Unique().
		Column("session_id", "seq").
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	if _, err := s.db.NewCreateIndex().
		Model((*sessionRow)(nil)).
		Index("idx_sessions_user").
		Column("user_id", "created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	session := NewSession(uuid.NewString(), userID, s.now())
	row := sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) AppendExchange(ctx context.Context, sessionID string, userTurn, assistantTurn Turn, next Context) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if userTurn.Role != RoleUser || assistantTurn.Role != RoleAssistant {
		return fmt.Errorf("exchange must be a user/assistant pair")
	}

	contextJSON, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*sessionRow)(nil)).
			Where("id = ?", sessionID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return ErrSessionNotFound
		}

		seq, err := tx.NewSelect().
			Model((*turnRow)(nil)).
			Where("session_id = ?", sessionID).
			Count(ctx)
		if err != nil {
			return err
		}

		rows := make([]turnRow, 0, 2)
		for i, turn := range []Turn{userTurn, assistantTurn} {
			row, err := encodeTurn(sessionID, seq+i, turn)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert turns: %w", err)
		}

		if _, err := tx.NewUpdate().
			Model((*sessionRow)(nil)).
			Set("context = ?", contextJSON).
			Set("updated_at = ?", s.now().UTC()).
			Where("id = ?", sessionID).
			Exec(ctx); err != nil {
			return fmt.Errorf("update session context: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	var row sessionRow
	err := s.db.NewSelect().
		Model(&row).
		Where("id = ?", sessionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var turnRows []turnRow
	if err := s.db.NewSelect().
		Model(&turnRows).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	session := &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Context) > 0 {
		if err := json.Unmarshal(row.Context, &session.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	for _, tr := range turnRows {
		turn, err := decodeTurn(tr)
		if err != nil {
			return nil, err
		}
		session.Turns = append(session.Turns, turn)
	}
	return session, nil
}

func (s *SQLiteStore) List(ctx context.Context, userID string) ([]SessionSummary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	var rows []sessionRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var counts []struct {
		SessionID string `bun:"session_id"`
		Count     int    `bun:"cnt"`
	}
	if err := s.db.NewSelect().
		Model((*turnRow)(nil)).
		Column("session_id").
		ColumnExpr("count(*) AS cnt").
		Group("session_id").
		Scan(ctx, &counts); err != nil {
		return nil, fmt.Errorf("count turns: %w", err)
	}
	countBySession := make(map[string]int, len(counts))
	for _, c := range counts {
		countBySession[c.SessionID] = c.Count
	}

	summaries := make([]SessionSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, SessionSummary{
			ID:        row.ID,
			UserID:    row.UserID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
			TurnCount: countBySession[row.ID],
		})
	}
	return summaries, nil
}

func encodeTurn(sessionID string, seq int, turn Turn) (turnRow, error) {
	row := turnRow{
		SessionID: sessionID,
		Seq:       seq,
		Role:      string(turn.Role),
		Text:      turn.Text,
		Intent:    string(turn.Intent),
		CreatedAt: turn.CreatedAt.UTC(),
	}
	var err error
	if len(turn.Sources) > 0 {
		if row.Sources, err = json.Marshal(turn.Sources); err != nil {
			return turnRow{}, fmt.Errorf("marshal sources: %w", err)
		}
	}
	if len(turn.Invocations) > 0 {
		if row.Invocations, err = json.Marshal(turn.Invocations); err != nil {
			return turnRow{}, fmt.Errorf("marshal invocations: %w", err)
		}
	}
	if len(turn.Meta) > 0 {
		if row.Meta, err = json.Marshal(turn.Meta); err != nil {
			return turnRow{}, fmt.Errorf("marshal meta: %w", err)
		}
	}
	return row, nil
}

func decodeTurn(row turnRow) (Turn, error) {
	turn := Turn{
		Role:      Role(row.Role),
		Text:      row.Text,
		Intent:    contractx.Intent(row.Intent),
		CreatedAt: row.CreatedAt,
	}
	if len(row.Sources) > 0 {
		if err := json.Unmarshal(row.Sources, &turn.Sources); err != nil {
			return Turn{}, fmt.Errorf("unmarshal sources: %w", err)
		}
	}
	if len(row.Invocations) > 0 {
		if err := json.Unmarshal(row.Invocations, &turn.Invocations); err != nil {
			return Turn{}, fmt.Errorf("unmarshal invocations: %w", err)
		}
	}
	if len(row.Meta) > 0 {
		if err := json.Unmarshal(row.Meta, &turn.Meta); err != nil {
			return Turn{}, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return turn, nil
}
