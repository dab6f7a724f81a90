// Package audit keeps the append-only record of every tool invocation, keyed
// by session. Recording is best-effort by contract: callers log and continue
// when the sink is unavailable.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

type auditRow struct {
	bun.BaseModel `bun:"table:audit_records,alias:a"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SessionID string    `bun:"session_id,notnull"`
	Tool      string    `bun:"tool,notnull"`
	Args      []byte    `bun:"args"`
	Output    []byte    `bun:"output"`
	OK        bool      `bun:"ok,notnull"`
	NotFound  bool      `bun:"not_found,notnull"`
	Error     string    `bun:"error"`
	StartedAt time.Time `bun:"started_at,notnull"`
}

// BunAuditLog persists records in the same database as the session store.
type BunAuditLog struct {
	db *bun.DB
}

func NewBunAuditLog(ctx context.Context, db *bun.DB) (*BunAuditLog, error) {
	if _, err := db.NewCreateTable().
		Model((*auditRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("migrate audit log: %w", err)
	}
	if _, err := db.NewCreateIndex().
		Model((*auditRow)(nil)).
		Index("idx_audit_session").
		Column("session_id", "started_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("index audit log: %w", err)
	}
	return &BunAuditLog{db: db}, nil
}

func (a *BunAuditLog) Record(ctx context.Context, sessionID string, inv contractx.ToolInvocation) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is empty")
	}

	row := auditRow{
		SessionID: sessionID,
		Tool:      inv.Tool,
		Output:    inv.Output,
		OK:        inv.OK,
		NotFound:  inv.NotFound,
		Error:     inv.Error,
		StartedAt: inv.StartedAt.UTC(),
	}
	if len(inv.Args) > 0 {
		args, err := json.Marshal(inv.Args)
		if err != nil {
			return fmt.Errorf("marshal invocation args: %w", err)
		}
		row.Args = args
	}
	if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (a *BunAuditLog) List(ctx context.Context, sessionID string) ([]contractx.ToolInvocation, error) {
	var rows []auditRow
	if err := a.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("started_at ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	invs := make([]contractx.ToolInvocation, 0, len(rows))
	for _, row := range rows {
		inv := contractx.ToolInvocation{
			Tool:      row.Tool,
			Output:    row.Output,
			OK:        row.OK,
			NotFound:  row.NotFound,
			Error:     row.Error,
			StartedAt: row.StartedAt,
		}
		if len(row.Args) > 0 {
			if err := json.Unmarshal(row.Args, &inv.Args); err != nil {
				return nil, fmt.Errorf("unmarshal invocation args: %w", err)
			}
		}
		invs = append(invs, inv)
	}
	return invs, nil
}

// Noop discards records; used when no audit sink is configured.
type Noop struct{}

func (Noop) Record(context.Context, string, contractx.ToolInvocation) error {
	return nil
}

func (Noop) List(context.Context, string) ([]contractx.ToolInvocation, error) {
	return nil, nil
}
