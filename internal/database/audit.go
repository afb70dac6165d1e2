package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinicbot/internal/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendAuditTx(ctx context.Context, ex execer, entry *models.AuditLogEntry) error {
	now := time.Now()
	result, err := ex.ExecContext(ctx,
		`INSERT INTO audit_logs (booking_id, actor_role, action, old_status, new_status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.BookingID, entry.ActorRole, entry.Action, entry.OldStatus, entry.NewStatus, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

// AppendAudit writes a standalone audit entry outside a mutation
// transaction.
func (db *DB) AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error {
	return appendAuditTx(ctx, db.DB, entry)
}

// ListAuditLog returns all audit entries, newest first.
func (db *DB) ListAuditLog(ctx context.Context) ([]*models.AuditLogEntry, error) {
	query := `SELECT id, booking_id, actor_role, action, COALESCE(old_status, ''), COALESCE(new_status, ''), created_at
              FROM audit_logs ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		e := &models.AuditLogEntry{}
		err := rows.Scan(&e.ID, &e.BookingID, &e.ActorRole, &e.Action, &e.OldStatus, &e.NewStatus, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
