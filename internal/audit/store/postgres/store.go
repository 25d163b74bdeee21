// Package postgres persists audit events for the back-office trail.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"pakngate/internal/audit"
)

// Store implements audit.Publisher on top of PostgreSQL.
// Writes are synchronous; disclosure operations are low-volume enough that an
// outbox is not warranted here.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store. The *sql.DB is expected to be opened
// with the pgx stdlib driver by the caller.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Emit writes one audit event.
func (s *Store) Emit(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO disclosure_audit (id, occurred_at, action, case_code_hash, reason, client_ip, device_hint, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		event.Timestamp,
		string(event.Action),
		event.CaseCodeHash,
		event.Reason,
		event.ClientIP,
		event.DeviceHint,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
