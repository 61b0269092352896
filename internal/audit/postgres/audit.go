package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/oneaccess/internal/audit"
)

const insertEvent = `INSERT INTO audit_events (
	id, ts, user_id, company_id, gate_id, reader_id, decision, reason, detail,
	door_status, delegated_by, visitor_pass_id, annotation, auto_closed_session_id
) VALUES (
	:id, :ts, :user_id, :company_id, :gate_id, :reader_id, :decision, :reason, :detail,
	:door_status, :delegated_by, :visitor_pass_id, :annotation, :auto_closed_session_id
)`

const selectRecent = `SELECT
	id, ts, user_id, company_id, gate_id, reader_id, decision, reason, detail,
	door_status, delegated_by, visitor_pass_id, annotation, auto_closed_session_id
FROM audit_events
ORDER BY ts DESC
LIMIT ?`

// AuditStore writes audit events with plain SQL through sqlx.
type AuditStore struct {
	db *sqlx.DB
}

func NewAuditStore(db *sqlx.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, e *audit.Event) error {
	row := *e
	row.Timestamp = e.Timestamp.UTC()
	_, err := s.db.NamedExecContext(ctx, insertEvent, &row)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit int) ([]*audit.Event, error) {
	var rows []*audit.Event
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(selectRecent), limit); err != nil {
		return nil, err
	}
	for _, e := range rows {
		e.Timestamp = e.Timestamp.In(time.UTC)
	}
	return rows, nil
}
