package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careops/hospital-ops/internal/db"
)

type PgStore struct {
	q db.Querier
}

func NewPgStore(q db.Querier) *PgStore {
	return &PgStore{q: q}
}

func (s *PgStore) Append(ctx context.Context, entry Entry) error {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = data
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO audit_logs (user_id, action, resource, resource_id, method,
			endpoint, ip_address, user_agent, request_body, response_status,
			severity, success, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()))
	`, entry.UserID, entry.Action, entry.Resource, entry.ResourceID, entry.Method,
		entry.Endpoint, entry.IPAddress, entry.UserAgent, entry.RequestBody,
		entry.ResponseStatus, entry.Severity, entry.Success, metadata,
		nullableTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
