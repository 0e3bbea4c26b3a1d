// Package audit records who did what to which resource. Emission is an
// explicit injected dependency: callers hand entries to a Recorder whose
// implementation is a non-blocking queue, so a slow or failing audit
// store can never block or fail the request being observed.
package audit

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityElevated Severity = "elevated"
)

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one immutable audit record. Rows are append-only; nothing in
// the application updates or deletes them.
type Entry struct {
	UserID         *uuid.UUID
	Action         string
	Resource       string
	ResourceID     string
	Method         string
	Endpoint       string
	IPAddress      string
	UserAgent      string
	RequestBody    []byte // redacted JSON snapshot, may be nil
	ResponseStatus int
	Severity       Severity
	Success        bool
	Metadata       map[string]any
	CreatedAt      time.Time
}
