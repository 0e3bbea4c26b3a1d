package audit

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/access"
)

// elevatedResources get SeverityElevated regardless of method; deletions
// are always elevated.
var elevatedResources = map[string]bool{
	"prescriptions": true,
	"invoices":      true,
	"payments":      true,
}

// sensitiveReadPrefixes are the read endpoints that still get audited.
var sensitiveReadPrefixes = []string{
	"/api/v1/patients",
}

// Middleware records an audit entry for every state-changing request (and
// sensitive reads) after the response is finalized. The recorder is
// non-blocking and its failures never reach the client: the primary
// request's latency and outcome are unaffected by the audit path.
func Middleware(rec Recorder, logger zerolog.Logger, bodyLimit int) func(http.Handler) http.Handler {
	if bodyLimit <= 0 {
		bodyLimit = 64 * 1024
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auditable(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil && r.Method != http.MethodGet {
				captured, err := io.ReadAll(io.LimitReader(r.Body, int64(bodyLimit)))
				if err == nil {
					body = captured
					r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(captured), r.Body))
				} else {
					logger.Warn().Err(err).Msg("failed to capture request body for audit")
				}
			}

			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			entry := Entry{
				Action:         classifyAction(r.Method),
				Method:         r.Method,
				Endpoint:       r.URL.Path,
				IPAddress:      clientIP(r),
				UserAgent:      r.UserAgent(),
				RequestBody:    RedactBody(body),
				ResponseStatus: wrapped.status,
				Success:        wrapped.status < http.StatusBadRequest,
				CreatedAt:      time.Now().UTC(),
			}
			entry.Resource, entry.ResourceID = splitResource(r.URL.Path)
			entry.Severity = classifySeverity(r.Method, entry.Resource)

			if p, ok := access.PrincipalFromContext(r.Context()); ok {
				id := p.UserID
				entry.UserID = &id
				entry.Metadata = map[string]any{"role": string(p.Role)}
			}

			rec.Record(entry)
		})
	}
}

func auditable(method, path string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return strings.HasPrefix(path, "/api/")
	case http.MethodGet:
		for _, prefix := range sensitiveReadPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}
	return false
}

func classifyAction(method string) string {
	switch method {
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}

func classifySeverity(method, resource string) Severity {
	if method == http.MethodDelete || elevatedResources[resource] {
		return SeverityElevated
	}
	return SeverityInfo
}

// splitResource parses /api/v1/<resource>/<id>/... into its resource
// segment and, when present, the identifier that follows it.
func splitResource(path string) (resource, id string) {
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	if trimmed == path {
		trimmed = strings.TrimPrefix(path, "/api/")
	}

	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}

	resource = segments[0]
	if len(segments) > 1 {
		id = segments[1]
	}
	return resource, id
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	return r.RemoteAddr
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
