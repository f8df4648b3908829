// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// TraceHeader is the header a client may use to supply its own trace
// identifier; the same header carries the id back on every response.
const TraceHeader = "X-Trace-Id"

type traceIDKey struct{}

// TraceID attaches a request-scoped trace identifier to the context:
// the inbound X-Trace-Id header when present, a generated UUID
// otherwise. The id is echoed on the response so clients and log lines
// can be correlated.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(TraceHeader, id)
		ctx := context.WithValue(r.Context(), traceIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTraceID returns the trace id stored by TraceID, or "" when the
// middleware did not run (e.g. in isolated handler tests).
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
