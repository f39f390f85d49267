package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey int

const traceIDKey ctxKey = iota

// TraceHeader carries the request trace id. It is echoed on every response
// so cloud-side logs and gateway logs can be correlated per request.
const TraceHeader = "X-Trace-Id"

// Trace assigns each request a trace id, honoring one supplied by the cloud
// service, and stores it in the request context for handler logging.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(TraceHeader, id)
		ctx := context.WithValue(r.Context(), traceIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceIDFromCtx returns the request's trace id, or "" outside a traced
// request.
func TraceIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
