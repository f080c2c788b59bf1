package http

import (
	"net/http"
	"runtime/debug"

	"github.com/avelichko/taskdeck/backend/internal/common/logger"
)

func RecoveryMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					traceID := TraceIDFromContext(r.Context())
					log.Criticalf("panic recovered trace_id=%s: %v\n%s", traceID, err, debug.Stack())
					WriteErrorEnvelope(w, http.StatusInternalServerError, CodeUnknown, "internal server error", nil, traceID)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
