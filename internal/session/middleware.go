package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenDecoder verifies an access token and returns the user id it carries.
type TokenDecoder interface {
	Decode(token string) (int64, error)
}

// Resolver turns a bearer token into a request identity. It is best-effort
// on purpose: a missing or bad token leaves the request anonymous and the
// chain continues, so that public routes and the access guard each decide
// for themselves what anonymity means.
type Resolver struct {
	decoder TokenDecoder
	log     *logger.Logger
}

func NewResolver(decoder TokenDecoder, log *logger.Logger) *Resolver {
	return &Resolver{decoder: decoder, log: log}
}

func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get("Authorization")
		if header == "" {
			metrics.SessionsResolved.WithLabelValues("anonymous").Inc()
			next.ServeHTTP(w, req)
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			metrics.SessionsResolved.WithLabelValues("malformed").Inc()
			r.log.WithFields(req.Context(), logger.Fields{
				"path": req.URL.Path,
			}).Debug("authorization header is not a bearer token")
			next.ServeHTTP(w, req)
			return
		}

		userID, err := r.decoder.Decode(token)
		if err != nil {
			metrics.SessionsResolved.WithLabelValues("invalid").Inc()
			r.log.WithFields(req.Context(), logger.Fields{
				"path": req.URL.Path,
			}).Debugf("access token rejected: %v", err)
			next.ServeHTTP(w, req)
			return
		}

		metrics.SessionsResolved.WithLabelValues("authenticated").Inc()
		ctx := context.WithValue(req.Context(), userIDKey, userID)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// WithUserID is the test hook for building pre-authenticated contexts.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
