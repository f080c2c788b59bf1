package guard

import (
	"context"
	"net/http"
	"strconv"

	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	commonhttp "github.com/avelichko/taskdeck/backend/internal/common/http"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
	"github.com/avelichko/taskdeck/backend/internal/session"
)

type contextKey string

const boardIDKey contextKey = "board_id"

// MembershipChecker answers whether a user currently belongs to a board.
type MembershipChecker interface {
	Exists(ctx context.Context, userID, boardID int64) (bool, error)
}

// Guard protects board-scoped routes. Checks run in a fixed order so the
// caller always learns the most basic missing prerequisite first: identity,
// then a well-formed board id, then membership. Every request hits the
// store; membership decisions are never cached, so a revoked membership
// takes effect on the next request.
type Guard struct {
	memberships MembershipChecker
	errors      *commonhttp.ErrorHandler
}

func New(memberships MembershipChecker, errors *commonhttp.ErrorHandler) *Guard {
	return &Guard{memberships: memberships, errors: errors}
}

func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := session.UserIDFromContext(r.Context())
		if !ok {
			metrics.BoardAccessChecks.WithLabelValues("unauthenticated").Inc()
			g.errors.HandleError(w, r, commonerrors.ErrUnauthenticated)
			return
		}

		header := r.Header.Get(constants.BoardIDHeader)
		if header == "" {
			metrics.BoardAccessChecks.WithLabelValues("missing_board").Inc()
			g.errors.HandleError(w, r, commonerrors.ErrMissingBoardID)
			return
		}

		boardID, err := strconv.ParseInt(header, 10, 64)
		if err != nil {
			metrics.BoardAccessChecks.WithLabelValues("bad_board").Inc()
			g.errors.HandleError(w, r, commonerrors.ErrInvalidBoardID)
			return
		}

		member, err := g.memberships.Exists(r.Context(), userID, boardID)
		if err != nil {
			metrics.BoardAccessChecks.WithLabelValues("error").Inc()
			g.errors.HandleError(w, r, err)
			return
		}
		if !member {
			metrics.BoardAccessChecks.WithLabelValues("denied").Inc()
			g.errors.HandleError(w, r, commonerrors.ErrForbidden)
			return
		}

		metrics.BoardAccessChecks.WithLabelValues("granted").Inc()
		ctx := context.WithValue(r.Context(), boardIDKey, boardID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BoardIDFromContext returns the board id the guard admitted the request
// for.
func BoardIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(boardIDKey).(int64)
	return id, ok
}

// WithBoardID is the test hook for building pre-guarded contexts.
func WithBoardID(ctx context.Context, boardID int64) context.Context {
	return context.WithValue(ctx, boardIDKey, boardID)
}
