package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	commondb "github.com/avelichko/taskdeck/backend/internal/common/db"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
)

// MembershipRepository answers the access guard's membership probe. It runs
// on the shared pool, outside any unit of work, because the guard fires
// before a request-scoped session exists.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Exists(ctx context.Context, userID, boardID int64) (bool, error) {
	start := time.Now()

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM board_memberships WHERE user_id = $1 AND board_id = $2
		)`,
		userID, boardID,
	).Scan(&exists)

	if err != nil {
		return false, commonerrors.ErrPersistence.WithCause(
			commondb.HandleQueryError(err, err, "check membership", start))
	}
	commondb.MeasureQueryDuration("check membership", start)

	return exists, nil
}
