package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/avelichko/taskdeck/backend/internal/auth/domain"
	commondb "github.com/avelichko/taskdeck/backend/internal/common/db"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
)

// RefreshTokenRepository manages refresh token rows directly on the pool.
// Token rotation is not part of any request's staged change set, so it does
// not go through a unit of work.
type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	start := time.Now()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		token.ID, token.TokenHash, token.UserID, token.ExpiresAt, token.CreatedAt,
	)

	return commondb.HandleExecError(err, "create refresh token", start)
}

func (r *RefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	start := time.Now()

	token := &domain.RefreshToken{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, token_hash, user_id, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash,
	).Scan(&token.ID, &token.TokenHash, &token.UserID, &token.ExpiresAt, &token.CreatedAt)

	if err != nil {
		return nil, commondb.HandleQueryError(err, commonerrors.ErrInvalidToken, "find refresh token", start)
	}
	return token, nil
}

// DeleteByTokenHash removes a presented token. Returning false means the
// row was already gone, which a caller treats as token reuse.
func (r *RefreshTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	start := time.Now()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err := commondb.HandleExecError(err, "delete refresh token", start); err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteByUserID drops every session the user holds.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	start := time.Now()

	_, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`, userID)

	return commondb.HandleExecError(err, "delete refresh tokens for user", start)
}

// DeleteExpired sweeps rows past their expiry. Run periodically.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err := commondb.HandleExecError(err, "delete expired refresh tokens", start); err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
