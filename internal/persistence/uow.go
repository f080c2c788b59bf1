package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
)

// ErrUnitOfWorkClosed surfaces use of a unit of work after Dispose.
var ErrUnitOfWorkClosed = errors.New("unit of work is disposed")

// Session is the store surface the unit of work owns for one request.
// *pgxpool.Conn and *pgxpool.Pool both satisfy it; tests substitute fakes.
type Session interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type changeKind int

const (
	changeInsert changeKind = iota
	changeUpdate
	changeDelete
)

type stagedChange struct {
	kind   changeKind
	entity Auditable
	build  func() (sql string, args []any)
}

// UnitOfWork scopes one store session to one logical operation. Repository
// mutations stage changes here; nothing reaches the store before Commit.
// Exactly one unit of work exists per request and it must not be reused
// after Dispose.
type UnitOfWork struct {
	session Session
	stamper *AuditStamper
	staged  []*stagedChange
	closed  bool
}

func New(session Session, clk clock.Clock) *UnitOfWork {
	return &UnitOfWork{
		session: session,
		stamper: NewAuditStamper(clk),
	}
}

func (u *UnitOfWork) stage(c *stagedChange) {
	u.staged = append(u.staged, c)
}

// Commit flushes all staged changes atomically: one transaction, audit
// stamping first, statements in staging order. Any failure rolls the whole
// transaction back and no staged change becomes visible.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.closed {
		return commonerrors.ErrPersistence.WithCause(ErrUnitOfWorkClosed)
	}
	if len(u.staged) == 0 {
		return nil
	}

	tx, err := u.session.Begin(ctx)
	if err != nil {
		metrics.UnitOfWorkCommits.WithLabelValues("begin_failed").Inc()
		return commonerrors.ErrPersistence.WithCause(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	u.stamper.Stamp(u.staged)

	for _, c := range u.staged {
		stmt, args := c.build()
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			_ = tx.Rollback(ctx)
			metrics.UnitOfWorkCommits.WithLabelValues("rollback").Inc()
			return commonerrors.ErrPersistence.WithCause(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.UnitOfWorkCommits.WithLabelValues("commit_failed").Inc()
		return commonerrors.ErrPersistence.WithCause(err)
	}

	u.staged = u.staged[:0]
	metrics.UnitOfWorkCommits.WithLabelValues("committed").Inc()
	return nil
}

// Dispose releases the underlying session. Idempotent; callers defer it
// right after construction so the session is returned on every exit path,
// whether or not Commit ran.
func (u *UnitOfWork) Dispose() {
	if u.closed {
		return
	}
	u.closed = true
	u.staged = nil
	if r, ok := u.session.(interface{ Release() }); ok {
		r.Release()
	}
}

// Factory hands out one unit of work per request.
type Factory interface {
	New(ctx context.Context) (*UnitOfWork, error)
}

type PoolFactory struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

func NewPoolFactory(pool *pgxpool.Pool, clk clock.Clock) *PoolFactory {
	return &PoolFactory{pool: pool, clock: clk}
}

func (f *PoolFactory) New(ctx context.Context) (*UnitOfWork, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, commonerrors.ErrPersistence.WithCause(err)
	}
	return New(conn, f.clock), nil
}
