package persistence

import (
	"context"
	"fmt"
	"time"

	commondb "github.com/avelichko/taskdeck/backend/internal/common/db"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
)

// Repository is the uniform CRUD surface shared by every entity type. Reads
// go straight to the store through the owning unit of work's session; the
// mutating operations only stage changes, which take effect together when
// the unit of work commits.
type Repository[T Auditable] struct {
	uow     *UnitOfWork
	binding Binding[T]
}

func NewRepository[T Auditable](uow *UnitOfWork, binding Binding[T]) *Repository[T] {
	return &Repository[T]{uow: uow, binding: binding}
}

// Get returns the single row matching pred. The predicate must be unique:
// more than one match is an invariant violation reported as
// ErrMultipleResults, zero matches as ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, pred Predicate) (T, error) {
	var zero T
	if r.uow.closed {
		return zero, commonerrors.ErrPersistence.WithCause(ErrUnitOfWorkClosed)
	}

	start := time.Now()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 2", r.binding.Columns, r.binding.Table, pred.Where)

	rows, err := r.uow.session.Query(ctx, query, pred.Args...)
	if err != nil {
		return zero, commonerrors.ErrPersistence.WithCause(
			commondb.HandleQueryError(err, nil, "get "+r.binding.Table, start))
	}
	defer rows.Close()

	var result T
	found := false
	for rows.Next() {
		if found {
			return zero, commonerrors.ErrMultipleResults
		}
		e, err := r.binding.Scan(rows)
		if err != nil {
			return zero, commonerrors.ErrPersistence.WithCause(err)
		}
		result = e
		found = true
	}
	if err := rows.Err(); err != nil {
		return zero, commonerrors.ErrPersistence.WithCause(err)
	}
	commondb.MeasureQueryDuration("get "+r.binding.Table, start)

	if !found {
		return zero, commonerrors.ErrNotFound
	}
	return result, nil
}

// List returns every row matching pred (all rows when pred is nil),
// optionally ordered. The result is never nil.
func (r *Repository[T]) List(ctx context.Context, pred *Predicate, order *Order) ([]T, error) {
	if r.uow.closed {
		return nil, commonerrors.ErrPersistence.WithCause(ErrUnitOfWorkClosed)
	}

	start := time.Now()
	query := fmt.Sprintf("SELECT %s FROM %s", r.binding.Columns, r.binding.Table)
	var args []any
	if pred != nil {
		query += " WHERE " + pred.Where
		args = pred.Args
	}
	if order != nil {
		query += " ORDER BY " + order.By
		if order.Desc {
			query += " DESC"
		}
	}

	rows, err := r.uow.session.Query(ctx, query, args...)
	if err != nil {
		return nil, commonerrors.ErrPersistence.WithCause(
			commondb.HandleQueryError(err, nil, "list "+r.binding.Table, start))
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		e, err := r.binding.Scan(rows)
		if err != nil {
			return nil, commonerrors.ErrPersistence.WithCause(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.ErrPersistence.WithCause(err)
	}
	commondb.MeasureQueryDuration("list "+r.binding.Table, start)

	return out, nil
}

// Create stages an insert. The entity's timestamps are assigned by the
// audit stamper during Commit, not here.
func (r *Repository[T]) Create(e T) T {
	r.uow.stage(&stagedChange{
		kind:   changeInsert,
		entity: e,
		build:  func() (string, []any) { return r.binding.Insert(e) },
	})
	return e
}

// Update stages a full-row replace of the tracked columns. Callers
// read-modify-write; partial merges are not provided.
func (r *Repository[T]) Update(e T) T {
	r.uow.stage(&stagedChange{
		kind:   changeUpdate,
		entity: e,
		build:  func() (string, []any) { return r.binding.Update(e) },
	})
	return e
}

// Delete stages a row removal.
func (r *Repository[T]) Delete(e T) T {
	r.uow.stage(&stagedChange{
		kind:   changeDelete,
		entity: e,
		build:  func() (string, []any) { return r.binding.Delete(e) },
	})
	return e
}
