package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
)

type note struct {
	ID   int64
	Body string
	Audit
}

func noteBinding() Binding[*note] {
	return Binding[*note]{
		Table:   "notes",
		Columns: "id, body, created_at, updated_at",
		Scan: func(row Row) (*note, error) {
			n := &note{}
			err := row.Scan(&n.ID, &n.Body, &n.CreatedAt, &n.UpdatedAt)
			return n, err
		},
		Insert: func(n *note) (string, []any) {
			return "INSERT INTO notes (id, body, created_at, updated_at) VALUES ($1, $2, $3, $4)",
				[]any{n.ID, n.Body, n.CreatedAt, n.UpdatedAt}
		},
		Update: func(n *note) (string, []any) {
			return "UPDATE notes SET body = $2, updated_at = $3 WHERE id = $1",
				[]any{n.ID, n.Body, n.UpdatedAt}
		},
		Delete: func(n *note) (string, []any) {
			return "DELETE FROM notes WHERE id = $1", []any{n.ID}
		},
	}
}

type execCall struct {
	sql  string
	args []any
}

type fakeTx struct {
	pgx.Tx
	execs     []execCall
	execErr   error
	failAfter int
	commits   int
	rollbacks int
	commitErr error
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if t.execErr != nil && len(t.execs) >= t.failAfter {
		return nil, t.execErr
	}
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag("OK"), nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.commits++
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.rollbacks++
	return nil
}

type fakeSession struct {
	tx       *fakeTx
	begins   int
	beginErr error
	queries  []execCall
	rows     pgx.Rows
	queryErr error
	released int
}

func (s *fakeSession) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag("OK"), nil
}

func (s *fakeSession) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	s.queries = append(s.queries, execCall{sql: sql, args: args})
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.rows, nil
}

func (s *fakeSession) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (s *fakeSession) Begin(_ context.Context) (pgx.Tx, error) {
	s.begins++
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.tx, nil
}

func (s *fakeSession) Release() {
	s.released++
}

func newTestUnitOfWork(session *fakeSession) (*UnitOfWork, *clock.MockClock) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(session, clk), clk
}

func TestCommitFlushesStagedChangesInOrder(t *testing.T) {
	tx := &fakeTx{failAfter: 100}
	session := &fakeSession{tx: tx}
	uow, _ := newTestUnitOfWork(session)
	repo := NewRepository(uow, noteBinding())

	repo.Create(&note{ID: 1, Body: "first"})
	repo.Update(&note{ID: 2, Body: "second"})
	repo.Delete(&note{ID: 3})

	if len(tx.execs) != 0 {
		t.Fatalf("staged changes reached the store before Commit: %d execs", len(tx.execs))
	}

	if err := uow.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if len(tx.execs) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(tx.execs))
	}
	wantPrefixes := []string{"INSERT INTO notes", "UPDATE notes", "DELETE FROM notes"}
	for i, want := range wantPrefixes {
		if got := tx.execs[i].sql; len(got) < len(want) || got[:len(want)] != want {
			t.Errorf("statement %d = %q, want prefix %q", i, got, want)
		}
	}
	if tx.commits != 1 {
		t.Errorf("expected 1 commit, got %d", tx.commits)
	}
	if tx.rollbacks != 0 {
		t.Errorf("expected no rollbacks, got %d", tx.rollbacks)
	}
}

func TestCommitStampsTimestampsBeforeFlush(t *testing.T) {
	tx := &fakeTx{failAfter: 100}
	session := &fakeSession{tx: tx}
	uow, clk := newTestUnitOfWork(session)
	repo := NewRepository(uow, noteBinding())

	n := repo.Create(&note{ID: 7, Body: "stamped"})

	if err := uow.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	now := clk.Now().UTC()
	if !n.CreatedAt.Equal(now) || !n.UpdatedAt.Equal(now) {
		t.Fatalf("insert timestamps = (%v, %v), want both %v", n.CreatedAt, n.UpdatedAt, now)
	}

	args := tx.execs[0].args
	if got := args[2].(time.Time); !got.Equal(now) {
		t.Errorf("created_at arg = %v, want %v", got, now)
	}
	if got := args[3].(time.Time); !got.Equal(now) {
		t.Errorf("updated_at arg = %v, want %v", got, now)
	}
}

func TestCommitExecFailureRollsBack(t *testing.T) {
	tx := &fakeTx{execErr: errors.New("constraint violated"), failAfter: 1}
	session := &fakeSession{tx: tx}
	uow, _ := newTestUnitOfWork(session)
	repo := NewRepository(uow, noteBinding())

	repo.Create(&note{ID: 1, Body: "ok"})
	repo.Create(&note{ID: 2, Body: "boom"})

	err := uow.Commit(context.Background())
	if !errors.Is(err, commonerrors.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if tx.rollbacks != 1 {
		t.Errorf("expected 1 rollback, got %d", tx.rollbacks)
	}
	if tx.commits != 0 {
		t.Errorf("expected no commits, got %d", tx.commits)
	}
}

func TestCommitBeginFailure(t *testing.T) {
	session := &fakeSession{beginErr: errors.New("pool exhausted")}
	uow, _ := newTestUnitOfWork(session)
	repo := NewRepository(uow, noteBinding())

	repo.Create(&note{ID: 1})

	if err := uow.Commit(context.Background()); !errors.Is(err, commonerrors.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestCommitWithNothingStagedSkipsTransaction(t *testing.T) {
	session := &fakeSession{tx: &fakeTx{failAfter: 100}}
	uow, _ := newTestUnitOfWork(session)

	if err := uow.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if session.begins != 0 {
		t.Errorf("expected no transaction, got %d begins", session.begins)
	}
}

func TestCommitAfterDisposeFails(t *testing.T) {
	session := &fakeSession{tx: &fakeTx{failAfter: 100}}
	uow, _ := newTestUnitOfWork(session)
	repo := NewRepository(uow, noteBinding())

	repo.Create(&note{ID: 1})
	uow.Dispose()

	err := uow.Commit(context.Background())
	if !errors.Is(err, commonerrors.ErrPersistence) {
		t.Fatalf("expected ErrPersistence after Dispose, got %v", err)
	}
	if !errors.Is(err, ErrUnitOfWorkClosed) {
		t.Fatalf("expected ErrUnitOfWorkClosed cause, got %v", err)
	}
}

func TestDisposeReleasesSessionOnce(t *testing.T) {
	session := &fakeSession{tx: &fakeTx{failAfter: 100}}
	uow, _ := newTestUnitOfWork(session)

	uow.Dispose()
	uow.Dispose()
	uow.Dispose()

	if session.released != 1 {
		t.Fatalf("expected exactly 1 release, got %d", session.released)
	}
}
