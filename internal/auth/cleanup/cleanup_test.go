package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
)

type mockStore struct {
	deleteFunc func(ctx context.Context, now time.Time) (int64, error)
	calls      int
}

func (m *mockStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.calls++
	return m.deleteFunc(ctx, now)
}

func TestSweepPassesClockTime(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := &mockStore{deleteFunc: func(_ context.Context, now time.Time) (int64, error) {
		if !now.Equal(clk.Now()) {
			t.Errorf("sweep time = %v, want %v", now, clk.Now())
		}
		return 3, nil
	}}

	s := NewSweeper(store, clk, time.Hour, logger.NewDiscard())
	s.sweep(context.Background())

	if store.calls != 1 {
		t.Fatalf("calls = %d", store.calls)
	}
}

func TestSweepSurvivesStoreFailure(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := &mockStore{deleteFunc: func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("connection reset")
	}}

	s := NewSweeper(store, clk, time.Hour, logger.NewDiscard())
	s.sweep(context.Background())
	s.sweep(context.Background())

	if store.calls != 2 {
		t.Fatalf("calls = %d, sweep must keep going after a failure", store.calls)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := &mockStore{deleteFunc: func(context.Context, time.Time) (int64, error) {
		return 0, nil
	}}

	s := NewSweeper(store, clk, time.Hour, logger.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
