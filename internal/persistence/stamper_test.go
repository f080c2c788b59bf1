package persistence

import (
	"testing"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
)

func TestStampInsertSetsBothTimestamps(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	stamper := NewAuditStamper(clk)
	n := &note{ID: 1}

	stamper.Stamp([]*stagedChange{{kind: changeInsert, entity: n}})

	if !n.CreatedAt.Equal(clk.Now()) {
		t.Errorf("CreatedAt = %v, want %v", n.CreatedAt, clk.Now())
	}
	if !n.UpdatedAt.Equal(n.CreatedAt) {
		t.Errorf("fresh entity must have identical timestamps, got %v / %v", n.CreatedAt, n.UpdatedAt)
	}
}

func TestStampUpdatePreservesCreatedAt(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(created)
	stamper := NewAuditStamper(clk)

	n := &note{ID: 1}
	stamper.Stamp([]*stagedChange{{kind: changeInsert, entity: n}})

	clk.Advance(48 * time.Hour)
	stamper.Stamp([]*stagedChange{{kind: changeUpdate, entity: n}})

	if !n.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: %v", n.CreatedAt)
	}
	if !n.UpdatedAt.Equal(clk.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", n.UpdatedAt, clk.Now())
	}
	if n.UpdatedAt.Before(n.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", n.UpdatedAt, n.CreatedAt)
	}
}

func TestStampDeleteLeavesTimestampsAlone(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	stamper := NewAuditStamper(clk)

	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	n := &note{ID: 1}
	n.SetTimestamps(created, created)

	stamper.Stamp([]*stagedChange{{kind: changeDelete, entity: n}})

	if !n.CreatedAt.Equal(created) || !n.UpdatedAt.Equal(created) {
		t.Errorf("delete must not touch timestamps, got %v / %v", n.CreatedAt, n.UpdatedAt)
	}
}
