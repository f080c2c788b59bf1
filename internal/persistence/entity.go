package persistence

import "time"

// Auditable is the capability every persisted record type implements
// explicitly. CreatedAt/UpdatedAt are owned by the audit stamper: nothing
// outside this package writes them.
type Auditable interface {
	Timestamps() (createdAt, updatedAt time.Time)
	SetTimestamps(createdAt, updatedAt time.Time)
}

// Audit is the embedded base shared by all persisted entities.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Audit) Timestamps() (time.Time, time.Time) {
	return a.CreatedAt, a.UpdatedAt
}

func (a *Audit) SetTimestamps(createdAt, updatedAt time.Time) {
	a.CreatedAt = createdAt
	a.UpdatedAt = updatedAt
}
