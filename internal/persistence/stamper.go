package persistence

import "github.com/avelichko/taskdeck/backend/internal/common/clock"

// AuditStamper maintains CreatedAt/UpdatedAt for every staged entity as a
// single pre-flush pass inside Commit. New entities get both timestamps set
// to the same instant; modified entities only advance UpdatedAt; deleted
// entities are left untouched.
type AuditStamper struct {
	clock clock.Clock
}

func NewAuditStamper(clk clock.Clock) *AuditStamper {
	return &AuditStamper{clock: clk}
}

func (s *AuditStamper) Stamp(changes []*stagedChange) {
	now := s.clock.Now().UTC()

	for _, c := range changes {
		switch c.kind {
		case changeInsert:
			c.entity.SetTimestamps(now, now)
		case changeUpdate:
			createdAt, _ := c.entity.Timestamps()
			c.entity.SetTimestamps(createdAt, now)
		case changeDelete:
		}
	}
}
