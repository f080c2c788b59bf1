package domain

import "time"

// RefreshToken is the stored half of a refresh pair. The client holds the
// opaque secret; only its SHA-256 hash lives here, so a leaked table cannot
// be replayed.
type RefreshToken struct {
	ID        string
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
