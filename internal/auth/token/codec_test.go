package token

import (
	"errors"
	"testing"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	"github.com/avelichko/taskdeck/backend/internal/common/crypto"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
)

const testSecret = "test-secret-key-of-sufficient-length!"

func newTestCodec(clk clock.Clock) *Codec {
	return NewCodec(testSecret, clk, time.Hour, crypto.NewUUIDGenerator())
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(clk)

	signed, err := codec.Issue(12345)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, err := codec.Decode(signed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if userID != 12345 {
		t.Fatalf("expected user id 12345, got %d", userID)
	}
}

func TestDecodeExpiredToken(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(clk)

	signed, err := codec.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clk.Advance(time.Hour + time.Minute)

	if _, err := codec.Decode(signed); !errors.Is(err, commonerrors.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestDecodeStillValidJustBeforeExpiry(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(clk)

	signed, err := codec.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clk.Advance(time.Hour - time.Second)

	if _, err := codec.Decode(signed); err != nil {
		t.Fatalf("token should still be valid at TTL-1s: %v", err)
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	issuer := newTestCodec(clk)
	verifier := NewCodec("a-completely-different-secret-value!!", clk, time.Hour, crypto.NewUUIDGenerator())

	signed, err := issuer.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := verifier.Decode(signed); !errors.Is(err, commonerrors.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	codec := newTestCodec(clk)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := codec.Decode(tok); !errors.Is(err, commonerrors.ErrInvalidToken) {
			t.Errorf("Decode(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestRefreshTokenHashIsStableAndOpaque(t *testing.T) {
	tok, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(tok) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(tok))
	}

	other, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if tok == other {
		t.Fatal("two refresh tokens must not collide")
	}

	if HashRefreshToken(tok) != HashRefreshToken(tok) {
		t.Fatal("hash must be deterministic")
	}
	if HashRefreshToken(tok) == tok {
		t.Fatal("stored form must differ from the client token")
	}
}
