package config

import (
	"errors"
	"testing"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/constants"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "postgres://taskdeck@localhost:5432/taskdeck")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != constants.DefaultHTTPPort {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.AccessTokenTTL != constants.DefaultAccessTokenTTL {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.DBMaxConns != constants.DBPoolMaxOpenConns || cfg.DBMinConns != constants.DBPoolMinOpenConns {
		t.Errorf("pool sizes = %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("DB_MAX_CONNS", "50")
	t.Setenv("DB_MIN_CONNS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.DBMaxConns != 50 {
		t.Errorf("DBMaxConns = %d", cfg.DBMaxConns)
	}
	if cfg.DBMinConns != 2 {
		t.Errorf("DBMinConns = %d", cfg.DBMinConns)
	}
}

func TestLoadFallsBackOnUnparsablePoolSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_MAX_CONNS", "plenty")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBMaxConns != constants.DBPoolMaxOpenConns {
		t.Errorf("DBMaxConns = %d, want default", cfg.DBMaxConns)
	}
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "too-short")

	if _, err := Load(); !errors.Is(err, ErrInvalidJWTSecret) {
		t.Fatalf("expected ErrInvalidJWTSecret, got %v", err)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); !errors.Is(err, ErrMissingRequiredEnv) {
		t.Fatalf("expected ErrMissingRequiredEnv, got %v", err)
	}
}
