package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/avelichko/taskdeck/backend/internal/common/constants"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidJWTSecret   = errors.New("JWT_SECRET must be at least 32 bytes")
)

type Config struct {
	HTTPPort        string
	DatabaseURL     string
	JWTSecret       string
	Environment     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RequestTimeout  time.Duration
	DBMaxConns      int
	DBMinConns      int
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (Config, error) {
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return Config{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPPort:        getEnv("API_HTTP_PORT", constants.DefaultHTTPPort),
		DatabaseURL:     databaseURL,
		JWTSecret:       jwtSecret,
		Environment:     getEnv("ENVIRONMENT", "production"),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", constants.DefaultAccessTokenTTL),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", constants.DefaultRefreshTokenTTL),
		RequestTimeout:  getDurationEnv("API_REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		DBMaxConns:      getIntEnv("DB_MAX_CONNS", constants.DBPoolMaxOpenConns),
		DBMinConns:      getIntEnv("DB_MIN_CONNS", constants.DBPoolMinOpenConns),
	}, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidJWTSecret, len(secret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
