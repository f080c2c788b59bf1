package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	"github.com/avelichko/taskdeck/backend/internal/common/crypto"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
)

// Codec mints and verifies the service's HS256 access tokens. Decode is the
// only way claims leave this package: there is no unverified parse path.
type Codec struct {
	secret []byte
	clock  clock.Clock
	ttl    time.Duration
	jti    crypto.TokenIDGenerator
}

func NewCodec(secret string, clk clock.Clock, ttl time.Duration, jti crypto.TokenIDGenerator) *Codec {
	return &Codec{
		secret: []byte(secret),
		clock:  clk,
		ttl:    ttl,
		jti:    jti,
	}
}

// Issue signs a fresh access token for userID, valid from now until
// now+TTL.
func (c *Codec) Issue(userID int64) (string, error) {
	now := c.clock.Now()

	jti, err := c.jti.NewID()
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	metrics.AccessTokensIssued.Inc()
	return signed, nil
}

// Decode verifies the signature and expiry of an access token and returns
// the user id it was issued for. Every failure mode collapses into
// ErrInvalidToken; callers cannot distinguish a forged token from an
// expired one.
func (c *Codec) Decode(tokenString string) (int64, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.clock.Now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return 0, commonerrors.ErrInvalidToken.WithCause(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return 0, commonerrors.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, commonerrors.ErrInvalidToken.WithCause(err)
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, commonerrors.ErrInvalidToken.WithCause(err)
	}

	return userID, nil
}

// NewRefreshToken returns the opaque refresh secret handed to the client.
// Only its hash is ever stored.
func NewRefreshToken() (string, error) {
	b := make([]byte, constants.RefreshTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashRefreshToken is the storage form of a refresh token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
