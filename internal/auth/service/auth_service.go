package service

import (
	"context"
	"errors"
	"strings"
	"time"

	authdomain "github.com/avelichko/taskdeck/backend/internal/auth/domain"
	"github.com/avelichko/taskdeck/backend/internal/auth/token"
	"github.com/avelichko/taskdeck/backend/internal/common/clock"
	"github.com/avelichko/taskdeck/backend/internal/common/crypto"
	commondb "github.com/avelichko/taskdeck/backend/internal/common/db"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
	"github.com/avelichko/taskdeck/backend/internal/persistence"
	userdomain "github.com/avelichko/taskdeck/backend/internal/user/domain"
)

// TokenPair is what every successful authentication returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AccessTokenIssuer mints verified access tokens.
type AccessTokenIssuer interface {
	Issue(userID int64) (string, error)
}

// RefreshTokenStore persists refresh token rows keyed by their hash.
type RefreshTokenStore interface {
	Create(ctx context.Context, t *authdomain.RefreshToken) error
	FindByTokenHash(ctx context.Context, hash string) (*authdomain.RefreshToken, error)
	DeleteByTokenHash(ctx context.Context, hash string) (bool, error)
	DeleteByUserID(ctx context.Context, userID int64) error
}

type AuthService struct {
	factory    persistence.Factory
	refresh    RefreshTokenStore
	issuer     AccessTokenIssuer
	hasher     crypto.PasswordHasher
	ids        crypto.EntityIDGenerator
	tokenIDs   crypto.TokenIDGenerator
	clock      clock.Clock
	refreshTTL time.Duration
	log        *logger.Logger
}

func NewAuthService(
	factory persistence.Factory,
	refresh RefreshTokenStore,
	issuer AccessTokenIssuer,
	hasher crypto.PasswordHasher,
	ids crypto.EntityIDGenerator,
	tokenIDs crypto.TokenIDGenerator,
	clk clock.Clock,
	refreshTTL time.Duration,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		factory:    factory,
		refresh:    refresh,
		issuer:     issuer,
		hasher:     hasher,
		ids:        ids,
		tokenIDs:   tokenIDs,
		clock:      clk,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// Register creates a user account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*userdomain.User, *TokenPair, error) {
	email = normalizeEmail(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, commonerrors.ErrInternal.WithCause(err)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, nil, commonerrors.ErrInternal.WithCause(err)
	}

	user := &userdomain.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
	}

	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer uow.Dispose()

	persistence.NewRepository(uow, userdomain.Binding()).Create(user)

	if err := uow.Commit(ctx); err != nil {
		if commondb.IsUniqueViolation(err) {
			return nil, nil, commonerrors.ErrEmailTaken
		}
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(ctx, logger.Fields{"user_id": user.ID}).Info("user registered")
	return user, pair, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*userdomain.User, *TokenPair, error) {
	email = normalizeEmail(email)

	uow, err := s.factory.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer uow.Dispose()

	user, err := persistence.NewRepository(uow, userdomain.Binding()).Get(ctx, userdomain.ByEmail(email))
	if err != nil {
		if errors.Is(err, commonerrors.ErrNotFound) {
			return nil, nil, commonerrors.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, nil, commonerrors.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(ctx, logger.Fields{"user_id": user.ID}).Info("user logged in")
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a
// fresh pair is issued. A token can be used at most once; presenting a
// consumed, unknown or expired token fails identically.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := token.HashRefreshToken(refreshToken)

	stored, err := s.refresh.FindByTokenHash(ctx, hash)
	if err != nil {
		// Only an unknown token is the client's fault. A store failure
		// stays a persistence error; the session may well still be valid.
		if errors.Is(err, commonerrors.ErrInvalidToken) {
			return nil, err
		}
		return nil, commonerrors.ErrPersistence.WithCause(err)
	}

	if stored.ExpiredAt(s.clock.Now()) {
		_, _ = s.refresh.DeleteByTokenHash(ctx, hash)
		return nil, commonerrors.ErrInvalidToken
	}

	deleted, err := s.refresh.DeleteByTokenHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !deleted {
		// Lost a race against another use of the same token.
		return nil, commonerrors.ErrInvalidToken
	}

	pair, err := s.issuePair(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	metrics.RefreshTokensUsed.Inc()
	return pair, nil
}

// Logout consumes the presented refresh token. Unknown tokens are ignored:
// logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	_, err := s.refresh.DeleteByTokenHash(ctx, token.HashRefreshToken(refreshToken))
	return err
}

func (s *AuthService) issuePair(ctx context.Context, userID int64) (*TokenPair, error) {
	access, err := s.issuer.Issue(userID)
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	secret, err := token.NewRefreshToken()
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	id, err := s.tokenIDs.NewID()
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	now := s.clock.Now().UTC()
	err = s.refresh.Create(ctx, &authdomain.RefreshToken{
		ID:        id,
		TokenHash: token.HashRefreshToken(secret),
		UserID:    userID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, commonerrors.ErrInternal.WithCause(err)
	}

	metrics.RefreshTokensIssued.Inc()
	return &TokenPair{AccessToken: access, RefreshToken: secret}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
