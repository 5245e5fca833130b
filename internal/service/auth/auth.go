package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
)

// Auth events reported to metrics recorder
const (
	EventLoginSucceeded      = "login_succeeded"
	EventLoginFailed         = "login_failed"
	EventLogout              = "logout"
	EventTokenRevoked        = "token_revoked"
	EventSessionCacheFailure = "session_cache_failure"
)

const bearerScheme = "Bearer"

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type TokenManager interface {
	Issue(user models.User) (models.IssuedToken, error)
	Verify(token string) (models.Identity, error)
	Decode(token string) (models.Identity, error)
}

type Recorder interface {
	RecordAuthEvent(event string)
}

type Config struct {
	// Hasher to compare user passwords on login
	// BcryptHasher used if not set
	Hasher PasswordHasher

	// NoOp logger if not set
	Logger logger.Logger

	// Optional
	Metrics Recorder
}

// Auth service
type AuthService struct {
	hasher  PasswordHasher
	logger  logger.Logger
	metrics Recorder

	tokens   TokenManager
	users    repository.UserRepo
	sessions repository.SessionCache

	// Hash compared against when user has no password to keep login timing uniform
	dummyHash string

	now func() time.Time
}

func NewService(cfg Config, tokens TokenManager, users repository.UserRepo, sessions repository.SessionCache) (*AuthService, error) {
	if tokens == nil || users == nil || sessions == nil {
		return nil, errors.New("token manager, user repo and session cache must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	dummyHash, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("hasher is broken. Err: %w", err)
	}

	return &AuthService{
		hasher:    hasher,
		logger:    l,
		metrics:   cfg.Metrics,
		tokens:    tokens,
		users:     users,
		sessions:  sessions,
		dummyHash: dummyHash,
		now:       time.Now,
	}, nil
}

// Login user with email and password
// Unknown email and wrong password both are apperrors.ErrInvalidCredentials
// Inactive account is reported only to the one who knows the password
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = s.hasher.Compare(s.dummyHash, password)
		s.record(EventLoginFailed)
		return models.Session{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.Session{}, fmt.Errorf("%w: can't get user: %w", apperrors.ErrDependencyUnavailable, err)
	}

	hash := s.dummyHash
	if user.PasswordHash != nil {
		hash = *user.PasswordHash
	}
	err = s.hasher.Compare(hash, password)
	if err != nil || user.PasswordHash == nil {
		s.record(EventLoginFailed)
		return models.Session{}, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.record(EventLoginFailed)
		return models.Session{}, apperrors.ErrAccountInactive
	}

	return s.startSession(ctx, user)
}

// Login user already proved its email with google
// Only google linked accounts may login this way
func (s *AuthService) LoginWithGoogle(ctx context.Context, email string) (models.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.record(EventLoginFailed)
		return models.Session{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.Session{}, fmt.Errorf("%w: can't get user: %w", apperrors.ErrDependencyUnavailable, err)
	}

	if !user.IsGoogleAccount {
		s.record(EventLoginFailed)
		return models.Session{}, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.record(EventLoginFailed)
		return models.Session{}, apperrors.ErrAccountInactive
	}

	return s.startSession(ctx, user)
}

// Issue token and remember it as the latest user session
// Session cache failure does not fail login
func (s *AuthService) startSession(ctx context.Context, user models.User) (models.Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return models.Session{}, fmt.Errorf("token could not be issued. Err: %w", err)
	}

	err = s.sessions.SaveToken(ctx, user.ID, token.Value, token.ExpiresAt.Sub(s.now()))
	if err != nil {
		s.record(EventSessionCacheFailure)
		logger.FromContext(ctx, s.logger).Warn("session token not cached", "user_id", user.ID, "error", err)
	}

	s.record(EventLoginSucceeded)
	return models.Session{Token: token, User: user}, nil
}

// Logout revokes token until it expires
// Signature is checked but expiration is not: expired token is accepted and costs nothing
func (s *AuthService) Logout(ctx context.Context, token string) error {
	identity, err := s.tokens.Decode(token)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}
	if identity.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: token has no expiration", apperrors.ErrUnauthenticated)
	}

	ttl := identity.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	err = s.sessions.BlacklistToken(ctx, token, ttl)
	if err != nil {
		s.record(EventSessionCacheFailure)
		return fmt.Errorf("%w: %w", apperrors.ErrLogoutNotGuaranteed, err)
	}

	s.record(EventLogout)
	return nil
}

// Authenticate request by its Authorization header value
// Blacklist is checked before the token is verified
func (s *AuthService) Authenticate(ctx context.Context, header string) (models.Identity, error) {
	token, ok := BearerToken(header)
	if !ok {
		return models.Identity{}, apperrors.ErrUnauthenticated
	}

	revoked, err := s.sessions.IsBlacklisted(ctx, token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("can't check token blacklist: %w", err)
	}
	if revoked {
		s.record(EventTokenRevoked)
		return models.Identity{}, apperrors.ErrTokenRevoked
	}

	identity, err := s.tokens.Verify(token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}

	return identity, nil
}

func (s *AuthService) record(event string) {
	if s.metrics != nil {
		s.metrics.RecordAuthEvent(event)
	}
}

// BearerToken extracts token from 'Bearer <token>' header value
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}
