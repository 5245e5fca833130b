package tokenmanager

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
)

const (
	defaultTokenTTL      = 120 * time.Second
	defaultSigningMethod = "HS256"
)

type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	FullName string `json:"name"`
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Token lifetime
	// If not set than default is used
	TTL time.Duration
}

type TokenManager struct {
	key []byte
	alg jwt.SigningMethod
	ttl time.Duration

	verifier *jwt.Parser
	decoder  *jwt.Parser
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing method %q is not supported, use one of HMAC family", cfg.Alg)
	}

	if cfg.TTL == 0 {
		cfg.TTL = defaultTokenTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &TokenManager{
		key: []byte(cfg.SecretKey),
		alg: alg,
		ttl: cfg.TTL,

		verifier: jwt.NewParser(
			jwt.WithValidMethods([]string{alg.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
		decoder: jwt.NewParser(
			jwt.WithValidMethods([]string{alg.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs user claims into token valid for the configured ttl
func (m *TokenManager) Issue(user models.User) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(m.alg, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    user.Email,
		FullName: user.FullName,
	})

	signed, err := token.SignedString(m.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, algorithm and expiration
// Returns apperrors.ErrTokenExpired for expired token and apperrors.ErrTokenInvalid for anything else
func (m *TokenManager) Verify(token string) (models.Identity, error) {
	claims := &Claims{}
	_, err := m.verifier.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})

	switch {
	case err == nil:
		return toIdentity(claims)
	case errors.Is(err, jwt.ErrTokenExpired):
		return models.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
	default:
		return models.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}
}

// Decode checks signature only and reads claims of expired token too
// Never use the result to authorize anything
func (m *TokenManager) Decode(token string) (models.Identity, error) {
	claims := &Claims{}
	_, err := m.decoder.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	return toIdentity(claims)
}

func toIdentity(c *Claims) (models.Identity, error) {
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: subject %q is not user id", apperrors.ErrTokenInvalid, c.Subject)
	}

	identity := models.Identity{
		UserID:   userID,
		Email:    c.Email,
		FullName: c.FullName,
		TokenID:  c.ID,
	}
	if c.IssuedAt != nil {
		identity.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		identity.ExpiresAt = c.ExpiresAt.Time
	}

	return identity, nil
}
