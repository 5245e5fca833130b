package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
)

const (
	tokenPrefix     = "token:"
	blacklistPrefix = "blacklist:"
	blacklistMarker = "blacklisted"
)

const (
	defaultMaxRetries   = 3
	defaultDialTimeout  = 3 * time.Second
	defaultReadTimeout  = 2 * time.Second
	defaultWriteTimeout = 2 * time.Second
)

type Config struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Bounded retries made by the client itself. Zero means default, negative disables retries
	MaxRetries int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SessionCache keeps issued tokens and logout blacklist in redis
// Safe for concurrent use: go-redis client holds a connection pool
type SessionCache struct {
	client *goredis.Client
}

func NewSessionCache(ctx context.Context, cfg Config) (*SessionCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	setDefault := func(field *time.Duration, def time.Duration) {
		if *field <= 0 {
			*field = def
		}
	}
	setDefault(&cfg.DialTimeout, defaultDialTimeout)
	setDefault(&cfg.ReadTimeout, defaultReadTimeout)
	setDefault(&cfg.WriteTimeout, defaultWriteTimeout)

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &SessionCache{client: client}, nil
}

func tokenKey(userID int64) string {
	return tokenPrefix + strconv.FormatInt(userID, 10)
}

func blacklistKey(token string) string {
	return blacklistPrefix + token
}

// SaveToken mirrors the latest token issued for the user. Last writer wins
func (c *SessionCache) SaveToken(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	// go-redis treats zero expiration as 'keep forever', so never pass it through
	if ttl <= 0 {
		return nil
	}

	err := c.client.Set(ctx, tokenKey(userID), token, ttl).Err()
	if err != nil {
		return fmt.Errorf("%w: save token: %w", apperrors.ErrDependencyUnavailable, err)
	}
	return nil
}

// BlacklistToken marks token revoked until ttl passes
// Already expired token (ttl <= 0) is not written at all
func (c *SessionCache) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	err := c.client.Set(ctx, blacklistKey(token), blacklistMarker, ttl).Err()
	if err != nil {
		return fmt.Errorf("%w: blacklist token: %w", apperrors.ErrDependencyUnavailable, err)
	}
	return nil
}

func (c *SessionCache) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := c.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: check blacklist: %w", apperrors.ErrDependencyUnavailable, err)
	}
	return n > 0, nil
}

// Ping reports whether redis is reachable
func (c *SessionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the pool. Must be called once when the server stopped serving requests
func (c *SessionCache) Close() error {
	return c.client.Close()
}
