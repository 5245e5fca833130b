package auth

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
	"github.com/nkiryanov/studyplanner/internal/repository/redis"
	"github.com/nkiryanov/studyplanner/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/studyplanner/internal/testutil"
)

const testSecret = "test-secret-key"

var testHasher = BcryptHasher{Cost: bcrypt.MinCost}

// In memory users. Only lookups are used by auth service
type userRepo struct {
	repository.UserRepo

	users map[string]models.User
	err   error
}

func (r *userRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	if r.err != nil {
		return models.User{}, r.err
	}
	u, ok := r.users[email]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepo) add(t *testing.T, u models.User, password string) models.User {
	if password != "" {
		hash, err := testHasher.Hash(password)
		require.NoError(t, err)
		u.PasswordHash = &hash
	}
	u.ID = int64(len(r.users) + 1)
	r.users[u.Email] = u
	return u
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) RecordAuthEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	s       *AuthService
	tokens  *tokenmanager.TokenManager
	users   *userRepo
	redis   *miniredis.Miniredis
	metrics *recorder
}

func newFixture(t *testing.T, ttl time.Duration) fixture {
	mr := testutil.StartRedis(t)

	sessions, err := redis.NewSessionCache(t.Context(), redis.Config{Addr: mr.Addr(), MaxRetries: -1})
	require.NoError(t, err, "session cache should connect to miniredis")
	t.Cleanup(func() { _ = sessions.Close() })

	tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: testSecret, TTL: ttl})
	require.NoError(t, err, "token manager should be created without errors")

	users := &userRepo{users: make(map[string]models.User)}
	metrics := &recorder{}

	s, err := NewService(Config{Hasher: testHasher, Metrics: metrics}, tokens, users, sessions)
	require.NoError(t, err, "auth service could't be started")

	return fixture{s: s, tokens: tokens, users: users, redis: mr, metrics: metrics}
}

func Test_Auth(t *testing.T) {
	t.Parallel()

	t.Run("new auth service defaults", func(t *testing.T) {
		f := newFixture(t, time.Minute)

		s, err := NewService(Config{}, f.tokens, f.users, f.s.sessions)
		require.NoError(t, err, "auth service should be created without errors")

		require.Equal(t, BcryptHasher{}, s.hasher, "default hasher should be set to BcryptHasher")
		require.NotNil(t, s.logger, "noop logger should be set")
		require.Nil(t, s.metrics)
	})

	t.Run("new auth service requires dependencies", func(t *testing.T) {
		_, err := NewService(Config{}, nil, nil, nil)
		require.Error(t, err)
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("valid credentials ok", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			user := f.users.add(t, models.User{Email: "a@x.com", FullName: "Alice", IsActive: true}, "secret")

			session, err := f.s.Login(t.Context(), "a@x.com", "secret")

			require.NoError(t, err)
			require.NotEmpty(t, session.Token.Value, "token should not be empty")
			require.Equal(t, user.ID, session.User.ID)

			identity, err := f.tokens.Verify(session.Token.Value)
			require.NoError(t, err, "issued token must be verifiable")
			require.Equal(t, user.ID, identity.UserID, "token subject must be user id")
			require.Equal(t, "a@x.com", identity.Email)

			cached, err := f.redis.Get("token:" + strconv.FormatInt(user.ID, 10))
			require.NoError(t, err, "session token should be cached")
			require.Equal(t, session.Token.Value, cached)
			require.InDelta(t, time.Minute.Seconds(), f.redis.TTL("token:"+strconv.FormatInt(user.ID, 10)).Seconds(), 1)

			require.Equal(t, []string{EventLoginSucceeded}, f.metrics.Events())
		})

		t.Run("new login overwrites cached token", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			user := f.users.add(t, models.User{Email: "a@x.com", IsActive: true}, "secret")

			_, err := f.s.Login(t.Context(), "a@x.com", "secret")
			require.NoError(t, err)
			second, err := f.s.Login(t.Context(), "a@x.com", "secret")
			require.NoError(t, err)

			cached, err := f.redis.Get("token:" + strconv.FormatInt(user.ID, 10))
			require.NoError(t, err)
			require.Equal(t, second.Token.Value, cached)
		})

		tests := []struct {
			name        string
			email       string
			password    string
			expectedErr error
		}{
			{
				name:        "wrong password",
				email:       "a@x.com",
				password:    "wrong",
				expectedErr: apperrors.ErrInvalidCredentials,
			},
			{
				name:        "unknown email",
				email:       "nobody@x.com",
				password:    "secret",
				expectedErr: apperrors.ErrInvalidCredentials,
			},
			{
				name:        "google account without password",
				email:       "google@x.com",
				password:    "",
				expectedErr: apperrors.ErrInvalidCredentials,
			},
			{
				name:        "inactive account",
				email:       "inactive@x.com",
				password:    "secret",
				expectedErr: apperrors.ErrAccountInactive,
			},
			{
				name:        "inactive account with wrong password",
				email:       "inactive@x.com",
				password:    "wrong",
				expectedErr: apperrors.ErrInvalidCredentials,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t, time.Minute)
				f.users.add(t, models.User{Email: "a@x.com", IsActive: true}, "secret")
				f.users.add(t, models.User{Email: "google@x.com", IsActive: true, IsGoogleAccount: true}, "")
				f.users.add(t, models.User{Email: "inactive@x.com", IsActive: false}, "secret")

				_, err := f.s.Login(t.Context(), tt.email, tt.password)

				require.ErrorIs(t, err, tt.expectedErr)
				require.Equal(t, []string{EventLoginFailed}, f.metrics.Events())
				require.Empty(t, f.redis.Keys(), "nothing should be cached on failed login")
			})
		}

		t.Run("user store failure", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			f.users.err = context.DeadlineExceeded

			_, err := f.s.Login(t.Context(), "a@x.com", "secret")

			require.ErrorIs(t, err, apperrors.ErrDependencyUnavailable)
			require.ErrorIs(t, err, context.DeadlineExceeded)
		})

		t.Run("session cache failure does not fail login", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			f.users.add(t, models.User{Email: "a@x.com", IsActive: true}, "secret")
			f.redis.Close()

			session, err := f.s.Login(t.Context(), "a@x.com", "secret")

			require.NoError(t, err, "login has to be degraded but ok")
			require.NotEmpty(t, session.Token.Value)
			require.Equal(t, []string{EventSessionCacheFailure, EventLoginSucceeded}, f.metrics.Events())
		})
	})

	t.Run("LoginWithGoogle", func(t *testing.T) {
		tests := []struct {
			name        string
			email       string
			expectedErr error
		}{
			{name: "google account ok", email: "google@x.com", expectedErr: nil},
			{name: "password account", email: "a@x.com", expectedErr: apperrors.ErrInvalidCredentials},
			{name: "unknown email", email: "nobody@x.com", expectedErr: apperrors.ErrInvalidCredentials},
			{name: "inactive google account", email: "inactive@x.com", expectedErr: apperrors.ErrAccountInactive},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t, time.Minute)
				f.users.add(t, models.User{Email: "a@x.com", IsActive: true}, "secret")
				f.users.add(t, models.User{Email: "google@x.com", IsActive: true, IsGoogleAccount: true}, "")
				f.users.add(t, models.User{Email: "inactive@x.com", IsGoogleAccount: true}, "")

				session, err := f.s.LoginWithGoogle(t.Context(), tt.email)

				if tt.expectedErr != nil {
					require.ErrorIs(t, err, tt.expectedErr)
					return
				}
				require.NoError(t, err)
				require.Equal(t, tt.email, session.User.Email)

				identity, err := f.tokens.Verify(session.Token.Value)
				require.NoError(t, err)
				require.Equal(t, session.User.ID, identity.UserID)
			})
		}
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("blacklist for remaining lifetime", func(t *testing.T) {
			f := newFixture(t, 30*time.Second)
			f.users.add(t, models.User{Email: "a@x.com", IsActive: true}, "secret")
			session, err := f.s.Login(t.Context(), "a@x.com", "secret")
			require.NoError(t, err)

			err = f.s.Logout(t.Context(), session.Token.Value)

			require.NoError(t, err)
			value, err := f.redis.Get("blacklist:" + session.Token.Value)
			require.NoError(t, err, "blacklist record should be created")
			require.Equal(t, "blacklisted", value)
			ttl := f.redis.TTL("blacklist:" + session.Token.Value)
			require.LessOrEqual(t, ttl, 30*time.Second)
			require.Greater(t, ttl, 28*time.Second)
		})

		t.Run("guard rejects token right after logout", func(t *testing.T) {
			f := newFixture(t, 30*time.Second)
			f.users.add(t, models.User{Email: "a@x.com", IsActive: true}, "secret")
			session, err := f.s.Login(t.Context(), "a@x.com", "secret")
			require.NoError(t, err)
			_, err = f.s.Authenticate(t.Context(), "Bearer "+session.Token.Value)
			require.NoError(t, err, "token must be accepted before logout")

			err = f.s.Logout(t.Context(), session.Token.Value)
			require.NoError(t, err)

			_, err = f.s.Authenticate(t.Context(), "Bearer "+session.Token.Value)
			require.ErrorIs(t, err, apperrors.ErrTokenRevoked)

			_, err = f.tokens.Verify(session.Token.Value)
			require.NoError(t, err, "signature and expiration are still valid, only blacklist rejects it")
		})

		t.Run("twice ok", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			issued, err := f.tokens.Issue(models.User{ID: 1, Email: "a@x.com"})
			require.NoError(t, err)

			require.NoError(t, f.s.Logout(t.Context(), issued.Value))
			require.NoError(t, f.s.Logout(t.Context(), issued.Value))

			require.True(t, f.redis.Exists("blacklist:"+issued.Value))
		})

		t.Run("expired token is not written", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Second)),
			}).SignedString([]byte(testSecret))
			require.NoError(t, err)

			err = f.s.Logout(t.Context(), expired)

			require.NoError(t, err)
			require.Empty(t, f.redis.Keys(), "no record for token without remaining lifetime")
		})

		t.Run("revoked until natural expiration", func(t *testing.T) {
			// Token issued while lifetime was longer than now configured
			f := newFixture(t, 2*time.Minute)
			now := time.Now().Truncate(time.Second)
			longLived, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "7",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}).SignedString([]byte(testSecret))
			require.NoError(t, err)

			err = f.s.Logout(t.Context(), longLived)
			require.NoError(t, err)

			ttl := f.redis.TTL("blacklist:" + longLived)
			require.Greater(t, ttl, 58*time.Minute, "record lives as long as the token")
			require.LessOrEqual(t, ttl, time.Hour)

			f.redis.FastForward(3 * time.Minute)

			_, err = f.s.Authenticate(t.Context(), "Bearer "+longLived)
			require.ErrorIs(t, err, apperrors.ErrTokenRevoked)
		})

		t.Run("token signed by another key fail", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(365 * 24 * time.Hour)),
			}).SignedString([]byte("some-other-key"))
			require.NoError(t, err)

			err = f.s.Logout(t.Context(), forged)

			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
			require.Empty(t, f.redis.Keys(), "forged expiration must not create records")
		})

		tests := []struct {
			name  string
			token string
		}{
			{"garbage", "not-a-token"},
			{"empty", ""},
			{"without expiration", func() string {
				s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString([]byte(testSecret))
				return s
			}()},
		}
		for _, tt := range tests {
			t.Run(tt.name+" fail", func(t *testing.T) {
				f := newFixture(t, time.Minute)

				err := f.s.Logout(t.Context(), tt.token)

				require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
				require.Empty(t, f.redis.Keys())
			})
		}

		t.Run("not guaranteed if cache is down", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			issued, err := f.tokens.Issue(models.User{ID: 1})
			require.NoError(t, err)
			f.redis.Close()

			err = f.s.Logout(t.Context(), issued.Value)

			require.ErrorIs(t, err, apperrors.ErrLogoutNotGuaranteed)
			require.Equal(t, []string{EventSessionCacheFailure}, f.metrics.Events())
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("valid token ok", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			issued, err := f.tokens.Issue(models.User{ID: 7, Email: "a@x.com", FullName: "Alice"})
			require.NoError(t, err)

			identity, err := f.s.Authenticate(t.Context(), "Bearer "+issued.Value)

			require.NoError(t, err)
			assert.Equal(t, int64(7), identity.UserID)
			assert.Equal(t, "a@x.com", identity.Email)
			assert.Equal(t, "Alice", identity.FullName)
		})

		t.Run("unauthenticated", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			issued, err := f.tokens.Issue(models.User{ID: 7})
			require.NoError(t, err)
			expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "7",
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}).SignedString([]byte(testSecret))
			require.NoError(t, err)

			tests := []struct {
				name   string
				header string
			}{
				{"no header", ""},
				{"not bearer", "Basic " + issued.Value},
				{"bearer without token", "Bearer "},
				{"token without scheme", issued.Value},
				{"garbage token", "Bearer garbage"},
				{"expired token", "Bearer " + expired},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					_, err := f.s.Authenticate(t.Context(), tt.header)
					require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
				})
			}
		})

		t.Run("blacklist checked before verification", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			f.redis.Set("blacklist:garbage", "blacklisted")

			_, err := f.s.Authenticate(t.Context(), "Bearer garbage")

			require.ErrorIs(t, err, apperrors.ErrTokenRevoked)
			require.Equal(t, []string{EventTokenRevoked}, f.metrics.Events())
		})

		t.Run("cache is down", func(t *testing.T) {
			f := newFixture(t, time.Minute)
			issued, err := f.tokens.Issue(models.User{ID: 7})
			require.NoError(t, err)
			f.redis.Close()

			_, err = f.s.Authenticate(t.Context(), "Bearer "+issued.Value)

			require.ErrorIs(t, err, apperrors.ErrDependencyUnavailable)
		})
	})
}

func Test_BearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Bearer a b", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.token, token)
		})
	}
}
