package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/repository"
	"github.com/nkiryanov/studyplanner/internal/testutil"
)

func ptr[T any](v T) *T {
	return &v
}

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	params := repository.CreateUserParams{
		Email:           "a@x.com",
		FullName:        "Alice",
		PasswordHash:    ptr("hashedpassword123"),
		ActivationToken: ptr("activation-token"),
	}

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), params)

			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.Equal(t, "a@x.com", user.Email)
			assert.Equal(t, "Alice", user.FullName)
			assert.Equal(t, ptr("hashedpassword123"), user.PasswordHash)
			assert.Nil(t, user.AvatarURL)
			assert.False(t, user.IsActive, "new users are inactive unless told otherwise")
			assert.False(t, user.IsGoogleAccount)
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create google user without password", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), repository.CreateUserParams{
				Email:           "g@x.com",
				FullName:        "Google User",
				AvatarURL:       ptr("https://example.com/pic.png"),
				IsActive:        true,
				IsGoogleAccount: true,
			})

			require.NoError(t, err)
			assert.Nil(t, user.PasswordHash)
			assert.True(t, user.IsActive)
			assert.True(t, user.IsGoogleAccount)
			assert.Equal(t, ptr("https://example.com/pic.png"), user.AvatarURL)
		})
	})

	t.Run("create user twice", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			_, err := r.CreateUser(t.Context(), params)
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), repository.CreateUserParams{Email: "a@x.com"})

			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get user by id ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), params)
			require.NoError(t, err)

			got, err := r.GetUserByID(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("get user by id not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByID(t.Context(), 100500)

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "should return well known error")
		})
	})

	t.Run("get user by email ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), params)
			require.NoError(t, err)

			got, err := r.GetUserByEmail(t.Context(), "a@x.com")

			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("get user by email not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByEmail(t.Context(), "nobody@x.com")

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("activate user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), params)
			require.NoError(t, err)

			activated, err := r.ActivateUser(t.Context(), "activation-token")
			require.NoError(t, err)

			assert.Equal(t, created.ID, activated.ID)
			assert.True(t, activated.IsActive)
			assert.Nil(t, activated.ActivationToken, "token must be forgotten after activation")

			_, err = r.ActivateUser(t.Context(), "activation-token")
			assert.ErrorIs(t, err, apperrors.ErrActivationTokenInvalid, "token can't be used twice")
		})
	})

	t.Run("update user partially", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), params)
			require.NoError(t, err)

			updated, err := r.UpdateUser(t.Context(), created.ID, repository.UpdateUserParams{
				AvatarURL: ptr("https://storage.googleapis.com/bucket/avatar.png"),
			})
			require.NoError(t, err)

			assert.Equal(t, "Alice", updated.FullName, "not provided fields remain the same")
			assert.Equal(t, created.PasswordHash, updated.PasswordHash)
			assert.Equal(t, ptr("https://storage.googleapis.com/bucket/avatar.png"), updated.AvatarURL)
		})
	})

	t.Run("update not existed user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.UpdateUser(t.Context(), 100500, repository.UpdateUserParams{FullName: ptr("Bob")})

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("delete user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), params)
			require.NoError(t, err)

			err = r.DeleteUser(t.Context(), created.ID)
			require.NoError(t, err)

			_, err = r.GetUserByID(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

			err = r.DeleteUser(t.Context(), created.ID)
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})
}
