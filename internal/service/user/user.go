package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
	"github.com/nkiryanov/studyplanner/internal/service/auth"
	"github.com/nkiryanov/studyplanner/internal/service/storage"
)

const (
	activationTokenBytes = 32
	defaultPublicURL     = "http://localhost:8000"
	activationPath       = "/api/v1/users/activate/"
)

type Mailer interface {
	SendActivation(ctx context.Context, to string, name string, link string) error
}

type ObjectStore interface {
	// Upload object and return its public url
	Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error)
}

type Config struct {
	// auth.DefaultHasher if not set
	Hasher auth.PasswordHasher

	// Required
	Mailer Mailer

	// Avatar upload is disabled if not set
	Avatars ObjectStore

	// Base of activation links
	PublicURL string
}

type CreateParams struct {
	Email           string
	FullName        string
	Password        string
	ConfirmPassword string
}

// Nil fields are left untouched
type UpdateParams struct {
	FullName    *string
	Password    *string
	OldPassword *string
}

type UserService struct {
	hasher    auth.PasswordHasher
	mailer    Mailer
	avatars   ObjectStore
	publicURL string

	storage repository.Storage
}

func NewService(cfg Config, storage repository.Storage) (*UserService, error) {
	if cfg.Mailer == nil || storage == nil {
		return nil, errors.New("mailer and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = defaultPublicURL
	}

	return &UserService{
		hasher:    hasher,
		mailer:    cfg.Mailer,
		avatars:   cfg.Avatars,
		publicURL: publicURL,
		storage:   storage,
	}, nil
}

// Create inactive user and send activation link
// User is not created if the mail could not be sent
func (s *UserService) Create(ctx context.Context, p CreateParams) (models.User, error) {
	if p.Password != p.ConfirmPassword {
		return models.User{}, apperrors.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	token, err := newActivationToken()
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		user, err = tx.User().CreateUser(ctx, repository.CreateUserParams{
			Email:           p.Email,
			FullName:        p.FullName,
			PasswordHash:    &hash,
			ActivationToken: &token,
		})
		if err != nil {
			return err
		}

		link := s.publicURL + activationPath + url.PathEscape(token)
		return s.mailer.SendActivation(ctx, user.Email, user.FullName, link)
	})
	if err != nil {
		return models.User{}, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Google accounts are active from the start and have no password
func (s *UserService) CreateGoogleAccount(ctx context.Context, profile models.GoogleProfile) (models.User, error) {
	params := repository.CreateUserParams{
		Email:           profile.Email,
		FullName:        profile.Name,
		IsActive:        true,
		IsGoogleAccount: true,
	}
	if profile.Picture != "" {
		params.AvatarURL = &profile.Picture
	}

	user, err := s.storage.User().CreateUser(ctx, params)
	if err != nil {
		return models.User{}, fmt.Errorf("can't create google user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) Activate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, apperrors.ErrActivationTokenInvalid
	}
	return s.storage.User().ActivateUser(ctx, token)
}

func (s *UserService) Get(ctx context.Context, userID int64) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

// Update user. Password change requires the current password
func (s *UserService) Update(ctx context.Context, userID int64, p UpdateParams) (models.User, error) {
	params := repository.UpdateUserParams{FullName: p.FullName}

	if p.Password != nil {
		if p.OldPassword == nil {
			return models.User{}, apperrors.ErrOldPasswordRequired
		}

		user, err := s.storage.User().GetUserByID(ctx, userID)
		if err != nil {
			return models.User{}, err
		}
		if user.PasswordHash == nil || s.hasher.Compare(*user.PasswordHash, *p.OldPassword) != nil {
			return models.User{}, apperrors.ErrOldPasswordInvalid
		}

		hash, err := s.hasher.Hash(*p.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
		}
		params.PasswordHash = &hash
	}

	return s.storage.User().UpdateUser(ctx, userID, params)
}

// Delete user with all tasks and focus sessions
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	return s.storage.User().DeleteUser(ctx, userID)
}

// UploadAvatar stores image and saves its public url as user avatar
func (s *UserService) UploadAvatar(ctx context.Context, userID int64, filename string, contentType string, r io.Reader) (models.User, error) {
	if s.avatars == nil {
		return models.User{}, apperrors.ErrFeatureDisabled
	}

	if _, err := s.storage.User().GetUserByID(ctx, userID); err != nil {
		return models.User{}, err
	}

	avatarURL, err := s.avatars.Upload(ctx, storage.ObjectName(time.Now(), filename), contentType, r)
	if err != nil {
		return models.User{}, fmt.Errorf("can't upload avatar. Err: %w", err)
	}

	return s.storage.User().UpdateUser(ctx, userID, repository.UpdateUserParams{AvatarURL: &avatarURL})
}

func newActivationToken() (string, error) {
	b := make([]byte, activationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("can't generate activation token. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}
