package models

import (
	"time"
)

type User struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Email           string
	FullName        string
	PasswordHash    *string // nil for accounts created through Google
	AvatarURL       *string
	IsActive        bool
	IsGoogleAccount bool
	ActivationToken *string
}

// Profile is the public part of the user, safe to return to clients
type Profile struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	FullName        string  `json:"fullname"`
	AvatarURL       *string `json:"avatarUrl"`
	IsActive        bool    `json:"isActive"`
	IsGoogleAccount bool    `json:"isGoogleAccount"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		IsActive:        u.IsActive,
		IsGoogleAccount: u.IsGoogleAccount,
	}
}

// Userinfo returned by Google for a valid access token
type GoogleProfile struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
