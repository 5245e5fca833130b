package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Identity decoded from a session token
type Identity struct {
	UserID    int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullname"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session is what a successful login hands back to the client
type Session struct {
	Token IssuedToken
	User  User
}
