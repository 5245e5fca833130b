package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
)

const (
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultTimeout     = 10 * time.Second
)

type Config struct {
	// DefaultUserInfoURL if not set
	UserInfoURL string

	// Base client used for requests to google
	// Bearer token is added by oauth2 transport
	HTTPClient *http.Client
}

// Client reads profile of google user who granted access token to the frontend
type Client struct {
	userInfoURL string
	base        *http.Client
}

func New(cfg Config) *Client {
	url := cfg.UserInfoURL
	if url == "" {
		url = DefaultUserInfoURL
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{userInfoURL: url, base: base}
}

// UserInfo returns google profile for access token
// Rejected token is apperrors.ErrGoogleTokenInvalid
func (c *Client) UserInfo(ctx context.Context, accessToken string) (models.GoogleProfile, error) {
	if accessToken == "" {
		return models.GoogleProfile{}, apperrors.ErrGoogleTokenInvalid
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.base.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return models.GoogleProfile{}, fmt.Errorf("can't build userinfo request. Err: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return models.GoogleProfile{}, fmt.Errorf("%w: userinfo request failed: %w", apperrors.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.GoogleProfile{}, apperrors.ErrGoogleTokenInvalid
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.GoogleProfile{}, fmt.Errorf("%w: userinfo returned status %d", apperrors.ErrDependencyUnavailable, resp.StatusCode)
	}

	var profile models.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return models.GoogleProfile{}, fmt.Errorf("%w: can't decode userinfo: %w", apperrors.ErrDependencyUnavailable, err)
	}
	if profile.Email == "" {
		return models.GoogleProfile{}, errors.Join(apperrors.ErrGoogleTokenInvalid, errors.New("token grants no email scope"))
	}

	return profile, nil
}
