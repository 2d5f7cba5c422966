package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cdo-tour-client/internal/client"
	"cdo-tour-client/internal/models"
	"cdo-tour-client/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// SessionService handles login, logout, registration and the locally
// persisted profile snapshot
type SessionService struct {
	client *client.Client
	store  store.Store
}

// NewSessionService creates a new session service
func NewSessionService(c *client.Client, st store.Store) *SessionService {
	return &SessionService{
		client: c,
		store:  st,
	}
}

// Login exchanges credentials for a token pair and stores both tokens plus a
// profile snapshot. On rejection nothing is written. The API expects the
// email in the username field.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (models.Profile, error) {
	resp, err := s.client.DoPublic(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/token/",
		Body:   models.LoginRequest{Username: identifier, Password: password},
	})
	if err != nil {
		return models.Profile{}, err
	}

	var tokens models.LoginResponse
	if err := client.DecodeJSON(resp, &tokens); err != nil {
		var httpErr *client.HTTPError
		if errors.As(err, &httpErr) {
			return models.Profile{}, fmt.Errorf("%w: %s", client.ErrInvalidCredentials, apiDetail(httpErr))
		}
		return models.Profile{}, err
	}

	if err := s.store.Set(store.KeyAccess, tokens.Access); err != nil {
		return models.Profile{}, fmt.Errorf("failed to store access token: %w", err)
	}
	if err := s.store.Set(store.KeyRefresh, tokens.Refresh); err != nil {
		return models.Profile{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	profile := models.Profile{
		Username: tokens.Username,
		Email:    tokens.Email,
	}
	if profile.Username == "" {
		profile.Username = identifier
	}
	if profile.Email == "" {
		profile.Email = identifier
	}
	if err := s.SaveProfile(profile); err != nil {
		return models.Profile{}, err
	}

	log.Info().Str("username", profile.Username).Msg("Logged in")
	return profile, nil
}

// Logout clears both tokens and the profile snapshot. Calling it with no
// session present is a no-op.
func (s *SessionService) Logout() error {
	for _, key := range []string{store.KeyAccess, store.KeyRefresh, store.KeyProfile} {
		if err := s.store.Clear(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	log.Info().Msg("Logged out")
	return nil
}

// Register creates a new account. The API maps the display name onto the
// account username.
func (s *SessionService) Register(ctx context.Context, name, email, password string) error {
	resp, err := s.client.DoPublic(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/register/",
		Body:   models.RegisterRequest{Username: name, Email: email, Password: password},
	})
	if err != nil {
		return err
	}
	if err := client.DecodeJSON(resp, nil); err != nil {
		var httpErr *client.HTTPError
		if errors.As(err, &httpErr) {
			return fmt.Errorf("registration failed: %s", apiDetail(httpErr))
		}
		return err
	}
	log.Info().Str("email", email).Msg("Registered")
	return nil
}

// Authenticated reports whether a full credential pair is present.
// Session state is derived from storage, never cached.
func (s *SessionService) Authenticated() bool {
	access, ok := s.store.Get(store.KeyAccess)
	if !ok || access == "" {
		return false
	}
	refresh, ok := s.store.Get(store.KeyRefresh)
	return ok && refresh != ""
}

// SaveProfile persists the profile snapshot
func (s *SessionService) SaveProfile(p models.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.store.Set(store.KeyProfile, string(data)); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

// CurrentProfile returns the stored profile snapshot, if any
func (s *SessionService) CurrentProfile() (models.Profile, bool) {
	raw, ok := s.store.Get(store.KeyProfile)
	if !ok {
		return models.Profile{}, false
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return models.Profile{}, false
	}
	return p, true
}

// AccessTokenExpiry reads the exp claim from the stored access token without
// verifying it. Display only; authorization is always the server's call.
func (s *SessionService) AccessTokenExpiry() (time.Time, bool) {
	access, ok := s.store.Get(store.KeyAccess)
	if !ok || access == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// apiDetail extracts the detail field from an API error body, falling back
// to the raw body
func apiDetail(httpErr *client.HTTPError) string {
	var apiErr models.APIError
	if err := json.Unmarshal([]byte(httpErr.Body), &apiErr); err == nil && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if httpErr.Body != "" {
		return httpErr.Body
	}
	return httpErr.Error()
}
