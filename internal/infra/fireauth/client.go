// Package fireauth wraps the external identity provider's REST
// endpoints: password and federated sign-in, registration, password
// reset, token refresh, and session-change notification.
package fireauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cryptofolio/internal/domain"
	"cryptofolio/internal/infra"
)

const (
	defaultIdentityURL = "https://identitytoolkit.googleapis.com"
	defaultTokenURL    = "https://securetoken.googleapis.com"

	// Renew the ID token when it has less than this long to live.
	refreshMargin = 5 * time.Minute
)

// CredentialStore persists the refresh credential across process runs.
// Implemented by the local sqlite storage.
type CredentialStore interface {
	SaveCredential(uid, email, refreshToken string) error
	ClearCredential() error
}

// Client is the identity provider gateway. It owns the single active
// session and a durable observer registry fired on sign-in, sign-out,
// and token refresh.
type Client struct {
	apiKey         string
	identityURL    string
	tokenURL       string
	googleClientID string
	redirectPort   int
	httpClient     *http.Client
	logger         *slog.Logger
	creds          CredentialStore

	mu           sync.RWMutex
	session      *domain.Session
	observers    map[int]func(*domain.Session)
	nextObserver int
}

// NewClient creates an identity client. creds may be nil when no local
// persistence is wanted (tests).
func NewClient(cfg *infra.Config, creds CredentialStore) *Client {
	identityURL := cfg.Auth.Firebase.IdentityURL
	if identityURL == "" {
		identityURL = defaultIdentityURL
	}
	tokenURL := cfg.Auth.Firebase.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	return &Client{
		apiKey:         cfg.Auth.Firebase.APIKey,
		identityURL:    identityURL,
		tokenURL:       tokenURL,
		googleClientID: cfg.Auth.Google.WebClientID,
		redirectPort:   cfg.Auth.Google.RedirectPort,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		logger:         slog.Default().With("module", "fireauth"),
		creds:          creds,
		observers:      make(map[int]func(*domain.Session)),
	}
}

// authResponse covers the common fields of the identitytoolkit account
// endpoints.
type authResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email"`
}

func (r *authResponse) session() *domain.Session {
	expires := time.Now().Add(time.Hour)
	if secs, err := strconv.Atoi(r.ExpiresIn); err == nil {
		expires = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return &domain.Session{
		UID:          r.LocalID,
		DisplayName:  r.DisplayName,
		Email:        r.Email,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expires,
	}
}

// SignIn authenticates with email and password. Empty input fails
// locally with a ValidationError before any network call.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, &domain.ValidationError{Field: "credentials", Msg: "email and password are required"}
	}

	var resp authResponse
	err := c.doAccountsPost(ctx, "signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp, "sign_in")
	if err != nil {
		return nil, err
	}

	s := resp.session()
	c.setSession(s)
	return s, nil
}

// SignUp registers a new identity and attaches the display name to it.
// The profile document upsert is the caller's responsibility; a partial
// failure after identity creation is not rolled back.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*domain.Session, error) {
	if name == "" || email == "" || password == "" {
		return nil, &domain.ValidationError{Field: "registration", Msg: "name, email and password are required"}
	}

	var created authResponse
	err := c.doAccountsPost(ctx, "signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &created, "sign_up")
	if err != nil {
		return nil, err
	}

	var updated authResponse
	err = c.doAccountsPost(ctx, "update", map[string]any{
		"idToken":           created.IDToken,
		"displayName":       name,
		"returnSecureToken": true,
	}, &updated, "sign_up")
	if err != nil {
		// Identity exists but carries no display name; surface the error
		// and leave the created session in place.
		created.DisplayName = ""
		s := created.session()
		c.setSession(s)
		return s, err
	}

	created.DisplayName = name
	if updated.IDToken != "" {
		created.IDToken = updated.IDToken
	}
	if updated.RefreshToken != "" {
		created.RefreshToken = updated.RefreshToken
	}

	s := created.session()
	c.setSession(s)
	return s, nil
}

// SendPasswordReset asks the provider to mail a reset link. Success is
// a user-visible confirmation, not a session change.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return &domain.ValidationError{Field: "email", Msg: "email is required for reset"}
	}

	var resp struct {
		Email string `json:"email"`
	}
	return c.doAccountsPost(ctx, "sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, &resp, "reset")
}

// SignOut drops the session and notifies observers with nil.
func (c *Client) SignOut() {
	c.setSession(nil)
}

// Current returns the active session, nil when logged out.
func (c *Client) Current() *domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// OnSessionChange registers an observer. The returned function removes
// the registration; callers tie its lifetime to their own.
func (c *Client) OnSessionChange(fn func(*domain.Session)) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Restore exchanges a persisted refresh token for a live session at
// startup. Email seeds the session until the account lookup resolves.
func (c *Client) Restore(ctx context.Context, refreshToken, email string) (*domain.Session, error) {
	s, err := c.exchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if s.Email == "" {
		s.Email = email
	}

	// Best effort: recover the display name from the account record.
	var lookup struct {
		Users []struct {
			DisplayName string `json:"displayName"`
			Email       string `json:"email"`
		} `json:"users"`
	}
	if err := c.doAccountsPost(ctx, "lookup", map[string]any{"idToken": s.IDToken}, &lookup, "refresh"); err == nil && len(lookup.Users) > 0 {
		s.DisplayName = lookup.Users[0].DisplayName
		if lookup.Users[0].Email != "" {
			s.Email = lookup.Users[0].Email
		}
	}

	c.setSession(s)
	return s, nil
}

// StartRefreshLoop keeps the ID token alive in the background. A
// provider-rejected refresh invalidates the session, which observers
// see as a sign-out.
func (c *Client) StartRefreshLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshIfNeeded(ctx)
			}
		}
	}()
}

func (c *Client) refreshIfNeeded(ctx context.Context) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil || time.Until(s.ExpiresAt) > refreshMargin {
		return
	}

	renewed, err := c.exchangeRefreshToken(ctx, s.RefreshToken)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			// Provider-initiated invalidation: drop the session.
			c.logger.Warn("session refresh rejected", "error", err)
			c.setSession(nil)
			return
		}
		// Transient network failure: keep the session, retry next tick.
		c.logger.Warn("session refresh failed", "error", err)
		return
	}

	renewed.DisplayName = s.DisplayName
	if renewed.Email == "" {
		renewed.Email = s.Email
	}
	c.setSession(renewed)
}

func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	err := c.doPost(ctx, c.tokenURL+"/v1/token", map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}, &resp, "refresh")
	if err != nil {
		return nil, err
	}

	expires := time.Now().Add(time.Hour)
	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil {
		expires = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return &domain.Session{
		UID:          resp.UserID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expires,
	}, nil
}

// setSession installs the session, persists or clears the local
// credential, and notifies observers outside the lock.
func (c *Client) setSession(s *domain.Session) {
	c.mu.Lock()
	c.session = s
	observers := make([]func(*domain.Session), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	if c.creds != nil {
		var err error
		if s == nil {
			err = c.creds.ClearCredential()
		} else {
			err = c.creds.SaveCredential(s.UID, s.Email, s.RefreshToken)
		}
		if err != nil {
			c.logger.Warn("credential persistence failed", "error", err)
		}
	}

	for _, fn := range observers {
		fn(s)
	}
}

// doAccountsPost posts to an identitytoolkit accounts endpoint.
func (c *Client) doAccountsPost(ctx context.Context, action string, body map[string]any, out any, op string) error {
	return c.doPost(ctx, c.identityURL+"/v1/accounts:"+action, body, out, op)
}

// doPost handles serialization, the API key query parameter, and the
// provider error envelope.
func (c *Client) doPost(ctx context.Context, endpoint string, body map[string]any, out any, op string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(bodyBytes, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &domain.AuthError{Op: op, Msg: apiErr.Error.Message}
		}
		return &domain.AuthError{Op: op, Msg: fmt.Sprintf("unexpected status code: %d", resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
