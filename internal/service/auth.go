package service

import (
	"context"
	"errors"

	"cryptofolio/internal/domain"
)

// SignIn authenticates with email and password. Validation failures
// and provider rejections both land in the auth message verbatim.
func (c *Coordinator) SignIn(ctx context.Context, email, password string) error {
	c.setAuthenticating()

	_, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		c.failAuth(err)
		return err
	}

	c.setAuthMessage("")
	return nil
}

// Register creates the identity, attaches the display name (both in
// the gateway), then upserts the profile document. A profile write
// failure after identity creation is surfaced but not rolled back; the
// session stands and the profile heals lazily on the next load.
func (c *Coordinator) Register(ctx context.Context, name, email, password string) error {
	c.setAuthenticating()

	s, err := c.auth.SignUp(ctx, name, email, password)
	if err != nil {
		c.failAuth(err)
		return err
	}

	profile := &domain.Profile{Name: name, Email: email}
	if err := c.profiles.Save(ctx, s, profile); err != nil {
		c.logger.Warn("profile upsert after registration failed", "error", err)
		c.setAuthMessage(err.Error())
		return err
	}

	c.mu.Lock()
	c.profile = profile
	c.authMsg = ""
	c.mu.Unlock()
	return nil
}

// RequestPasswordReset asks the provider for a reset mail; success is
// only a confirmation message, never a session change.
func (c *Coordinator) RequestPasswordReset(ctx context.Context, email string) error {
	if err := c.auth.SendPasswordReset(ctx, email); err != nil {
		c.setAuthMessage(err.Error())
		return err
	}
	c.setAuthMessage("Password reset email sent")
	return nil
}

// SignInWithGoogle runs the federated flow and upserts the profile
// derived from the returned identity.
func (c *Coordinator) SignInWithGoogle(ctx context.Context) error {
	s, err := c.auth.SignInWithGoogle(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrGoogleAuthDisabled) {
			c.setAuthMessage("Google sign-in unavailable")
		} else {
			c.failAuth(err)
		}
		return err
	}

	profile := domain.DefaultProfile(s)
	if err := c.profiles.Save(ctx, s, profile); err != nil {
		c.logger.Warn("profile upsert after google sign-in failed", "error", err)
	}

	c.setAuthMessage("")
	return nil
}

// SignOut drops the session; the observer clears the profile and
// portfolio mirrors as a consequence.
func (c *Coordinator) SignOut() {
	c.auth.SignOut()
}

func (c *Coordinator) setAuthenticating() {
	c.mu.Lock()
	if c.status == StatusLoggedOut {
		c.status = StatusAuthenticating
	}
	c.mu.Unlock()
}

func (c *Coordinator) failAuth(err error) {
	c.mu.Lock()
	if c.status == StatusAuthenticating {
		c.status = StatusLoggedOut
	}
	c.authMsg = userMessage(err)
	c.mu.Unlock()
}

func (c *Coordinator) setAuthMessage(msg string) {
	c.mu.Lock()
	c.authMsg = msg
	c.mu.Unlock()
}

// userMessage unwraps provider errors down to the text a screen shows.
func userMessage(err error) string {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr.Msg
	}
	return err.Error()
}

// loadProfile resolves the profile document in the background. A late
// response after the session changed is dropped.
func (c *Coordinator) loadProfile(ctx context.Context, s *domain.Session) {
	p, err := c.profiles.Load(ctx, s)
	if err != nil {
		c.logger.Warn("profile load failed", "uid", s.UID, "error", err)
		return
	}

	c.mu.Lock()
	if c.session != nil && c.session.UID == s.UID {
		c.profile = p
	}
	c.mu.Unlock()
}
