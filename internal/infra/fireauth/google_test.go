package fireauth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cryptofolio/internal/domain"
	"cryptofolio/internal/infra"
)

func TestTokenFromRedirect(t *testing.T) {
	t.Run("Query Token", func(t *testing.T) {
		token, err := TokenFromRedirect("http://127.0.0.1:8199/callback?id_token=abc&state=xyz")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "abc" {
			t.Errorf("expected abc, got %q", token)
		}
	})

	t.Run("Fragment Token", func(t *testing.T) {
		token, err := TokenFromRedirect("http://127.0.0.1:8199/callback#id_token=frag&state=xyz")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "frag" {
			t.Errorf("expected frag, got %q", token)
		}
	})

	t.Run("Fragment Wins On Collision", func(t *testing.T) {
		token, err := TokenFromRedirect("http://127.0.0.1:8199/callback?id_token=query#id_token=frag")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "frag" {
			t.Errorf("fragment must take precedence, got %q", token)
		}
	})

	t.Run("No Token", func(t *testing.T) {
		_, err := TokenFromRedirect("http://127.0.0.1:8199/callback?state=xyz")
		var ge *domain.GoogleAuthError
		if !errors.As(err, &ge) {
			t.Fatalf("expected GoogleAuthError, got %v", err)
		}
	})
}

func TestSignInWithGoogle_Disabled(t *testing.T) {
	cfg := &infra.Config{}
	cfg.Auth.Firebase.APIKey = "key"
	cfg.Auth.Firebase.ProjectID = "pid"
	// No Google client id configured.
	client := NewClient(cfg, nil)

	_, err := client.SignInWithGoogle(context.Background())
	if !errors.Is(err, domain.ErrGoogleAuthDisabled) {
		t.Fatalf("expected ErrGoogleAuthDisabled, got %v", err)
	}
}

func TestBuildGoogleAuthURL(t *testing.T) {
	cfg := &infra.Config{}
	cfg.Auth.Firebase.APIKey = "key"
	cfg.Auth.Google.WebClientID = "client-id.apps.example"
	client := NewClient(cfg, nil)

	u := client.buildGoogleAuthURL("http://127.0.0.1:9999/callback")
	for _, want := range []string{"client_id=client-id.apps.example", "response_type=id_token", "nonce=", "state=", "prompt=select_account"} {
		if !strings.Contains(u, want) {
			t.Errorf("auth URL missing %q: %s", want, u)
		}
	}
}
