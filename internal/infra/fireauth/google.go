package fireauth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"cryptofolio/internal/domain"
)

// consentTimeout bounds how long we wait for the user to finish the
// browser consent flow.
const consentTimeout = 3 * time.Minute

// relayPage re-posts the redirect URL from the browser, fragment
// included; fragments never reach the server on their own.
const relayPage = `<!doctype html>
<html><body>Completing sign-in...
<script>
fetch('/capture', {method: 'POST', body: window.location.href})
  .then(function () { document.body.textContent = 'Sign-in complete. You can close this tab.'; })
  .catch(function () { document.body.textContent = 'Sign-in failed. Return to the app.'; });
</script>
</body></html>`

// SignInWithGoogle runs the redirect-based federated consent flow: it
// opens the provider consent page, waits for a single loopback
// callback carrying an identity token, and exchanges the token for a
// session credential.
func (c *Client) SignInWithGoogle(ctx context.Context) (*domain.Session, error) {
	if c.googleClientID == "" {
		return nil, domain.ErrGoogleAuthDisabled
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", c.redirectPort))
	if err != nil {
		return nil, &domain.GoogleAuthError{Reason: "cannot open callback listener: " + err.Error()}
	}

	redirectURI := "http://" + listener.Addr().String() + "/callback"
	captured := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, relayPage)
	})
	mux.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		select {
		case captured <- string(body):
		default: // a second redirect is ignored
		}
		w.WriteHeader(http.StatusNoContent)
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	authURL := c.buildGoogleAuthURL(redirectURI)
	if err := openBrowser(authURL); err != nil {
		c.logger.Warn("cannot open browser, visit manually", "url", authURL)
	}

	var redirect string
	select {
	case <-ctx.Done():
		return nil, &domain.GoogleAuthError{Reason: "sign-in flow cancelled"}
	case <-time.After(consentTimeout):
		return nil, &domain.GoogleAuthError{Reason: "sign-in flow timed out"}
	case redirect = <-captured:
	}

	token, err := TokenFromRedirect(redirect)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	err = c.doAccountsPost(ctx, "signInWithIdp", map[string]any{
		"postBody":            "id_token=" + url.QueryEscape(token) + "&providerId=google.com",
		"requestUri":          redirectURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp, "google")
	if err != nil {
		return nil, err
	}

	s := resp.session()
	c.setSession(s)
	return s, nil
}

// buildGoogleAuthURL assembles the OpenID consent URL. uuid values
// serve as replay protection for nonce and state.
func (c *Client) buildGoogleAuthURL(redirectURI string) string {
	params := url.Values{
		"client_id":     {c.googleClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"id_token"},
		"scope":         {"openid profile email"},
		"nonce":         {uuid.NewString()},
		"state":         {uuid.NewString()},
		"prompt":        {"select_account"},
	}
	return "https://accounts.google.com/o/oauth2/v2/auth?" + params.Encode()
}

// TokenFromRedirect extracts the identity token from a callback
// redirect URL. The token may arrive in the query string or in the
// fragment; both are probed and the fragment wins on a key collision.
func TokenFromRedirect(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", &domain.GoogleAuthError{Reason: "malformed redirect: " + err.Error()}
	}

	params := u.Query()
	if u.Fragment != "" {
		fragment, err := url.ParseQuery(u.Fragment)
		if err == nil {
			for key, values := range fragment {
				if len(values) > 0 {
					params.Set(key, values[0])
				}
			}
		}
	}

	token := params.Get("id_token")
	if token == "" {
		return "", &domain.GoogleAuthError{Reason: "no identity token in redirect"}
	}
	return token, nil
}

func openBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
