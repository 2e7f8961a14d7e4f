package domain

import "errors"

// ValidationError reports bad local input. It is resolved locally and
// never reaches the network.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return "validation [" + e.Field + "]: " + e.Msg
}

// FetchError represents a market data fetch failure. CoinID names the
// request that broke the batch; the whole batch is discarded.
type FetchError struct {
	CoinID string
	Err    error
}

func (e *FetchError) Error() string {
	return "fetch " + e.CoinID + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AuthError carries the identity provider's rejection message verbatim
// so screens can show it to the user unchanged.
type AuthError struct {
	Op  string // "sign_in", "sign_up", "reset", "refresh", "google"
	Msg string // provider-reported message
}

func (e *AuthError) Error() string {
	return "auth " + e.Op + ": " + e.Msg
}

// GoogleAuthError represents a federated sign-in flow that did not
// produce an identity token (dismissed consent, missing token, bad
// redirect).
type GoogleAuthError struct {
	Reason string
}

func (e *GoogleAuthError) Error() string {
	return "google sign-in: " + e.Reason
}

// StoreError wraps a document store read/write failure.
type StoreError struct {
	Op  string // "get", "set", "commit", "query"
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

var (
	// ErrGoogleAuthDisabled is returned when no Google client configuration is present.
	ErrGoogleAuthDisabled = errors.New("google sign-in is not configured")

	// ErrNotSignedIn is returned by operations that require an authenticated subject.
	ErrNotSignedIn = errors.New("not signed in")
)
