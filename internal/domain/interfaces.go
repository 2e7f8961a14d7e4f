package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketSource fetches the fixed coin set from the market data API.
// The batch is all-or-nothing: any individual failure fails the whole
// fetch, there is no partial-success mode.
type MarketSource interface {
	FetchCoins(ctx context.Context) ([]Coin, error)
}

// Authenticator wraps the external identity provider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, name, email, password string) (*Session, error)
	SendPasswordReset(ctx context.Context, email string) error
	SignInWithGoogle(ctx context.Context) (*Session, error)
	SignOut()
	Current() *Session

	// OnSessionChange registers a durable observer fired on sign-in,
	// sign-out, and token refresh. The returned function unsubscribes.
	OnSessionChange(fn func(*Session)) (unsubscribe func())
}

// ProfileStore reads and writes the per-user profile document.
type ProfileStore interface {
	// Load reads the profile, lazily creating a default derived from
	// the session when no document exists remotely.
	Load(ctx context.Context, s *Session) (*Profile, error)
	Save(ctx context.Context, s *Session, p *Profile) error
}

// PortfolioStore reads and incrementally writes per-user holdings.
type PortfolioStore interface {
	Load(ctx context.Context, s *Session) (Holdings, error)

	// Add performs a server-side atomic increment with merge-write
	// semantics: a first-time coin id creates the record. Non-positive
	// deltas are rejected defensively.
	Add(ctx context.Context, s *Session, coinID string, delta decimal.Decimal) error
}

// CommentStore reads and appends comment documents scoped to a coin.
type CommentStore interface {
	List(ctx context.Context, s *Session, coinID string) ([]Comment, error)

	// Post appends a comment and returns the assigned document id.
	Post(ctx context.Context, s *Session, coinID, userName, body string) (string, error)
}
