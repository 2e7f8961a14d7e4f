// Package service owns all cross-screen state: the auth session,
// profile, coin list, portfolio mirror, and transient UI messages.
// Screens read state through narrow getters and mutate it only through
// the coordinator's callbacks. All state lives behind one mutex; the
// remote stores are only ever eventually consistent with it.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptofolio/internal/domain"
)

// Status is the session state machine: LoggedOut -> Authenticating ->
// LoggedIn, and back to LoggedOut on sign-out or provider-reported
// invalidation at any point.
type Status int

const (
	StatusLoggedOut Status = iota
	StatusAuthenticating
	StatusLoggedIn
)

const (
	defaultPollInterval = 30 * time.Second
	defaultMessageTTL   = 2500 * time.Millisecond
)

// Coordinator is the root orchestrator wiring the gateways together.
type Coordinator struct {
	auth      domain.Authenticator
	market    domain.MarketSource
	profiles  domain.ProfileStore
	portfolio domain.PortfolioStore
	comments  domain.CommentStore
	logger    *slog.Logger

	pollInterval time.Duration
	messageTTL   time.Duration

	mu             sync.RWMutex
	status         Status
	session        *domain.Session
	profile        *domain.Profile
	coins          []domain.Coin
	lastUpdated    time.Time
	fetchErr       string // persistent until the next successful fetch
	authMsg        string
	actionMsg      string // transient, auto-expiring
	actionSeq      int    // guards expiry of superseded messages
	holdings       domain.Holdings
	commentsByCoin map[string][]domain.Comment
	loading        bool // initial coin load pending
	refreshing     bool // a fetch batch is in flight
	portfolioBusy  bool

	pollCount  int // active screens depending on live prices
	pollCancel context.CancelFunc

	baseCtx     context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

// Option tweaks coordinator timing, mostly for tests.
type Option func(*Coordinator)

func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.pollInterval = d }
}

func WithMessageTTL(d time.Duration) Option {
	return func(c *Coordinator) { c.messageTTL = d }
}

// NewCoordinator wires the gateways. Start must be called before use.
func NewCoordinator(auth domain.Authenticator, market domain.MarketSource, profiles domain.ProfileStore, portfolio domain.PortfolioStore, comments domain.CommentStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		auth:           auth,
		market:         market,
		profiles:       profiles,
		portfolio:      portfolio,
		comments:       comments,
		logger:         slog.Default().With("module", "coordinator"),
		pollInterval:   defaultPollInterval,
		messageTTL:     defaultMessageTTL,
		status:         StatusLoggedOut,
		holdings:       domain.Holdings{},
		commentsByCoin: make(map[string][]domain.Comment),
		loading:        true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes to session-change notifications and pins the base
// context used for background loads. The subscription lives until
// Close.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	c.unsubscribe = c.auth.OnSessionChange(c.onSessionChange)
}

// Close releases the observer registration, stops polling, and waits
// for in-flight background work.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}

	c.mu.Lock()
	cancel := c.pollCancel
	c.pollCancel = nil
	c.pollCount = 0
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	c.wg.Wait()
}

// onSessionChange reacts to the identity provider's notifications. On
// establish it triggers two independent, non-blocking loads that do
// not gate navigation; on invalidation it clears the per-user mirrors
// so no data leaks across accounts.
func (c *Coordinator) onSessionChange(s *domain.Session) {
	c.mu.Lock()
	if s == nil {
		c.session = nil
		c.profile = nil
		c.holdings = domain.Holdings{}
		c.commentsByCoin = make(map[string][]domain.Comment)
		c.status = StatusLoggedOut
		c.mu.Unlock()
		return
	}

	c.session = s
	c.status = StatusLoggedIn
	ctx := c.baseCtx
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	// Profile and portfolio touch disjoint state slices; no ordering
	// guarantee between them.
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.loadProfile(ctx, s)
	}()
	go func() {
		defer c.wg.Done()
		c.loadPortfolio(ctx, s)
	}()
}

// ============================================================================
// Coin list and polling
// ============================================================================

// RefreshCoins fetches the whole coin batch. The issued flag reports
// whether a fetch actually ran: a call while a previous batch is still
// in flight is coalesced into a no-op so at most one batch is ever
// pending. On success the list is replaced atomically; on failure a
// persistent error is recorded and the last-known list stays visible.
func (c *Coordinator) RefreshCoins(ctx context.Context) (issued, ok bool) {
	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		return false, false
	}
	c.refreshing = true
	c.mu.Unlock()

	coins, err := c.market.FetchCoins(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false
	c.loading = false

	if err != nil {
		// Keep stale-but-valid data; the error stays until a fetch succeeds.
		c.fetchErr = err.Error()
		c.logger.Warn("coin refresh failed", "error", err)
		return true, false
	}

	c.coins = coins
	c.lastUpdated = time.Now()
	c.fetchErr = ""
	return true, true
}

// Refresh is the user-invoked path: same fetch, plus a transient
// message distinguishing success from failure.
func (c *Coordinator) Refresh(ctx context.Context) {
	issued, ok := c.RefreshCoins(ctx)
	if !issued {
		return
	}
	if ok {
		c.flash("Prices refreshed")
	} else {
		c.flash("Refresh failed")
	}
}

// StartPolling marks one live-price screen active. The first
// activation fetches immediately and starts the shared ticker; nested
// activations only bump the count. The ticker is scoped to ctx and to
// the matching StopPolling calls, so navigation cannot leak timers.
func (c *Coordinator) StartPolling(ctx context.Context) {
	c.mu.Lock()
	c.pollCount++
	if c.pollCount > 1 {
		c.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.pollLoop(pollCtx)
}

// StopPolling marks one live-price screen inactive. The ticker is
// released when the last one deactivates.
func (c *Coordinator) StopPolling() {
	c.mu.Lock()
	if c.pollCount == 0 {
		c.mu.Unlock()
		return
	}
	c.pollCount--
	if c.pollCount > 0 {
		c.mu.Unlock()
		return
	}
	cancel := c.pollCancel
	c.pollCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (c *Coordinator) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	c.RefreshCoins(ctx)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RefreshCoins(ctx)
		}
	}
}

// flash publishes a transient action message that expires unless a
// newer message superseded it.
func (c *Coordinator) flash(msg string) {
	c.mu.Lock()
	c.actionSeq++
	seq := c.actionSeq
	c.actionMsg = msg
	ttl := c.messageTTL
	c.mu.Unlock()

	time.AfterFunc(ttl, func() {
		c.mu.Lock()
		if c.actionSeq == seq {
			c.actionMsg = ""
		}
		c.mu.Unlock()
	})
}

// ============================================================================
// Read side
// ============================================================================

// Status returns the session state machine position.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Session returns the active session, nil when logged out.
func (c *Coordinator) Session() *domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Profile returns the loaded profile, nil until its load resolves.
func (c *Coordinator) Profile() *domain.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// Coins returns the latest successfully fetched list.
func (c *Coordinator) Coins() []domain.Coin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Coin, len(c.coins))
	copy(out, c.coins)
	return out
}

// Coin returns one coin by id, nil when absent from the latest poll.
func (c *Coordinator) Coin(id string) *domain.Coin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.FindCoin(c.coins, id)
}

// LastUpdated reports when the coin list last replaced.
func (c *Coordinator) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

// FetchError returns the persistent market error, empty when healthy.
func (c *Coordinator) FetchError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchErr
}

// ActionMessage returns the transient toast text, empty when expired.
func (c *Coordinator) ActionMessage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actionMsg
}

// AuthMessage returns the message shown on the auth screen.
func (c *Coordinator) AuthMessage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authMsg
}

// Loading reports whether the initial coin load is still pending.
func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Refreshing reports whether a fetch batch is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshing
}

// Holdings returns a copy of the local portfolio mirror.
func (c *Coordinator) Holdings() domain.Holdings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.holdings.Clone()
}

// HoldingsView joins the mirror against the current coin list.
func (c *Coordinator) HoldingsView() []domain.HoldingView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.BuildHoldingsView(c.holdings, c.coins)
}

// TotalValueUSD is derived on every read; it is never stored.
func (c *Coordinator) TotalValueUSD() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.TotalValueUSD(domain.BuildHoldingsView(c.holdings, c.coins))
}
