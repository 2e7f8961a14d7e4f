package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptofolio/internal/domain"
)

// fakeAuth is an in-memory Authenticator with the same observer
// semantics as the real gateway.
type fakeAuth struct {
	mu        sync.Mutex
	session   *domain.Session
	observers map[int]func(*domain.Session)
	next      int

	signInErr error
	signUpErr error
	resetErr  error
	googleErr error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{observers: make(map[int]func(*domain.Session))}
}

func (f *fakeAuth) setSession(s *domain.Session) {
	f.mu.Lock()
	f.session = s
	fns := make([]func(*domain.Session), 0, len(f.observers))
	for _, fn := range f.observers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, &domain.ValidationError{Field: "credentials", Msg: "email and password are required"}
	}
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := &domain.Session{UID: "uid-1", Email: email, DisplayName: "Ada", IDToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	f.setSession(s)
	return s, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, name, email, password string) (*domain.Session, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	s := &domain.Session{UID: "uid-new", Email: email, DisplayName: name, IDToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	f.setSession(s)
	return s, nil
}

func (f *fakeAuth) SendPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return &domain.ValidationError{Field: "email", Msg: "email is required for reset"}
	}
	return f.resetErr
}

func (f *fakeAuth) SignInWithGoogle(ctx context.Context) (*domain.Session, error) {
	if f.googleErr != nil {
		return nil, f.googleErr
	}
	s := &domain.Session{UID: "uid-g", Email: "g@example.com", DisplayName: "Google Ada", IDToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	f.setSession(s)
	return s, nil
}

func (f *fakeAuth) SignOut() {
	f.setSession(nil)
}

func (f *fakeAuth) Current() *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeAuth) OnSessionChange(fn func(*domain.Session)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.observers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.observers, id)
		f.mu.Unlock()
	}
}

// fakeMarket counts fetches and can be made slow or failing.
type fakeMarket struct {
	mu      sync.Mutex
	coins   []domain.Coin
	err     error
	delay   time.Duration
	fetches int
}

func (f *fakeMarket) FetchCoins(ctx context.Context) ([]domain.Coin, error) {
	f.mu.Lock()
	f.fetches++
	coins, err, delay := f.coins, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.Coin, len(coins))
	copy(out, coins)
	return out, nil
}

func (f *fakeMarket) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeProfiles struct {
	mu     sync.Mutex
	stored map[string]*domain.Profile
	delay  time.Duration
	err    error
	saves  int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{stored: make(map[string]*domain.Profile)}
}

func (f *fakeProfiles) Load(ctx context.Context, s *domain.Session) (*domain.Profile, error) {
	if d := f.loadDelay(); d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.stored[s.UID]; ok {
		return p, nil
	}
	p := domain.DefaultProfile(s)
	f.stored[s.UID] = p
	return p, nil
}

func (f *fakeProfiles) Save(ctx context.Context, s *domain.Session, p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves++
	f.stored[s.UID] = p
	return nil
}

func (f *fakeProfiles) loadDelay() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delay
}

// fakePortfolio accumulates increments like the remote store does.
type fakePortfolio struct {
	mu     sync.Mutex
	stored map[string]map[string]decimal.Decimal // uid -> coin -> qty
	err    error
	adds   int
}

func newFakePortfolio() *fakePortfolio {
	return &fakePortfolio{stored: make(map[string]map[string]decimal.Decimal)}
}

func (f *fakePortfolio) Load(ctx context.Context, s *domain.Session) (domain.Holdings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := domain.Holdings{}
	for coin, qty := range f.stored[s.UID] {
		out[coin] = qty
	}
	return out, nil
}

func (f *fakePortfolio) Add(ctx context.Context, s *domain.Session, coinID string, delta decimal.Decimal) error {
	if s == nil {
		return domain.ErrNotSignedIn
	}
	if !delta.IsPositive() {
		return &domain.ValidationError{Field: "quantity", Msg: "delta must be positive"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.adds++
	if f.stored[s.UID] == nil {
		f.stored[s.UID] = make(map[string]decimal.Decimal)
	}
	f.stored[s.UID][coinID] = f.stored[s.UID][coinID].Add(delta)
	return nil
}

func (f *fakePortfolio) addCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds
}

type fakeComments struct {
	mu    sync.Mutex
	lists map[string][]domain.Comment
	err   error
	posts int
}

func newFakeComments() *fakeComments {
	return &fakeComments{lists: make(map[string][]domain.Comment)}
}

func (f *fakeComments) List(ctx context.Context, s *domain.Session, coinID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Comment(nil), f.lists[coinID]...), nil
}

func (f *fakeComments) Post(ctx context.Context, s *domain.Session, coinID, userName, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.posts++
	id := "c-1"
	f.lists[coinID] = append(f.lists[coinID], domain.Comment{
		ID: id, CoinID: coinID, UserID: s.UID, UserName: userName, Body: body, CreatedAt: time.Now(),
	})
	return id, nil
}

func (f *fakeComments) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts
}
