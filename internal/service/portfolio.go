package service

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"cryptofolio/internal/domain"
)

// AddHolding increments a holding. The remote atomic increment runs
// first; only after it resolves is the local mirror bumped. There is
// no rollback or reconciliation read afterwards: the mirror is
// eventually consistent with the store and a full LoadPortfolio is the
// reconciliation path.
func (c *Coordinator) AddHolding(ctx context.Context, coinID string, quantity float64) error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return domain.ErrNotSignedIn
	}

	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return &domain.ValidationError{Field: "quantity", Msg: "quantity must be a positive number"}
	}
	delta := decimal.NewFromFloat(quantity)

	if err := c.portfolio.Add(ctx, s, coinID, delta); err != nil {
		return err
	}

	c.mu.Lock()
	// Drop the optimistic update if the account changed underneath the call.
	if c.session != nil && c.session.UID == s.UID {
		c.holdings[coinID] = c.holdings[coinID].Add(delta)
	}
	c.mu.Unlock()
	return nil
}

// LoadPortfolio re-reads the holdings collection and replaces the
// local mirror wholesale.
func (c *Coordinator) LoadPortfolio(ctx context.Context) error {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return domain.ErrNotSignedIn
	}
	return c.loadPortfolio(ctx, s)
}

// PortfolioLoading reports whether a holdings read is pending.
func (c *Coordinator) PortfolioLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.portfolioBusy
}

func (c *Coordinator) loadPortfolio(ctx context.Context, s *domain.Session) error {
	c.mu.Lock()
	c.portfolioBusy = true
	c.mu.Unlock()

	holdings, err := c.portfolio.Load(ctx, s)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.portfolioBusy = false

	if err != nil {
		c.logger.Warn("portfolio load failed", "uid", s.UID, "error", err)
		return err
	}
	// A response landing after sign-out or account switch is a no-op.
	if c.session == nil || c.session.UID != s.UID {
		return nil
	}
	c.holdings = holdings
	return nil
}
