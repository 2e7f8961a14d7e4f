package service

import (
	"context"
	"strings"
	"time"

	"cryptofolio/internal/domain"
)

// LoadComments reads the comment list for one coin, filtered
// server-side, and caches it for the detail screen.
func (c *Coordinator) LoadComments(ctx context.Context, coinID string) ([]domain.Comment, error) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return nil, domain.ErrNotSignedIn
	}

	comments, err := c.comments.List(ctx, s, coinID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.commentsByCoin[coinID] = comments
	c.mu.Unlock()
	return comments, nil
}

// PostComment appends a comment. An empty trimmed body is rejected
// locally without any network call. On success the new comment is
// prepended to the local list with a client timestamp; the stored
// document carries the server timestamp, and the two may diverge until
// the next reload.
func (c *Coordinator) PostComment(ctx context.Context, coinID, body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return &domain.ValidationError{Field: "body", Msg: "comment must not be empty"}
	}

	c.mu.RLock()
	s := c.session
	profile := c.profile
	c.mu.RUnlock()
	if s == nil {
		return domain.ErrNotSignedIn
	}

	userName := ""
	if profile != nil {
		userName = profile.Name
	}
	if userName == "" {
		userName = s.DisplayName
	}
	if userName == "" {
		userName = "User"
	}

	id, err := c.comments.Post(ctx, s, coinID, userName, trimmed)
	if err != nil {
		return err
	}

	echo := domain.Comment{
		ID:        id,
		CoinID:    coinID,
		UserID:    s.UID,
		UserName:  userName,
		Body:      trimmed,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.commentsByCoin[coinID] = append([]domain.Comment{echo}, c.commentsByCoin[coinID]...)
	c.mu.Unlock()
	return nil
}

// Comments returns the cached list for a coin.
func (c *Coordinator) Comments(coinID string) []domain.Comment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached := c.commentsByCoin[coinID]
	out := make([]domain.Comment, len(cached))
	copy(out, cached)
	return out
}
