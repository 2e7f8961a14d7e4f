package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptofolio/internal/domain"
)

func TestPostCommentRejectsEmptyBodyWithoutNetwork(t *testing.T) {
	h := newHarness(t)
	signedIn(t, h)

	for _, body := range []string{"", "   ", "\n\t"} {
		err := h.coord.PostComment(context.Background(), "bitcoin", body)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("PostComment(%q) err = %v, want ValidationError", body, err)
		}
	}
	if got := h.comments.postCount(); got != 0 {
		t.Errorf("posts = %d, want 0 for rejected bodies", got)
	}
}

func TestPostCommentEchoesLocally(t *testing.T) {
	h := newHarness(t)
	signedIn(t, h)
	ctx := context.Background()

	if _, err := h.coord.LoadComments(ctx, "bitcoin"); err != nil {
		t.Fatalf("LoadComments: %v", err)
	}
	if err := h.coord.PostComment(ctx, "bitcoin", "  to the moon  "); err != nil {
		t.Fatalf("PostComment: %v", err)
	}

	list := h.coord.Comments("bitcoin")
	if len(list) != 1 {
		t.Fatalf("comments = %d, want 1", len(list))
	}
	c := list[0]
	if c.Body != "to the moon" {
		t.Errorf("body = %q, want trimmed text", c.Body)
	}
	if c.UserName != "Ada" {
		t.Errorf("user name = %q, want profile name", c.UserName)
	}
	if c.CreatedAt.IsZero() {
		t.Error("echo missing client timestamp")
	}
}

func TestPostCommentPrependsToExistingList(t *testing.T) {
	h := newHarness(t)
	signedIn(t, h)
	ctx := context.Background()

	h.comments.mu.Lock()
	h.comments.lists["bitcoin"] = []domain.Comment{
		{ID: "old", CoinID: "bitcoin", Body: "earlier", CreatedAt: time.Now().Add(-time.Hour)},
	}
	h.comments.mu.Unlock()

	if _, err := h.coord.LoadComments(ctx, "bitcoin"); err != nil {
		t.Fatalf("LoadComments: %v", err)
	}
	if err := h.coord.PostComment(ctx, "bitcoin", "newest"); err != nil {
		t.Fatalf("PostComment: %v", err)
	}

	list := h.coord.Comments("bitcoin")
	if len(list) != 2 {
		t.Fatalf("comments = %d, want 2", len(list))
	}
	if list[0].Body != "newest" || list[1].Body != "earlier" {
		t.Errorf("order = %q, %q; want newest first", list[0].Body, list[1].Body)
	}
}

func TestCommentsRequireSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.coord.LoadComments(ctx, "bitcoin"); err != domain.ErrNotSignedIn {
		t.Errorf("LoadComments err = %v, want ErrNotSignedIn", err)
	}
	if err := h.coord.PostComment(ctx, "bitcoin", "hello"); err != domain.ErrNotSignedIn {
		t.Errorf("PostComment err = %v, want ErrNotSignedIn", err)
	}
}

func TestPostCommentFallsBackToDisplayName(t *testing.T) {
	h := newHarness(t)
	signedIn(t, h)
	ctx := context.Background()

	// Profile name cleared, session display name remains.
	h.coord.mu.Lock()
	h.coord.profile = &domain.Profile{Name: "", Email: "a@example.com"}
	h.coord.mu.Unlock()

	if err := h.coord.PostComment(ctx, "bitcoin", "hi"); err != nil {
		t.Fatalf("PostComment: %v", err)
	}
	if got := h.coord.Comments("bitcoin")[0].UserName; got != "Ada" {
		t.Errorf("user name = %q, want session display name", got)
	}
}
