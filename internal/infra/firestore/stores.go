package firestore

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cryptofolio/internal/domain"
)

// ProfileStore reads and writes users/{uid}.
type ProfileStore struct {
	client *Client
}

func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client}
}

// Load reads the profile document. When none exists it lazily creates
// one derived from the session and returns the default — the original
// registration may have failed after identity creation, and this heals
// the gap on the next authenticated load.
func (s *ProfileStore) Load(ctx context.Context, session *domain.Session) (*domain.Profile, error) {
	if session == nil {
		return nil, domain.ErrNotSignedIn
	}

	doc, err := s.client.GetDocument(ctx, session.IDToken, "users/"+session.UID)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return &domain.Profile{
			Name:      doc.GetString("name"),
			Email:     doc.GetString("email"),
			CreatedAt: doc.GetTime("createdAt"),
		}, nil
	}

	fallback := domain.DefaultProfile(session)
	if err := s.Save(ctx, session, fallback); err != nil {
		return nil, err
	}
	return fallback, nil
}

// Save upserts the profile with merge semantics; createdAt is stamped
// server-side.
func (s *ProfileStore) Save(ctx context.Context, session *domain.Session, p *domain.Profile) error {
	if session == nil {
		return domain.ErrNotSignedIn
	}
	return s.client.Commit(ctx, session.IDToken, Write{
		Path: "users/" + session.UID,
		Fields: map[string]Value{
			"name":  String(p.Name),
			"email": String(p.Email),
		},
		Transforms: []FieldTransform{ServerTimestamp("createdAt")},
	})
}

// PortfolioStore reads and increments users/{uid}/portfolio/{coinId}.
type PortfolioStore struct {
	client *Client
}

func NewPortfolioStore(client *Client) *PortfolioStore {
	return &PortfolioStore{client: client}
}

// Load reads all holding documents under the subject's scope. A missing
// quantity field defaults to zero; the coin id falls back to the
// document id when the field is absent.
func (s *PortfolioStore) Load(ctx context.Context, session *domain.Session) (domain.Holdings, error) {
	if session == nil {
		return nil, domain.ErrNotSignedIn
	}

	docs, err := s.client.ListDocuments(ctx, session.IDToken, "users/"+session.UID+"/portfolio")
	if err != nil {
		return nil, err
	}

	holdings := make(domain.Holdings, len(docs))
	for _, doc := range docs {
		coinID := doc.GetString("coinId")
		if coinID == "" {
			coinID = doc.ID()
		}
		if coinID == "" {
			continue
		}
		holdings[coinID] = decimal.NewFromFloat(doc.GetDouble("quantity"))
	}
	return holdings, nil
}

// Add performs a server-side atomic increment with merge-write
// semantics: never read-modify-write from the client, so concurrent
// adds from other sessions on the same account cannot lose updates.
func (s *PortfolioStore) Add(ctx context.Context, session *domain.Session, coinID string, delta decimal.Decimal) error {
	if session == nil {
		return domain.ErrNotSignedIn
	}
	if !delta.IsPositive() {
		return &domain.ValidationError{Field: "quantity", Msg: "delta must be positive"}
	}

	f, _ := delta.Float64()
	return s.client.Commit(ctx, session.IDToken, Write{
		Path: "users/" + session.UID + "/portfolio/" + coinID,
		Fields: map[string]Value{
			"coinId": String(coinID),
		},
		Transforms: []FieldTransform{
			IncrementDouble("quantity", f),
			ServerTimestamp("updatedAt"),
		},
	})
}

// CommentStore reads and appends the top-level comments collection.
type CommentStore struct {
	client *Client
}

func NewCommentStore(client *Client) *CommentStore {
	return &CommentStore{client: client}
}

// List returns the comments for one coin, filtered server-side.
func (s *CommentStore) List(ctx context.Context, session *domain.Session, coinID string) ([]domain.Comment, error) {
	if session == nil {
		return nil, domain.ErrNotSignedIn
	}

	docs, err := s.client.RunQuery(ctx, session.IDToken, "comments", "coinId", String(coinID))
	if err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, domain.Comment{
			ID:        doc.ID(),
			CoinID:    doc.GetString("coinId"),
			UserID:    doc.GetString("userId"),
			UserName:  doc.GetString("userName"),
			Body:      doc.GetString("body"),
			CreatedAt: doc.GetTime("createdAt"),
		})
	}
	return comments, nil
}

// Post appends a comment document with a server-side createdAt and
// returns its id. The id is generated client-side the way document
// SDKs do for add-with-generated-id.
func (s *CommentStore) Post(ctx context.Context, session *domain.Session, coinID, userName, body string) (string, error) {
	if session == nil {
		return "", domain.ErrNotSignedIn
	}

	id := uuid.NewString()
	err := s.client.Commit(ctx, session.IDToken, Write{
		Path: "comments/" + id,
		Fields: map[string]Value{
			"coinId":   String(coinID),
			"userId":   String(session.UID),
			"userName": String(userName),
			"body":     String(body),
		},
		Transforms: []FieldTransform{ServerTimestamp("createdAt")},
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
