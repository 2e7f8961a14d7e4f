// Package firestore is a thin typed client for the document store REST
// surface this application uses: get-by-key, set-with-merge, atomic
// field increments, equality queries, and server-assigned timestamps.
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cryptofolio/internal/domain"
	"cryptofolio/internal/infra"
)

const defaultBaseURL = "https://firestore.googleapis.com"

// Client is the document store REST client (boundary layer). Every
// call authenticates with the session's bearer ID token.
type Client struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a document store client for the configured project.
func NewClient(cfg *infra.Config) *Client {
	baseURL := cfg.Auth.Firebase.FirestoreURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		projectID: cfg.Auth.Firebase.ProjectID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "firestore"),
	}
}

// docRoot is the resource prefix every document name carries.
func (c *Client) docRoot() string {
	return "projects/" + c.projectID + "/databases/(default)/documents"
}

func (c *Client) docEndpoint(path string) string {
	return c.baseURL + "/v1/" + c.docRoot() + "/" + path
}

// GetDocument fetches one document. Not-found is not an error (nil, nil).
func (c *Client) GetDocument(ctx context.Context, token, path string) (*Document, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.docEndpoint(path), token, nil)
	if err != nil {
		return nil, &domain.StoreError{Op: "get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if err := checkStatus(resp); err != nil {
		return nil, &domain.StoreError{Op: "get", Err: err}
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &domain.StoreError{Op: "get", Err: err}
	}
	return &doc, nil
}

// ListDocuments fetches every document of a collection. An absent
// collection yields an empty slice.
func (c *Client) ListDocuments(ctx context.Context, token, collectionPath string) ([]Document, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.docEndpoint(collectionPath), token, nil)
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}

	var body struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	return body.Documents, nil
}

// RunQuery runs a single-field equality query against a top-level
// collection, filtered server-side.
func (c *Client) RunQuery(ctx context.Context, token, collectionID, field string, value Value) ([]Document, error) {
	query := map[string]any{
		"structuredQuery": map[string]any{
			"from": []map[string]any{{"collectionId": collectionID}},
			"where": map[string]any{
				"fieldFilter": map[string]any{
					"field": map[string]string{"fieldPath": field},
					"op":    "EQUAL",
					"value": value,
				},
			},
		},
	}

	endpoint := c.baseURL + "/v1/" + c.docRoot() + ":runQuery"
	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, token, query)
	if err != nil {
		return nil, &domain.StoreError{Op: "query", Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, &domain.StoreError{Op: "query", Err: err}
	}

	var rows []struct {
		Document *Document `json:"document"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &domain.StoreError{Op: "query", Err: err}
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		if row.Document != nil {
			docs = append(docs, *row.Document)
		}
	}
	return docs, nil
}

// Write is one commit entry: a merge update plus optional server-side
// transforms (increment, server timestamp) applied atomically.
type Write struct {
	Path       string           // document path under the root
	Fields     map[string]Value // merged fields
	Transforms []FieldTransform
}

// FieldTransform is a server-side mutation evaluated inside the commit.
type FieldTransform struct {
	FieldPath        string `json:"fieldPath"`
	SetToServerValue string `json:"setToServerValue,omitempty"`
	Increment        *Value `json:"increment,omitempty"`
}

// ServerTimestamp transforms a field to the commit time.
func ServerTimestamp(field string) FieldTransform {
	return FieldTransform{FieldPath: field, SetToServerValue: "REQUEST_TIME"}
}

// IncrementDouble transforms a field by a server-side atomic add. The
// first write to a missing field treats it as zero, so a first-time
// document is created rather than overwritten.
func IncrementDouble(field string, delta float64) FieldTransform {
	v := Double(delta)
	return FieldTransform{FieldPath: field, Increment: &v}
}

// Commit applies writes atomically. Merged fields never clobber fields
// outside their mask.
func (c *Client) Commit(ctx context.Context, token string, writes ...Write) error {
	type maskJSON struct {
		FieldPaths []string `json:"fieldPaths"`
	}
	type writeJSON struct {
		Update           *Document        `json:"update,omitempty"`
		UpdateMask       *maskJSON        `json:"updateMask,omitempty"`
		UpdateTransforms []FieldTransform `json:"updateTransforms,omitempty"`
	}

	payload := struct {
		Writes []writeJSON `json:"writes"`
	}{}
	for _, w := range writes {
		entry := writeJSON{
			Update: &Document{
				Name:   c.docRoot() + "/" + w.Path,
				Fields: w.Fields,
			},
			UpdateTransforms: w.Transforms,
		}
		if len(w.Fields) > 0 {
			mask := &maskJSON{FieldPaths: make([]string, 0, len(w.Fields))}
			for field := range w.Fields {
				mask.FieldPaths = append(mask.FieldPaths, field)
			}
			entry.UpdateMask = mask
		}
		payload.Writes = append(payload.Writes, entry)
	}

	endpoint := c.baseURL + "/v1/" + c.docRoot() + ":commit"
	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, token, payload)
	if err != nil {
		return &domain.StoreError{Op: "commit", Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return &domain.StoreError{Op: "commit", Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// checkStatus surfaces the server's message verbatim on non-2xx.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &apiErr); err == nil && apiErr.Error.Message != "" {
		return errors.New(apiErr.Error.Message)
	}
	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}

// DocID returns the last path segment of a document resource name.
func DocID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
