// Package coingecko implements the market data gateway: a fan-out
// fetch of a fixed coin set from the per-coin document endpoint.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptofolio/internal/domain"
	"cryptofolio/internal/infra"
)

// coinQuery trims the per-coin document down to market data only.
const coinQuery = "localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false"

// Client is the market data REST client (boundary layer).
type Client struct {
	baseURL    string
	apiKey     string
	coinIDs    []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a market data client for the configured coin set.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL: cfg.API.CoinGecko.BaseURL,
		apiKey:  cfg.API.CoinGecko.APIKey,
		coinIDs: cfg.API.CoinGecko.CoinIDs,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "coingecko"),
	}
}

// FetchCoins fetches every configured coin concurrently and waits for
// the whole batch. Any individual non-success response or transport
// error fails the batch as a whole: stale-mixed-with-fresh is worse
// than an explicit failure. Result order follows the configured ids.
func (c *Client) FetchCoins(ctx context.Context) ([]domain.Coin, error) {
	results := make([]domain.Coin, len(c.coinIDs))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range c.coinIDs {
		i, id := i, id
		g.Go(func() error {
			coin, err := c.fetchCoin(ctx, id)
			if err != nil {
				return &domain.FetchError{CoinID: id, Err: err}
			}
			results[i] = *coin
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("coin batch fetched", "coins", len(results))
	return results, nil
}

func (c *Client) fetchCoin(ctx context.Context, id string) (*domain.Coin, error) {
	reqURL := fmt.Sprintf("%s/coins/%s?%s", c.baseURL, url.PathEscape(id), coinQuery)
	if c.apiKey != "" {
		reqURL += "&x_cg_demo_api_key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var coin domain.Coin
	if err := json.NewDecoder(resp.Body).Decode(&coin); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &coin, nil
}
