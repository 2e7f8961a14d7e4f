package infra

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"cryptofolio/internal/domain"
)

// IconCache downloads and caches coin icons from the image URLs the
// market data documents carry.
type IconCache struct {
	basePath string
	client   *http.Client
}

// NewIconCache creates an icon cache under the user config dir.
func NewIconCache() (*IconCache, error) {
	path, err := getIconsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve icons path: %w", err)
	}
	return newIconCacheAt(path)
}

func newIconCacheAt(path string) (*IconCache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icons directory: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconCache{
		basePath: path,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Fetch downloads the icon for a coin if not already cached and
// returns the local path. Icons are resized to 64x64 for consistent
// display.
func (c *IconCache) Fetch(ctx context.Context, coinID, imageURL string) (string, error) {
	safeID := sanitizeCoinID(coinID)
	if safeID == "" {
		return "", fmt.Errorf("invalid coin id: %s", coinID)
	}
	if imageURL == "" {
		return "", fmt.Errorf("no image url for %s", coinID)
	}

	filePath := filepath.Join(c.basePath, safeID+".png")
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // cache hit
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Resize(srcImg, 64, 64, imaging.Lanczos)
	if err := imaging.Save(resized, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// CoinMetaStore is the slice of the local storage the icon sync needs.
type CoinMetaStore interface {
	GetCoinMeta(id string) (*domain.CoinMeta, error)
	UpsertCoinMeta(meta *domain.CoinMeta) error
}

// Sync caches icons for a fetched coin batch in the background and
// records paths in the local store. Failures are logged, never fatal.
func (c *IconCache) Sync(ctx context.Context, coins []domain.Coin, store CoinMetaStore) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // limit concurrent downloads

	for _, coin := range coins {
		wg.Add(1)
		go func(coin domain.Coin) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			meta := &domain.CoinMeta{
				ID:        coin.ID,
				Symbol:    coin.Symbol,
				Name:      coin.Name,
				UpdatedAt: time.Now(),
			}
			if existing, _ := store.GetCoinMeta(coin.ID); existing != nil {
				meta.IconPath = existing.IconPath
				meta.LastSyncedAt = existing.LastSyncedAt
			}

			if meta.IconPath == "" {
				path, err := c.Fetch(ctx, coin.ID, coin.Image.Small)
				if err != nil {
					slog.Warn("failed to cache coin icon", slog.String("coin", coin.ID), slog.Any("error", err))
				} else {
					meta.IconPath = path
					meta.LastSyncedAt = time.Now()
				}
			}

			if err := store.UpsertCoinMeta(meta); err != nil {
				slog.Error("failed to upsert coin meta", slog.String("coin", coin.ID), slog.Any("error", err))
			}
		}(coin)
	}

	wg.Wait()
}

func getIconsPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "Cryptofolio", "assets", "icons"), nil
}

// sanitizeCoinID strips anything that could escape the cache dir.
func sanitizeCoinID(id string) string {
	res := make([]rune, 0, len(id))
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			res = append(res, r)
		}
	}
	return strings.Trim(string(res), "-")
}
