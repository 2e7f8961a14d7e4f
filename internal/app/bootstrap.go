package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cryptofolio/internal/domain"
	"cryptofolio/internal/infra"
	"cryptofolio/internal/infra/coingecko"
	"cryptofolio/internal/infra/fireauth"
	"cryptofolio/internal/infra/firestore"
	"cryptofolio/internal/infra/storage"
	"cryptofolio/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config      *infra.Config
	Storage     *storage.Storage
	Icons       *infra.IconCache
	Auth        *fireauth.Client
	Market      *coingecko.Client
	Coordinator *service.Coordinator
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB,
// gateways, coordinator).
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Cryptofolio...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Initialize Icon Cache
	icons, err := infra.NewIconCache()
	if err != nil {
		return err
	}
	b.Icons = icons
	slog.Info("✅ Icon cache ready")

	// 5. Gateways
	b.Market = coingecko.NewClient(cfg)
	b.Auth = fireauth.NewClient(cfg, store)

	fsClient := firestore.NewClient(cfg)
	profiles := firestore.NewProfileStore(fsClient)
	portfolio := firestore.NewPortfolioStore(fsClient)
	comments := firestore.NewCommentStore(fsClient)

	// 6. Coordinator
	b.Coordinator = service.NewCoordinator(b.Auth, b.Market, profiles, portfolio, comments,
		service.WithPollInterval(time.Duration(cfg.API.CoinGecko.PollIntervalSec)*time.Second),
		service.WithMessageTTL(time.Duration(cfg.UI.MessageTTLMS)*time.Millisecond),
	)
	slog.Info("✅ Coordinator wired")

	return nil
}

// RestoreSession revives a persisted sign-in at startup. A credential
// the provider rejects is cleared so the next launch starts logged
// out; network failures leave it in place for a later retry.
func (b *Bootstrap) RestoreSession(ctx context.Context) {
	cred, err := b.Storage.LoadCredential()
	if err != nil {
		slog.Warn("Failed to load persisted credential", slog.Any("error", err))
		return
	}
	if cred == nil {
		return
	}

	if _, err := b.Auth.Restore(ctx, cred.RefreshToken, cred.Email); err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			slog.Info("Persisted credential rejected, clearing", slog.String("reason", authErr.Msg))
			if clearErr := b.Storage.ClearCredential(); clearErr != nil {
				slog.Warn("Failed to clear credential", slog.Any("error", clearErr))
			}
			return
		}
		slog.Warn("Session restore failed, keeping credential", slog.Any("error", err))
		return
	}
	slog.Info("✅ Session restored", slog.String("email", cred.Email))
}

// SyncIcons refreshes the local icon cache for the latest coin batch
// in the background.
func (b *Bootstrap) SyncIcons(ctx context.Context, coins []domain.Coin) {
	slog.Info("🔄 Starting icon synchronization...", slog.Int("coins", len(coins)))
	b.Icons.Sync(ctx, coins, b.Storage)
	slog.Info("✨ Icon synchronization completed")
}
