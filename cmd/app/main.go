package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptofolio/internal/app"
	"cryptofolio/internal/format"
)

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Coordinator + session plumbing
	coord := bootstrap.Coordinator
	coord.Start(ctx)
	defer coord.Close()

	bootstrap.RestoreSession(ctx)
	bootstrap.Auth.StartRefreshLoop(ctx)

	// 4. Live prices: the root screen counts as one active consumer
	// for the process lifetime.
	coord.StartPolling(ctx)
	defer coord.StopPolling()

	// 5. Background icon sync once the first polled batch lands. Reads
	// the coordinator's list so the poll stays the only fetch path.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if coins := coord.Coins(); len(coins) > 0 {
					bootstrap.SyncIcons(ctx, coins)
					return
				}
			}
		}
	}()

	// 6. Periodic state line so a headless run stays observable
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				total, _ := coord.TotalValueUSD().Float64()
				slog.Info("📊 State",
					slog.Int("coins", len(coord.Coins())),
					slog.Time("last_updated", coord.LastUpdated()),
					slog.String("total_value", format.Currency(total)),
					slog.Bool("signed_in", coord.Session() != nil),
				)
			}
		}
	}()

	slog.InfoContext(ctx, "✨ Cryptofolio fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
