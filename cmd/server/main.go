// ByteVault Server
//
// Features:
// - Category-scoped file storage beneath per-account roots
// - Path guard against traversal and symlink escape
// - Ghost folders & file obfuscation
// - Family quotas with periodic usage accounting
// - SSE change notifications
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bytevault/bytevault/internal/account"
	accountpg "github.com/bytevault/bytevault/internal/account/postgres"
	"github.com/bytevault/bytevault/internal/api"
	"github.com/bytevault/bytevault/internal/auth"
	"github.com/bytevault/bytevault/internal/config"
	"github.com/bytevault/bytevault/internal/events"
	"github.com/bytevault/bytevault/internal/gateway"
	"github.com/bytevault/bytevault/internal/logging"
	"github.com/bytevault/bytevault/internal/metrics"
	"github.com/bytevault/bytevault/internal/policy"
	"github.com/bytevault/bytevault/internal/vfs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("ByteVault Server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info("connecting to PostgreSQL...")
	store, err := accountpg.New(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	authHandler := auth.New(store.DB(), cfg.JWTSecret)

	gw, err := gateway.New(
		vfs.OSAccessor{},
		store,
		store,
		account.NewFuzzObfuscator(),
		cfg.StagingDir,
		cfg.MaxUploadSize,
	)
	if err != nil {
		logging.Fatal("gateway init failed", zap.Error(err))
	}

	gate := policy.NewGate(store)
	broadcaster := events.NewBroadcaster()
	rootCache := vfs.NewRootCache(cfg.RootCacheTTL)

	srv := api.NewServer(gw, gate, authHandler, store, store, rootCache, broadcaster)

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Close()
	}()

	// Periodic usage recomputation for quota-tracked accounts
	go func() {
		ticker := time.NewTicker(cfg.UsageRecomputeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refs, err := store.ListQuotaAccounts(ctx)
				if err != nil {
					logging.Error("quota account listing failed", zap.Error(err))
					continue
				}
				for _, ref := range refs {
					if err := gw.RecomputeUsage(ctx, ref.AccountID, ref.StoragePath); err != nil {
						logging.Warn("usage recompute failed",
							zap.Int("account_id", ref.AccountID), zap.Error(err))
					}
				}
			}
		}
	}()

	logging.Info("server listening", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
	logging.Info("server stopped")
}
