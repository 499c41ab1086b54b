package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/predictpesa/settlement/internal/engine"
	"github.com/predictpesa/settlement/internal/events"
	"github.com/predictpesa/settlement/internal/oracle"
	"github.com/predictpesa/settlement/internal/storage"
	"github.com/predictpesa/settlement/pkg/cache"
	"github.com/predictpesa/settlement/pkg/config"
	"github.com/predictpesa/settlement/pkg/healthprobe"
	"github.com/predictpesa/settlement/pkg/httpserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the settlement engine with its HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := buildStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("build storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	broadcaster := events.NewBroadcaster(logger)
	defer broadcaster.Close()

	eng := engine.New(engine.Config{
		Params: engine.Params{
			MinSources:       cfg.MinSources,
			MinConfidenceBps: cfg.MinConfidenceBps,
			DisputePeriod:    cfg.DisputePeriod,
			MinDisputeStake:  cfg.MinDisputeStake,
			ProtocolFeeBps:   cfg.ProtocolFeeBps,
			SwapFeeBps:       cfg.SwapFeeBps,
		},
		Reputation: oracle.Config{
			ReputationStep: cfg.ReputationStep,
			MinReputation:  cfg.MinReputation,
			MaxReputation:  cfg.MaxReputation,
		},
		Governance: common.HexToAddress(cfg.GovernanceAddress),
		Transferer: &engine.LogTransferer{Logger: logger},
		Storage:    store,
		Events:     broadcaster,
		Logger:     logger,
	})

	snapshots, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create snapshot cache: %w", err)
	}
	defer snapshots.Close()

	health := healthprobe.New("settlement-engine")
	server := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: health,
		Engine:        eng,
		Events:        broadcaster,
		SnapshotCache: snapshots,
		SnapshotTTL:   cfg.SnapshotCacheTTL,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	health.SetReady(true)

	logger.Info("settlement-engine-running",
		zap.String("http-port", cfg.HTTPPort),
		zap.Int("min-sources", cfg.MinSources),
		zap.Int64("protocol-fee-bps", cfg.ProtocolFeeBps))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("settlement-engine-stopped")

	return nil
}

func buildStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}

	return storage.NewConsoleStorage(logger), nil
}
