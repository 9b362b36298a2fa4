package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"eventflow/config"
	"eventflow/internal/domain"
	"eventflow/internal/lock"
	"eventflow/internal/repository/memory"
	"eventflow/internal/repository/postgres"
	"eventflow/internal/services"
)

// redisLockLease bounds how long a crashed holder can keep a redis lock.
const redisLockLease = 30 * time.Second

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "eventflow",
	Short:         "Event registration and approval workflow service",
	Long:          `Eventflow manages event approval, capacity-bounded attendee registration and post-event report review.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = config.NewLogger(cfg)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, ledgerCmd)
}

// openDB connects to Postgres. Commands that need persistent state call it directly.
func openDB(ctx context.Context) (*sql.DB, error) {
	if cfg.DBUrl == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return postgres.Open(ctx, cfg.DBUrl)
}

// openStore returns the Postgres store when DATABASE_URL is set and an in-memory store otherwise.
// The returned close func is always non-nil.
func openStore(ctx context.Context) (domain.Store, func(), error) {
	if cfg.DBUrl == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return memory.NewStore(), func() {}, nil
	}
	db, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewStore(db, cfg.LockWait), func() { _ = db.Close() }, nil
}

func newLocker() (domain.Locker, func(), error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return lock.NewLocal(cfg.LockWait), func() {}, nil
	}
	client, err := lock.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using redis locks", "addr", cfg.RedisAddr)
	return lock.NewRedis(client, cfg.LockWait, redisLockLease), func() { _ = client.Close() }, nil
}

func coordinatorOptions() services.CoordinatorOptions {
	retries := cfg.BusyRetries
	if retries == 0 {
		retries = -1
	}
	return services.CoordinatorOptions{
		BusyRetries:    retries,
		ContextTimeout: cfg.ContextTimeout,
		Logger:         logger,
	}
}
