package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stockroom/internal/cache"
	"stockroom/internal/config"
	"stockroom/internal/domain"
	"stockroom/internal/httpapi"
	"stockroom/internal/logging"
	"stockroom/internal/metrics"
	"stockroom/internal/service"
	"stockroom/internal/store"
	"stockroom/internal/store/memory"
	pgstore "stockroom/internal/store/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stockroom-server",
		Short:        "Inventory and production back office API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the postgres schema",
	}

	run := func(direction string, apply func(string) error) *cobra.Command {
		return &cobra.Command{
			Use:  direction,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg := config.Load()
				if cfg.DatabaseURL == "" {
					return errors.New("DATABASE_URL is required for migrations")
				}
				if err := apply(cfg.DatabaseURL); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", direction)
				return nil
			},
		}
	}
	up := run("up", pgstore.Migrate)
	up.Short = "Apply every pending migration"
	down := run("down", pgstore.MigrateDown)
	down.Short = "Roll back the most recent migration"

	migrateCmd.AddCommand(up, down)
	return migrateCmd
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Environment, "stockroom")
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Error("invalid security configuration", zap.Error(err))
		return err
	}
	location, err := cfg.ReportLocation()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
			return err
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	var dashboardCache cache.DashboardCache = cache.NewMemoryDashboardCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
		} else {
			dashboardCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Info("cache: in-process")
	}

	m := metrics.New()
	svc := service.New(repo, service.Config{
		DashboardCache:    dashboardCache,
		DashboardCacheTTL: cfg.DashboardCacheTTL(),
		ReportLocation:    location,
		Metrics:           m,
	})
	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	if err := ensureAdmin(ctx, auth, cfg.SeedAdminPassword); err != nil {
		return err
	}
	api := httpapi.New(svc, auth, httpapi.Config{
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        logger,
		Metrics:       m,
		Location:      location,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("stockroom listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-sigCtx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
	return nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedAdminPassword != "" && len(cfg.SeedAdminPassword) < 6 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 6 characters")
	}
	return nil
}

// ensureAdmin creates the first admin account on an empty user table.
func ensureAdmin(ctx context.Context, auth *httpapi.AuthManager, password string) error {
	if password == "" || len(auth.ListUsers(ctx)) > 0 {
		return nil
	}
	_, err := auth.CreateUser(ctx, domain.UserCreateRequest{
		Username: "admin",
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	zap.L().Info("seeded admin account")
	return nil
}
