package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/handler"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"
	"shopfront/internal/storage"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopfront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	// Initialize repositories
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	images := newImageStore(ctx, cfg.Storage, logger)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	// Initialize services
	categoryService := service.NewCategoryService(categoryRepo, logger)
	productService := service.NewProductService(productRepo, pool, images, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, logger)
	userService := service.NewUserService(userRepo, tokens, logger)

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Health:   handler.NewHealthHandler(pool, logger),
		Auth:     handler.NewAuthHandler(userService, logger),
		Category: handler.NewCategoryHandler(categoryService, logger),
		Product:  handler.NewProductHandler(productService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
	}, router.Options{
		APIKey:   cfg.Auth.APIKey,
		Tokens:   tokens,
		MediaDir: cfg.Storage.LocalDir,
		MediaURL: cfg.Storage.LocalURLPrefix,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newImageStore writes to S3 when enabled and falls back to the local media
// directory when S3 is disabled, unavailable or rejects an upload.
func newImageStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) storage.ImageStore {
	fileStore := storage.NewFileStore(cfg.LocalDir, cfg.LocalURLPrefix, logger)

	if !cfg.S3Enabled {
		logger.Info().Str("dir", cfg.LocalDir).Msg("using local file system for product images (S3 disabled)")
		return storage.NewFallbackStore(nil, fileStore, logger)
	}

	s3Store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix, cfg.S3PublicURL, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 image store, falling back to local file system only")
		return storage.NewFallbackStore(nil, fileStore, logger)
	}

	return storage.NewFallbackStore(s3Store, fileStore, logger)
}
