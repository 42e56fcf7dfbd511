/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the loan calculation server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Build the zap logger
  3. Initialize the SQLite history store
  4. Select the result cache backend
  5. Create API handler, router and retention scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (optional)
  -port    HTTP server port, overrides http.port
  -db      SQLite database path, overrides db.path
           Use ":memory:" for in-memory database

ENVIRONMENT:
  Every setting can be overridden with LOANCALC_<SECTION>_<KEY>, e.g.
  LOANCALC_CACHE_BACKEND=redis LOANCALC_CACHE_REDIS_ADDR=localhost:6379

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (http.shutdown_timeout)
  3. Stop the retention scheduler
  4. Close cache and database connections

EXAMPLES:
  # Run with file database
  ./server -db="./data/loans.db"

  # Run with a config file and in-memory history
  ./server -config=loancalc.yml -db=":memory:"

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/loan-engine/api"
	"github.com/warp/loan-engine/cache"
	"github.com/warp/loan-engine/config"
	"github.com/warp/loan-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	resultCache, closeCache, err := newCache(cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	metrics := api.NewMetrics()
	handler := api.NewHandler(store, resultCache, metrics, logger)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORS.AllowedOrigins})

	retention := api.NewRetentionScheduler(store, cfg.History.Retention, cfg.History.PruneInterval, metrics, logger)
	retention.Start()
	defer retention.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.HTTP.Port),
			zap.String("db", cfg.DB.Path),
			zap.String("cache", cfg.Cache.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newCache builds the configured result cache and its close function.
func newCache(c config.Cache, logger *zap.Logger) (cache.Cache, func(), error) {
	switch c.Backend {
	case config.CacheRedis:
		rc := cache.NewRedis(c.RedisAddr, c.TTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", c.RedisAddr, err)
		}
		logger.Info("using redis result cache", zap.String("addr", c.RedisAddr), zap.Duration("ttl", c.TTL))
		return rc, func() { rc.Close() }, nil
	case config.CacheNone:
		return cache.Nop{}, func() {}, nil
	default:
		return cache.NewMemory(c.TTL), func() {}, nil
	}
}
