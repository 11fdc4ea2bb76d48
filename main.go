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

	"debt-splitter/config"
	"debt-splitter/database"
	"debt-splitter/handlers"
	"debt-splitter/logging"
	"debt-splitter/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run returns instead of exiting so the deferred closes always run.
func run() error {
	// Load configuration
	cfg := config.Load()

	log, err := logging.Init(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	if err := database.Connect(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	// Connect to Redis (optional, won't crash if unavailable)
	database.ConnectRedis()

	// Settlement events (optional)
	var events services.Publisher
	if cfg.AMQPURL != "" {
		publisher, err := services.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Warn("⚠️  AMQP not available, settlement events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			events = publisher
		}
	}

	notifier := services.NewNotificationService(ctx, cfg, log)
	cache := services.NewBalanceCache(database.Redis, cfg.CacheTTL, log)
	services.InitSettlementService(services.NewSettlementService(
		database.NewStore(database.DB), cache, notifier, events, log,
	))

	r := handlers.SetupRouter(log)

	addr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("🚀 server starting", zap.String("app", cfg.AppName), zap.String("addr", addr))
	log.Info("📡 health check", zap.String("url", cfg.AppURL+"/health"))
	if err := serve(ctx, srv, 10*time.Second); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

// serve runs srv until ctx is done or the listener fails, then shuts it down
// within grace.
func serve(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
