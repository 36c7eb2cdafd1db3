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

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/otprent/rental-gateway/internal/httpapi/transport/http"
	"github.com/otprent/rental-gateway/internal/platform/config"
	"github.com/otprent/rental-gateway/internal/platform/database"
	"github.com/otprent/rental-gateway/internal/platform/logger"
	"github.com/otprent/rental-gateway/internal/platform/messagebroker"
	"github.com/otprent/rental-gateway/internal/platform/redisclient"
	rentalapp "github.com/otprent/rental-gateway/internal/rental/app"
	"github.com/otprent/rental-gateway/internal/rental/domain"
	"github.com/otprent/rental-gateway/internal/rental/notify"
	"github.com/otprent/rental-gateway/internal/rental/provider"
	"github.com/otprent/rental-gateway/internal/rental/registry"
	"github.com/otprent/rental-gateway/internal/rental/scheduler"
	"github.com/otprent/rental-gateway/internal/rental/store"
	userapp "github.com/otprent/rental-gateway/internal/user/app"
	userpg "github.com/otprent/rental-gateway/internal/user/repository/postgres"
)

const (
	serviceName     = "rentald"
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer mainCancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).With("service", serviceName)
	log.Info("starting service")

	startupCtx, startupCancel := context.WithTimeout(mainCtx, startupTimeout)
	defer startupCancel()

	dbPool, err := database.NewDBPool(startupCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	redisClient, err := redisclient.New(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var notifier domain.Notifier
	if cfg.NATSUrl != "" {
		natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, log)
		if err != nil {
			log.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		notifier = notify.NewNATSNotifier(natsClient, log)
	} else {
		log.Info("NATS URL not configured, transition events go to the log only")
		notifier = notify.NewLogNotifier(log)
	}

	rentalStore := store.NewFileStore(cfg.RentalStorePath, log)
	caches := store.NewCaches(redisClient, log)
	gateway := provider.NewClient(log, cfg.ProviderBaseURL, cfg.ProviderToken, &http.Client{Timeout: cfg.ProviderTimeout})

	reg := registry.New(rentalStore, notifier, log)
	poller := scheduler.NewPoller(reg, gateway, log, nil, scheduler.Config{
		Interval:      cfg.PollInterval,
		MaxConcurrent: cfg.PollMaxConcurrent,
	})
	rentalService := rentalapp.NewRentalService(gateway, reg, poller, caches, log)
	rentalService.Resume()

	userRepo := userpg.NewPgUserRepository(dbPool, log)
	authService := userapp.NewAuthService(userRepo, userapp.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		JWTExpiryHours: cfg.JWTExpiryHours,
	}, log)

	validate := validator.New()
	router := httpapi.NewRouter(
		httpapi.NewRentalHandler(rentalService, log, validate),
		httpapi.NewAuthHandler(authService, log, validate),
		httpapi.NewProxyHandler(log, cfg.ProviderBaseURL, cfg.ProviderToken, nil),
		log,
		httpapi.RouterConfig{
			JWTSecret:          cfg.JWTSecret,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		},
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		poller.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}
