package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procure-pay/config"
	gatewayAdapter "procure-pay/internal/adapter/gateway"
	httpHandler "procure-pay/internal/adapter/http/handler"
	pgStorage "procure-pay/internal/adapter/storage/postgres"
	redisStorage "procure-pay/internal/adapter/storage/redis"
	"procure-pay/internal/core/ports"
	"procure-pay/internal/service"
	"procure-pay/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Procure Pay reconciliation engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	reconCache := redisStorage.NewReconCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize gateway client
	var gateway ports.GatewayClient
	switch cfg.Gateway.Mode {
	case "stripe":
		if cfg.Gateway.StripeAPIKey == "" {
			log.Fatal().Msg("gateway.stripe_api_key is required in stripe mode")
		}
		gateway = gatewayAdapter.NewStripeGateway(cfg.Gateway.StripeAPIKey, log)
	case "sandbox":
		gateway = gatewayAdapter.NewSandboxGateway()
		log.Warn().Msg("Running with the sandbox gateway, do not use in production")
	default:
		log.Fatal().Str("mode", cfg.Gateway.Mode).Msg("Unknown gateway mode")
	}

	// Initialize services
	auditSvc := service.NewAuditService(auditRepo, log)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, transactor, auditSvc, logger.Component(log, "ledger"))
	reconSvc := service.NewReconService(paymentRepo, ledgerSvc, gateway, auditSvc, reconCache, cfg.Gateway.VerifyTimeout, logger.Component(log, "recon"))
	paymentSvc := service.NewPaymentService(paymentRepo, walletRepo, ledgerSvc, gateway, auditSvc, logger.Component(log, "payments"))
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, ledgerSvc, auditSvc, logger.Component(log, "wallets"))
	sweepSvc := service.NewSweepService(paymentRepo, reconSvc, cfg.Sweep.Interval, cfg.Sweep.MinAge, cfg.Sweep.BatchSize, logger.Component(log, "sweep"))

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		ReconSvc:       reconSvc,
		PaymentSvc:     paymentSvc,
		WalletSvc:      walletSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Flags: httpHandler.FeatureFlags{
			PaymentsGateway: cfg.Flags.PaymentsGateway,
			WalletBasic:     cfg.Flags.WalletBasic,
		},
		Logger: log,
	})

	// Background sweep re-verifies payments whose webhook never arrived.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSvc.Run(sweepCtx)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
