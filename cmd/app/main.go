package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"captive-wifi-billing/internal/config"
	pg "captive-wifi-billing/internal/infra/db/postgres"
	"captive-wifi-billing/internal/infra/logging"
	"captive-wifi-billing/internal/infra/metrics"
	"captive-wifi-billing/internal/infra/mpesa"
	red "captive-wifi-billing/internal/infra/redis"
	"captive-wifi-billing/internal/infra/routeros"
	"captive-wifi-billing/internal/infra/sched"
	"captive-wifi-billing/internal/infra/security"
	"captive-wifi-billing/internal/infra/web"
	"captive-wifi-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed TLS)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	pendingStore := red.NewPendingStore(redisClient)

	// ---- Encryption ----
	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	packageRepo := pg.NewPackageRepo(pool)
	sessionRepo := pg.NewSessionRepo(pool)
	routerRepo := pg.NewRouterRepo(pool)
	auditRepo := pg.NewAuditRepo(pool)

	// ---- Use cases ----
	auditSink := usecase.NewAuditSink(auditRepo, logger)
	dialer := routeros.NewDialer(cfg.Router.InsecureSkipVerify)
	routerUC := usecase.NewRouterUseCase(routerRepo, dialer, encSvc, auditSink, usecase.RouterDefaults{
		Port:        cfg.Router.DefaultPort,
		DialTimeout: cfg.Router.DialTimeout,
	}, logger)
	syncUC := usecase.NewSyncUseCase(packageRepo, routerRepo, routerUC, logger)
	activationUC := usecase.NewActivationUseCase(pendingStore, packageRepo, sessionRepo, routerUC, logger)
	gateway := mpesa.NewDarajaGateway(&cfg.Mpesa)
	txManager := pg.NewTxManager(pool)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, packageRepo, pendingStore, gateway, activationUC, auditSink, txManager, cfg.Redis.PendingTTL, logger)
	packageUC := usecase.NewPackageUseCase(packageRepo)

	// ---- HTTP server ----
	srv := web.NewServer(paymentUC, packageUC, activationUC, routerUC, syncUC, routerRepo, cfg.Security.JWTSecret, cfg.Runtime.Dev, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Session expiry sweep ----
	worker := sched.NewExpiryWorker(cfg.Sched.ExpiryCron, sessionRepo, routerUC, logger)
	if err := worker.Start(); err != nil {
		logger.Fatal().Err(err).Msg("expiry worker")
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	worker.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
