package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verdane/fleetops/internal/api"
	"github.com/verdane/fleetops/internal/config"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/db"
	"github.com/verdane/fleetops/internal/dispatch"
	"github.com/verdane/fleetops/internal/logging"
	"github.com/verdane/fleetops/internal/metrics"
	"github.com/verdane/fleetops/internal/notify"
	"github.com/verdane/fleetops/internal/remediation"
	"github.com/verdane/fleetops/internal/scheduler"
	"github.com/verdane/fleetops/internal/window"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/automation", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("automation-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPoolStats(pool)

	services := core.NewServices(pool)

	// Scheduling plane.
	windows := window.NewEvaluator(services.MaintenanceWindow, logger)
	gate := scheduler.NewGate(services.Schedule, services.Job, cfg.MaxConcurrentJobs, logger)
	dispatcher := dispatch.NewLogging(logger)
	projector := scheduler.NewProjector(services.Job, services.Node, services.Quarantine, gate, dispatcher, logger)
	sched := scheduler.New(services.Schedule, windows, gate, projector, logger)

	// Remediation plane.
	webhookTLS, err := cfg.WebhookTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure webhook TLS")
	}
	var webhooks *notify.WebhookSender
	if webhookTLS != nil {
		client := &http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{TLSClientConfig: webhookTLS},
		}
		webhooks = notify.NewWebhookSenderWithClient(client, logger)
		logger.Info().Msg("webhook TLS pinning enabled")
	} else {
		webhooks = notify.NewWebhookSender(logger)
	}

	var email notify.EmailSender
	if cfg.SMTPAddr != "" {
		email = notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	} else {
		email = notify.NewLogSender(logger)
	}

	escalator := remediation.NewEscalator(
		services.EscalationPolicy, services.Job, services.Execution,
		services.Quarantine, services.Alert, webhooks, email, logger,
	)
	engine := remediation.NewEngine(remediation.EngineConfig{
		Workflows:  services.Workflow,
		Executions: services.Execution,
		Jobs:       services.Job,
		Escalator:  escalator,
		Webhooks:   webhooks,
		Email:      email,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	// Executions left running by a previous process cannot be resumed, their
	// advancement goroutines died with it.
	interrupted, err := engine.RecoverInterrupted(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to recover interrupted executions")
	}
	if interrupted > 0 {
		logger.Warn().Int64("count", interrupted).Msg("marked interrupted executions failed")
	}

	if _, err := sched.ArmAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to arm schedules")
	}

	srv := api.NewServer(logger, pool, services, sched, engine, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting automation API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}

	// Stop timer loops first so nothing new is projected, then let running
	// executions detach for recovery at next startup.
	sched.Close()
	engine.Close()
}
