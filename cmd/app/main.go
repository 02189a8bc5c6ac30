// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"messmate/internal/config"
	"messmate/internal/domain/ports/adapter"
	"messmate/internal/infra/adapters/events"
	payAdapters "messmate/internal/infra/adapters/payment"
	"messmate/internal/infra/api"
	"messmate/internal/infra/api/apiv1"
	pg "messmate/internal/infra/db/postgres"
	"messmate/internal/infra/logging"
	"messmate/internal/infra/metrics"
	red "messmate/internal/infra/redis"
	"messmate/internal/infra/sched"
	"messmate/internal/infra/scheduler"
	"messmate/internal/infra/worker"
	"messmate/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop gateway allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(cfg.App.Version, cfg.App.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, cfg.Database.StatsInterval, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	messRepo := pg.NewMessRepo(pool)
	memberRepo := pg.NewMemberRepo(pool)
	pendingRepo := pg.NewPendingPaymentRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	requestRepo := pg.NewSubscriptionRequestRepo(pool)
	menuRepo := pg.NewMenuRepoCacheDecorator(pg.NewMenuRepo(pool), redisClient, cfg.Redis.TTL, logger)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	switch cfg.Payment.Provider {
	case "phonepe":
		gateway, err = payAdapters.NewPhonePeGateway(cfg.Payment.PhonePe, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("phonepe gateway")
		}
	case "noop":
		logger.Warn().Msg("payment provider is noop; checkouts never reach a real gateway")
		gateway = payAdapters.NewNoopPaymentGateway(cfg.Payment.PhonePe.RedirectURL)
	default:
		logger.Fatal().Str("provider", cfg.Payment.Provider).Msg("unknown payment provider")
	}

	// ---- Events ----
	var publisher adapter.EventPublisher = events.NewNoopPublisher(logger)
	if len(cfg.Events.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Events.Kafka, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka publisher")
		}
		publisher = kp
	}
	publisher = events.NewInstrumented(publisher)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("event publisher close")
		}
	}()

	// ---- Use cases ----
	cal := usecase.Calendar{Loc: cfg.Location()}
	userUC := usecase.NewUserUseCase(userRepo, tm, logger)
	messUC := usecase.NewMessUseCase(messRepo)
	menuUC := usecase.NewMenuUseCase(menuRepo, messRepo, cal, logger)
	membershipUC := usecase.NewMembershipUseCase(memberRepo, ledgerRepo, messRepo, tm, publisher, cal, logger)
	paymentUC := usecase.NewPaymentUseCase(
		pendingRepo, memberRepo, messRepo, membershipUC, gateway, tm, publisher,
		usecase.PaymentOptions{
			MinAdvance:  cfg.Billing.MinAdvance,
			RedirectURL: cfg.Payment.PhonePe.RedirectURL,
			CallbackURL: cfg.Payment.PhonePe.CallbackURL,
		},
		cal, logger,
	)
	approvalUC := usecase.NewApprovalUseCase(requestRepo, memberRepo, messRepo, membershipUC, tm, publisher, cal, logger)
	statsUC := usecase.NewStatsUseCase(memberRepo, ledgerRepo, requestRepo, messRepo, cal, logger)

	// ---- HTTP ----
	v1 := apiv1.NewServer(apiv1.Deps{
		Users:      userUC,
		Messes:     messUC,
		Menus:      menuUC,
		Payments:   paymentUC,
		Membership: membershipUC,
		Approvals:  approvalUC,
		Stats:      statsUC,
		Limiter:    rateLimiter,
	}, cfg.Auth, cfg.HTTP, cfg.Location(), logger)
	router := api.NewRouter(cfg.HTTP, logger, func(r chi.Router) { apiv1.RegisterAPIV1(r, v1) })
	srv := api.NewServer(cfg.HTTP, router, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	// ---- Background jobs ----
	jobs := worker.NewPool(cfg.Scheduler.ReconcileWorkers, logger)
	jobs.Start(ctx)

	reconciler := sched.NewPaymentReconciler(paymentUC, jobs,
		cfg.Scheduler.ReconcileAfter, cfg.Payment.PendingExpiry, cfg.Scheduler.ReconcileBatch, logger)
	refresher := sched.NewStatusRefresher(membershipUC, cal.Today, logger)

	s := scheduler.New(scheduler.Options{
		Location: cfg.Location(),
		Locker:   locker,
		LockTTL:  cfg.Scheduler.LockTTL,
	}, logger)
	if err := s.Add("payment_reconcile", cfg.Scheduler.ReconcileCron, reconciler); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	if err := s.Add("status_refresh", cfg.Scheduler.RefreshCron, refresher); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	s.Start()

	logger.Info().Str("addr", cfg.HTTP.Addr).Str("version", cfg.App.Version).Msg("messmate started")

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	s.Stop(sctx)
	jobs.Stop()
	logger.Info().Dur("grace", cfg.HTTP.ShutdownTimeout).Msg("bye")
}
