package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/audit"
	"github.com/xela07ax/nosigns-guard/internal/console/handler"
	"github.com/xela07ax/nosigns-guard/internal/console/server"
	"github.com/xela07ax/nosigns-guard/internal/console/service"
	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/engine"
	"github.com/xela07ax/nosigns-guard/internal/infra/auth"
	"github.com/xela07ax/nosigns-guard/internal/lang"
	"github.com/xela07ax/nosigns-guard/internal/notify"
	"github.com/xela07ax/nosigns-guard/internal/permission"
	"github.com/xela07ax/nosigns-guard/internal/policy"
	"github.com/xela07ax/nosigns-guard/internal/repository/postgres"
	"github.com/xela07ax/nosigns-guard/internal/rules"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the placement check API and the rules admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Контекст фоновых слушателей Redis: отменяется при остановке
	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Правила: загрузка + миграция + обратная запись
	storage, closeStorage, err := openRuleStorage(appCtx, cfg)
	if err != nil {
		return fmt.Errorf("rules storage: %w", err)
	}
	defer closeStorage()

	readiness := map[string]handler.PingFunc{}
	if repo, ok := storage.(*postgres.RulesRepo); ok {
		readiness["rules_db"] = repo.Ping
	}

	store := rules.NewStore(storage, logger)
	initial, err := store.Load(appCtx)
	if err != nil {
		// Правила в памяти валидны, запись повторится при следующем изменении
		metrics.ErrorTotal.WithLabelValues("save").Inc()
		logger.Error("failed to persist rules on startup", zap.Error(err))
	}
	metrics.BlockedTargets.Set(float64(len(initial.DeployableShortPrefabNames)))
	logger.Info("rules loaded",
		zap.String("version", initial.Version),
		zap.Int("blocked_targets", len(initial.DeployableShortPrefabNames)))

	// 3. Redis (опционально)
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(appCtx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// 4. PermissionOracle
	var (
		perms      engine.PermissionOracle
		refreshers []engine.Refresher
	)
	pdp := policy.NewMemoEnforcer(store, logger)
	refreshers = append(refreshers, engine.RefreshFunc(func(ctx context.Context) error {
		if err := pdp.Refresh(ctx); err != nil {
			return err
		}
		metrics.BlockedTargets.Set(float64(len(store.Snapshot().DeployableShortPrefabNames)))
		return nil
	}))

	switch cfg.Permissions.Backend {
	case "redis":
		bm := engine.NewBypassManager(rdb, cfg.Permissions.Actors, logger)
		if err := bm.Init(appCtx); err != nil {
			return fmt.Errorf("bypass manager: %w", err)
		}
		go bm.StartListener(appCtx)
		perms = bm
	case "casbin":
		oracle, err := permission.NewCasbinOracle(cfg.Permissions.CasbinModel, cfg.Permissions.CasbinPolicy, logger)
		if err != nil {
			return err
		}
		refreshers = append(refreshers, oracle)
		perms = oracle
	default:
		perms = permission.NewStatic(cfg.Permissions.Actors)
	}

	if rdb != nil {
		go engine.NewReloadListener(rdb, metrics, logger, refreshers...).StartListener(appCtx)
	}

	// 5. Notifier
	catalog := lang.NewCatalog()
	locales, err := catalog.LoadDir(cfg.Lang.Dir, cfg.Rules.Plugin)
	if err != nil {
		return err
	}
	logger.Info("messages loaded", zap.String("dir", cfg.Lang.Dir), zap.Strings("locales", locales))
	var notifier notify.Notifier = notify.NewLogNotifier(catalog, cfg.Notify.Locale, logger)
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewReliable(
			notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout, catalog, cfg.Notify.Locale),
			notify.ReliableConfig{
				RateLimit:     cfg.Notify.RateLimit,
				Burst:         cfg.Notify.Burst,
				MaxAttempts:   cfg.Notify.MaxAttempts,
				CBMaxRequests: cfg.Notify.CBMaxRequests,
				CBInterval:    cfg.Notify.CBInterval,
				CBTimeout:     cfg.Notify.CBTimeout,
				OnStateChange: metrics.OnBreakerStateChange,
			})
	}

	// 6. Журнал отказов
	var (
		auditor audit.Auditor = audit.Nop{}
		denials service.DenialStatsProvider
	)
	if cfg.Audit.Enabled {
		repo, err := postgres.NewAuditRepo(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.EnsureSchema(appCtx); err != nil {
			return err
		}
		readiness["audit_db"] = repo.Ping
		journal := audit.NewJournal(repo, audit.Options{
			BufferSize:    cfg.Audit.BufferSize,
			BatchSize:     cfg.Audit.BatchSize,
			FlushInterval: cfg.Audit.FlushInterval,
			OnFill:        func(n int) { metrics.JournalBufferFill.Set(float64(n)) },
		}, logger)
		journal.Start()
		defer journal.Stop()
		auditor, denials = journal, repo
	}

	// 7. Ядро и HTTP
	guard := engine.NewGuard(pdp, perms, notifier, auditor, metrics, logger)
	defer guard.Close()

	var validator auth.TokenValidator
	if !cfg.Auth.Disabled {
		pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			return fmt.Errorf("auth public key: %w", err)
		}
		validator = auth.NewBaseValidator(pubKey)
	} else {
		logger.Warn("token auth disabled, API is open to anyone who can reach it")
	}

	var grantStore *redis.Client
	if cfg.Permissions.Backend == "redis" {
		grantStore = rdb
	}
	ruleSvc := service.NewRuleService(store, rdb, func(c domain.RuleConfig) {
		metrics.BlockedTargets.Set(float64(len(c.DeployableShortPrefabNames)))
	}, logger)

	api := server.NewServer(logger, validator,
		handler.NewHealthHandler(readiness),
		engine.NewCheckHandler(guard, catalog, cfg.Notify.Locale, logger),
		handler.NewRulesHandler(ruleSvc, logger),
		handler.NewPermissionHandler(service.NewPermissionService(grantStore, logger)),
		handler.NewDashboardHandler(service.NewStatsService(store, denials)),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("guard started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 8. Graceful Shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down guard")
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	cancel()
	// Дальше defer-ы: guard.Close дождется сообщений, journal.Stop сбросит буфер
	return nil
}
