// cmd/sales-predictor/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sales-predictor/internal/cache"
	"sales-predictor/internal/common/camunda"
	"sales-predictor/internal/common/config"
	"sales-predictor/internal/common/database"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/common/observability"
	"sales-predictor/internal/history"
	"sales-predictor/internal/predictor"
	"sales-predictor/internal/services/prediction"
	"sales-predictor/internal/web"
	ps "sales-predictor/internal/workers/sales/predict-sales"
	"sales-predictor/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting sales predictor...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Model ---
	fetcher, err := predictor.NewFetcher(cfg.Model)
	if err != nil {
		zapLog.Fatal("model fetcher init failed", zap.Error(err))
	}
	loadCtx, cancelLoad := ctx, context.CancelFunc(func() {})
	if cfg.Model.DownloadTimeout > 0 {
		loadCtx, cancelLoad = context.WithTimeout(ctx, config.GetDuration(cfg.Model.DownloadTimeout))
	}
	model, err := predictor.NewLoader(cfg.Model.Path, fetcher, log).Load(loadCtx)
	cancelLoad()
	if err != nil {
		zapLog.Fatal("model load failed", zap.Error(err))
	}

	var checks []web.Check

	// --- Redis (cache backend) ---
	var redisClient *database.RedisClient
	if cfg.Cache.Backend == config.CacheBackendRedis {
		redisClient = database.NewRedis(cfg.Database.Redis)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			zapLog.Warn("redis not reachable, cache lookups will miss", zap.Error(err))
		}
		checks = append(checks, web.Check{Name: "redis", Check: redisClient.Ping})
	}

	predictionCache, err := newCache(cfg, redisClient)
	if err != nil {
		zapLog.Fatal("cache init failed", zap.Error(err))
	}

	// --- History ---
	var store *history.Store
	sqlClient, err := database.OpenHistory(cfg.Database)
	if err != nil {
		zapLog.Fatal("history database open failed", zap.Error(err))
	}
	if sqlClient != nil {
		defer sqlClient.Close()
		store = history.NewStore(sqlClient.DB, sqlClient.Dialect)
		if err := store.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("history schema init failed", zap.Error(err))
		}
		checks = append(checks, web.Check{Name: "history", Check: sqlClient.Ping})
		zapLog.Info("Prediction history enabled", zap.String("driver", sqlClient.Dialect))
	}

	deps := prediction.Dependencies{
		Cache:         predictionCache,
		Observability: obs,
		Logger:        log,
	}
	if store != nil {
		deps.History = store
	}

	svc, err := prediction.NewService(model, prediction.Options{
		RejectPlaceholders: cfg.Prediction.RejectPlaceholders,
		Timeout:            config.GetDuration(cfg.Prediction.Timeout),
	}, deps)
	if err != nil {
		zapLog.Fatal("prediction service init failed", zap.Error(err))
	}

	// --- Zeebe worker ---
	var jobWorker *camunda.CamundaWorker
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, ps.TaskType) {
		zeebe, err := camunda.NewClient(ctx, cfg.Camunda)
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zeebe.Close()

		reg, err := registry.Default()
		if err != nil {
			zapLog.Fatal("activity registry load failed", zap.Error(err))
		}
		activity, _ := reg.Find(ps.TaskType)
		wcfg := ps.LoadConfig(cfg, activity)

		handler, err := ps.NewHandler(wcfg, activity, svc, obs, log)
		if err != nil {
			zapLog.Fatal("failed to create predict-sales handler", zap.Error(err))
		}
		jobWorker = camunda.NewWorker(zeebe.GetClient(), ps.TaskType, wcfg.MaxJobsActive, handler, log)
		checks = append(checks, web.Check{Name: "zeebe", Check: zeebe.HealthCheck})
	}

	// --- HTTP ---
	webDeps := web.Deps{
		Service: svc,
		Model:   model,
		Checks:  checks,
		Logger:  log,
		Version: cfg.App.Version,
	}
	if store != nil {
		webDeps.History = store
	}
	server, err := web.NewServer(cfg.Server, webDeps)
	if err != nil {
		zapLog.Fatal("http server init failed", zap.Error(err))
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, stopping...")
	case err := <-serveErr:
		if err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}

	zapLog.Info("Sales predictor stopped gracefully")
}

func newCache(cfg *config.Config, redisClient *database.RedisClient) (cache.Cache, error) {
	if redisClient == nil {
		return cache.New(cfg.Cache, nil)
	}
	return cache.New(cfg.Cache, redisClient.Client)
}
