package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sdg-impact-api/api/swagger"
	"github.com/noah-isme/sdg-impact-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sdg-impact-api/internal/middleware"
	"github.com/noah-isme/sdg-impact-api/internal/repository"
	"github.com/noah-isme/sdg-impact-api/internal/service"
	"github.com/noah-isme/sdg-impact-api/pkg/cache"
	"github.com/noah-isme/sdg-impact-api/pkg/config"
	"github.com/noah-isme/sdg-impact-api/pkg/jobs"
	"github.com/noah-isme/sdg-impact-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sdg-impact-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sdg-impact-api/pkg/middleware/requestid"
	"github.com/noah-isme/sdg-impact-api/pkg/storage"
)

const (
	cachePrefix     = "sdg"
	shutdownTimeout = 10 * time.Second
)

// @title SDG Impact API
// @version 1.0.0
// @description Participation analytics for the student SDG programme
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	readiness := map[string]handler.ReadinessCheck{}

	source, err := openSnapshotSource(ctx, cfg, logr, readiness)
	if err != nil {
		logr.Fatal("failed to open snapshot source", zap.Error(err))
	}
	defer source.close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}

	var (
		cacheRepo service.CacheRepository
		kv        repository.KVStore = repository.NewMemoryKVStore()
	)
	if redisClient != nil {
		redisCache := repository.NewCacheRepository(redisClient, cachePrefix, logr)
		cacheRepo = redisCache
		kv = repository.NewRedisKVStore(redisClient, cachePrefix)
		readiness["redis"] = redisCache.Ping
		defer func() {
			if err := redisCache.Close(); err != nil {
				logr.Warn("failed to close redis", zap.Error(err))
			}
		}()
	} else {
		logr.Info("redis disabled, preferences and counters are kept in memory")
	}

	validate := validator.New()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)
	preferenceSvc := service.NewPreferenceService(kv, validate, logr)
	rewardSvc := service.NewRewardService(kv, source.store, cacheSvc, logr)

	snapshot, err := source.store.Snapshot(ctx)
	if err != nil {
		logr.Fatal("failed to read initial snapshot", zap.Error(err))
	}
	if err := rewardSvc.SeedCounts(ctx, snapshot.Rewards); err != nil {
		logr.Fatal("failed to seed redemption counters", zap.Error(err))
	}

	analyticsSvc := service.NewAnalyticsService(service.AnalyticsDeps{
		Source:      source.store,
		SourceName:  source.name,
		Aggregator:  service.NewAggregator(logr, metricsSvc),
		Favorites:   preferenceSvc,
		Redemptions: rewardSvc,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
	})
	pointsSvc := service.NewPointsService(source.store, preferenceSvc, cfg.Leaderboard.DefaultLimit, logr)

	rules, err := service.LoadInsightRules(cfg.Insights.RulesFile)
	if err != nil {
		logr.Fatal("failed to load insight rules", zap.String("path", cfg.Insights.RulesFile), zap.Error(err))
	}

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.String("dir", cfg.Reports.StorageDir), zap.Error(err))
	}
	exportSvc := service.NewExportService(service.ExportDeps{
		Data:    analyticsSvc,
		Storage: files,
		Signer:  storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		Builder: service.NewReportBuilder(rules),
		Metrics: metricsSvc,
		Logger:  logr,
	}, service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL})

	var reportSvc *service.ReportService
	worker := service.NewReportWorker(source.jobs, exportSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
		OnGiveUp: func(job jobs.Job, cause error) {
			reportSvc.MarkGivenUp(job, cause)
		},
	})
	reportSvc = service.NewReportService(source.jobs, queue, exportSvc, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	registerQueueMetrics(metricsSvc, queue)

	if cfg.Reports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Analytics.Enabled {
		analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
		analytics := api.Group("/analytics")
		analytics.GET("/sdg", analyticsHandler.SDG)
		analytics.GET("/faculties", analyticsHandler.Faculties)
		analytics.GET("/events", analyticsHandler.Events)
		analytics.GET("/rewards", analyticsHandler.Rewards)
		analytics.GET("/rewards/categories", analyticsHandler.RewardCategories)
		analytics.GET("/overview", analyticsHandler.Overview)
		analytics.GET("/system", analyticsHandler.System)

		api.GET("/exports/:type", handler.NewExportHandler(exportSvc, logr).Export)
	}

	if cfg.Reports.Enabled {
		reportHandler := handler.NewReportHandler(reportSvc)
		api.POST("/reports/generate", reportHandler.GenerateReport)
		api.GET("/reports/status/:id", reportHandler.ReportStatus)
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	api.GET("/leaderboard", handler.NewLeaderboardHandler(pointsSvc, cfg.Leaderboard.AnonymizeDefault).Leaderboard)
	api.POST("/rewards/:id/redemptions", handler.NewRewardHandler(rewardSvc).Redeem)

	prefHandler := handler.NewPreferenceHandler(preferenceSvc, analyticsSvc)
	users := api.Group("/users/:userId")
	users.GET("/favorites/:kind", prefHandler.ListFavorites)
	users.PUT("/favorites/:kind/:id", prefHandler.AddFavorite)
	users.DELETE("/favorites/:kind/:id", prefHandler.RemoveFavorite)
	users.GET("/follows", prefHandler.ListFollows)
	users.PUT("/follows/:targetId", prefHandler.Follow)
	users.DELETE("/follows/:targetId", prefHandler.Unfollow)
	users.GET("/consent", prefHandler.GetConsent)
	users.PUT("/consent", prefHandler.SetConsent)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "source", source.name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func registerQueueMetrics(metricsSvc *service.MetricsService, queue *jobs.Queue) {
	registry := metricsSvc.Registry()
	if registry == nil {
		return
	}
	outcomes := map[string]func(jobs.Stats) uint64{
		"processed": func(s jobs.Stats) uint64 { return s.Processed },
		"retried":   func(s jobs.Stats) uint64 { return s.Retried },
		"failed":    func(s jobs.Stats) uint64 { return s.Failed },
	}
	for outcome, pick := range outcomes {
		pick := pick
		registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "report_jobs_total",
			Help:        "Report jobs handled by the background queue",
			ConstLabels: prometheus.Labels{"outcome": outcome},
		}, func() float64 {
			return float64(pick(queue.Stats()))
		}))
	}
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "report_queue_pending",
		Help: "Report jobs waiting in the queue buffer",
	}, func() float64 {
		return float64(queue.Stats().Pending)
	}))
}
