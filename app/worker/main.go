package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myGreenInsight/business/forecast"
	"myGreenInsight/business/scoring"
	"myGreenInsight/business/segment"
	"myGreenInsight/domain"
	psqlRepo "myGreenInsight/internal/repository/postgres"
	"myGreenInsight/pkg/config"
	"myGreenInsight/pkg/database"
	"myGreenInsight/pkg/logger"
	analyticsMetrics "myGreenInsight/pkg/metrics"
	"myGreenInsight/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting MyGreenInsight worker", "version", cfg.App.Version)

	shutdownTracing, err := tracing.Init(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to init tracing", "error", err)
	}
	analyticsMetrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Jobs may run before the API has ever started against this database.
	if err := psqlRepo.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	conversionRepo := psqlRepo.NewConversionRepository(db)
	journeyRepo := psqlRepo.NewJourneyRepository(db)
	scoreRepo := psqlRepo.NewScoreRepository(db)
	npsRepo := psqlRepo.NewNPSRepository(db)
	segmentRepo := psqlRepo.NewSegmentRepository(db)
	forecastRepo := psqlRepo.NewForecastRepository(db)
	directoryRepo := psqlRepo.NewDirectoryRepository(db)

	scoringService := scoring.NewScoringService(scoreRepo, npsRepo, journeyRepo, conversionRepo, directoryRepo)
	segmentService := segment.NewSegmentService(segmentRepo, segmentRepo, directoryRepo, scoreRepo, conversionRepo)
	forecastService := forecast.NewForecastService(forecastRepo, conversionRepo)

	jobs := []*job{
		{
			name: "segment_rebuild",
			spec: cfg.Worker.SegmentRebuildSpec,
			run:  segmentService.BuildAll,
		},
		{
			name: "score_recalculation",
			spec: cfg.Worker.ScoreRecalcSpec,
			run: func(ctx context.Context) (domain.BatchSummary, error) {
				return scoringService.RecalculateAll(ctx, nil)
			},
		},
		{
			name: "forecast_accuracy",
			spec: cfg.Worker.ForecastAccuracySpec,
			run: func(ctx context.Context) (domain.BatchSummary, error) {
				summary, _, err := forecastService.AnalyzeAll(ctx)
				return summary, err
			},
		},
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	c := cron.New()
	for _, j := range jobs {
		j.timeout = cfg.Worker.JobTimeout
		if err := c.AddFunc(j.spec, func() { j.execute(ctx) }); err != nil {
			logger.Fatal("Invalid cron spec", "job", j.name, "spec", j.spec, "error", err)
		}
		logger.Info("Job scheduled", "job", j.name, "spec", j.spec)
	}
	c.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Worker.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	c.Stop()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracer shutdown error", "error", err)
	}

	logger.Info("Worker stopped")
}
