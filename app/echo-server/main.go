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

	"myGreenInsight/app/echo-server/metrics"
	"myGreenInsight/app/echo-server/router"
	"myGreenInsight/business/attribution"
	"myGreenInsight/business/conversion"
	"myGreenInsight/business/experiment"
	"myGreenInsight/business/forecast"
	"myGreenInsight/business/journey"
	"myGreenInsight/business/scoring"
	"myGreenInsight/business/segment"
	"myGreenInsight/internal/middleware"
	psqlRepo "myGreenInsight/internal/repository/postgres"
	redisRepo "myGreenInsight/internal/repository/redis"
	"myGreenInsight/internal/rest"
	"myGreenInsight/pkg/config"
	"myGreenInsight/pkg/database"
	redisDB "myGreenInsight/pkg/database/redis"
	"myGreenInsight/pkg/logger"
	analyticsMetrics "myGreenInsight/pkg/metrics"
	"myGreenInsight/pkg/tracing"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting MyGreenInsight", "version", cfg.App.Version)

	shutdownTracing, err := tracing.Init(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to init tracing", "error", err)
	}

	metrics.Init()
	analyticsMetrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected successfully")

	if err := psqlRepo.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	// Init repo
	conversionRepo := psqlRepo.NewConversionRepository(db)
	goalRepo := psqlRepo.NewGoalRepository(db)
	attributionRepo := psqlRepo.NewAttributionRepository(db)
	journeyRepo := psqlRepo.NewJourneyRepository(db)
	scoreRepo := psqlRepo.NewScoreRepository(db)
	npsRepo := psqlRepo.NewNPSRepository(db)
	segmentRepo := psqlRepo.NewSegmentRepository(db)
	experimentRepo := psqlRepo.NewExperimentRepository(db)
	forecastRepo := psqlRepo.NewForecastRepository(db)
	directoryRepo := psqlRepo.NewDirectoryRepository(db)

	var campaigns attribution.CampaignDirectory = directoryRepo
	redisClient, err := redisDB.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Campaign cache disabled", "error", err)
	} else {
		defer func() {
			if err := redisDB.CloseRedisClient(redisClient); err != nil {
				logger.Error("Failed to close redis", "error", err)
			}
		}()
		campaigns = redisRepo.NewCampaignCache(redisClient, directoryRepo, cfg.Redis.CampaignTTL)
	}

	// Init service
	resolver := attribution.NewResolver(cfg.Analysis.FuzzyMatchThreshold)
	attributionService := attribution.NewAttributionService(attributionRepo, directoryRepo, campaigns, resolver)
	journeyService := journey.NewJourneyService(journeyRepo, conversionRepo, journeyRepo)
	tracker := conversion.NewTracker(conversionRepo, goalRepo, attributionService, journeyService)
	scoringService := scoring.NewScoringService(scoreRepo, npsRepo, journeyRepo, conversionRepo, directoryRepo)
	segmentService := segment.NewSegmentService(segmentRepo, segmentRepo, directoryRepo, scoreRepo, conversionRepo)
	experimentService := experiment.NewExperimentService(experimentRepo, cfg.Analysis.ExperimentMDE, cfg.Analysis.ExperimentPower)
	forecastService := forecast.NewForecastService(forecastRepo, conversionRepo)

	// Init handler
	conversionHandler := rest.NewConversionHandler(tracker)
	attributionHandler := rest.NewAttributionHandler(attributionService)
	scoreHandler := rest.NewScoreHandler(scoringService)
	segmentHandler := rest.NewSegmentHandler(segmentService)
	experimentHandler := rest.NewExperimentHandler(experimentService)
	forecastHandler := rest.NewForecastHandler(forecastService)
	journeyHandler := rest.NewJourneyHandler(journeyService)
	publishHandler := rest.NewPublishHandler()

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(metrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authRequired := middleware.AuthMiddleware()
	adminOnly := middleware.AdminOnly()

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupConversionRoutes(api, conversionHandler, authRequired, adminOnly)
	router.SetupAttributionRoutes(api, attributionHandler, authRequired, adminOnly)
	router.SetupScoreRoutes(api, scoreHandler, authRequired, adminOnly)
	router.SetupSegmentRoutes(api, segmentHandler, authRequired, adminOnly)
	router.SetupExperimentRoutes(api, experimentHandler, authRequired, adminOnly)
	router.SetupForecastRoutes(api, forecastHandler, authRequired, adminOnly)
	router.SetupJourneyRoutes(api, journeyHandler, authRequired)
	router.SetupPublishRoutes(api, publishHandler, authRequired)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Tracer shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
