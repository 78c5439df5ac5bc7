package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Tracing  TracingConfig
	Worker   WorkerConfig
	Analysis AnalysisConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CampaignTTL   time.Duration
}

type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// WorkerConfig holds cron specs (robfig/cron, seconds field first).
type WorkerConfig struct {
	SegmentRebuildSpec   string
	ScoreRecalcSpec      string
	ForecastAccuracySpec string
	MetricsPort          string
	JobTimeout           time.Duration
}

type AnalysisConfig struct {
	FuzzyMatchThreshold float64
	ExperimentMDE       float64
	ExperimentPower     float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	campaignTTL, err := time.ParseDuration(getEnv("REDIS_CAMPAIGN_TTL", "10m"))
	if err != nil {
		return nil, errors.New("invalid campaign cache ttl")
	}

	jobTimeout, err := time.ParseDuration(getEnv("WORKER_JOB_TIMEOUT", "30m"))
	if err != nil {
		return nil, errors.New("invalid worker job timeout")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "MyGreenInsight"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "my_green_insight"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			CampaignTTL:   campaignTTL,
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio:  getEnvFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
		Worker: WorkerConfig{
			SegmentRebuildSpec:   getEnv("CRON_SEGMENT_REBUILD", "0 0 2 * * *"),
			ScoreRecalcSpec:      getEnv("CRON_SCORE_RECALC", "0 0 3 * * 1"),
			ForecastAccuracySpec: getEnv("CRON_FORECAST_ACCURACY", "0 30 4 * * *"),
			MetricsPort:          getEnv("WORKER_METRICS_PORT", "9091"),
			JobTimeout:           jobTimeout,
		},
		Analysis: AnalysisConfig{
			FuzzyMatchThreshold: getEnvFloat("FUZZY_MATCH_THRESHOLD", 0.6),
			ExperimentMDE:       getEnvFloat("EXPERIMENT_MDE", 0.1),
			ExperimentPower:     getEnvFloat("EXPERIMENT_POWER", 0.8),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Analysis.FuzzyMatchThreshold <= 0 || cfg.Analysis.FuzzyMatchThreshold >= 1 {
		return nil, errors.New("fuzzy match threshold must be between 0 and 1")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultVal
	}
	return v
}
