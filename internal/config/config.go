// Package config holds the process configuration loaded from the environment
// and the tunable constants of the auto-check pipeline.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-level configuration. The moderation policy itself is
// not part of it: it lives in the database and is edited at runtime.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	JWTSecret   string
	LogLevel    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka is used as the trigger source when brokers are configured,
	// otherwise triggers go through the Redis list.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	WorkerConcurrency int
	ScoringRPS        float64
	ScoringTimeout    time.Duration

	// RootUserID pins the account used to delete content. When empty the
	// first root account in the database is used.
	RootUserID string

	TelegramBotToken  string
	TelegramModChatID int64
	Language          string

	ExportEndpoint  string
	ExportAccessKey string
	ExportSecretKey string
	ExportBucket    string
	ExportUseSSL    bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", "host=localhost user=user password=password dbname=modcheckdb port=5432 sslmode=disable"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "abuse-check"),
		KafkaGroup:        getEnv("KAFKA_GROUP", "modcheck-worker"),
		RootUserID:        os.Getenv("ROOT_USER_ID"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		Language:          getEnv("NOTIFY_LANGUAGE", "en"),
		ExportEndpoint:    os.Getenv("EXPORT_ENDPOINT"),
		ExportAccessKey:   os.Getenv("EXPORT_ACCESS_KEY"),
		ExportSecretKey:   os.Getenv("EXPORT_SECRET_KEY"),
		ExportBucket:      getEnv("EXPORT_BUCKET", "moderation-exports"),
		WorkerConcurrency: DefaultWorkerConcurrency,
		ScoringRPS:        DefaultScoringRPS,
		ScoringTimeout:    ScoringTimeout,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = getInt("WORKER_CONCURRENCY", DefaultWorkerConcurrency); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", cfg.WorkerConcurrency)
	}
	if v := os.Getenv("SCORING_RPS"); v != "" {
		if cfg.ScoringRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid SCORING_RPS: %w", err)
		}
	}
	if v := os.Getenv("SCORING_TIMEOUT"); v != "" {
		if cfg.ScoringTimeout, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid SCORING_TIMEOUT: %w", err)
		}
	}
	if v := os.Getenv("TELEGRAM_MOD_CHAT_ID"); v != "" {
		if cfg.TelegramModChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_MOD_CHAT_ID: %w", err)
		}
	}
	if v := os.Getenv("EXPORT_USE_SSL"); v != "" {
		if cfg.ExportUseSSL, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid EXPORT_USE_SSL: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
