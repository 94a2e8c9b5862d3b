package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modcheck/backend/internal/api/handler"
	"modcheck/backend/internal/autocheck"
	"modcheck/backend/internal/config"
	"modcheck/backend/internal/export"
	"modcheck/backend/internal/feed"
	"modcheck/backend/internal/localization"
	"modcheck/backend/internal/policy"
	"modcheck/backend/internal/queue"
	"modcheck/backend/internal/scoring"
	"modcheck/backend/internal/storage"
	"modcheck/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, nil, err
	}

	if err := storage.Migrate(db); err != nil {
		return nil, nil, err
	}

	slog.Info("database and redis connections established, migrations complete")
	return db, rdb, nil
}

// setupQueue picks Kafka when brokers are configured and the Redis list otherwise.
func setupQueue(cfg *config.Config, s *storage.Service) (queue.Source, queue.Publisher, func(), error) {
	if len(cfg.KafkaBrokers) > 0 {
		src, err := queue.NewKafkaSource(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.KafkaTopic, config.DequeueTimeout)
		if err != nil {
			return nil, nil, nil, err
		}
		pub := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		slog.Info("using kafka trigger queue", "topic", cfg.KafkaTopic)
		return src, pub, func() {
			src.Close()
			pub.Close()
		}, nil
	}

	rq := queue.NewRedisQueue(s, config.DequeueTimeout)
	slog.Info("using redis trigger queue", "key", config.TriggerQueueKey)
	return rq, rq, func() { rq.Close() }, nil
}

func setupNotifier(cfg *config.Config) autocheck.Notifier {
	if cfg.TelegramBotToken == "" || cfg.TelegramModChatID == 0 {
		slog.Info("telegram notifier disabled")
		return nil
	}
	l, err := localization.NewDefaultLocalizer()
	if err != nil {
		slog.Error("failed to load locales, telegram notifier disabled", "error", err)
		return nil
	}
	n, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramModChatID, cfg.Language, l)
	if err != nil {
		slog.Error("failed to start telegram notifier", "error", err)
		return nil
	}
	return n
}

func setupExporter(ctx context.Context, cfg *config.Config, s *storage.Service) handler.Exporter {
	if cfg.ExportEndpoint == "" {
		slog.Info("ledger export disabled")
		return nil
	}
	store, err := export.NewObjectStore(ctx, cfg.ExportEndpoint, cfg.ExportAccessKey, cfg.ExportSecretKey, cfg.ExportBucket, cfg.ExportUseSSL)
	if err != nil {
		slog.Error("failed to connect object storage, ledger export disabled", "error", err)
		return nil
	}
	return export.NewExporter(s, store)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	config.ConfigureLogging(cfg.LogLevel)
	slog.Info("starting modcheck backend")

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	db, rdb, err := setupDependencies(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise dependencies", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	s := storage.NewStorageService(db, rdb)
	s.RootUserID = cfg.RootUserID

	src, pub, closeQueue, err := setupQueue(cfg, s)
	if err != nil {
		slog.Error("failed to set up trigger queue", "error", err)
		os.Exit(1)
	}
	defer closeQueue()

	// 2. Auto-check pipeline
	engine := autocheck.NewService(s, s, scoring.NewClient(cfg.ScoringTimeout), policy.Table{}, setupNotifier(cfg))
	worker := queue.NewWorker(src, engine, cfg.WorkerConcurrency, cfg.ScoringRPS, config.ScoringBurst)

	hub := feed.NewHub(s)
	go hub.Run(ctx)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("trigger worker stopped", "error", err)
		}
	}()

	// 3. HTTP API
	r := gin.Default()
	h := handler.NewHandler(s, pub, setupExporter(ctx, cfg, s), hub, cfg.JWTSecret)
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		slog.Warn("in-flight checks did not finish before shutdown deadline")
	}
}
