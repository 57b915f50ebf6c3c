package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"birdtag/api/internal/cache"
	"birdtag/api/internal/classify"
	"birdtag/api/internal/config"
	"birdtag/api/internal/database"
	"birdtag/api/internal/log"
	"birdtag/api/internal/queue"
	"birdtag/api/internal/repository"
	"birdtag/api/internal/storage"
	"birdtag/api/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	classifier := classify.NewHTTPClassifier(cfg.Detect.ClassifierURL, cfg.Detect.ClassifierTimeout)
	producer := queue.NewProducer(redisClient, cfg.Detect.Stream)
	mediaRepo := repository.NewMediaRepository(dbPool)

	processor := tasks.NewProcessor(
		mediaRepo,
		objectStore,
		classifier,
		producer,
		cfg.Detect.ThumbnailWidth,
		cfg.Detect.PendingTTL,
		logger,
	)

	consumer := queue.NewConsumer(
		redisClient,
		cfg.Detect.Stream,
		cfg.Detect.Group,
		cfg.Detect.Consumer,
		cfg.Detect.ClaimInterval,
		logger,
		processor,
	)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.EnsureGroup(runCtx); err != nil {
		logger.Fatal().Err(err).Msg("consumer group setup failed")
	}

	go func() {
		if err := consumer.Start(runCtx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-runCtx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
