package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/api"
	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/cache"
	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/config"
	"github.com/notifyrelay/pipeline/internal/consumer"
	"github.com/notifyrelay/pipeline/internal/db"
	"github.com/notifyrelay/pipeline/internal/delayed"
	"github.com/notifyrelay/pipeline/internal/ingest"
	"github.com/notifyrelay/pipeline/internal/metrics"
	"github.com/notifyrelay/pipeline/internal/publisher"
	"github.com/notifyrelay/pipeline/internal/recovery"
	"github.com/notifyrelay/pipeline/internal/repository"
	"github.com/notifyrelay/pipeline/internal/shutdown"
	"github.com/notifyrelay/pipeline/internal/status"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store := repository.NewStore(pool)
	rdb := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	idem := cache.NewIdempotency(rdb,
		time.Duration(cfg.ProcessingTTLSeconds)*time.Second,
		time.Duration(cfg.IdempotencyTTLSeconds)*time.Second,
	)
	limiter := cache.NewRateLimiter(rdb, cfg.RateLimitTokens, cfg.RateLimitRefillPerSec)
	delayedSet := cache.NewDelayedSet(rdb)

	registry := channel.NewRegistry()
	for _, tag := range cfg.Channels {
		topic := channel.DefaultTopic(tag)
		provider := channel.NewWebhookProvider(cfg.ChannelWebhookURLs[tag], cfg.WebhookTimeout)
		registry.Register(tag, topic, provider)
	}

	ingestSvc := ingest.NewService(store, registry, logger)

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	producer := bus.NewProducer(cfg.KafkaBrokers)

	// ---- outbox publisher pool ----
	publisherWorkers := make([]*publisher.Publisher, cfg.OutboxWorkers)
	for i := range publisherWorkers {
		publisherWorkers[i] = publisher.New(
			i, cfg.WorkerID, store.Outbox, store.Notifications, producer, m,
			logger.With(zap.String("component", "publisher")),
			cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.OutboxClaimTimeout,
		)
	}
	publisherPool := publisher.NewPool(publisherWorkers)
	publisherPool.Start(workCtx)

	statusPublisher := publisher.NewStatusPublisher(
		cfg.WorkerID, store.StatusOutbox, store.Notifications, producer, m,
		logger.With(zap.String("component", "status_publisher")),
		cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.OutboxClaimTimeout,
	)
	go statusPublisher.Run(workCtx)

	// ---- per-channel consumers ----
	var channelReaders []*bus.Consumer
	for _, tag := range cfg.Channels {
		entry, _ := registry.Lookup(tag)
		reader := bus.NewConsumer(cfg.KafkaBrokers, entry.Topic, tag+"-consumer")
		channelReaders = append(channelReaders, reader)
		c := consumer.New(
			tag, entry, reader, producer, store.Notifications, idem, limiter, m,
			logger.With(zap.String("component", "consumer"), zap.String("channel", tag)),
			cfg.MaxRetryCount, cfg.RetryBaseMS, cfg.RetryCapMS,
		)
		go c.Run(workCtx)
	}

	// ---- delayed pipeline ----
	delayedReader := bus.NewConsumer(cfg.KafkaBrokers, bus.DelayedTopic, "delayed-consumer")
	delayedConsumer := delayed.NewConsumer(delayedReader, delayedSet, m, logger.With(zap.String("component", "delayed_consumer")))
	go delayedConsumer.Run(workCtx)

	poller := delayed.NewPoller(
		delayedSet, producer, m, logger.With(zap.String("component", "delayed_poller")),
		cfg.DelayedPollInterval, int64(cfg.DelayedBatchSize), cfg.DelayedClaimTTL, cfg.MaxPollerRetries,
	)
	go poller.Run(workCtx)

	// ---- status pipeline ----
	statusReader := bus.NewConsumer(cfg.KafkaBrokers, bus.StatusTopic, "status-consumer")
	webhookDeliverer := status.NewWebhookDeliverer(cfg.WebhookTimeout, cfg.WebhookMaxRetries)
	statusConsumer := status.NewConsumer(statusReader, store.Notifications, webhookDeliverer, m, logger.With(zap.String("component", "status_consumer")))
	go statusConsumer.Run(workCtx)

	// ---- recovery cron ----
	recoveryCron := recovery.New(
		store, store.Notifications, store.Alerts, store.Outbox, store.StatusOutbox, idem, m,
		logger.With(zap.String("component", "recovery")),
		cfg.MaxRetryCount,
		cfg.RecoveryPollInterval, cfg.ProcessingStuckThreshold, cfg.PendingStuckThreshold, cfg.RecoveryBatchSize,
		cfg.CleanupOutboxRetention, cfg.CleanupStatusOutboxRetention, cfg.CleanupAlertRetention,
	)
	go recoveryCron.Run(workCtx)

	// ---- HTTP server ----
	router := api.NewRouter(ingestSvc, store, store.Notifications, store.Batches, store.Outbox, registry, rdb, reg, cfg.AuthToken, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown.WaitForSignal()

	seq := shutdown.Sequence{
		Logger:        logger,
		Timeout:       cfg.ShutdownTimeout,
		StopAccepting: srv.Shutdown,
		CancelWork:    cancelWork,
		Drain: func() {
			publisherPool.Wait()
			time.Sleep(500 * time.Millisecond) // let in-flight consumer handlers return
		},
		FlushProducers: producer.Close,
		Close: func() {
			for _, r := range channelReaders {
				_ = r.Close()
			}
			_ = delayedReader.Close()
			_ = statusReader.Close()
			_ = rdb.Close()
		},
	}
	seq.Run(ctx)
}
