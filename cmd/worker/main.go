package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/goldshop/checkout/internal/bootstrap"
	infraRedis "github.com/goldshop/checkout/internal/infrastructure/redis"
	"github.com/goldshop/checkout/internal/repository/postgres"
	"github.com/goldshop/checkout/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "checkout-worker", "checkout_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	// --- Order event consumer ---
	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.OrderStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	app.Logger.Info().
		Str("stream", infraRedis.OrderStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for messages...")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Notification dispatcher (reads order events from Redis Streams).
	g.Go(func() error {
		return runNotifier(gCtx, app.Logger, consumer, streamProducer, app)
	})

	// 2. Outbox processor (polls outbox table and publishes to Redis Streams).
	g.Go(func() error {
		return runOutboxProcessor(gCtx, app.Logger, txManager, outboxRepo, streamProducer, workerCfg.OutboxPollInterval)
	})

	// 3. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runNotifier(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	producer *infraRedis.StreamProducer,
	app *bootstrap.App,
) error {
	retryCfg := retry.DefaultConfig()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				orderID, _ := msg.Values["order_id"].(string)
				eventType, _ := msg.Values["event_type"].(string)
				payload, _ := msg.Values["payload"].(string)

				start := time.Now()
				err := retry.Do(ctx, retryCfg, func() error {
					return notifyBuyer(ctx, logger, orderID, eventType, payload)
				})
				if err != nil {
					logger.Error().Err(err).
						Str("order_id", orderID).
						Str("event_type", eventType).
						Msg("Notification delivery exhausted retries")
					app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.OrderStream, "failed").Inc()
					producer.PublishToDLQ(ctx, orderID, err.Error(), map[string]any{
						"event_type": eventType,
						"payload":    payload,
					})
				} else {
					app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.OrderStream, "success").Inc()
				}
				app.Metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.OrderStream).Observe(time.Since(start).Seconds())

				consumer.Ack(ctx, msg.ID)
			}
		}
	}
}

// notifyBuyer delivers the buyer-facing notification for an order event.
// Delivery is a structured log line today; the retry wrapper and DLQ are in
// place so a mail or push transport can slot in without touching the loop.
func notifyBuyer(ctx context.Context, logger zerolog.Logger, orderID, eventType, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info().
		Str("order_id", orderID).
		Str("event_type", eventType).
		Str("payload", payload).
		Msg("Buyer notification dispatched")
	return nil
}

func runOutboxProcessor(
	ctx context.Context,
	logger zerolog.Logger,
	txManager *postgres.TxManager,
	outboxRepo *postgres.OutboxRepository,
	streamProducer *infraRedis.StreamProducer,
	pollInterval time.Duration,
) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			entries, err := outboxRepo.GetPending(txCtx, 10)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if err := streamProducer.PublishOrderEvent(
					ctx, entry.AggregateID.String(), entry.EventType, entry.Payload,
				); err != nil {
					logger.Error().Err(err).Str("outbox_id", entry.ID.String()).Msg("Failed to publish outbox event")
					outboxRepo.MarkFailed(txCtx, entry.ID)
					continue
				}
				outboxRepo.MarkPublished(txCtx, entry.ID)
			}
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Outbox processor error")
		}
	}
}
