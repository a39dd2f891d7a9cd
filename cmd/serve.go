package main

import (
	"bills/internal/api"
	"bills/internal/api/handler/v1handler"
	"bills/internal/billing"
	"bills/internal/config"
	"bills/internal/worker"
	"bills/pkg/idempotency"
	idempotencymemory "bills/pkg/idempotency/memory"
	"bills/pkg/idempotency/redisstore"
	"bills/pkg/logger"
	"bills/pkg/metrics"
	"bills/pkg/publisher"
	"bills/pkg/publisher/kafka"
	"bills/pkg/publisher/rabbitmq"
	"bills/pkg/storage/postgres"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// getPublisher connects to the broker selected by BROKER_KIND.
func getPublisher(ctx context.Context, cfg *config.Config) (publisher.Publisher, func()) {
	var (
		pub publisher.Publisher
		err error
	)
	switch cfg.Broker.Kind {
	case "kafka":
		pub, err = kafka.New(ctx, kafka.Options{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.BillCreatedTopic,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		})
	default:
		pub, err = rabbitmq.New(ctx, rabbitmq.Options{
			URL: rabbitmq.URL(cfg.RabbitMQ.Host, cfg.RabbitMQ.Port,
				cfg.RabbitMQ.Username, cfg.RabbitMQ.Password, cfg.RabbitMQ.VHost),
			Queue:          cfg.RabbitMQ.BillCreatedQueue,
			ConfirmTimeout: cfg.RabbitMQ.ConfirmTimeout,
		})
	}
	if err != nil {
		logger.Fatal(ctx, "could not create event publisher", zap.String("broker", cfg.Broker.Kind), zap.Error(err))
	}

	return pub, func() {
		logger.Info(ctx, "closing event publisher...")
		if err := pub.Close(); err != nil {
			logger.Warn(ctx, "could not close event publisher", zap.Error(err))
		}
	}
}

// getPublishedStore returns the store remembering published bills: Redis when
// REDIS_ADDR is set, process memory otherwise.
func getPublishedStore(ctx context.Context, cfg *config.Config) (idempotency.Store, func()) {
	var store idempotency.Store = idempotencymemory.New()
	if cfg.Redis.Addr != "" {
		rs, err := redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal(ctx, "could not connect to redis", zap.Error(err))
		}
		store = rs
	} else {
		logger.Warn(ctx, "REDIS_ADDR is empty, published events are remembered in memory only")
	}

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn(ctx, "could not close idempotency store", zap.Error(err))
		}
	}
}

func getMetrics(ctx context.Context) *metrics.BillingMetrics {
	mp, err := metrics.NewMeterProvider(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal(ctx, "could not create meter provider", zap.Error(err))
	}
	otel.SetMeterProvider(mp)

	m, err := metrics.NewBillingMetrics(mp.Meter(metrics.MeterName))
	if err != nil {
		logger.Fatal(ctx, "could not create billing metrics", zap.Error(err))
	}

	return m
}

func setupServer(ctx context.Context, cfg *config.Config, deps api.Deps) func(ctx context.Context) {
	server := api.NewServer(deps, api.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

// setupWorker starts the outbox publisher. It is only needed with outbox
// delivery.
func setupWorker(
	ctx context.Context,
	cfg *config.Config,
	strg *postgres.PgSQL,
	pub publisher.Publisher,
	m *metrics.BillingMetrics,
) func(ctx context.Context) {
	published, closePublished := getPublishedStore(ctx, cfg)

	w := worker.NewBillCreatedWorker(pub, published, m, worker.NewBillCreatedWorkerOptions(cfg))
	// the client is stopped explicitly so in-flight jobs can finish
	riverClient, err := worker.Start(context.WithoutCancel(ctx), strg.Pool, worker.NewOptions(cfg), w)
	if err != nil {
		logger.Fatal(ctx, "could not start outbox worker", zap.Error(err))
	}
	logger.Info(ctx, "outbox worker started", zap.Int("max_workers", cfg.Outbox.MaxWorkers))

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping outbox worker...")
		if err := riverClient.Stop(ctx); err != nil {
			logger.Error(ctx, "could not stop outbox worker", zap.Error(err))
		}
		closePublished()
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and, with outbox delivery, the event worker",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			pub, closePub := getPublisher(ctx, cfg)
			defer closePub()

			m := getMetrics(ctx)
			options := billing.NewOptions(cfg)
			logger.Info(ctx, "event delivery configured",
				zap.String("delivery", string(options.Delivery)),
				zap.String("broker", cfg.Broker.Kind))

			stopWorker := func(context.Context) {}
			if options.Delivery == billing.DeliveryOutbox {
				stopWorker = setupWorker(ctx, cfg, strg, pub, m)
			}

			stopWebserver := setupServer(ctx, cfg, api.Deps{Deps: v1handler.Deps{
				Billing: billing.New(strg, pub, m, options),
			}})

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)
			stopWorker(shutdownCtx)
		},
	}

	return cmd
}
