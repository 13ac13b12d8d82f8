package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hospiq/patient-queue/config"
	httpDelivery "github.com/hospiq/patient-queue/internal/delivery/http"
	"github.com/hospiq/patient-queue/internal/delivery/kafka/consumer"
	"github.com/hospiq/patient-queue/internal/delivery/kafka/producer"
	"github.com/hospiq/patient-queue/internal/infra/redis"
	"github.com/hospiq/patient-queue/internal/repository"
	memoryRepo "github.com/hospiq/patient-queue/internal/repository/memory"
	redisRepo "github.com/hospiq/patient-queue/internal/repository/redis"
	"github.com/hospiq/patient-queue/internal/service"
	pkgKafka "github.com/hospiq/patient-queue/pkg/kafka"
	pkgLog "github.com/hospiq/patient-queue/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	var store repository.QueueStore
	switch cfg.Store.Backend {
	case "redis":
		redisCli, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
		}
		defer redis.Disconnect(redisCli)

		store = redisRepo.NewStore(redisCli, l, cfg.Queue.EntryTTL)
	case "memory":
		store = memoryRepo.NewStore()
	}

	var prod producer.Producer
	if cfg.Kafka.Enabled {
		kafkaSyncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		defer kafkaSyncProd.Close()

		prod = producer.NewProducer(kafkaSyncProd, l)
	}

	qSvc := service.NewQueueService(store, prod, cfg.Queue, l)

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled {
		kafkaConsGr, err := pkgKafka.NewConsumer(pkgKafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.ConsumerGroupID,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
		}

		cons := consumer.NewConsumer(kafkaConsGr, qSvc, l)
		if err := cons.Start(gCtx); err != nil {
			l.Fatalf(ctx, "Failed to start Kafka consumer: %v", err)
		}
		defer cons.Close()
	}

	h := httpDelivery.NewQueueHandler(qSvc, l)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpDelivery.NewRouter(h, cfg.JWT, l),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		l.Infof(gCtx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		l.Info(gCtx, "Server shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		l.Errorf(context.Background(), "Server stopped with error: %v", err)
		os.Exit(1)
	}

	l.Info(context.Background(), "Server exited")
}
