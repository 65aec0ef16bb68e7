package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richardliu001/school-rewards/internal/config"
	"github.com/richardliu001/school-rewards/internal/db"
	"github.com/richardliu001/school-rewards/internal/logger"
	"github.com/richardliu001/school-rewards/internal/outbox"
	"github.com/richardliu001/school-rewards/internal/repo"

	"github.com/segmentio/kafka-go"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "internal/config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := db.Open(cfg.Postgres)
	if err != nil {
		log.Fatalf("%v", err)
	}

	kw := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	defer kw.Close()

	repository := repo.NewRepository(gdb, nil, kw, log)
	relay := outbox.NewRelay(repository,
		time.Duration(cfg.Outbox.PollIntervalMS)*time.Millisecond, cfg.Outbox.BatchSize, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infow("school-rewards poller started", "topic", cfg.Kafka.Topic, "batch", cfg.Outbox.BatchSize)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("poller stopped: %v", err)
	}
	log.Info("poller stopped")
}
