package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Adriram04/DAD/internal/config"
	"github.com/Adriram04/DAD/internal/handler"
	"github.com/Adriram04/DAD/internal/mqtt"
	"github.com/Adriram04/DAD/internal/notify"
	"github.com/Adriram04/DAD/internal/settle"
	"github.com/Adriram04/DAD/internal/store"
	"github.com/Adriram04/DAD/internal/stream"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupGracefulShutdown(cancel, cfg.Logger)

	openCtx, openCancel := context.WithTimeout(ctx, 30*time.Second)
	db, err := store.Open(openCtx, cfg.MySQLDSN, cfg.Logger)
	openCancel()
	if err != nil {
		cfg.Logger.Fatal().Err(err).Msg("mysql open error")
	}
	defer db.Close()

	if err := stream.EnsureTopics(ctx, cfg); err != nil {
		cfg.Logger.Fatal().Err(err).Msg("kafka ensure topics error")
	}

	producer := stream.NewProducer(cfg)
	defer producer.Close()

	dispatcher := stream.NewDispatcher(producer, cfg.DispatcherCapacity, cfg.DispatcherMaxBatch,
		time.Duration(cfg.DispatcherTickMs)*time.Millisecond)
	defer dispatcher.Stop()

	ledgerStream := stream.New(producer, dispatcher, cfg.Logger)
	engine := settle.New(db, cfg.SettleTimeout(), cfg.Logger)

	// the handler publishes through the same client it consumes from, so
	// the client is built first and the handler bound via closure
	var h *handler.Handler
	client := mqtt.BuildClient(cfg, func(topic string, payload []byte) {
		h.HandleMessage(ctx, topic, payload)
	})
	notifier := notify.New(mqtt.NewPublisher(client, cfg.MQTTQoS), cfg.Logger)
	h = handler.New(cfg, engine, notifier, ledgerStream)

	mqtt.ConnectWithBackoff(ctx, cfg, client, 2*time.Second, 30*time.Second)

	<-ctx.Done()
	client.Disconnect(1000)
	cfg.Logger.Info().Msg("settlement service stopped")
}

func setupGracefulShutdown(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	}()
}
