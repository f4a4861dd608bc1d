package stream

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Adriram04/DAD/internal/config"
)

// Wires producer, dispatcher and stream together exactly as the service
// binary does. Nothing is enqueued, so Stop flushes an empty batch and
// no broker connection is attempted.
func TestDispatcherAcceptsProducer(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:     []string{"localhost:9092"},
		KafkaLedgerTopic: "reciclaje-settlements",
		KafkaDLQTopic:    "reciclaje-settlements-dlq",
		Logger:           zerolog.Nop(),
	}

	p := NewProducer(cfg)
	defer p.Close()

	d := NewDispatcher(p, 10, 10, time.Hour)
	_ = New(p, d, cfg.Logger)
	d.Stop()
}
