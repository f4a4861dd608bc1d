// Package stream feeds committed settlements to a Kafka topic for
// downstream consumers and dead-letters undecodable deposit payloads.
// Both flows are best-effort: the MySQL ledger row is the source of
// truth and a stream failure never affects a committed settlement.
package stream

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adriram04/DAD/internal/config"
)

// Producer encapsulates the two writers: the settled-deposit stream and
// the dead-letter topic for payloads the classifier rejected.
type Producer struct {
	main *kafka.Writer
	dlq  *kafka.Writer
}

func NewProducer(cfg *config.Config) *Producer {
	balancer := &kafka.Hash{}

	main := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.KafkaLedgerTopic,
		Balancer: balancer,

		BatchSize:    1000,
		BatchBytes:   1 << 20,
		BatchTimeout: 5 * time.Millisecond,

		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Compression:  kafka.Snappy,
	}

	dlq := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.KafkaDLQTopic,
		Balancer: balancer,

		BatchSize:    200,
		BatchBytes:   512 << 10,
		BatchTimeout: 10 * time.Millisecond,

		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Compression:  kafka.Snappy,
	}

	return &Producer{main: main, dlq: dlq}
}

func (p *Producer) Close() {
	_ = p.main.Close()
	_ = p.dlq.Close()
}

// WriteMessages forwards a batch to the ledger-stream writer. This is
// the seam the dispatcher flushes through.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return p.main.WriteMessages(ctx, msgs...)
}

func (p *Producer) SendDLQ(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	return p.dlq.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Headers: headers})
}

var _ messageWriter = (*Producer)(nil)
