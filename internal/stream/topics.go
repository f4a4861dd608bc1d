package stream

import (
	"context"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/Adriram04/DAD/internal/config"
)

// EnsureTopics creates the ledger-stream and dead-letter topics if they
// do not already exist on the broker.
func EnsureTopics(ctx context.Context, cfg *config.Config) error {
	bootstrap := cfg.KafkaBrokers[0]
	cfg.Logger.Info().Str("bootstrap", bootstrap).Msg("kafka: ensuring topics")

	conn, err := kafka.DialContext(ctx, "tcp", bootstrap)
	if err != nil {
		return err
	}
	defer conn.Close()

	exists := func(topic string) bool {
		parts, err := conn.ReadPartitions(topic)
		return err == nil && len(parts) > 0
	}

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return err
	}
	defer ctrlConn.Close()

	if !exists(cfg.KafkaLedgerTopic) {
		cfg.Logger.Info().Str("topic", cfg.KafkaLedgerTopic).Int("partitions", cfg.KafkaTopicPartitions).Msg("kafka: creating topic")
		if err := ctrlConn.CreateTopics(kafka.TopicConfig{
			Topic:             cfg.KafkaLedgerTopic,
			NumPartitions:     cfg.KafkaTopicPartitions,
			ReplicationFactor: cfg.KafkaReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "compression.type", ConfigValue: "producer"},
			},
		}); err != nil {
			return err
		}
	}

	if !exists(cfg.KafkaDLQTopic) {
		cfg.Logger.Info().Str("topic", cfg.KafkaDLQTopic).Int("partitions", cfg.KafkaDLQPartitions).Msg("kafka: creating topic")
		if err := ctrlConn.CreateTopics(kafka.TopicConfig{
			Topic:             cfg.KafkaDLQTopic,
			NumPartitions:     cfg.KafkaDLQPartitions,
			ReplicationFactor: cfg.KafkaReplicationFactor,
		}); err != nil {
			return err
		}
	}

	return nil
}
