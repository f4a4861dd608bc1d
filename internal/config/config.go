package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	MQTTBrokerURL string
	MQTTClientID  string
	MQTTUsername  string
	MQTTPassword  string
	MQTTQoS       byte

	DepositTopic string
	SensorTopic  string

	MySQLDSN        string
	SettleTimeoutMs int

	KafkaBrokers           []string
	KafkaLedgerTopic       string
	KafkaDLQTopic          string
	KafkaTopicPartitions   int
	KafkaDLQPartitions     int
	KafkaReplicationFactor int

	DispatcherCapacity int
	DispatcherMaxBatch int
	DispatcherTickMs   int

	Logger zerolog.Logger
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvQoS(key string, fallback byte) byte {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n < 0 {
				n = 0
			}
			if n > 2 {
				n = 2
			}
			return byte(n)
		}
	}
	return fallback
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "settlement").Logger()
}

func LoadConfig() (*Config, error) {
	brokers := getenv("KAFKA_BROKERS", "localhost:9092")

	cfg := &Config{
		MQTTBrokerURL: getenv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:  getenv("MQTT_CLIENT_ID", "reciclaje-settlement"),
		MQTTUsername:  os.Getenv("MQTT_USERNAME"),
		MQTTPassword:  os.Getenv("MQTT_PASSWORD"),
		MQTTQoS:       getenvQoS("MQTT_QOS", 1),

		DepositTopic: getenv("MQTT_DEPOSIT_TOPIC", "proyecto/micro/puntos"),
		SensorTopic:  getenv("MQTT_SENSOR_TOPIC", "proyecto/micro/sensores"),

		MySQLDSN:        getenv("MYSQL_DSN", "reciclaje:reciclaje@tcp(localhost:3306)/reciclaje?parseTime=true"),
		SettleTimeoutMs: getenvInt("SETTLE_TIMEOUT_MS", 5000),

		KafkaBrokers:           strings.Split(brokers, ","),
		KafkaLedgerTopic:       getenv("KAFKA_LEDGER_TOPIC", "reciclaje-settlements"),
		KafkaDLQTopic:          getenv("KAFKA_DLQ_TOPIC", "reciclaje-settlements-dlq"),
		KafkaTopicPartitions:   getenvInt("KAFKA_TOPIC_PARTITIONS", 3),
		KafkaDLQPartitions:     getenvInt("KAFKA_DLQ_PARTITIONS", 1),
		KafkaReplicationFactor: getenvInt("KAFKA_REPLICATION_FACTOR", 1),

		DispatcherCapacity: getenvInt("DISPATCHER_CAPACITY", 10000),
		DispatcherMaxBatch: getenvInt("DISPATCHER_MAX_BATCH", 2000),
		DispatcherTickMs:   getenvInt("DISPATCHER_TICK_MS", 5),

		Logger: newLogger(),
	}

	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaBrokers[0] == "" {
		return nil, errors.New("KAFKA_BROKERS must not be empty")
	}
	if cfg.MySQLDSN == "" {
		return nil, errors.New("MYSQL_DSN must not be empty")
	}

	return cfg, nil
}

// SettleTimeout is the bound applied to each settlement's store write.
func (c *Config) SettleTimeout() time.Duration {
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

// Truncate shortens a payload for log output.
func Truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
