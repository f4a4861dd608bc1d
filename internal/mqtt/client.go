// Package mqtt wires the paho client: subscription routing for the
// deposit and sensor channels, reconnect handling, and the publisher the
// notification fan-out writes through.
package mqtt

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Adriram04/DAD/internal/config"
)

// MessageHandler receives every raw message from the subscribed topics.
type MessageHandler func(topic string, payload []byte)

// BuildClient creates the MQTT client and registers subscriptions for
// the deposit and sensor channels. Subscription happens in OnConnect so
// it is re-established after every reconnect.
func BuildClient(cfg *config.Config, handle MessageHandler) mqtt.Client {
	h := func(_ mqtt.Client, msg mqtt.Message) {
		handle(msg.Topic(), msg.Payload())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.OnConnect = func(c mqtt.Client) {
		cfg.Logger.Info().Str("broker", cfg.MQTTBrokerURL).Msg("mqtt connected")
		for _, topic := range []string{cfg.DepositTopic, cfg.SensorTopic} {
			if token := c.Subscribe(topic, cfg.MQTTQoS, h); token.Wait() && token.Error() != nil {
				cfg.Logger.Error().Err(token.Error()).Str("topic", topic).Msg("mqtt subscribe error")
			} else {
				cfg.Logger.Info().Str("topic", topic).Uint8("qos", cfg.MQTTQoS).Msg("mqtt subscribed")
			}
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		cfg.Logger.Warn().Err(err).Msg("mqtt connection lost")
	}

	return mqtt.NewClient(opts)
}

// ConnectWithBackoff retries the initial connect with exponential
// backoff until it succeeds or the context is cancelled.
func ConnectWithBackoff(ctx context.Context, cfg *config.Config, client mqtt.Client, start, max time.Duration) {
	backoff := start
	for {
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			cfg.Logger.Warn().Err(token.Error()).Dur("retry_in", backoff).Msg("mqtt connect error")
			select {
			case <-time.After(backoff):
				if backoff < max {
					backoff *= 2
				}
			case <-ctx.Done():
				cfg.Logger.Info().Msg("context cancelled before mqtt connect")
				return
			}
			continue
		}
		break
	}
}
