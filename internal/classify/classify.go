// Package classify decodes raw transport payloads into typed domain
// events. It does no I/O: unknown topics and undecodable payloads are
// reported as errors for the caller to drop.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Adriram04/DAD/internal/model"
)

var (
	// ErrUnknownTopic marks a message on a topic the pipeline does not
	// consume.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrMalformedPayload marks a deposit payload missing required fields
	// or failing to decode. The deposit channel is best-effort telemetry,
	// so these are dropped, not retried.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrNoReading marks a sensor payload without a temperature field.
	// Sensors multiplex several measurements on one topic; readings the
	// pipeline does not consume are dropped silently.
	ErrNoReading = errors.New("no temperature reading")
)

// Classifier routes raw messages by topic into domain events.
type Classifier struct {
	depositTopic string
	sensorTopic  string
}

func New(depositTopic, sensorTopic string) *Classifier {
	return &Classifier{depositTopic: depositTopic, sensorTopic: sensorTopic}
}

// Classify decodes one raw message. It returns a model.DepositEvent for
// the deposit channel, a model.TemperatureEvent for the sensor channel,
// or an error describing why the message was dropped.
func (c *Classifier) Classify(topic string, payload []byte) (model.Event, error) {
	switch topic {
	case c.depositTopic:
		return decodeDeposit(payload)
	case c.sensorTopic:
		return decodeSensor(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

func decodeDeposit(payload []byte) (model.Event, error) {
	var in model.InboundDeposit
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	switch {
	case in.User == nil:
		return nil, fmt.Errorf("%w: missing field: user", ErrMalformedPayload)
	case in.ID == nil:
		return nil, fmt.Errorf("%w: missing field: id", ErrMalformedPayload)
	case in.Peso == nil:
		return nil, fmt.Errorf("%w: missing field: peso", ErrMalformedPayload)
	case in.Color == nil:
		return nil, fmt.Errorf("%w: missing field: color", ErrMalformedPayload)
	case in.QR == nil:
		return nil, fmt.Errorf("%w: missing field: qr", ErrMalformedPayload)
	case *in.Peso < 0:
		return nil, fmt.Errorf("%w: negative peso", ErrMalformedPayload)
	}
	return model.DepositEvent{
		ConsumerID:  *in.User,
		ContainerID: *in.ID,
		WeightKg:    *in.Peso,
		ColorCode:   *in.Color,
		QRCode:      *in.QR,
	}, nil
}

func decodeSensor(payload []byte) (model.Event, error) {
	var in model.InboundSensorReading
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if in.Temperatura == nil {
		return nil, ErrNoReading
	}
	return model.TemperatureEvent{Celsius: *in.Temperatura}, nil
}
