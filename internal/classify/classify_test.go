package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adriram04/DAD/internal/model"
)

const (
	depositTopic = "proyecto/micro/puntos"
	sensorTopic  = "proyecto/micro/sensores"
)

func newClassifier() *Classifier {
	return New(depositTopic, sensorTopic)
}

func TestClassify_Deposit(t *testing.T) {
	raw := []byte(`{"user":3,"id":7,"peso":10.0,"color":"azul","qr":"Q1"}`)

	ev, err := newClassifier().Classify(depositTopic, raw)
	require.NoError(t, err)

	dep, ok := ev.(model.DepositEvent)
	require.True(t, ok, "expected DepositEvent, got %T", ev)
	assert.Equal(t, model.DepositEvent{
		ConsumerID:  3,
		ContainerID: 7,
		WeightKg:    10.0,
		ColorCode:   "azul",
		QRCode:      "Q1",
	}, dep)
}

func TestClassify_DepositMissingFields(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing user", `{"id":7,"peso":10,"color":"azul","qr":"Q1"}`},
		{"missing id", `{"user":3,"peso":10,"color":"azul","qr":"Q1"}`},
		{"missing peso", `{"user":3,"id":7,"color":"azul","qr":"Q1"}`},
		{"missing color", `{"user":3,"id":7,"peso":10,"qr":"Q1"}`},
		{"missing qr", `{"user":3,"id":7,"peso":10,"color":"azul"}`},
		{"negative peso", `{"user":3,"id":7,"peso":-1,"color":"azul","qr":"Q1"}`},
		{"wrong type", `{"user":"three","id":7,"peso":10,"color":"azul","qr":"Q1"}`},
		{"not json", `not json at all`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := newClassifier().Classify(depositTopic, []byte(tc.raw))
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestClassify_Temperature(t *testing.T) {
	ev, err := newClassifier().Classify(sensorTopic, []byte(`{"temperatura":41.0,"humedad":55}`))
	require.NoError(t, err)

	temp, ok := ev.(model.TemperatureEvent)
	require.True(t, ok, "expected TemperatureEvent, got %T", ev)
	assert.Equal(t, 41.0, temp.Celsius)
}

func TestClassify_SensorWithoutTemperature(t *testing.T) {
	ev, err := newClassifier().Classify(sensorTopic, []byte(`{"humedad":55}`))
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, ErrNoReading)
}

func TestClassify_UnknownTopic(t *testing.T) {
	ev, err := newClassifier().Classify("proyecto/micro/otros", []byte(`{"user":3}`))
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, ErrUnknownTopic)
}
