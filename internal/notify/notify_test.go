package notify

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adriram04/DAD/internal/model"
)

func outcome() model.SettlementOutcome {
	return model.SettlementOutcome{
		ConsumerID:    3,
		ContainerID:   7,
		WasteType:     model.WastePlastic,
		WeightKg:      10,
		PointsAwarded: 50,
		NewLoad:       80,
		NearFull:      true,
		Blocked:       false,
	}
}

func TestPublishOutcome(t *testing.T) {
	pub := NewFakePublisher()
	New(pub, zerolog.Nop()).PublishOutcome(outcome())

	require.Len(t, pub.Topics, 2)
	assert.Equal(t, "ui/usuarios/3/puntos", pub.Topics[0])
	assert.JSONEq(t, `{"puntosGanados":50,"kg":10}`, string(pub.Payloads[0]))

	assert.Equal(t, "ui/contenedores/7", pub.Topics[1])
	assert.JSONEq(t, `{"carga_actual":80,"lleno":true,"bloqueo":false}`, string(pub.Payloads[1]))
}

func TestPublishOutcome_FailureIsSwallowed(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker unavailable")

	// does not panic and does not propagate
	New(pub, zerolog.Nop()).PublishOutcome(outcome())
	assert.Empty(t, pub.Topics)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "ui/usuarios/42/puntos", UserTopic(42))
	assert.Equal(t, "ui/contenedores/42", ContainerTopic(42))
}
