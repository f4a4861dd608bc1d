// Package notify fans a committed settlement out to the real-time
// observers: one message to the depositing user's topic, one to the
// container's topic. Delivery is best-effort; the ledger row is the
// source of truth and a publish failure never unwinds a settlement.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Adriram04/DAD/internal/model"
)

// Publisher sends one payload to one transport topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// UserDelta is the per-user notification body.
type UserDelta struct {
	PuntosGanados int     `json:"puntosGanados"`
	Kg            float64 `json:"kg"`
}

// ContainerDelta is the per-container notification body.
type ContainerDelta struct {
	CargaActual float64 `json:"carga_actual"`
	Lleno       bool    `json:"lleno"`
	Bloqueo     bool    `json:"bloqueo"`
}

func UserTopic(consumerID int) string {
	return fmt.Sprintf("ui/usuarios/%d/puntos", consumerID)
}

func ContainerTopic(containerID int) string {
	return fmt.Sprintf("ui/contenedores/%d", containerID)
}

// Notifier publishes settlement outcomes.
type Notifier struct {
	pub Publisher
	log zerolog.Logger
}

func New(pub Publisher, log zerolog.Logger) *Notifier {
	return &Notifier{pub: pub, log: log.With().Str("component", "notify").Logger()}
}

// PublishOutcome emits both deltas for one settlement. Failures are
// logged and swallowed.
func (n *Notifier) PublishOutcome(out model.SettlementOutcome) {
	n.publish(UserTopic(out.ConsumerID), UserDelta{
		PuntosGanados: out.PointsAwarded,
		Kg:            out.WeightKg,
	})
	n.publish(ContainerTopic(out.ContainerID), ContainerDelta{
		CargaActual: out.NewLoad,
		Lleno:       out.NearFull,
		Bloqueo:     out.Blocked,
	})
}

func (n *Notifier) publish(topic string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		n.log.Error().Err(err).Str("topic", topic).Msg("marshal notification")
		return
	}
	if err := n.pub.Publish(topic, payload); err != nil {
		n.log.Warn().Err(err).Str("topic", topic).Msg("publish notification")
	}
}
