package stream

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Adriram04/DAD/internal/model"
)

// LedgerRecord is the wire shape of one settled deposit on the ledger
// stream topic.
type LedgerRecord struct {
	EventID     string  `json:"eventId"`
	SettledAt   string  `json:"settledAt"`
	Usuario     int     `json:"usuario"`
	Contenedor  int     `json:"contenedor"`
	QR          string  `json:"qr"`
	TipoBasura  string  `json:"tipoBasura"`
	PesoKg      float64 `json:"pesoKg"`
	Puntos      int     `json:"puntos"`
	CargaActual float64 `json:"cargaActual"`
	Lleno       bool    `json:"lleno"`
	Bloqueo     bool    `json:"bloqueo"`
}

// DeadLetter is the envelope wrapped around an undecodable payload
// before it is produced to the DLQ topic.
type DeadLetter struct {
	Error      string          `json:"error"`
	Topic      string          `json:"topic"`
	Original   json.RawMessage `json:"original"`
	ReceivedAt string          `json:"receivedAt"`
}

type dlqSender interface {
	SendDLQ(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// Stream is the handler-facing facade over the producer and dispatcher.
type Stream struct {
	producer   dlqSender
	dispatcher *Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

func New(producer *Producer, dispatcher *Dispatcher, log zerolog.Logger) *Stream {
	return &Stream{
		producer:   producer,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "stream").Logger(),
		now:        time.Now,
	}
}

// EnqueueSettled queues one committed settlement for the ledger stream,
// keyed by container so one container's history stays in partition order.
func (s *Stream) EnqueueSettled(entry model.LedgerEntry, out model.SettlementOutcome) {
	rec := LedgerRecord{
		EventID:     uuid.NewString(),
		SettledAt:   s.now().UTC().Format(time.RFC3339Nano),
		Usuario:     out.ConsumerID,
		Contenedor:  out.ContainerID,
		QR:          entry.QRCode,
		TipoBasura:  string(out.WasteType),
		PesoKg:      out.WeightKg,
		Puntos:      out.PointsAwarded,
		CargaActual: out.NewLoad,
		Lleno:       out.NearFull,
		Bloqueo:     out.Blocked,
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal ledger record")
		return
	}
	if !s.dispatcher.Enqueue(kafka.Message{
		Key:   []byte(strconv.Itoa(out.ContainerID)),
		Value: buf,
	}) {
		s.log.Warn().Int("contenedor", out.ContainerID).Msg("ledger stream buffer full, record dropped")
	}
}

// SendDeadLetter wraps a rejected payload in an error envelope and
// produces it to the DLQ topic.
func (s *Stream) SendDeadLetter(ctx context.Context, topic string, cause error, original []byte) error {
	env := DeadLetter{
		Error:      cause.Error(),
		Topic:      topic,
		Original:   json.RawMessage(original),
		ReceivedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	buf, err := json.Marshal(env)
	if err != nil {
		// payload was not valid JSON; wrap it as a string instead
		env.Original = nil
		buf, err = json.Marshal(struct {
			DeadLetter
			Raw string `json:"raw"`
		}{DeadLetter: env, Raw: string(original)})
		if err != nil {
			return err
		}
	}
	return s.producer.SendDLQ(ctx, []byte("invalid"), buf)
}
