// Package handler glues the pipeline together: one raw transport
// message in, classification, settlement or interlock, then the
// notification fan-out and ledger stream. Each stage returns a typed
// result; failures short-circuit without partial effects.
package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Adriram04/DAD/internal/classify"
	"github.com/Adriram04/DAD/internal/config"
	"github.com/Adriram04/DAD/internal/model"
	"github.com/Adriram04/DAD/internal/settle"
)

// Settler is the settlement engine surface the handler drives.
type Settler interface {
	Settle(ctx context.Context, dep model.DepositEvent) (*model.SettlementOutcome, error)
	ApplyTemperature(ctx context.Context, ev model.TemperatureEvent) (bool, error)
}

// OutcomeNotifier fans a committed settlement out to real-time observers.
type OutcomeNotifier interface {
	PublishOutcome(out model.SettlementOutcome)
}

// LedgerStream receives committed settlements and dead-lettered payloads.
type LedgerStream interface {
	EnqueueSettled(entry model.LedgerEntry, out model.SettlementOutcome)
	SendDeadLetter(ctx context.Context, topic string, cause error, original []byte) error
}

type Handler struct {
	cfg        *config.Config
	classifier *classify.Classifier
	engine     Settler
	notifier   OutcomeNotifier
	stream     LedgerStream
	log        zerolog.Logger
}

func New(cfg *config.Config, engine Settler, notifier OutcomeNotifier, stream LedgerStream) *Handler {
	return &Handler{
		cfg:        cfg,
		classifier: classify.New(cfg.DepositTopic, cfg.SensorTopic),
		engine:     engine,
		notifier:   notifier,
		stream:     stream,
		log:        cfg.Logger.With().Str("component", "handler").Logger(),
	}
}

// HandleMessage processes one raw transport message. It never returns an
// error: the deposit pipeline is fire-and-forget from the sensor's
// perspective, so every failure mode resolves to a log line and a drop.
func (h *Handler) HandleMessage(ctx context.Context, topic string, payload []byte) {
	ev, err := h.classifier.Classify(topic, payload)
	if err != nil {
		h.handleClassifyError(ctx, topic, payload, err)
		return
	}

	switch ev := ev.(type) {
	case model.DepositEvent:
		h.handleDeposit(ctx, ev)
	case model.TemperatureEvent:
		h.handleTemperature(ctx, ev)
	}
}

func (h *Handler) handleClassifyError(ctx context.Context, topic string, payload []byte, err error) {
	switch {
	case errors.Is(err, classify.ErrNoReading):
		// sensor message without a temperature field, not ours
	case errors.Is(err, classify.ErrMalformedPayload):
		h.log.Debug().Err(err).Str("topic", topic).Str("payload", config.Truncate(payload, 512)).Msg("payload dropped")
		if topic == h.cfg.DepositTopic {
			if dlqErr := h.stream.SendDeadLetter(ctx, topic, err, payload); dlqErr != nil {
				h.log.Warn().Err(dlqErr).Msg("dead-letter write failed")
			}
		}
	default:
		h.log.Debug().Err(err).Str("topic", topic).Msg("message dropped")
	}
}

func (h *Handler) handleDeposit(ctx context.Context, dep model.DepositEvent) {
	out, err := h.engine.Settle(ctx, dep)
	switch {
	case err == nil:
	case errors.Is(err, settle.ErrDuplicateDeposit):
		h.log.Debug().Int("contenedor", dep.ContainerID).Str("qr", dep.QRCode).Msg("duplicate delivery ignored")
		return
	case errors.Is(err, settle.ErrContainerNotFound):
		h.log.Warn().Int("contenedor", dep.ContainerID).Msg("deposit for unknown container dropped")
		return
	default:
		h.log.Error().Err(err).Int("contenedor", dep.ContainerID).Int("usuario", dep.ConsumerID).Msg("settlement failed")
		return
	}

	h.notifier.PublishOutcome(*out)
	h.stream.EnqueueSettled(model.LedgerEntry{
		ConsumerID:    out.ConsumerID,
		ContainerID:   out.ContainerID,
		QRCode:        dep.QRCode,
		WasteType:     out.WasteType,
		WeightKg:      out.WeightKg,
		PointsAwarded: out.PointsAwarded,
	}, *out)
}

func (h *Handler) handleTemperature(ctx context.Context, ev model.TemperatureEvent) {
	if _, err := h.engine.ApplyTemperature(ctx, ev); err != nil {
		h.log.Error().Err(err).Float64("celsius", ev.Celsius).Msg("temperature interlock failed")
	}
}
