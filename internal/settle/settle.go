// Package settle turns classified deposit events into committed
// settlements: one ledger row, one container update and one user-balance
// credit, landing together or not at all. It also hosts the
// temperature-triggered safety interlock.
package settle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Adriram04/DAD/internal/model"
	"github.com/Adriram04/DAD/internal/rules"
)

var (
	// ErrContainerNotFound marks a deposit whose container id does not
	// resolve. No writes have happened when this is returned.
	ErrContainerNotFound = errors.New("container not found")

	// ErrInvalidCapacity marks a container row with a non-positive
	// capacity. The fill state is undefined for such a row, so the
	// deposit fails instead of dividing by zero.
	ErrInvalidCapacity = errors.New("container capacity not positive")

	// ErrDuplicateDeposit marks a redelivered deposit whose idempotency
	// key already settled. The first delivery's effects stand; nothing is
	// credited twice.
	ErrDuplicateDeposit = errors.New("duplicate deposit")
)

// AppliedDeposit reports the container state the store observed after the
// in-transaction load increment.
type AppliedDeposit struct {
	NewLoad  float64
	NearFull bool
	Blocked  bool
}

// Store is the slice of the transactional store the engine consumes.
type Store interface {
	// FetchContainer returns the container's capacity and load, or
	// (nil, nil) when the id does not resolve.
	FetchContainer(ctx context.Context, id int) (*model.ContainerState, error)

	// ApplyDeposit commits one settlement atomically: dedup-key insert,
	// ledger append, in-store load increment with flag re-derivation, and
	// user-points credit. A redelivered key returns ErrDuplicateDeposit
	// with nothing applied.
	ApplyDeposit(ctx context.Context, entry model.LedgerEntry, dedupKey string) (AppliedDeposit, error)

	// SetGlobalBlockade writes the temperature blockade flag to the
	// container fleet.
	SetGlobalBlockade(ctx context.Context, blocked bool) error
}

// Engine is the settlement engine. It owns all deposit-driven mutation of
// container load, container flags and user balances.
type Engine struct {
	store   Store
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for idempotency-key bucketing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store Store, timeout time.Duration, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		timeout: timeout,
		log:     log.With().Str("component", "settle").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settle processes one deposit event end to end. On success the returned
// outcome carries everything the notification fan-out needs; on failure
// nothing has been written.
func (e *Engine) Settle(ctx context.Context, dep model.DepositEvent) (*model.SettlementOutcome, error) {
	waste := rules.WasteTypeForColor(dep.ColorCode)
	points, err := rules.PointsFor(waste, dep.WeightKg)
	if err != nil {
		return nil, fmt.Errorf("compute points: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cont, err := e.store.FetchContainer(ctx, dep.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("fetch container %d: %w", dep.ContainerID, err)
	}
	if cont == nil {
		return nil, fmt.Errorf("container %d: %w", dep.ContainerID, ErrContainerNotFound)
	}
	if cont.CapacityMax <= 0 {
		return nil, fmt.Errorf("container %d: %w", dep.ContainerID, ErrInvalidCapacity)
	}

	entry := model.LedgerEntry{
		ConsumerID:    dep.ConsumerID,
		ContainerID:   dep.ContainerID,
		QRCode:        dep.QRCode,
		WasteType:     waste,
		WeightKg:      dep.WeightKg,
		PointsAwarded: points,
	}

	applied, err := e.store.ApplyDeposit(ctx, entry, rules.DedupKey(dep.ContainerID, dep.QRCode, e.now()))
	if err != nil {
		if errors.Is(err, ErrDuplicateDeposit) {
			return nil, err
		}
		return nil, fmt.Errorf("apply deposit: %w", err)
	}

	e.log.Info().
		Int("usuario", dep.ConsumerID).
		Int("contenedor", dep.ContainerID).
		Str("tipo", string(waste)).
		Float64("kg", dep.WeightKg).
		Int("puntos", points).
		Float64("carga", applied.NewLoad).
		Bool("lleno", applied.NearFull).
		Bool("bloqueo", applied.Blocked).
		Msg("deposit settled")

	return &model.SettlementOutcome{
		ConsumerID:    dep.ConsumerID,
		ContainerID:   dep.ContainerID,
		WasteType:     waste,
		WeightKg:      dep.WeightKg,
		PointsAwarded: points,
		NewLoad:       applied.NewLoad,
		NearFull:      applied.NearFull,
		Blocked:       applied.Blocked,
	}, nil
}

// ApplyTemperature runs the safety interlock for one temperature reading
// and reports the blockade decision it wrote.
//
// The blockade is written to every container: the observed upstream
// behavior carries no container or zone scoping, and until that is
// confirmed as intent the fleet-wide write is preserved as-is. See
// DESIGN.md.
func (e *Engine) ApplyTemperature(ctx context.Context, ev model.TemperatureEvent) (bool, error) {
	blocked := ev.Celsius >= rules.BlockadeTempCelsius

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := e.store.SetGlobalBlockade(ctx, blocked); err != nil {
		return blocked, fmt.Errorf("set global blockade: %w", err)
	}

	e.log.Info().Float64("celsius", ev.Celsius).Bool("bloqueo", blocked).Msg("temperature interlock applied")
	return blocked, nil
}
