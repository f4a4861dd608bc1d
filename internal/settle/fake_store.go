package settle

import (
	"context"

	"github.com/Adriram04/DAD/internal/model"
	"github.com/Adriram04/DAD/internal/rules"
)

// FakeStore is an in-memory Store for tests. It applies the same
// in-transaction semantics as the MySQL adapter: the increment and flag
// derivation happen inside ApplyDeposit, and a failure leaves no state
// behind.
type FakeStore struct {
	Containers map[int]*model.ContainerState
	Points     map[int]int
	Ledger     []model.LedgerEntry
	DedupKeys  map[string]bool

	// GlobalBlockade records SetGlobalBlockade calls.
	GlobalBlockade []bool

	// FetchErr, ApplyErr and BlockadeErr, if set, are returned by the
	// corresponding method before any state change.
	FetchErr    error
	ApplyErr    error
	BlockadeErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Containers: make(map[int]*model.ContainerState),
		Points:     make(map[int]int),
		DedupKeys:  make(map[string]bool),
	}
}

func (f *FakeStore) FetchContainer(_ context.Context, id int) (*model.ContainerState, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	c, ok := f.Containers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *FakeStore) ApplyDeposit(_ context.Context, entry model.LedgerEntry, dedupKey string) (AppliedDeposit, error) {
	if f.ApplyErr != nil {
		return AppliedDeposit{}, f.ApplyErr
	}
	if f.DedupKeys[dedupKey] {
		return AppliedDeposit{}, ErrDuplicateDeposit
	}
	c, ok := f.Containers[entry.ContainerID]
	if !ok {
		return AppliedDeposit{}, ErrContainerNotFound
	}

	f.DedupKeys[dedupKey] = true
	f.Ledger = append(f.Ledger, entry)
	c.CurrentLoad += entry.WeightKg
	f.Points[entry.ConsumerID] += entry.PointsAwarded

	state := rules.ClassifyFill(c.CurrentLoad, c.CapacityMax)
	return AppliedDeposit{
		NewLoad:  c.CurrentLoad,
		NearFull: state != model.FillNormal,
		Blocked:  state == model.FillBlocked,
	}, nil
}

func (f *FakeStore) SetGlobalBlockade(_ context.Context, blocked bool) error {
	if f.BlockadeErr != nil {
		return f.BlockadeErr
	}
	f.GlobalBlockade = append(f.GlobalBlockade, blocked)
	return nil
}
