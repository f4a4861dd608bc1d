package model

// Event is a decoded domain event arriving from the sensor transport.
type Event interface {
	isEvent()
}

// DepositEvent reports one completed recycling deposit. It exists only for
// the duration of one settlement and is never persisted as-is.
type DepositEvent struct {
	ConsumerID  int
	ContainerID int
	WeightKg    float64
	ColorCode   string
	QRCode      string
}

func (DepositEvent) isEvent() {}

// TemperatureEvent reports an ambient temperature reading from a container
// sensor.
type TemperatureEvent struct {
	Celsius float64
}

func (TemperatureEvent) isEvent() {}

// WasteType is the material classification derived from the lid color a
// deposit was made through.
type WasteType string

const (
	WastePlastic WasteType = "PLASTICO"
	WastePaper   WasteType = "PAPEL"
	WasteGlass   WasteType = "VIDRIO"
	WasteOther   WasteType = "OTRO"
)

// FillState is the three-level severity classification of a container's
// load ratio.
type FillState string

const (
	FillNormal   FillState = "NORMAL"
	FillNearFull FillState = "NEAR_FULL"
	FillBlocked  FillState = "BLOCKED"
)

// ContainerState is the slice of a container row the settlement pipeline
// reads before committing a deposit.
type ContainerState struct {
	ID          int
	CapacityMax float64
	CurrentLoad float64
}

// LedgerEntry is the immutable audit record of one processed deposit.
// Exactly one row is appended per settled deposit; rows are never updated
// or deleted.
type LedgerEntry struct {
	ConsumerID    int
	ContainerID   int
	QRCode        string
	WasteType     WasteType
	WeightKg      float64
	PointsAwarded int
}

// SettlementOutcome is the result of a committed settlement, carrying
// everything the downstream notifications and the ledger stream need.
type SettlementOutcome struct {
	ConsumerID    int
	ContainerID   int
	WasteType     WasteType
	WeightKg      float64
	PointsAwarded int
	NewLoad       float64
	NearFull      bool
	Blocked       bool
}
