// Package rules holds the pure domain rules of the settlement pipeline:
// the container fill state machine, the color→waste-type mapping, the
// point-factor table and the deposit idempotency key. Everything here is
// deterministic and free of I/O.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Adriram04/DAD/internal/model"
)

const (
	// NearFullRatio is the load/capacity ratio at which a container is
	// reported as nearly full.
	NearFullRatio = 0.75

	// BlockedRatio is the load/capacity ratio at which a container stops
	// accepting deposits.
	BlockedRatio = 0.90

	// BlockadeTempCelsius is the ambient temperature at which the safety
	// interlock engages.
	BlockadeTempCelsius = 40.0
)

// ClassifyFill maps a container load against its capacity to a fill state.
// Boundaries are inclusive toward the higher-severity state: ratio 0.75 is
// NEAR_FULL, ratio 0.90 is BLOCKED. Capacity must be positive; callers
// reject non-positive capacities before reaching this point.
func ClassifyFill(load, capacity float64) model.FillState {
	ratio := load / capacity
	switch {
	case ratio >= BlockedRatio:
		return model.FillBlocked
	case ratio >= NearFullRatio:
		return model.FillNearFull
	default:
		return model.FillNormal
	}
}

var colorToWaste = map[string]model.WasteType{
	"azul": model.WastePlastic,
	"rosa": model.WastePaper,
	"gris": model.WasteGlass,
}

// WasteTypeForColor maps a container lid color to a waste type. The lookup
// is case-insensitive and total: unknown colors classify as OTRO rather
// than failing the deposit.
func WasteTypeForColor(color string) model.WasteType {
	if w, ok := colorToWaste[strings.ToLower(color)]; ok {
		return w
	}
	return model.WasteOther
}

var pointFactors = map[model.WasteType]float64{
	model.WastePlastic: 5,
	model.WastePaper:   3,
	model.WasteGlass:   2,
	model.WasteOther:   1,
}

// PointsFor computes the reward points for a deposit of the given waste
// type and weight, rounding half away from zero. A waste type without a
// mapped factor is an error rather than a silent default, so an added
// type cannot slip through uncredited.
func PointsFor(waste model.WasteType, weightKg float64) (int, error) {
	factor, ok := pointFactors[waste]
	if !ok {
		return 0, fmt.Errorf("no point factor for waste type %q", waste)
	}
	return int(math.Round(factor * weightKg)), nil
}

// DedupKey derives the idempotency key for a deposit. The transport is
// at-least-once, so a redelivered message must hash to the same key: the
// key covers the container, the deposit's QR token and the minute bucket
// of the arrival time, and is inserted with a unique constraint as part
// of the settlement transaction.
func DedupKey(containerID int, qrCode string, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute).Unix()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s:%d", containerID, qrCode, bucket)))
	return hex.EncodeToString(sum[:])
}
