// Package production tracks paddy consumption per outturn and enforces the
// monthly capacity constraint on milling entries. Shifted-in bags reset on
// the calendar-month boundary: leftovers from a prior month must be
// re-shifted before they can be consumed again.
package production

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPaddyBagsPerQuintal converts milled quintals back into raw paddy
// bags consumed. A business rule, not a physical law; overridable via Config.
const DefaultPaddyBagsPerQuintal = 3

// Availability summarizes an outturn's consumable stock for a month.
type Availability struct {
	OutturnID   int64
	AsOf        time.Time
	ShiftedBags int64
	UsedBags    int64
	Available   int64
	IsCleared   bool
	ClearedAt   *time.Time
}

// Deduction is the raw-material cost of a production-output entry.
type Deduction struct {
	QuantityQuintals  decimal.Decimal
	PaddyBagsDeducted int64
}

// ComputeDeduction derives quintals and the paddy deduction for producing
// `bags` of a packaging weighing kgPerBag each, at ratio paddy bags per
// quintal: quintals = bags × kgPerBag / 100, deducted = round(quintals × ratio).
func ComputeDeduction(bags int64, kgPerBag decimal.Decimal, ratio int) Deduction {
	quintals := decimal.NewFromInt(bags).Mul(kgPerBag).Div(decimal.NewFromInt(100))
	deducted := quintals.Mul(decimal.NewFromInt(int64(ratio))).Round(0).IntPart()
	return Deduction{QuantityQuintals: quintals, PaddyBagsDeducted: deducted}
}

// ClearResult reports the outcome of clearing an outturn.
type ClearResult struct {
	OutturnID    int64     `json:"outturn_id"`
	ClearedAt    time.Time `json:"cleared_at"`
	CreditedBags int64     `json:"credited_bags"`
	MovementID   int64     `json:"movement_id"`
}
