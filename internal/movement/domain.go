// Package movement owns the paddy-side movement record store: the dated,
// append-only facts every balance is derived from, and the approval gate
// that decides which of them count.
package movement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// Kind enumerates paddy-side movement kinds.
type Kind string

const (
	// KindPurchase is an inbound purchase landing at a warehouse cell or outturn.
	KindPurchase Kind = "PURCHASE"
	// KindShifting moves stock between two storage locations.
	KindShifting Kind = "SHIFTING"
	// KindProductionShifting earmarks warehouse stock to an outturn.
	KindProductionShifting Kind = "PRODUCTION_SHIFTING"
	// KindProductionOutput consumes outturn stock into milled output.
	KindProductionOutput Kind = "PRODUCTION_OUTPUT"
	// KindLoose records loose (unbagged) stock corrections.
	KindLoose Kind = "LOOSE"
)

// Status enumerates the approval states. PENDING is the only non-terminal one.
type Status string

const (
	// StatusPending awaits an approval decision.
	StatusPending Status = "PENDING"
	// StatusApproved is terminal; the movement is effective.
	StatusApproved Status = "APPROVED"
	// StatusRejected is terminal; the movement never contributes to a balance.
	StatusRejected Status = "REJECTED"
)

// Gated reports whether the kind passes through the approval gate.
// Production output and loose corrections are effective on creation; the
// output entry is guarded by the capacity gate instead.
func (k Kind) Gated() bool {
	switch k {
	case KindPurchase, KindShifting, KindProductionShifting:
		return true
	}
	return false
}

// Movement is an immutable, dated stock-affecting fact.
type Movement struct {
	ID                int64
	Date              time.Time
	Kind              Kind
	VarietyID         int64
	Bags              int64
	NetWeightKg       decimal.Decimal
	QuantityQuintals  decimal.Decimal // production output only
	PaddyBagsDeducted int64           // production output only
	FromLocationID    int64           // 0 when the movement has no source
	ToLocationID      int64           // 0 when the movement has no destination
	OutturnID         int64           // set when earmarked to / drawn from an outturn
	PackagingID       int64           // production output packaging
	Status            Status
	Note              string
	CreatedBy         int64
	CreatedAt         time.Time
}

// Effective reports whether the movement contributes to balances. Pending and
// rejected movements never do.
func (m Movement) Effective() bool {
	if !m.Kind.Gated() {
		return true
	}
	return m.Status == StatusApproved
}

// Touches reports whether the movement affects the given location as source
// or destination.
func (m Movement) Touches(locationID int64) bool {
	return m.FromLocationID == locationID || m.ToLocationID == locationID
}

// Transition validates an approval-state change. Only PENDING may move, and
// only to a terminal state.
func Transition(current, target Status) error {
	if current == StatusPending && (target == StatusApproved || target == StatusRejected) {
		return nil
	}
	return &shared.StateError{Entity: "movement", From: string(current), Op: "transition to " + string(target)}
}

// BulkOutcome reports the per-item result of a bulk approval action.
type BulkOutcome struct {
	MovementID int64  `json:"movement_id"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}
