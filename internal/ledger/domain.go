// Package ledger reconstructs day-by-day paddy balances per location from
// the movement log. Balances are never stored; every series is derived on
// request from effective movements.
package ledger

import (
	"time"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// Row is one reconstructed daily balance for a (location, variety, outturn)
// key. OutturnID is zero for free warehouse stock; earmarked stock carries
// the outturn it is committed to even though both sit in the same warehouse.
type Row struct {
	Date        time.Time `json:"-"`
	LocationID  int64     `json:"location_id"`
	VarietyID   int64     `json:"variety_id"`
	OutturnID   int64     `json:"outturn_id,omitempty"`
	OutturnCode string    `json:"outturn_code,omitempty"`
	OpeningBags int64     `json:"opening_bags"`
	InwardBags  int64     `json:"inward_bags"`
	OutwardBags int64     `json:"outward_bags"`
	ClosingBags int64     `json:"closing_bags"`
}

// DateString formats the row date for transport.
func (r Row) DateString() string {
	return r.Date.Format("2006-01-02")
}

// Query selects a reconstruction window. VarietyID zero means all varieties.
type Query struct {
	LocationID int64
	VarietyID  int64
	From       time.Time
	To         time.Time
}

// Validate checks window ordering.
func (q Query) Validate() error {
	if q.LocationID == 0 {
		return shared.NewValidationError("location_id", "required")
	}
	if q.From.IsZero() || q.To.IsZero() {
		return shared.NewValidationError("date", "window required")
	}
	if q.To.Before(q.From) {
		return shared.NewValidationError("date", "date_from must not be after date_to")
	}
	return nil
}

// Series is a reconstructed daily balance series plus any integrity findings.
// A negative reconstructed balance is a reportable data condition, surfaced
// here rather than clamped away.
type Series struct {
	Rows      []Row
	Integrity []shared.IntegrityError
}
