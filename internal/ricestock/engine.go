package ricestock

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// delta is one signed contribution of a movement to a balance stream. A
// palti yields two: the full source bags leave the source packaging, only
// the whole bags produced enter the target packaging. The shortage is
// credited nowhere.
type delta struct {
	key  Key
	bags int64
}

func movementDeltas(m Movement) []delta {
	key := Key{LocationCode: m.LocationCode, ProductType: m.ProductType, VarietyID: m.VarietyID, PackagingID: m.PackagingID}
	switch m.Kind {
	case KindProduction, KindPurchase:
		return []delta{{key: key, bags: m.Bags}}
	case KindSale:
		return []delta{{key: key, bags: -m.Bags}}
	case KindPalti:
		target := key
		target.PackagingID = m.TargetPackagingID
		return []delta{
			{key: key, bags: -m.Bags},
			{key: target, bags: m.TargetBags},
		}
	}
	return nil
}

// KeyFilter selects balance streams; nil matches everything.
type KeyFilter func(Key) bool

// Entry is one ledger line with its per-key running balance.
type Entry struct {
	MovementID     int64           `json:"movement_id"`
	Date           time.Time       `json:"-"`
	Day            string          `json:"date"`
	Kind           Kind            `json:"kind"`
	Key            Key             `json:"key"`
	DeltaBags      int64           `json:"delta_bags"`
	RunningBalance int64           `json:"running_balance"`
	ShortageKg     decimal.Decimal `json:"shortage_kg,omitempty"`
	Note           string          `json:"note,omitempty"`
}

func sortMovements(movements []Movement) {
	sort.SliceStable(movements, func(i, j int) bool {
		di, dj := shared.DateOnly(movements[i].Date), shared.DateOnly(movements[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return movements[i].ID < movements[j].ID
	})
}

// OpeningBalances folds movements dated strictly before the window start
// into per-key openings.
func OpeningBalances(movements []Movement, filter KeyFilter, before time.Time) map[Key]int64 {
	before = shared.DateOnly(before)
	opening := make(map[Key]int64)
	for _, m := range movements {
		if !shared.DateOnly(m.Date).Before(before) {
			continue
		}
		for _, d := range movementDeltas(m) {
			if filter != nil && !filter(d.key) {
				continue
			}
			opening[d.key] += d.bags
		}
	}
	return opening
}

// RunningEntries scans window movements in (date, id) order and produces
// ledger lines with per-key running balances seeded from opening. The sort
// is stable, so repeated queries for the same filters paginate identically.
func RunningEntries(opening map[Key]int64, movements []Movement, filter KeyFilter, from, to time.Time) []Entry {
	from = shared.DateOnly(from)
	to = shared.DateOnly(to)
	window := make([]Movement, 0, len(movements))
	for _, m := range movements {
		day := shared.DateOnly(m.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		window = append(window, m)
	}
	sortMovements(window)

	running := make(map[Key]int64, len(opening))
	for k, v := range opening {
		running[k] = v
	}

	var entries []Entry
	for _, m := range window {
		for _, d := range movementDeltas(m) {
			if filter != nil && !filter(d.key) {
				continue
			}
			running[d.key] += d.bags
			entry := Entry{
				MovementID:     m.ID,
				Date:           shared.DateOnly(m.Date),
				Day:            shared.DateOnly(m.Date).Format("2006-01-02"),
				Kind:           m.Kind,
				Key:            d.key,
				DeltaBags:      d.bags,
				RunningBalance: running[d.key],
				Note:           m.Note,
			}
			if m.Kind == KindPalti && d.bags < 0 {
				entry.ShortageKg = m.ShortageKg
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

// BalanceAt computes the balance of one key from all movements dated up to
// and including asOf. Used by the sale gate.
func BalanceAt(movements []Movement, key Key, asOf time.Time) int64 {
	asOf = shared.DateOnly(asOf)
	var balance int64
	for _, m := range movements {
		if shared.DateOnly(m.Date).After(asOf) {
			continue
		}
		for _, d := range movementDeltas(m) {
			if d.key == key {
				balance += d.bags
			}
		}
	}
	return balance
}

// Totals aggregates bag volumes by movement kind over entries.
func Totals(entries []Entry) map[Kind]int64 {
	totals := make(map[Kind]int64)
	for _, e := range entries {
		bags := e.DeltaBags
		if bags < 0 {
			bags = -bags
		}
		totals[e.Kind] += bags
	}
	return totals
}
