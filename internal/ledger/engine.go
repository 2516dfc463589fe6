package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/granary-erp/granary-erp/internal/movement"
	"github.com/granary-erp/granary-erp/internal/shared"
)

// balanceKey bifurcates a location's stock by variety and, for earmarked
// bags, by outturn.
type balanceKey struct {
	varietyID int64
	outturnID int64
}

// inwardKey returns the bucket credited when the location is the destination.
// Purchases and production shifting that name an outturn land in the
// earmarked bucket; everything else is free stock.
func inwardKey(m movement.Movement) balanceKey {
	k := balanceKey{varietyID: m.VarietyID}
	if m.OutturnID != 0 && (m.Kind == movement.KindPurchase || m.Kind == movement.KindProductionShifting) {
		k.outturnID = m.OutturnID
	}
	return k
}

// outwardKey returns the bucket debited when the location is the source.
// Production output draws from the earmarked bucket of its outturn.
func outwardKey(m movement.Movement) balanceKey {
	k := balanceKey{varietyID: m.VarietyID}
	if m.OutturnID != 0 && m.Kind == movement.KindProductionOutput {
		k.outturnID = m.OutturnID
	}
	return k
}

// movementBags is the bag quantity the ledger moves: production output
// consumes its paddy deduction, every other kind moves its face bags.
func movementBags(m movement.Movement) int64 {
	if m.Kind == movement.KindProductionOutput {
		return m.PaddyBagsDeducted
	}
	return m.Bags
}

type dayDelta struct {
	inward  int64
	outward int64
}

// Reconstruct folds effective movements into an ordered daily balance series
// for the location. Movements strictly before q.From roll up into synthetic
// opening balances; no prior day is materialized. Closing always equals
// opening + inward − outward, and consecutive days chain openings from
// closings per key.
//
// The input must already be restricted to effective movements; pending or
// rejected records must never reach the fold.
func Reconstruct(q Query, movements []movement.Movement) []Row {
	from := shared.DateOnly(q.From)
	to := shared.DateOnly(q.To)

	running := make(map[balanceKey]int64)
	perDay := make(map[time.Time]map[balanceKey]dayDelta)
	keySet := make(map[balanceKey]struct{})

	apply := func(k balanceKey, day time.Time, in, out int64) {
		if q.VarietyID != 0 && k.varietyID != q.VarietyID {
			return
		}
		keySet[k] = struct{}{}
		if day.Before(from) {
			running[k] += in - out
			return
		}
		deltas := perDay[day]
		if deltas == nil {
			deltas = make(map[balanceKey]dayDelta)
			perDay[day] = deltas
		}
		d := deltas[k]
		d.inward += in
		d.outward += out
		deltas[k] = d
	}

	for _, m := range movements {
		if !m.Effective() || !m.Touches(q.LocationID) {
			continue
		}
		day := shared.DateOnly(m.Date)
		if day.After(to) {
			continue
		}
		bags := movementBags(m)
		if m.ToLocationID == q.LocationID {
			apply(inwardKey(m), day, bags, 0)
		}
		if m.FromLocationID == q.LocationID {
			apply(outwardKey(m), day, 0, bags)
		}
	}

	keys := make([]balanceKey, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].varietyID != keys[j].varietyID {
			return keys[i].varietyID < keys[j].varietyID
		}
		return keys[i].outturnID < keys[j].outturnID
	})

	var rows []Row
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		deltas := perDay[day]
		for _, k := range keys {
			opening := running[k]
			d := deltas[k]
			if opening == 0 && d.inward == 0 && d.outward == 0 {
				continue
			}
			closing := opening + d.inward - d.outward
			rows = append(rows, Row{
				Date:        day,
				LocationID:  q.LocationID,
				VarietyID:   k.varietyID,
				OutturnID:   k.outturnID,
				OpeningBags: opening,
				InwardBags:  d.inward,
				OutwardBags: d.outward,
				ClosingBags: closing,
			})
			running[k] = closing
		}
	}
	return rows
}

// NegativeBalances reports rows whose closing went negative. Upstream data
// already violated non-negativity; the finding is surfaced, never hidden.
func NegativeBalances(rows []Row) []shared.IntegrityError {
	var issues []shared.IntegrityError
	for _, r := range rows {
		if r.ClosingBags < 0 {
			issues = append(issues, shared.IntegrityError{
				Key:    fmt.Sprintf("location:%d variety:%d outturn:%d", r.LocationID, r.VarietyID, r.OutturnID),
				Date:   r.DateString(),
				Detail: fmt.Sprintf("closing balance %d bags", r.ClosingBags),
			})
		}
	}
	return issues
}
