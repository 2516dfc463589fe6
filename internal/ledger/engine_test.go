package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/granary-erp/granary-erp/internal/movement"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func approved(m movement.Movement) movement.Movement {
	m.Status = movement.StatusApproved
	return m
}

func TestReconstructChainsOpeningsFromClosings(t *testing.T) {
	movements := []movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 100, ToLocationID: 7}),
		approved(movement.Movement{ID: 2, Date: day("2025-04-02"), Kind: movement.KindShifting, VarietyID: 1, Bags: 30, FromLocationID: 7, ToLocationID: 8}),
		approved(movement.Movement{ID: 3, Date: day("2025-04-03"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 50, ToLocationID: 7}),
	}
	rows := Reconstruct(Query{LocationID: 7, From: day("2025-04-01"), To: day("2025-04-04")}, movements)
	require.Len(t, rows, 4)

	require.Equal(t, int64(0), rows[0].OpeningBags)
	require.Equal(t, int64(100), rows[0].InwardBags)
	require.Equal(t, int64(100), rows[0].ClosingBags)

	for i := 1; i < len(rows); i++ {
		require.Equal(t, rows[i-1].ClosingBags, rows[i].OpeningBags, "opening must equal previous closing")
	}

	require.Equal(t, int64(30), rows[1].OutwardBags)
	require.Equal(t, int64(70), rows[1].ClosingBags)
	require.Equal(t, int64(120), rows[2].ClosingBags)
	// Quiet day still materializes while a balance is carried.
	require.Equal(t, int64(120), rows[3].OpeningBags)
	require.Equal(t, int64(120), rows[3].ClosingBags)

	for _, r := range rows {
		require.Equal(t, r.OpeningBags+r.InwardBags-r.OutwardBags, r.ClosingBags)
	}
}

func TestReconstructRollsUpPreWindowMovements(t *testing.T) {
	movements := []movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-03-05"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 200, ToLocationID: 7}),
		approved(movement.Movement{ID: 2, Date: day("2025-03-20"), Kind: movement.KindShifting, VarietyID: 1, Bags: 50, FromLocationID: 7, ToLocationID: 8}),
		approved(movement.Movement{ID: 3, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 10, ToLocationID: 7}),
	}
	rows := Reconstruct(Query{LocationID: 7, From: day("2025-04-01"), To: day("2025-04-01")}, movements)
	require.Len(t, rows, 1)
	require.Equal(t, int64(150), rows[0].OpeningBags, "history folds into the opening, no prior days emitted")
	require.Equal(t, int64(10), rows[0].InwardBags)
	require.Equal(t, int64(160), rows[0].ClosingBags)
}

func TestReconstructExcludesIneffectiveMovements(t *testing.T) {
	movements := []movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 100, ToLocationID: 7}),
		{ID: 2, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 999, ToLocationID: 7, Status: movement.StatusPending},
		{ID: 3, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 500, ToLocationID: 7, Status: movement.StatusRejected},
	}
	rows := Reconstruct(Query{LocationID: 7, From: day("2025-04-01"), To: day("2025-04-01")}, movements)
	require.Len(t, rows, 1)
	require.Equal(t, int64(100), rows[0].ClosingBags)
}

func TestReconstructBifurcatesEarmarkedStock(t *testing.T) {
	movements := []movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 100, ToLocationID: 7}),
		// Earmark 40 free bags to outturn 9: outward from free, inward to earmarked.
		approved(movement.Movement{ID: 2, Date: day("2025-04-02"), Kind: movement.KindProductionShifting, VarietyID: 1, Bags: 40, FromLocationID: 7, ToLocationID: 7, OutturnID: 9}),
		// Production output consumes 12 paddy bags from the earmarked bucket.
		{ID: 3, Date: day("2025-04-03"), Kind: movement.KindProductionOutput, VarietyID: 1, Bags: 4, PaddyBagsDeducted: 12, FromLocationID: 7, OutturnID: 9, PackagingID: 2, Status: movement.StatusApproved},
	}
	rows := Reconstruct(Query{LocationID: 7, From: day("2025-04-01"), To: day("2025-04-03")}, movements)

	get := func(d string, outturnID int64) Row {
		for _, r := range rows {
			if r.DateString() == d && r.OutturnID == outturnID {
				return r
			}
		}
		t.Fatalf("no row for %s outturn %d", d, outturnID)
		return Row{}
	}

	require.Equal(t, int64(100), get("2025-04-01", 0).ClosingBags)
	require.Equal(t, int64(60), get("2025-04-02", 0).ClosingBags, "free stock gives up the earmarked bags")
	require.Equal(t, int64(40), get("2025-04-02", 9).ClosingBags, "earmarked bucket receives them at the same location")
	require.Equal(t, int64(28), get("2025-04-03", 9).ClosingBags, "output draws the paddy deduction, not face bags")
	require.Equal(t, int64(60), get("2025-04-03", 0).ClosingBags, "free stock untouched by output")
}

func TestReconstructFiltersVariety(t *testing.T) {
	movements := []movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 100, ToLocationID: 7}),
		approved(movement.Movement{ID: 2, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 2, Bags: 80, ToLocationID: 7}),
	}
	rows := Reconstruct(Query{LocationID: 7, VarietyID: 2, From: day("2025-04-01"), To: day("2025-04-01")}, movements)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].VarietyID)
	require.Equal(t, int64(80), rows[0].ClosingBags)
}

func TestNegativeBalancesSurfaced(t *testing.T) {
	movements := []movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 10, ToLocationID: 7}),
		approved(movement.Movement{ID: 2, Date: day("2025-04-02"), Kind: movement.KindShifting, VarietyID: 1, Bags: 25, FromLocationID: 7, ToLocationID: 8}),
	}
	rows := Reconstruct(Query{LocationID: 7, From: day("2025-04-01"), To: day("2025-04-02")}, movements)
	require.Equal(t, int64(-15), rows[len(rows)-1].ClosingBags, "negative balances reported, not clamped")

	issues := NegativeBalances(rows)
	require.Len(t, issues, 1)
	require.Equal(t, "2025-04-02", issues[0].Date)
	require.Contains(t, issues[0].Detail, "-15")
}

func TestShiftingConservesBagsAcrossLocations(t *testing.T) {
	movements := []movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 100, ToLocationID: 7}),
		approved(movement.Movement{ID: 2, Date: day("2025-04-02"), Kind: movement.KindShifting, VarietyID: 1, Bags: 30, FromLocationID: 7, ToLocationID: 8}),
	}
	q := Query{From: day("2025-04-01"), To: day("2025-04-02")}

	q.LocationID = 7
	src := Reconstruct(q, movements)
	q.LocationID = 8
	dst := Reconstruct(q, movements)

	require.Equal(t, int64(70), src[len(src)-1].ClosingBags)
	require.Equal(t, int64(30), dst[len(dst)-1].ClosingBags)
}
