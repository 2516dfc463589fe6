package ricestock

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testKey(packagingID int64) Key {
	return Key{LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: packagingID}
}

func TestComputePalti(t *testing.T) {
	// 100 bags of 50kg into 26kg bags: 5000kg total, 192 whole bags, 8kg short.
	b, err := ComputePalti(100, decimal.NewFromInt(50), decimal.NewFromInt(26))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(5000).Equal(b.TotalKg))
	require.Equal(t, int64(192), b.TargetBags)
	require.True(t, decimal.NewFromInt(8).Equal(b.ShortageKg))
	require.True(t, decimal.NewFromFloat(0.16).Equal(b.ShortagePct.Round(2)))

	// Exact conversion leaves no shortage.
	b, err = ComputePalti(13, decimal.NewFromInt(50), decimal.NewFromInt(25))
	require.NoError(t, err)
	require.Equal(t, int64(26), b.TargetBags)
	require.True(t, b.ShortageKg.IsZero())

	_, err = ComputePalti(0, decimal.NewFromInt(50), decimal.NewFromInt(26))
	require.Error(t, err)
	_, err = ComputePalti(10, decimal.Zero, decimal.NewFromInt(26))
	require.Error(t, err)
}

func TestPaltiDeltasNeverCreditShortage(t *testing.T) {
	m := Movement{
		ID: 1, Date: day("2025-04-10"), Kind: KindPalti,
		LocationCode: "MILL", ProductType: "RICE", VarietyID: 1,
		PackagingID: 1, Bags: 100, TargetPackagingID: 2, TargetBags: 192,
		ShortageKg: decimal.NewFromInt(8),
	}
	deltas := movementDeltas(m)
	require.Len(t, deltas, 2)
	require.Equal(t, int64(-100), deltas[0].bags)
	require.Equal(t, testKey(1), deltas[0].key)
	require.Equal(t, int64(192), deltas[1].bags)
	require.Equal(t, testKey(2), deltas[1].key)
}

func TestOpeningBalancesAreStrictlyBefore(t *testing.T) {
	movements := []Movement{
		{ID: 1, Date: day("2025-04-01"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 100},
		{ID: 2, Date: day("2025-04-05"), Kind: KindSale, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 30},
		{ID: 3, Date: day("2025-04-10"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 20},
	}
	opening := OpeningBalances(movements, nil, day("2025-04-10"))
	require.Equal(t, int64(70), opening[testKey(1)], "the window-start day itself is not part of the opening")
}

func TestRunningEntriesChainBalances(t *testing.T) {
	movements := []Movement{
		{ID: 1, Date: day("2025-03-20"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 40},
		{ID: 2, Date: day("2025-04-02"), Kind: KindPurchase, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 10},
		{ID: 3, Date: day("2025-04-02"), Kind: KindSale, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 25},
	}
	opening := OpeningBalances(movements, nil, day("2025-04-01"))
	entries := RunningEntries(opening, movements, nil, day("2025-04-01"), day("2025-04-30"))
	require.Len(t, entries, 2)
	require.Equal(t, int64(50), entries[0].RunningBalance, "seeded from the 40-bag opening")
	require.Equal(t, int64(25), entries[1].RunningBalance)
	require.Equal(t, int64(-25), entries[1].DeltaBags)
}

func TestRunningEntriesOrderIsStable(t *testing.T) {
	movements := []Movement{
		{ID: 2, Date: day("2025-04-02"), Kind: KindSale, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 5},
		{ID: 1, Date: day("2025-04-02"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 50},
		{ID: 3, Date: day("2025-04-01"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 10},
	}
	first := RunningEntries(nil, movements, nil, day("2025-04-01"), day("2025-04-30"))
	second := RunningEntries(nil, movements, nil, day("2025-04-01"), day("2025-04-30"))
	require.Equal(t, first, second)

	// (date, id) order: id 3 on the 1st, then ids 1 and 2 on the 2nd.
	require.Equal(t, int64(3), first[0].MovementID)
	require.Equal(t, int64(1), first[1].MovementID)
	require.Equal(t, int64(2), first[2].MovementID)
	require.Equal(t, int64(55), first[2].RunningBalance)
}

func TestBalanceAtIncludesTheDay(t *testing.T) {
	movements := []Movement{
		{ID: 1, Date: day("2025-04-01"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 100},
		{ID: 2, Date: day("2025-04-05"), Kind: KindSale, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 30},
	}
	require.Equal(t, int64(100), BalanceAt(movements, testKey(1), day("2025-04-04")))
	require.Equal(t, int64(70), BalanceAt(movements, testKey(1), day("2025-04-05")))
}

func TestTotalsAggregateAbsoluteBags(t *testing.T) {
	entries := RunningEntries(nil, []Movement{
		{ID: 1, Date: day("2025-04-01"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 100},
		{ID: 2, Date: day("2025-04-02"), Kind: KindSale, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 30},
		{ID: 3, Date: day("2025-04-03"), Kind: KindPalti, LocationCode: "MILL", ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 50, TargetPackagingID: 2, TargetBags: 96},
	}, nil, day("2025-04-01"), day("2025-04-30"))

	totals := Totals(entries)
	require.Equal(t, int64(100), totals[KindProduction])
	require.Equal(t, int64(30), totals[KindSale])
	require.Equal(t, int64(146), totals[KindPalti], "both sides of the conversion count by volume")
}
