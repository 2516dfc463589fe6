package ricestock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/shared"
)

type memoryRepo struct {
	movements []Movement
	nextID    int64
}

func (r *memoryRepo) ListByLocation(ctx context.Context, locationCode string, until time.Time) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.LocationCode == locationCode && !shared.DateOnly(m.Date).After(shared.DateOnly(until)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) Insert(ctx context.Context, m Movement) (int64, error) {
	r.nextID++
	m.ID = r.nextID
	r.movements = append(r.movements, m)
	return m.ID, nil
}

type fakePackagings map[int64]masterdata.Packaging

func (f fakePackagings) GetPackaging(ctx context.Context, id int64) (masterdata.Packaging, error) {
	p, ok := f[id]
	if !ok {
		return masterdata.Packaging{}, masterdata.ErrPackagingNotFound
	}
	return p, nil
}

func newTestService(repo *memoryRepo) *Service {
	packagings := fakePackagings{
		1: {ID: 1, BrandName: "Jumbo 50kg", KgPerBag: decimal.NewFromInt(50)},
		2: {ID: 2, BrandName: "Retail 26kg", KgPerBag: decimal.NewFromInt(26)},
	}
	return NewService(repo, packagings, nil, nil, nil)
}

func produce(t *testing.T, svc *Service, date string, bags int64) {
	t.Helper()
	_, err := svc.Create(context.Background(), CreateInput{
		Date: day(date), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE",
		VarietyID: 1, PackagingID: 1, Bags: bags,
	})
	require.NoError(t, err)
}

func TestCreateComputesQuintals(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateInput{
		Date: day("2025-04-01"), Kind: KindProduction, LocationCode: "MILL", ProductType: "RICE",
		VarietyID: 1, PackagingID: 1, Bags: 20,
	})
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(10).Equal(result.Movement.QuantityQuintals), "20 bags of 50kg is 10 quintals")
	require.Nil(t, result.Palti)
}

func TestSaleCapacityGate(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)
	produce(t, svc, "2025-04-01", 50)

	_, err := svc.Create(context.Background(), CreateInput{
		Date: day("2025-04-02"), Kind: KindSale, LocationCode: "MILL", ProductType: "RICE",
		VarietyID: 1, PackagingID: 1, Bags: 60,
	})
	var cerr *shared.CapacityError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, int64(50), cerr.Available, "the error carries the exact available figure")
	require.Equal(t, int64(60), cerr.Requested)
	require.Len(t, repo.movements, 1, "rejected sale writes nothing")

	_, err = svc.Create(context.Background(), CreateInput{
		Date: day("2025-04-02"), Kind: KindSale, LocationCode: "MILL", ProductType: "RICE",
		VarietyID: 1, PackagingID: 1, Bags: 50,
	})
	require.NoError(t, err)
}

func TestPaltiConversion(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)
	produce(t, svc, "2025-04-01", 100)

	result, err := svc.Create(context.Background(), CreateInput{
		Date: day("2025-04-02"), Kind: KindPalti, LocationCode: "MILL", ProductType: "RICE",
		VarietyID: 1, PackagingID: 1, Bags: 100, TargetPackagingID: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Palti)
	require.Equal(t, int64(192), result.Palti.TargetBags)
	require.True(t, decimal.NewFromInt(8).Equal(result.Palti.ShortageKg))
	require.Equal(t, int64(192), result.Movement.TargetBags)

	movements, err := repo.ListByLocation(context.Background(), "MILL", day("2025-04-30"))
	require.NoError(t, err)
	require.Equal(t, int64(0), BalanceAt(movements, testKey(1), day("2025-04-02")), "all source bags consumed")
	require.Equal(t, int64(192), BalanceAt(movements, testKey(2), day("2025-04-02")), "only whole target bags credited")
}

func TestPaltiGatedOnSourceBalance(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)
	produce(t, svc, "2025-04-01", 40)

	_, err := svc.Create(context.Background(), CreateInput{
		Date: day("2025-04-02"), Kind: KindPalti, LocationCode: "MILL", ProductType: "RICE",
		VarietyID: 1, PackagingID: 1, Bags: 100, TargetPackagingID: 2,
	})
	var cerr *shared.CapacityError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, int64(40), cerr.Available)
	require.Len(t, repo.movements, 1)
}

func TestPaltiRequiresDistinctPackagings(t *testing.T) {
	svc := newTestService(&memoryRepo{})
	_, err := svc.Create(context.Background(), CreateInput{
		Date: day("2025-04-02"), Kind: KindPalti, LocationCode: "MILL", ProductType: "RICE",
		VarietyID: 1, PackagingID: 1, Bags: 10, TargetPackagingID: 1,
	})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLedgerPagination(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo)
	produce(t, svc, "2025-04-01", 100)
	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), CreateInput{
			Date: day("2025-04-02").AddDate(0, 0, i), Kind: KindSale, LocationCode: "MILL",
			ProductType: "RICE", VarietyID: 1, PackagingID: 1, Bags: 10,
		})
		require.NoError(t, err)
	}

	q := LedgerQuery{LocationCode: "MILL", From: day("2025-04-02"), To: day("2025-04-30"), Page: 1, Limit: 2}
	page1, err := svc.Ledger(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page1.Entries, 2)
	require.Equal(t, 5, page1.Pagination.Total)
	require.Equal(t, 3, page1.Pagination.TotalPages)
	require.Equal(t, int64(100), page1.Opening[0].OpeningBags, "production on the 1st folds into the opening")
	require.Equal(t, int64(50), page1.Totals[KindSale], "totals cover the whole window, not the page")

	q.Page = 3
	page3, err := svc.Ledger(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page3.Entries, 1)
	require.Equal(t, int64(50), page3.Entries[0].RunningBalance)

	// Identical query returns identical pages.
	q.Page = 1
	again, err := svc.Ledger(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, page1.Entries, again.Entries)
}

func TestLedgerWindowValidation(t *testing.T) {
	svc := newTestService(&memoryRepo{})
	_, err := svc.Ledger(context.Background(), LedgerQuery{LocationCode: "MILL", From: day("2025-04-10"), To: day("2025-04-01")})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}
