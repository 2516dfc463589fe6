package ledger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/movement"
	"github.com/granary-erp/granary-erp/internal/shared"
)

type memoryMovements struct {
	movements []movement.Movement
}

func (s *memoryMovements) ListEffectiveByLocation(ctx context.Context, locationID int64, until time.Time) ([]movement.Movement, error) {
	var out []movement.Movement
	for _, m := range s.movements {
		if m.Effective() && m.Touches(locationID) && !shared.DateOnly(m.Date).After(shared.DateOnly(until)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryMovements) FirstMovementDate(ctx context.Context, locationID int64) (time.Time, bool, error) {
	var first time.Time
	for _, m := range s.movements {
		if !m.Touches(locationID) {
			continue
		}
		if first.IsZero() || m.Date.Before(first) {
			first = m.Date
		}
	}
	return first, !first.IsZero(), nil
}

type memoryMaster struct {
	locations map[int64]masterdata.Location
	outturns  map[int64]string
}

func (s *memoryMaster) GetLocation(ctx context.Context, id int64) (masterdata.Location, error) {
	loc, ok := s.locations[id]
	if !ok {
		return masterdata.Location{}, masterdata.ErrLocationNotFound
	}
	return loc, nil
}

func (s *memoryMaster) OutturnCodes(ctx context.Context, ids []int64) (map[int64]string, error) {
	codes := make(map[int64]string, len(ids))
	for _, id := range ids {
		if code, ok := s.outturns[id]; ok {
			codes[id] = code
		}
	}
	return codes, nil
}

func newTestService(movements []movement.Movement) *Service {
	master := &memoryMaster{
		locations: map[int64]masterdata.Location{7: {ID: 7, Code: "WH-A"}},
		outturns:  map[int64]string{9: "OT-2025-01"},
	}
	return NewService(&memoryMovements{movements: movements}, master, slog.Default())
}

func TestDefaultWindowFallsBackToFirstMovement(t *testing.T) {
	svc := newTestService([]movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-03-05"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 10, ToLocationID: 7}),
	})
	now := day("2025-04-20")

	from, to, err := svc.DefaultWindow(context.Background(), 7, time.Time{}, time.Time{}, now)
	require.NoError(t, err)
	require.Equal(t, day("2025-03-05"), from)
	require.Equal(t, day("2025-04-20"), to)

	// Explicit bounds pass through untouched.
	from, to, err = svc.DefaultWindow(context.Background(), 7, day("2025-04-01"), day("2025-04-10"), now)
	require.NoError(t, err)
	require.Equal(t, day("2025-04-01"), from)
	require.Equal(t, day("2025-04-10"), to)
}

func TestDefaultWindowEmptyLocation(t *testing.T) {
	svc := newTestService(nil)
	now := day("2025-04-20")

	from, to, err := svc.DefaultWindow(context.Background(), 7, time.Time{}, time.Time{}, now)
	require.NoError(t, err)
	require.Equal(t, to, from, "no movements collapses the window to a single day")
}

func TestDailySeriesDecoratesOutturnCodes(t *testing.T) {
	svc := newTestService([]movement.Movement{
		approved(movement.Movement{ID: 1, Date: day("2025-04-01"), Kind: movement.KindPurchase, VarietyID: 1, Bags: 100, ToLocationID: 7, OutturnID: 9}),
	})

	series, err := svc.DailySeries(context.Background(), Query{LocationID: 7, From: day("2025-04-01"), To: day("2025-04-01")})
	require.NoError(t, err)
	require.Len(t, series.Rows, 1)
	require.Equal(t, int64(9), series.Rows[0].OutturnID)
	require.Equal(t, "OT-2025-01", series.Rows[0].OutturnCode)
	require.Empty(t, series.Integrity)
}

func TestDailySeriesUnknownLocation(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.DailySeries(context.Background(), Query{LocationID: 404, From: day("2025-04-01"), To: day("2025-04-01")})
	require.ErrorIs(t, err, masterdata.ErrLocationNotFound)
}

func TestDailySeriesValidatesWindow(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.DailySeries(context.Background(), Query{LocationID: 7, From: day("2025-04-10"), To: day("2025-04-01")})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}
