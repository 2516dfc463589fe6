package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/movement"
	"github.com/granary-erp/granary-erp/internal/shared"
)

// MovementSource feeds the reconstructor with effective movements.
type MovementSource interface {
	ListEffectiveByLocation(ctx context.Context, locationID int64, until time.Time) ([]movement.Movement, error)
	FirstMovementDate(ctx context.Context, locationID int64) (time.Time, bool, error)
}

// MasterSource resolves location identities and outturn codes for row tagging.
type MasterSource interface {
	GetLocation(ctx context.Context, id int64) (masterdata.Location, error)
	OutturnCodes(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Service orchestrates reconstruction queries.
type Service struct {
	movements MovementSource
	master    MasterSource
	logger    *slog.Logger
	sf        singleflight.Group
}

// NewService builds Service.
func NewService(movements MovementSource, master MasterSource, logger *slog.Logger) *Service {
	return &Service{movements: movements, master: master, logger: logger}
}

// DefaultWindow resolves omitted bounds: from the first effective movement
// through now. now is injected at the API boundary; the reconstruction
// itself never reads the wall clock.
func (s *Service) DefaultWindow(ctx context.Context, locationID int64, from, to time.Time, now time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = shared.DateOnly(now)
	}
	if from.IsZero() {
		first, ok, err := s.movements.FirstMovementDate(ctx, locationID)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if !ok {
			first = to
		}
		from = shared.DateOnly(first)
	}
	return from, to, nil
}

// DailySeries reconstructs the daily balance series for the query.
// Concurrent identical queries coalesce; results are never cached beyond
// the in-flight call because movements may gain approvals at any time.
func (s *Service) DailySeries(ctx context.Context, q Query) (Series, error) {
	if err := q.Validate(); err != nil {
		return Series{}, err
	}
	if _, err := s.master.GetLocation(ctx, q.LocationID); err != nil {
		return Series{}, err
	}
	key := fmt.Sprintf("%d:%d:%s:%s", q.LocationID, q.VarietyID,
		q.From.Format("2006-01-02"), q.To.Format("2006-01-02"))
	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.reconstruct(ctx, q)
	})
	if err != nil {
		return Series{}, err
	}
	return v.(Series), nil
}

func (s *Service) reconstruct(ctx context.Context, q Query) (Series, error) {
	movements, err := s.movements.ListEffectiveByLocation(ctx, q.LocationID, q.To)
	if err != nil {
		return Series{}, fmt.Errorf("ledger: list movements: %w", err)
	}
	rows := Reconstruct(q, movements)

	outturnIDs := make(map[int64]struct{})
	for _, r := range rows {
		if r.OutturnID != 0 {
			outturnIDs[r.OutturnID] = struct{}{}
		}
	}
	if len(outturnIDs) > 0 {
		ids := make([]int64, 0, len(outturnIDs))
		for id := range outturnIDs {
			ids = append(ids, id)
		}
		codes, err := s.master.OutturnCodes(ctx, ids)
		if err != nil {
			return Series{}, fmt.Errorf("ledger: resolve outturn codes: %w", err)
		}
		for i := range rows {
			if rows[i].OutturnID != 0 {
				rows[i].OutturnCode = codes[rows[i].OutturnID]
			}
		}
	}

	issues := NegativeBalances(rows)
	for _, issue := range issues {
		s.logger.Error("negative reconstructed balance", slog.String("key", issue.Key),
			slog.String("date", issue.Date), slog.String("detail", issue.Detail))
	}
	return Series{Rows: rows, Integrity: issues}, nil
}
