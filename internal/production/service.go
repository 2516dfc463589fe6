package production

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/movement"
	"github.com/granary-erp/granary-erp/internal/shared"
)

// MovementSums provides the month-windowed aggregates availability is built
// from.
type MovementSums interface {
	SumShiftedBags(ctx context.Context, outturnID int64, from, to time.Time) (int64, error)
	SumConsumedBags(ctx context.Context, outturnID int64, from, to time.Time) (int64, error)
}

// MasterSource resolves outturns and packagings.
type MasterSource interface {
	GetOutturn(ctx context.Context, id int64) (masterdata.Outturn, error)
	GetPackaging(ctx context.Context, id int64) (masterdata.Packaging, error)
}

// ClearingRepository abstracts the transactional clearing writes.
type ClearingRepository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker serializes clearing per outturn.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// RecomputeEnqueuer schedules a ledger recompute after clearing credits
// stock back to the warehouse.
type RecomputeEnqueuer interface {
	EnqueueLedgerRecompute(ctx context.Context, locationID int64, from time.Time) error
}

// Config groups settings.
type Config struct {
	PaddyBagsPerQuintal int
}

// Service derives outturn availability and owns the clearing transition.
type Service struct {
	repo      ClearingRepository
	sums      MovementSums
	master    MasterSource
	audit     AuditPort
	locker    Locker
	recompute RecomputeEnqueuer
	ratio     int
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo ClearingRepository, sums MovementSums, master MasterSource, audit AuditPort,
	locker Locker, recompute RecomputeEnqueuer, cfg Config, logger *slog.Logger) *Service {
	ratio := cfg.PaddyBagsPerQuintal
	if ratio <= 0 {
		ratio = DefaultPaddyBagsPerQuintal
	}
	return &Service{repo: repo, sums: sums, master: master, audit: audit,
		locker: locker, recompute: recompute, ratio: ratio, logger: logger}
}

// Availability computes the outturn's consumable bags within the calendar
// month of asOf, counting only movements dated up to asOf. Prior months
// never carry forward. A negative figure means the capacity gate was
// bypassed upstream; callers must treat it as "insufficient stock".
func (s *Service) Availability(ctx context.Context, outturnID int64, asOf time.Time) (Availability, error) {
	outturn, err := s.master.GetOutturn(ctx, outturnID)
	if err != nil {
		return Availability{}, err
	}
	asOf = shared.DateOnly(asOf)
	window := shared.MonthOf(asOf)
	shifted, err := s.sums.SumShiftedBags(ctx, outturnID, window.First, asOf)
	if err != nil {
		return Availability{}, fmt.Errorf("production: sum shifted: %w", err)
	}
	used, err := s.sums.SumConsumedBags(ctx, outturnID, window.First, asOf)
	if err != nil {
		return Availability{}, fmt.Errorf("production: sum consumed: %w", err)
	}
	return Availability{
		OutturnID:   outturnID,
		AsOf:        asOf,
		ShiftedBags: shifted,
		UsedBags:    used,
		Available:   shifted - used,
		IsCleared:   outturn.IsCleared,
		ClearedAt:   outturn.ClearedAt,
	}, nil
}

// AvailableBags implements the movement capacity gate.
func (s *Service) AvailableBags(ctx context.Context, outturnID int64, asOf time.Time) (int64, error) {
	availability, err := s.Availability(ctx, outturnID, asOf)
	if err != nil {
		return 0, err
	}
	return availability.Available, nil
}

// IsCleared implements the movement capacity gate.
func (s *Service) IsCleared(ctx context.Context, outturnID int64) (bool, error) {
	outturn, err := s.master.GetOutturn(ctx, outturnID)
	if err != nil {
		return false, err
	}
	return outturn.IsCleared, nil
}

// Deduction implements the movement capacity gate: quintals and paddy bags
// consumed by producing `bags` of the packaging.
func (s *Service) Deduction(ctx context.Context, bags int64, packagingID int64) (decimal.Decimal, int64, error) {
	packaging, err := s.master.GetPackaging(ctx, packagingID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	d := ComputeDeduction(bags, packaging.KgPerBag, s.ratio)
	return d.QuantityQuintals, d.PaddyBagsDeducted, nil
}

// Clear closes the outturn on clearDate and credits its remaining available
// bags back to the parent warehouse's free stock as an approved
// purchase-equivalent movement. One-way and irreversible: double clearing
// and clearing with nothing available are both rejected.
func (s *Service) Clear(ctx context.Context, outturnID int64, clearDate time.Time, actorID int64) (ClearResult, error) {
	if clearDate.IsZero() {
		return ClearResult{}, shared.NewValidationError("clear_date", "required")
	}
	clearDate = shared.DateOnly(clearDate)

	var result ClearResult
	err := s.withLock(ctx, shared.OutturnLockKey(outturnID), func(ctx context.Context) error {
		availability, err := s.Availability(ctx, outturnID, clearDate)
		if err != nil {
			return err
		}
		if availability.IsCleared {
			return &shared.StateError{Entity: "outturn", From: "CLEARED", Op: "clear"}
		}
		if availability.Available <= 0 {
			return &shared.StateError{Entity: "outturn", From: "OPEN", Op: fmt.Sprintf("clear with %d available bags", availability.Available)}
		}
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			outturn, err := tx.GetOutturnForUpdate(ctx, outturnID)
			if err != nil {
				return err
			}
			if outturn.IsCleared {
				return &shared.StateError{Entity: "outturn", From: "CLEARED", Op: "clear"}
			}
			if err := tx.MarkOutturnCleared(ctx, outturnID, clearDate); err != nil {
				return err
			}
			credit := movement.Movement{
				Date:         clearDate,
				Kind:         movement.KindPurchase,
				VarietyID:    outturn.VarietyID,
				Bags:         availability.Available,
				ToLocationID: outturn.WarehouseID,
				Status:       movement.StatusApproved,
				Note:         fmt.Sprintf("clearing credit from outturn %s", outturn.Code),
				CreatedBy:    actorID,
			}
			movementID, err := tx.InsertCreditMovement(ctx, credit)
			if err != nil {
				return err
			}
			result = ClearResult{
				OutturnID:    outturnID,
				ClearedAt:    clearDate,
				CreditedBags: availability.Available,
				MovementID:   movementID,
			}
			return nil
		})
	})
	if err != nil {
		return ClearResult{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "outturn:clear",
			Entity:   "outturn",
			EntityID: fmt.Sprintf("%d", outturnID),
			Meta: map[string]any{
				"cleared_at":    result.ClearedAt.Format("2006-01-02"),
				"credited_bags": result.CreditedBags,
				"movement_id":   result.MovementID,
			},
		})
	}
	if s.recompute != nil {
		outturn, err := s.master.GetOutturn(ctx, outturnID)
		if err == nil {
			if err := s.recompute.EnqueueLedgerRecompute(ctx, outturn.WarehouseID, clearDate); err != nil && s.logger != nil {
				s.logger.Warn("enqueue ledger recompute", slog.Any("error", err))
			}
		}
	}
	return result, nil
}

func (s *Service) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, key, fn)
}
