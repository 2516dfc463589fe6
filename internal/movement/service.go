package movement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, m Movement) (int64, error)
	GetByID(ctx context.Context, id int64) (Movement, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	ListPending(ctx context.Context, limit int) ([]Movement, error)
}

// ProductionGate validates production-output entries against outturn
// availability and computes the paddy deduction.
type ProductionGate interface {
	Deduction(ctx context.Context, bags int64, packagingID int64) (decimal.Decimal, int64, error)
	AvailableBags(ctx context.Context, outturnID int64, asOf time.Time) (int64, error)
	IsCleared(ctx context.Context, outturnID int64) (bool, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort persists approval history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Locker serializes writes per aggregate key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// RecomputeEnqueuer requests a ledger recompute for a location from a date
// onward, typically after an approval shifts downstream balances.
type RecomputeEnqueuer interface {
	EnqueueLedgerRecompute(ctx context.Context, locationID int64, from time.Time) error
}

// Service coordinates movement creation and the approval gate.
type Service struct {
	repo        RepositoryPort
	gate        ProductionGate
	audit       AuditPort
	approvals   ApprovalPort
	idempotency *shared.IdempotencyStore
	locker      Locker
	recompute   RecomputeEnqueuer
	logger      *slog.Logger
}

// NewService builds Service. gate, audit, approvals, idempotency, locker and
// recompute may be nil in tests.
func NewService(repo RepositoryPort, gate ProductionGate, audit AuditPort, approvals ApprovalPort,
	idem *shared.IdempotencyStore, locker Locker, recompute RecomputeEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, gate: gate, audit: audit, approvals: approvals,
		idempotency: idem, locker: locker, recompute: recompute, logger: logger}
}

// CreateInput captures a new movement entry.
type CreateInput struct {
	Date           time.Time
	Kind           Kind
	VarietyID      int64
	Bags           int64
	NetWeightKg    decimal.Decimal
	FromLocationID int64
	ToLocationID   int64
	OutturnID      int64
	PackagingID    int64
	Note           string
	ActorID        int64
	IdempotencyKey string
}

// Validate checks structural requirements per kind.
func (in CreateInput) Validate() error {
	if in.Date.IsZero() {
		return shared.NewValidationError("date", "required")
	}
	if in.VarietyID == 0 {
		return shared.NewValidationError("variety_id", "required")
	}
	if in.Bags <= 0 {
		return shared.NewValidationError("bags", "must be positive")
	}
	switch in.Kind {
	case KindPurchase:
		if in.ToLocationID == 0 {
			return shared.NewValidationError("to_location_id", "required for purchase")
		}
	case KindShifting:
		if in.FromLocationID == 0 || in.ToLocationID == 0 {
			return shared.NewValidationError("location", "shifting requires source and destination")
		}
		if in.FromLocationID == in.ToLocationID {
			return shared.NewValidationError("location", "source and destination must differ")
		}
	case KindProductionShifting:
		if in.FromLocationID == 0 || in.OutturnID == 0 || in.ToLocationID == 0 {
			return shared.NewValidationError("outturn_id", "production shifting requires source warehouse and outturn")
		}
	case KindProductionOutput:
		if in.OutturnID == 0 || in.PackagingID == 0 || in.FromLocationID == 0 {
			return shared.NewValidationError("outturn_id", "production output requires outturn and packaging")
		}
	case KindLoose:
		if in.FromLocationID == 0 && in.ToLocationID == 0 {
			return shared.NewValidationError("location", "loose entry requires a location")
		}
	default:
		return shared.NewValidationError("kind", "unknown movement kind")
	}
	return nil
}

// Create validates and appends a movement. Gated kinds start PENDING; the
// production-output capacity gate runs before anything is written, so a
// rejected entry leaves no record.
func (s *Service) Create(ctx context.Context, in CreateInput) (Movement, error) {
	if err := in.Validate(); err != nil {
		return Movement{}, err
	}

	m := Movement{
		Date:           shared.DateOnly(in.Date),
		Kind:           in.Kind,
		VarietyID:      in.VarietyID,
		Bags:           in.Bags,
		NetWeightKg:    in.NetWeightKg,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		OutturnID:      in.OutturnID,
		PackagingID:    in.PackagingID,
		Note:           in.Note,
		CreatedBy:      in.ActorID,
	}
	if in.Kind.Gated() {
		m.Status = StatusPending
	} else {
		m.Status = StatusApproved
	}

	if in.Kind == KindProductionOutput {
		if s.gate == nil {
			return Movement{}, fmt.Errorf("movement: production gate not configured")
		}
		quintals, deducted, err := s.gate.Deduction(ctx, in.Bags, in.PackagingID)
		if err != nil {
			return Movement{}, err
		}
		m.QuantityQuintals = quintals
		m.PaddyBagsDeducted = deducted
	}

	insertedKey := false
	if s.idempotency != nil && in.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, in.IdempotencyKey, "movement"); err != nil {
			return Movement{}, err
		}
		insertedKey = true
	}

	// Production output serializes on the outturn, the same key clearing
	// holds, so the cleared check and the availability gate cannot race a
	// concurrent clear.
	key := shared.StockLockKey(lockLocation(m), m.VarietyID)
	if m.Kind == KindProductionOutput {
		key = shared.OutturnLockKey(m.OutturnID)
	}
	err := s.withLock(ctx, key, func(ctx context.Context) error {
		if m.Kind == KindProductionOutput {
			cleared, err := s.gate.IsCleared(ctx, m.OutturnID)
			if err != nil {
				return err
			}
			if cleared {
				return &shared.StateError{Entity: "outturn", From: "CLEARED", Op: "record production output"}
			}
			// Availability is re-read under the lock so two concurrent
			// entries cannot both pass the gate.
			available, err := s.gate.AvailableBags(ctx, m.OutturnID, m.Date)
			if err != nil {
				return err
			}
			if m.PaddyBagsDeducted > available {
				return &shared.CapacityError{
					Available: available,
					Requested: m.PaddyBagsDeducted,
					Key:       fmt.Sprintf("outturn:%d", m.OutturnID),
				}
			}
		}
		id, err := s.repo.Insert(ctx, m)
		if err != nil {
			return err
		}
		m.ID = id
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, in.IdempotencyKey)
		}
		return Movement{}, err
	}

	s.recordAudit(ctx, in.ActorID, "movement:create", m)
	return m, nil
}

// Approve transitions a pending movement to APPROVED and schedules a ledger
// recompute for every location the movement touches.
func (s *Service) Approve(ctx context.Context, id, actorID int64) error {
	return s.decide(ctx, id, actorID, StatusApproved, "")
}

// Reject transitions a pending movement to REJECTED. Rejected movements are
// terminal; resubmission is a new record.
func (s *Service) Reject(ctx context.Context, id, actorID int64, reason string) error {
	return s.decide(ctx, id, actorID, StatusRejected, reason)
}

func (s *Service) decide(ctx context.Context, id, actorID int64, target Status, note string) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !m.Kind.Gated() {
		return &shared.StateError{Entity: "movement", From: string(m.Status), Op: "approve ungated kind"}
	}
	if err := Transition(m.Status, target); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusPending, target); err != nil {
		return err
	}
	if s.approvals != nil {
		action := shared.ApprovalApprove
		if target == StatusRejected {
			action = shared.ApprovalReject
		}
		_ = s.approvals.Record(ctx, shared.ApprovalLog{MovementID: id, ActorID: actorID, Action: action, Note: note})
	}
	s.recordAudit(ctx, actorID, "movement:"+string(target), m)
	if target == StatusApproved && s.recompute != nil {
		for _, loc := range []int64{m.FromLocationID, m.ToLocationID} {
			if loc == 0 {
				continue
			}
			if err := s.recompute.EnqueueLedgerRecompute(ctx, loc, m.Date); err != nil && s.logger != nil {
				s.logger.Warn("enqueue ledger recompute", slog.Any("error", err))
			}
		}
	}
	return nil
}

// BulkApprove decides each id independently; one failure never blocks the
// rest.
func (s *Service) BulkApprove(ctx context.Context, ids []int64, actorID int64) []BulkOutcome {
	return s.bulkDecide(ctx, ids, actorID, StatusApproved, "")
}

// BulkReject rejects each id independently.
func (s *Service) BulkReject(ctx context.Context, ids []int64, actorID int64, reason string) []BulkOutcome {
	return s.bulkDecide(ctx, ids, actorID, StatusRejected, reason)
}

func (s *Service) bulkDecide(ctx context.Context, ids []int64, actorID int64, target Status, note string) []BulkOutcome {
	outcomes := make([]BulkOutcome, 0, len(ids))
	for _, id := range ids {
		outcome := BulkOutcome{MovementID: id, OK: true}
		if err := s.decide(ctx, id, actorID, target, note); err != nil {
			outcome.OK = false
			outcome.Error = shared.UserSafeMessage(err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// ListPending returns movements awaiting decision.
func (s *Service) ListPending(ctx context.Context, limit int) ([]Movement, error) {
	return s.repo.ListPending(ctx, limit)
}

func (s *Service) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, key, fn)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, m Movement) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "movement",
		EntityID: fmt.Sprintf("%d", m.ID),
		Meta: map[string]any{
			"kind":       string(m.Kind),
			"date":       m.Date.Format("2006-01-02"),
			"variety_id": m.VarietyID,
			"bags":       m.Bags,
		},
	})
}

// lockLocation picks the aggregate the write serializes on: the destination
// when present, otherwise the source.
func lockLocation(m Movement) int64 {
	if m.ToLocationID != 0 {
		return m.ToLocationID
	}
	return m.FromLocationID
}
