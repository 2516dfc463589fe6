package ricestock

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/shared"
)

// RepositoryPort abstracts storage for the service.
type RepositoryPort interface {
	ListByLocation(ctx context.Context, locationCode string, until time.Time) ([]Movement, error)
	Insert(ctx context.Context, m Movement) (int64, error)
}

// PackagingSource resolves packaging weights.
type PackagingSource interface {
	GetPackaging(ctx context.Context, id int64) (masterdata.Packaging, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker serializes writes per location and packaging.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Service coordinates the finished-goods ledger.
type Service struct {
	repo       RepositoryPort
	packagings PackagingSource
	audit      AuditPort
	locker     Locker
	logger     *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, packagings PackagingSource, audit AuditPort, locker Locker, logger *slog.Logger) *Service {
	return &Service{repo: repo, packagings: packagings, audit: audit, locker: locker, logger: logger}
}

// LedgerQuery selects a finished-goods ledger page.
type LedgerQuery struct {
	LocationCode string
	ProductType  string
	From         time.Time
	To           time.Time
	Page         int
	Limit        int
}

// Validate checks the query.
func (q LedgerQuery) Validate() error {
	if q.LocationCode == "" {
		return shared.NewValidationError("location_code", "required")
	}
	if q.From.IsZero() || q.To.IsZero() {
		return shared.NewValidationError("date", "window required")
	}
	if q.To.Before(q.From) {
		return shared.NewValidationError("date", "date_from must not be after date_to")
	}
	return nil
}

// KeyBalance pairs a balance stream with its opening figure.
type KeyBalance struct {
	Key         Key   `json:"key"`
	OpeningBags int64 `json:"opening_bags"`
}

// LedgerPage is one page of the running-balance ledger.
type LedgerPage struct {
	Opening    []KeyBalance      `json:"opening_balances"`
	Entries    []Entry           `json:"entries"`
	Totals     map[Kind]int64    `json:"totals"`
	Pagination shared.Pagination `json:"pagination"`
}

// Ledger reconstructs the running-balance ledger for the location and
// paginates the entry list. Totals cover the whole filtered window, not just
// the page. Sorting is stable by (date, id), so identical queries return
// identical pages.
func (s *Service) Ledger(ctx context.Context, q LedgerQuery) (LedgerPage, error) {
	if err := q.Validate(); err != nil {
		return LedgerPage{}, err
	}
	movements, err := s.repo.ListByLocation(ctx, q.LocationCode, q.To)
	if err != nil {
		return LedgerPage{}, fmt.Errorf("ricestock: list movements: %w", err)
	}
	var filter KeyFilter
	if q.ProductType != "" {
		productType := q.ProductType
		filter = func(k Key) bool { return k.ProductType == productType }
	}
	opening := OpeningBalances(movements, filter, q.From)
	entries := RunningEntries(opening, movements, filter, q.From, q.To)
	totals := Totals(entries)

	pagination := shared.NewPagination(q.Page, q.Limit, len(entries))
	start := pagination.Offset()
	if start > len(entries) {
		start = len(entries)
	}
	end := start + pagination.PerPage
	if end > len(entries) {
		end = len(entries)
	}

	openings := make([]KeyBalance, 0, len(opening))
	for k, v := range opening {
		openings = append(openings, KeyBalance{Key: k, OpeningBags: v})
	}
	sortKeyBalances(openings)

	return LedgerPage{
		Opening:    openings,
		Entries:    entries[start:end],
		Totals:     totals,
		Pagination: pagination,
	}, nil
}

// CreateInput captures a new finished-goods movement.
type CreateInput struct {
	Date              time.Time
	Kind              Kind
	LocationCode      string
	ProductType       string
	VarietyID         int64
	PackagingID       int64
	Bags              int64
	TargetPackagingID int64
	Note              string
	ActorID           int64
}

// Validate checks structural requirements per kind.
func (in CreateInput) Validate() error {
	if in.Date.IsZero() {
		return shared.NewValidationError("date", "required")
	}
	if in.LocationCode == "" {
		return shared.NewValidationError("location_code", "required")
	}
	if in.ProductType == "" {
		return shared.NewValidationError("product_type", "required")
	}
	if in.VarietyID == 0 {
		return shared.NewValidationError("variety_id", "required")
	}
	if in.PackagingID == 0 {
		return shared.NewValidationError("packaging_id", "required")
	}
	if in.Bags <= 0 {
		return shared.NewValidationError("bags", "must be positive")
	}
	switch in.Kind {
	case KindProduction, KindPurchase, KindSale:
	case KindPalti:
		if in.TargetPackagingID == 0 {
			return shared.NewValidationError("target_packaging_id", "required for palti")
		}
		if in.TargetPackagingID == in.PackagingID {
			return shared.NewValidationError("target_packaging_id", "must differ from source packaging")
		}
	default:
		return shared.NewValidationError("movement_type", "unknown movement type")
	}
	return nil
}

// CreateResult is the created movement plus, for palti, its loss breakdown.
type CreateResult struct {
	Movement Movement
	Palti    *PaltiBreakdown
}

// Create validates and appends a finished-goods movement. Sales and palti
// conversions are gated on the running balance at the movement date; a
// rejected request writes nothing.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if err := in.Validate(); err != nil {
		return CreateResult{}, err
	}
	sourcePackaging, err := s.packagings.GetPackaging(ctx, in.PackagingID)
	if err != nil {
		return CreateResult{}, err
	}

	m := Movement{
		Date:         shared.DateOnly(in.Date),
		Kind:         in.Kind,
		LocationCode: in.LocationCode,
		ProductType:  in.ProductType,
		VarietyID:    in.VarietyID,
		PackagingID:  in.PackagingID,
		Bags:         in.Bags,
		Note:         in.Note,
		CreatedBy:    in.ActorID,
	}
	m.QuantityQuintals = decimal.NewFromInt(in.Bags).Mul(sourcePackaging.KgPerBag).Div(decimal.NewFromInt(100))

	var breakdown *PaltiBreakdown
	if in.Kind == KindPalti {
		targetPackaging, err := s.packagings.GetPackaging(ctx, in.TargetPackagingID)
		if err != nil {
			return CreateResult{}, err
		}
		b, err := ComputePalti(in.Bags, sourcePackaging.KgPerBag, targetPackaging.KgPerBag)
		if err != nil {
			return CreateResult{}, err
		}
		breakdown = &b
		m.TargetPackagingID = in.TargetPackagingID
		m.TargetBags = b.TargetBags
		m.ShortageKg = b.ShortageKg
	}

	key := Key{LocationCode: in.LocationCode, ProductType: in.ProductType, VarietyID: in.VarietyID, PackagingID: in.PackagingID}
	err = s.withLock(ctx, shared.RiceStockLockKey(in.LocationCode, in.PackagingID), func(ctx context.Context) error {
		if in.Kind == KindSale || in.Kind == KindPalti {
			// Balance is re-read under the lock so two concurrent debits
			// cannot both pass the gate.
			movements, err := s.repo.ListByLocation(ctx, in.LocationCode, m.Date)
			if err != nil {
				return err
			}
			available := BalanceAt(movements, key, m.Date)
			if in.Bags > available {
				return &shared.CapacityError{
					Available: available,
					Requested: in.Bags,
					Key:       fmt.Sprintf("%s/%s/packaging:%d", key.LocationCode, key.ProductType, key.PackagingID),
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
		return CreateResult{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "ricestock:" + string(in.Kind),
			Entity:   "rice_movement",
			EntityID: fmt.Sprintf("%d", m.ID),
			Meta: map[string]any{
				"location_code": in.LocationCode,
				"product_type":  in.ProductType,
				"bags":          in.Bags,
				"date":          m.Date.Format("2006-01-02"),
			},
		})
	}
	return CreateResult{Movement: m, Palti: breakdown}, nil
}

func (s *Service) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, key, fn)
}

func sortKeyBalances(balances []KeyBalance) {
	sort.Slice(balances, func(i, j int) bool {
		a, b := balances[i].Key, balances[j].Key
		if a.ProductType != b.ProductType {
			return a.ProductType < b.ProductType
		}
		if a.VarietyID != b.VarietyID {
			return a.VarietyID < b.VarietyID
		}
		return a.PackagingID < b.PackagingID
	})
}
