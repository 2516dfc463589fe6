package production

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/movement"
)

// Repository performs the transactional writes of outturn clearing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the clearing operations that must commit atomically.
type TxRepository interface {
	GetOutturnForUpdate(ctx context.Context, id int64) (masterdata.Outturn, error)
	MarkOutturnCleared(ctx context.Context, id int64, clearedAt time.Time) error
	InsertCreditMovement(ctx context.Context, m movement.Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("production repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetOutturnForUpdate(ctx context.Context, id int64) (masterdata.Outturn, error) {
	var o masterdata.Outturn
	var typ string
	err := r.tx.QueryRow(ctx, `SELECT id, code, warehouse_id, variety_id, type, date, is_cleared, cleared_at
FROM outturns WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.Code, &o.WarehouseID, &o.VarietyID, &typ, &o.Date, &o.IsCleared, &o.ClearedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return masterdata.Outturn{}, masterdata.ErrOutturnNotFound
		}
		return masterdata.Outturn{}, err
	}
	o.Type = masterdata.OutturnType(typ)
	return o, nil
}

func (r *txRepository) MarkOutturnCleared(ctx context.Context, id int64, clearedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE outturns SET is_cleared=TRUE, cleared_at=$1 WHERE id=$2`, clearedAt, id)
	return err
}

func (r *txRepository) InsertCreditMovement(ctx context.Context, m movement.Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO movements
(date, kind, variety_id, bags, net_weight_kg, quantity_quintals, paddy_bags_deducted,
 from_location_id, to_location_id, outturn_id, packaging_id, status, note, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,$8,NULL,NULL,$9,$10,$11,NOW())
RETURNING id`,
		m.Date, string(m.Kind), m.VarietyID, m.Bags, m.NetWeightKg, m.QuantityQuintals, m.PaddyBagsDeducted,
		m.ToLocationID, string(m.Status), m.Note, m.CreatedBy).Scan(&id)
	return id, err
}
