package ricestock

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists finished-goods movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const riceMovementColumns = `id, date, kind, location_code, product_type, variety_id, packaging_id, bags,
quantity_quintals, COALESCE(target_packaging_id, 0), target_bags, shortage_kg, note, created_by, created_at`

func scanRiceMovement(row pgx.Row) (Movement, error) {
	var m Movement
	var kind string
	err := row.Scan(&m.ID, &m.Date, &kind, &m.LocationCode, &m.ProductType, &m.VarietyID, &m.PackagingID,
		&m.Bags, &m.QuantityQuintals, &m.TargetPackagingID, &m.TargetBags, &m.ShortageKg,
		&m.Note, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return Movement{}, err
	}
	m.Kind = Kind(kind)
	return m, nil
}

// ListByLocation returns all movements at the location dated up to `until`,
// ordered by (date, id).
func (r *Repository) ListByLocation(ctx context.Context, locationCode string, until time.Time) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+riceMovementColumns+`
FROM rice_movements
WHERE location_code=$1 AND date <= $2
ORDER BY date ASC, id ASC`, locationCode, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		m, err := scanRiceMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Insert appends a movement and returns its id.
func (r *Repository) Insert(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO rice_movements
(date, kind, location_code, product_type, variety_id, packaging_id, bags, quantity_quintals,
 target_packaging_id, target_bags, shortage_kg, note, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
RETURNING id`,
		m.Date, string(m.Kind), m.LocationCode, m.ProductType, m.VarietyID, m.PackagingID, m.Bags,
		m.QuantityQuintals, nullID(m.TargetPackagingID), m.TargetBags, m.ShortageKg, m.Note, m.CreatedBy).Scan(&id)
	return id, err
}

func nullID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
