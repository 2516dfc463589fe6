package movement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// Repository persists paddy movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// effectivePredicate selects movements that contribute to balances: ungated
// kinds always, gated kinds only once approved.
const effectivePredicate = `(kind NOT IN ('PURCHASE','SHIFTING','PRODUCTION_SHIFTING') OR status = 'APPROVED')`

const movementColumns = `id, date, kind, variety_id, bags, net_weight_kg, quantity_quintals, paddy_bags_deducted,
COALESCE(from_location_id, 0), COALESCE(to_location_id, 0), COALESCE(outturn_id, 0), COALESCE(packaging_id, 0),
status, note, created_by, created_at`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	var kind, status string
	err := row.Scan(&m.ID, &m.Date, &kind, &m.VarietyID, &m.Bags, &m.NetWeightKg, &m.QuantityQuintals,
		&m.PaddyBagsDeducted, &m.FromLocationID, &m.ToLocationID, &m.OutturnID, &m.PackagingID,
		&status, &m.Note, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return Movement{}, err
	}
	m.Kind = Kind(kind)
	m.Status = Status(status)
	return m, nil
}

func collectMovements(rows pgx.Rows) ([]Movement, error) {
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Insert appends a new movement record and returns its id.
func (r *Repository) Insert(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO movements
(date, kind, variety_id, bags, net_weight_kg, quantity_quintals, paddy_bags_deducted,
 from_location_id, to_location_id, outturn_id, packaging_id, status, note, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
RETURNING id`,
		m.Date, string(m.Kind), m.VarietyID, m.Bags, m.NetWeightKg, m.QuantityQuintals, m.PaddyBagsDeducted,
		nullID(m.FromLocationID), nullID(m.ToLocationID), nullID(m.OutturnID), nullID(m.PackagingID),
		string(m.Status), m.Note, m.CreatedBy).Scan(&id)
	return id, err
}

// GetByID fetches one movement.
func (r *Repository) GetByID(ctx context.Context, id int64) (Movement, error) {
	m, err := scanMovement(r.pool.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, shared.ErrNotFound
		}
		return Movement{}, err
	}
	return m, nil
}

// UpdateStatus transitions a movement out of `from`. A movement already in a
// terminal state yields a StateError; a missing id yields ErrNotFound.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE movements SET status=$1 WHERE id=$2 AND status=$3`,
		string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return &shared.StateError{Entity: "movement", From: string(current.Status), Op: "transition to " + string(to)}
	}
	return nil
}

// ListEffectiveByLocation returns effective movements touching the location
// as source or destination, dated up to and including `until`, ordered by
// (date, id).
func (r *Repository) ListEffectiveByLocation(ctx context.Context, locationID int64, until time.Time) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+movementColumns+`
FROM movements
WHERE (from_location_id=$1 OR to_location_id=$1) AND date <= $2 AND `+effectivePredicate+`
ORDER BY date ASC, id ASC`, locationID, until)
	if err != nil {
		return nil, err
	}
	return collectMovements(rows)
}

// FirstMovementDate returns the date of the earliest effective movement
// touching the location. ok is false when no movement exists.
func (r *Repository) FirstMovementDate(ctx context.Context, locationID int64) (time.Time, bool, error) {
	// MIN over zero rows yields a single NULL row, never ErrNoRows, so the
	// scan goes through a nullable pointer.
	var first *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MIN(date) FROM movements
WHERE (from_location_id=$1 OR to_location_id=$1) AND `+effectivePredicate, locationID).Scan(&first)
	if err != nil {
		return time.Time{}, false, err
	}
	if first == nil {
		return time.Time{}, false, nil
	}
	return *first, true, nil
}

// ListPending returns movements awaiting an approval decision, oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+movementColumns+`
FROM movements WHERE status='PENDING' ORDER BY date ASC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectMovements(rows)
}

// SumShiftedBags totals effective production-shifting bags landing on the
// outturn within [from, to].
func (r *Repository) SumShiftedBags(ctx context.Context, outturnID int64, from, to time.Time) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(bags), 0) FROM movements
WHERE kind='PRODUCTION_SHIFTING' AND outturn_id=$1 AND date BETWEEN $2 AND $3 AND `+effectivePredicate,
		outturnID, from, to).Scan(&total)
	return total, err
}

// SumConsumedBags totals paddy bags deducted by production output against the
// outturn within [from, to].
func (r *Repository) SumConsumedBags(ctx context.Context, outturnID int64, from, to time.Time) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(paddy_bags_deducted), 0) FROM movements
WHERE kind='PRODUCTION_OUTPUT' AND outturn_id=$1 AND date BETWEEN $2 AND $3`, outturnID, from, to).Scan(&total)
	return total, err
}

func nullID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
