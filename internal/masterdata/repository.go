package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads master data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLocation fetches one location by id.
func (r *Repository) GetLocation(ctx context.Context, id int64) (Location, error) {
	var loc Location
	var kind string
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, kind, COALESCE(warehouse_id, 0), COALESCE(variety_id, 0)
FROM locations WHERE id=$1`, id).Scan(&loc.ID, &loc.Code, &loc.Name, &kind, &loc.WarehouseID, &loc.VarietyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, ErrLocationNotFound
		}
		return Location{}, err
	}
	loc.Kind = LocationKind(kind)
	return loc, nil
}

// ListLocations returns all locations ordered by code.
func (r *Repository) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, kind, COALESCE(warehouse_id, 0), COALESCE(variety_id, 0)
FROM locations ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var locations []Location
	for rows.Next() {
		var loc Location
		var kind string
		if err := rows.Scan(&loc.ID, &loc.Code, &loc.Name, &kind, &loc.WarehouseID, &loc.VarietyID); err != nil {
			return nil, err
		}
		loc.Kind = LocationKind(kind)
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// GetPackaging fetches one packaging by id.
func (r *Repository) GetPackaging(ctx context.Context, id int64) (Packaging, error) {
	var p Packaging
	err := r.pool.QueryRow(ctx, `SELECT id, brand_name, kg_per_bag FROM packagings WHERE id=$1`, id).
		Scan(&p.ID, &p.BrandName, &p.KgPerBag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Packaging{}, ErrPackagingNotFound
		}
		return Packaging{}, err
	}
	return p, nil
}

// ListPackagings returns all packagings ordered by brand name.
func (r *Repository) ListPackagings(ctx context.Context) ([]Packaging, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, brand_name, kg_per_bag FROM packagings ORDER BY brand_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var packagings []Packaging
	for rows.Next() {
		var p Packaging
		if err := rows.Scan(&p.ID, &p.BrandName, &p.KgPerBag); err != nil {
			return nil, err
		}
		packagings = append(packagings, p)
	}
	return packagings, rows.Err()
}

// GetVariety fetches one variety by id.
func (r *Repository) GetVariety(ctx context.Context, id int64) (Variety, error) {
	var v Variety
	err := r.pool.QueryRow(ctx, `SELECT id, code, name FROM varieties WHERE id=$1`, id).Scan(&v.ID, &v.Code, &v.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Variety{}, errors.New("masterdata: variety not found")
		}
		return Variety{}, err
	}
	return v, nil
}

// ListVarieties returns all varieties ordered by code.
func (r *Repository) ListVarieties(ctx context.Context) ([]Variety, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name FROM varieties ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var varieties []Variety
	for rows.Next() {
		var v Variety
		if err := rows.Scan(&v.ID, &v.Code, &v.Name); err != nil {
			return nil, err
		}
		varieties = append(varieties, v)
	}
	return varieties, rows.Err()
}

// GetOutturn fetches one outturn by id.
func (r *Repository) GetOutturn(ctx context.Context, id int64) (Outturn, error) {
	var o Outturn
	var typ string
	err := r.pool.QueryRow(ctx, `SELECT id, code, warehouse_id, variety_id, type, date, is_cleared, cleared_at
FROM outturns WHERE id=$1`, id).Scan(&o.ID, &o.Code, &o.WarehouseID, &o.VarietyID, &typ, &o.Date, &o.IsCleared, &o.ClearedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Outturn{}, ErrOutturnNotFound
		}
		return Outturn{}, err
	}
	o.Type = OutturnType(typ)
	return o, nil
}

// ListOutturns returns outturns, newest first.
func (r *Repository) ListOutturns(ctx context.Context, includeCleared bool) ([]Outturn, error) {
	query := `SELECT id, code, warehouse_id, variety_id, type, date, is_cleared, cleared_at
FROM outturns`
	if !includeCleared {
		query += ` WHERE NOT is_cleared`
	}
	query += ` ORDER BY date DESC, id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var outturns []Outturn
	for rows.Next() {
		var o Outturn
		var typ string
		if err := rows.Scan(&o.ID, &o.Code, &o.WarehouseID, &o.VarietyID, &typ, &o.Date, &o.IsCleared, &o.ClearedAt); err != nil {
			return nil, err
		}
		o.Type = OutturnType(typ)
		outturns = append(outturns, o)
	}
	return outturns, rows.Err()
}

// OutturnCodes resolves outturn ids to codes for ledger row tagging.
func (r *Repository) OutturnCodes(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code FROM outturns WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	codes := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		codes[id] = code
	}
	return codes, rows.Err()
}
