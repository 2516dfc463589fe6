// Package masterdata exposes the read models the stock engine consumes:
// storage locations, grain varieties, packaging brands and outturns.
// Creation and editing of these records belongs to the surrounding system;
// this module only reads them.
package masterdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// LocationKind enumerates storage location categories.
type LocationKind string

const (
	// KindWarehouse is a plain warehouse holding free stock.
	KindWarehouse LocationKind = "WAREHOUSE"
	// KindKunchinittu is a sub-storage cell inside a warehouse, bound to one variety.
	KindKunchinittu LocationKind = "KUNCHINITTU"
	// KindOutturn is a dated production batch acting as a stock-holding location until cleared.
	KindOutturn LocationKind = "OUTTURN"
)

// Location is an immutable reference identity; only its balances change.
type Location struct {
	ID          int64
	Code        string
	Name        string
	Kind        LocationKind
	WarehouseID int64 // parent warehouse for kunchinittu and outturn cells
	VarietyID   int64 // bound variety for kunchinittu cells
}

// Variety is a grain variety.
type Variety struct {
	ID   int64
	Code string
	Name string
}

// Packaging describes a bag brand and its weight per bag.
type Packaging struct {
	ID        int64
	BrandName string
	KgPerBag  decimal.Decimal
}

// OutturnType distinguishes raw from steam paddy batches.
type OutturnType string

const (
	// OutturnRaw is a raw paddy batch.
	OutturnRaw OutturnType = "RAW"
	// OutturnSteam is a steam paddy batch.
	OutturnSteam OutturnType = "STEAM"
)

// Outturn is a dated production batch with an allotted variety.
type Outturn struct {
	ID          int64
	Code        string
	WarehouseID int64
	VarietyID   int64
	Type        OutturnType
	Date        time.Time
	IsCleared   bool
	ClearedAt   *time.Time
}

// Not-found errors wrap shared.ErrNotFound so the HTTP layer maps them to 404.
var (
	// ErrLocationNotFound occurs when a location id is unknown.
	ErrLocationNotFound = fmt.Errorf("masterdata: location %w", shared.ErrNotFound)
	// ErrPackagingNotFound occurs when a packaging id is unknown.
	ErrPackagingNotFound = fmt.Errorf("masterdata: packaging %w", shared.ErrNotFound)
	// ErrOutturnNotFound occurs when an outturn id is unknown.
	ErrOutturnNotFound = fmt.Errorf("masterdata: outturn %w", shared.ErrNotFound)
)
