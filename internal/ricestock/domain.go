// Package ricestock keeps the finished-goods movement ledger: packaged rice
// stock per (location, product type, variety, packaging), with running
// balances and the palti conversion arithmetic. Finished-goods movements are
// effective on creation; there is no approval gate on this side.
package ricestock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// Kind enumerates finished-goods movement kinds.
type Kind string

const (
	// KindProduction credits freshly milled stock.
	KindProduction Kind = "PRODUCTION"
	// KindPurchase credits bought-in finished stock.
	KindPurchase Kind = "PURCHASE"
	// KindSale debits sold stock.
	KindSale Kind = "SALE"
	// KindPalti repackages stock from one bag size to another, with a
	// rounding loss ("shortage") that is reported but never credited back.
	KindPalti Kind = "PALTI"
)

// Movement is an immutable finished-goods fact. For palti, PackagingID is
// the source packaging and the Target fields describe the produced side.
type Movement struct {
	ID                int64
	Date              time.Time
	Kind              Kind
	LocationCode      string
	ProductType       string
	VarietyID         int64
	PackagingID       int64
	Bags              int64
	QuantityQuintals  decimal.Decimal
	TargetPackagingID int64
	TargetBags        int64
	ShortageKg        decimal.Decimal
	Note              string
	CreatedBy         int64
	CreatedAt         time.Time
}

// Key identifies one running-balance stream.
type Key struct {
	LocationCode string `json:"location_code"`
	ProductType  string `json:"product_type"`
	VarietyID    int64  `json:"variety_id"`
	PackagingID  int64  `json:"packaging_id"`
}

// PaltiBreakdown is the loss arithmetic of one conversion. Only whole target
// bags are produced; the remainder leaves the stock as physical shortage.
type PaltiBreakdown struct {
	TotalKg         decimal.Decimal `json:"total_kg"`
	TargetBagsExact decimal.Decimal `json:"target_bags_exact"`
	TargetBags      int64           `json:"target_bags"`
	ShortageKg      decimal.Decimal `json:"shortage_kg"`
	ShortageBags    decimal.Decimal `json:"shortage_bags"`
	ShortagePct     decimal.Decimal `json:"shortage_percentage"`
}

// ComputePalti derives the conversion of sourceBags of a sourceKgPerBag
// packaging into a targetKgPerBag packaging.
func ComputePalti(sourceBags int64, sourceKgPerBag, targetKgPerBag decimal.Decimal) (PaltiBreakdown, error) {
	if sourceBags <= 0 {
		return PaltiBreakdown{}, shared.NewValidationError("bags", "must be positive")
	}
	if !sourceKgPerBag.IsPositive() || !targetKgPerBag.IsPositive() {
		return PaltiBreakdown{}, shared.NewValidationError("packaging", "kg per bag must be positive")
	}
	totalKg := decimal.NewFromInt(sourceBags).Mul(sourceKgPerBag)
	exact := totalKg.Div(targetKgPerBag)
	targetBags := exact.Floor().IntPart()
	shortageKg := totalKg.Sub(decimal.NewFromInt(targetBags).Mul(targetKgPerBag))
	shortageBags := shortageKg.Div(targetKgPerBag)
	shortagePct := shortageKg.Div(totalKg).Mul(decimal.NewFromInt(100))
	return PaltiBreakdown{
		TotalKg:         totalKg,
		TargetBagsExact: exact,
		TargetBags:      targetBags,
		ShortageKg:      shortageKg,
		ShortageBags:    shortageBags,
		ShortagePct:     shortagePct,
	}, nil
}
