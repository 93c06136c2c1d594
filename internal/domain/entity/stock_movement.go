package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Motivos de movimiento de stock.
const (
	ReasonStockReceived   = "stock_received"
	ReasonStockDispatched = "stock_dispatched"
	ReasonKitting         = "kitting"
	ReasonDeKitting       = "de-kitting"
	ReasonManualCount     = "manual_count"
	ReasonDamaged         = "damaged"
	ReasonLost            = "lost"
	ReasonReturned        = "returned"
	ReasonCorrection      = "correction"
)

var validReasons = map[string]struct{}{
	ReasonStockReceived:   {},
	ReasonStockDispatched: {},
	ReasonKitting:         {},
	ReasonDeKitting:       {},
	ReasonManualCount:     {},
	ReasonDamaged:         {},
	ReasonLost:            {},
	ReasonReturned:        {},
	ReasonCorrection:      {},
}

// IsValidReason indica si el motivo pertenece al catálogo.
func IsValidReason(reason string) bool {
	_, ok := validReasons[reason]
	return ok
}

// StockMovement es un registro inmutable del log de movimientos.
// UnitCost y QuantityRemaining solo aplican a entradas (QuantityChange > 0).
type StockMovement struct {
	ID                int64
	VariationID       string
	BranchID          string
	QuantityChange    int
	Reason            string
	UserID            string
	UnitCost          *decimal.Decimal
	QuantityRemaining *int
	Reference         string // agrupa los movimientos de una misma operación (ej. armado de kit)
	CreatedAt         time.Time
}

// IsPurchaseLayer indica si el movimiento es una entrada con unidades sin consumir.
func (m StockMovement) IsPurchaseLayer() bool {
	return m.QuantityChange > 0 && m.QuantityRemaining != nil && *m.QuantityRemaining > 0
}
