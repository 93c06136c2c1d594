package entity

import "time"

// StockRecord representa el stock actual de una variación en una sucursal.
// Quantity siempre coincide con la suma de QuantityChange de sus movimientos.
type StockRecord struct {
	VariationID       string
	BranchID          string
	ProductID         string
	Quantity          int
	LowStockThreshold int
	ReorderPoint      int
	LeadTimeDays      int
	UpdatedAt         time.Time
}
