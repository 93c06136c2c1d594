package repository

import (
	"context"

	"github.com/jhoicas/stockledger/internal/domain/entity"
)

// Discrepancy compara la cantidad almacenada con la suma del log de movimientos.
type Discrepancy struct {
	VariationID    string
	BranchID       string
	StoredQuantity int
	MovementSum    int
	LayerRemaining int // suma de quantity_remaining de las capas abiertas (informativo)
}

// Difference devuelve cuánto se desvía el stock almacenado del log.
func (d Discrepancy) Difference() int {
	return d.StoredQuantity - d.MovementSum
}

// ReorderCandidate registro de stock por debajo de su punto de reorden.
type ReorderCandidate struct {
	VariationID  string
	BranchID     string
	ProductID    string
	Quantity     int
	ReorderPoint int
	LeadTimeDays int
}

// StockRepository define el puerto del ledger de stock por variación+sucursal.
// Las instancias obtenidas de un TxContext operan sobre esa transacción.
type StockRepository interface {
	// FindStockForUpdate bloquea la fila (SELECT FOR UPDATE). Devuelve domain.ErrNotFound si no existe.
	FindStockForUpdate(ctx context.Context, variationID, branchID string) (*entity.StockRecord, error)
	UpdateStockQuantity(ctx context.Context, variationID, branchID string, newQuantity int) error
	FindDiscrepancies(ctx context.Context, branchID string) ([]Discrepancy, error)
	FindProductsBelowThreshold(ctx context.Context, branchID string) ([]ReorderCandidate, error)
	// FindLowStockProducts usa el umbral de cada registro si threshold es nil.
	FindLowStockProducts(ctx context.Context, threshold *int) ([]entity.StockRecord, error)
}
