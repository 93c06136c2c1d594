package inventory

import (
	"context"

	"github.com/jhoicas/stockledger/internal/domain/repository"
)

// TxContext transacción abierta por quien la construyó. Los repositorios que expone
// operan sobre ella; solo su dueño hace Commit o Rollback.
type TxContext interface {
	Stocks() repository.StockRepository
	Movements() repository.StockMovementRepository
}

// TxRunner abre una transacción, ejecuta fn y hace Commit si fn no falla (Rollback en otro caso).
// Garantiza atomicidad para el motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx TxContext) error) error
}

// LowStockAlert datos de la notificación de stock bajo.
type LowStockAlert struct {
	VariationID string
	BranchID    string
	UserID      string
	Quantity    int
	Threshold   int
}

// Notifier canal lateral best-effort para avisos de stock bajo.
type Notifier interface {
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// DemandPredictor servicio externo de pronóstico: unidades diarias esperadas para un producto.
type DemandPredictor interface {
	PredictDemand(ctx context.Context, productID string) (float64, error)
}
