package repository

import (
	"context"

	"github.com/jhoicas/stockledger/internal/domain/entity"
)

// StockMovementRepository define el puerto del log de movimientos (append-only).
type StockMovementRepository interface {
	// CreateMovement persiste el movimiento y asigna ID y CreatedAt.
	CreateMovement(ctx context.Context, movement *entity.StockMovement) error
	// FindPurchaseLayers devuelve las capas abiertas de más antigua a más reciente (created_at, id).
	FindPurchaseLayers(ctx context.Context, variationID, branchID string) ([]*entity.StockMovement, error)
	// DecrementRemaining descuenta amount de quantity_remaining de la capa.
	// Devuelve domain.ErrInsufficientLayers si la capa no tiene suficiente saldo.
	DecrementRemaining(ctx context.Context, layerID int64, amount int) error
	// ListByStock lista los movimientos más recientes primero.
	ListByStock(ctx context.Context, variationID, branchID string, limit int) ([]*entity.StockMovement, error)
}
