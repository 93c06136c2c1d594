package inventory

import (
	"context"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

const (
	defaultMovementLimit = 100
	maxMovementLimit     = 500
)

// GetLowStockProducts devuelve los registros con quantity <= umbral.
// thresholdOverride reemplaza el umbral de cada registro cuando no es nil.
func (s *StockService) GetLowStockProducts(ctx context.Context, thresholdOverride *int) ([]entity.StockRecord, error) {
	if thresholdOverride != nil && *thresholdOverride < 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.stocks.FindLowStockProducts(ctx, thresholdOverride)
}

// GetInventoryDiscrepancies recalcula Σ quantity_change por (variación, sucursal) y devuelve
// los registros cuyo stock almacenado no coincide.
func (s *StockService) GetInventoryDiscrepancies(ctx context.Context, branchID string) ([]repository.Discrepancy, error) {
	if branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.stocks.FindDiscrepancies(ctx, branchID)
}

// ListMovements lista el log de movimientos de (variación, sucursal), más reciente primero.
func (s *StockService) ListMovements(ctx context.Context, variationID, branchID string, limit int) ([]*entity.StockMovement, error) {
	if variationID == "" || branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	if limit > maxMovementLimit {
		limit = maxMovementLimit
	}
	return s.movements.ListByStock(ctx, variationID, branchID, limit)
}
