package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, variation_id, branch_id, quantity_change, reason, user_id, unit_cost, quantity_remaining, reference, created_at`

// CreateMovement persiste un movimiento y completa ID y CreatedAt con los valores de la base.
// Las salidas se guardan sin unit_cost ni quantity_remaining.
func (r *StockMovementRepo) CreateMovement(ctx context.Context, movement *entity.StockMovement) error {
	if movement.QuantityChange == 0 {
		return domain.ErrInvalidInput
	}
	if movement.QuantityChange < 0 {
		movement.UnitCost = nil
		movement.QuantityRemaining = nil
	}
	reference := (*string)(nil)
	if movement.Reference != "" {
		reference = &movement.Reference
	}
	query := `
		INSERT INTO stock_movements (variation_id, branch_id, quantity_change, reason, user_id, unit_cost, quantity_remaining, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		movement.VariationID, movement.BranchID, movement.QuantityChange, movement.Reason,
		movement.UserID, movement.UnitCost, movement.QuantityRemaining, reference,
	).Scan(&movement.ID, &movement.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return domain.NewStorageError("create stock movement", err)
	}
	return nil
}

// FindPurchaseLayers entradas con unidades sin consumir, de la más antigua a la más nueva.
// created_at toma clock_timestamp() y cada inserción ocurre con la fila de stock bloqueada,
// así que por (variación, sucursal) sigue el orden en que se insertaron las capas.
func (r *StockMovementRepo) FindPurchaseLayers(ctx context.Context, variationID, branchID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE variation_id = $1 AND branch_id = $2
		  AND quantity_change > 0 AND quantity_remaining > 0
		ORDER BY created_at ASC, id ASC`
	return r.list(ctx, "find purchase layers", query, variationID, branchID)
}

// DecrementRemaining descuenta amount de la capa. La condición quantity_remaining >= amount
// impide dejar una capa en negativo aunque el plan FIFO estuviera desactualizado.
func (r *StockMovementRepo) DecrementRemaining(ctx context.Context, layerID int64, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidInput
	}
	query := `
		UPDATE stock_movements SET quantity_remaining = quantity_remaining - $2
		WHERE id = $1 AND quantity_change > 0 AND quantity_remaining >= $2`
	tag, err := r.q.Exec(ctx, query, layerID, amount)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientLayers
		}
		return domain.NewStorageError("decrement layer remaining", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: layer %d cannot cover %d", domain.ErrInsufficientLayers, layerID, amount)
	}
	return nil
}

// ListByStock movimientos de (variación, sucursal), el más reciente primero.
func (r *StockMovementRepo) ListByStock(ctx context.Context, variationID, branchID string, limit int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE variation_id = $1 AND branch_id = $2
		ORDER BY created_at DESC, id DESC`
	args := []any{variationID, branchID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.list(ctx, "list movements", query, args...)
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var reference *string
		if err := rows.Scan(&m.ID, &m.VariationID, &m.BranchID, &m.QuantityChange, &m.Reason, &m.UserID,
			&m.UnitCost, &m.QuantityRemaining, &reference, &m.CreatedAt); err != nil {
			return nil, domain.NewStorageError("scan movement", err)
		}
		if reference != nil {
			m.Reference = *reference
		}
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return list, nil
}
