package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `variation_id, branch_id, product_id, quantity, low_stock_threshold, reorder_point, lead_time_days, updated_at`

// FindStockForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
// El bloqueo dura hasta el fin de la transacción del Querier.
func (r *StockRepo) FindStockForUpdate(ctx context.Context, variationID, branchID string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock WHERE variation_id = $1 AND branch_id = $2
		FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, variationID, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStorageError("find stock for update", err)
	}
	return s, nil
}

// UpdateStockQuantity fija la cantidad de la fila (variación, sucursal).
func (r *StockRepo) UpdateStockQuantity(ctx context.Context, variationID, branchID string, newQuantity int) error {
	query := `
		UPDATE stock SET quantity = $3, updated_at = now()
		WHERE variation_id = $1 AND branch_id = $2`
	tag, err := r.q.Exec(ctx, query, variationID, branchID, newQuantity)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrNegativeStock
		}
		return domain.NewStorageError("update stock quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindDiscrepancies compara quantity con la suma del log de movimientos de cada variación de la sucursal.
func (r *StockRepo) FindDiscrepancies(ctx context.Context, branchID string) ([]repository.Discrepancy, error) {
	query := `
		SELECT s.variation_id, s.branch_id, s.quantity,
		       COALESCE(SUM(m.quantity_change), 0) AS movement_sum,
		       COALESCE(SUM(m.quantity_remaining) FILTER (WHERE m.quantity_change > 0 AND m.quantity_remaining > 0), 0) AS layer_remaining
		FROM stock s
		LEFT JOIN stock_movements m ON m.variation_id = s.variation_id AND m.branch_id = s.branch_id
		WHERE s.branch_id = $1
		GROUP BY s.variation_id, s.branch_id, s.quantity
		HAVING s.quantity <> COALESCE(SUM(m.quantity_change), 0)
		ORDER BY s.variation_id`
	rows, err := r.q.Query(ctx, query, branchID)
	if err != nil {
		return nil, domain.NewStorageError("find discrepancies", err)
	}
	defer rows.Close()
	var list []repository.Discrepancy
	for rows.Next() {
		var d repository.Discrepancy
		var movementSum, layerRemaining int64
		if err := rows.Scan(&d.VariationID, &d.BranchID, &d.StoredQuantity, &movementSum, &layerRemaining); err != nil {
			return nil, domain.NewStorageError("scan discrepancy", err)
		}
		d.MovementSum = int(movementSum)
		d.LayerRemaining = int(layerRemaining)
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("find discrepancies", err)
	}
	return list, nil
}

// FindProductsBelowThreshold variaciones de la sucursal en o bajo su punto de reorden.
// Sin reorder_point se usa low_stock_threshold; un punto 0 nunca es candidato.
func (r *StockRepo) FindProductsBelowThreshold(ctx context.Context, branchID string) ([]repository.ReorderCandidate, error) {
	query := `
		SELECT variation_id, branch_id, product_id, quantity, point, lead_time_days
		FROM (
			SELECT variation_id, branch_id, product_id, quantity, lead_time_days,
			       CASE WHEN reorder_point > 0 THEN reorder_point ELSE low_stock_threshold END AS point
			FROM stock WHERE branch_id = $1
		) s
		WHERE point > 0 AND quantity <= point
		ORDER BY variation_id`
	rows, err := r.q.Query(ctx, query, branchID)
	if err != nil {
		return nil, domain.NewStorageError("find products below threshold", err)
	}
	defer rows.Close()
	var list []repository.ReorderCandidate
	for rows.Next() {
		var c repository.ReorderCandidate
		if err := rows.Scan(&c.VariationID, &c.BranchID, &c.ProductID, &c.Quantity, &c.ReorderPoint, &c.LeadTimeDays); err != nil {
			return nil, domain.NewStorageError("scan reorder candidate", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("find products below threshold", err)
	}
	return list, nil
}

// FindLowStockProducts registros con quantity <= threshold; si threshold es nil se usa el umbral propio de cada fila.
func (r *StockRepo) FindLowStockProducts(ctx context.Context, threshold *int) ([]entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock
		WHERE quantity <= COALESCE($1::integer, low_stock_threshold)
		ORDER BY branch_id, variation_id`
	rows, err := r.q.Query(ctx, query, threshold)
	if err != nil {
		return nil, domain.NewStorageError("find low stock products", err)
	}
	defer rows.Close()
	var list []entity.StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan stock", err)
		}
		list = append(list, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("find low stock products", err)
	}
	return list, nil
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := row.Scan(
		&s.VariationID, &s.BranchID, &s.ProductID, &s.Quantity,
		&s.LowStockThreshold, &s.ReorderPoint, &s.LeadTimeDays, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
