package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/inventory"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

// MaxQuantity tope de unidades por movimiento y por registro (columnas INTEGER).
const MaxQuantity = math.MaxInt32

// StockService coordina los cambios de stock: bloqueo de fila (SELECT FOR UPDATE), validación,
// actualización del ledger, movimiento, capas FIFO y aviso de stock bajo.
type StockService struct {
	txRunner  TxRunner
	stocks    repository.StockRepository
	movements repository.StockMovementRepository
	notifier  Notifier
	log       zerolog.Logger
}

// NewStockService construye el servicio. stocks y movements se usan solo para lecturas fuera de transacción;
// notifier puede ser nil.
func NewStockService(
	txRunner TxRunner,
	stocks repository.StockRepository,
	movements repository.StockMovementRepository,
	notifier Notifier,
	log zerolog.Logger,
) *StockService {
	return &StockService{
		txRunner:  txRunner,
		stocks:    stocks,
		movements: movements,
		notifier:  notifier,
		log:       log,
	}
}

// AdjustStockInput entrada de AdjustStock. UnitCost es obligatorio cuando Delta > 0.
// Si Tx no es nil todo ocurre dentro de esa transacción y el servicio no hace Commit ni Rollback.
type AdjustStockInput struct {
	VariationID string
	BranchID    string
	Delta       int
	Reason      string
	UserID      string
	UnitCost    *decimal.Decimal
	Reference   string
	Tx          TxContext
}

// AdjustStockResult nueva cantidad y, para salidas, el rastro de costo FIFO.
type AdjustStockResult struct {
	Quantity    int
	MovementID  int64
	Draws       []inventory.Draw
	CostOfGoods decimal.Decimal

	threshold int
}

// AdjustStock aplica un cambio de stock firmado sobre (variación, sucursal) y devuelve la nueva cantidad.
func (s *StockService) AdjustStock(ctx context.Context, in AdjustStockInput) (*AdjustStockResult, error) {
	if err := validateAdjust(in); err != nil {
		return nil, err
	}

	if in.Tx != nil {
		res, err := s.adjustInTx(ctx, in.Tx, in)
		if err != nil {
			return nil, err
		}
		s.notifyIfLow(ctx, in, res)
		return res, nil
	}

	var res *AdjustStockResult
	err := s.txRunner.Run(ctx, func(tx TxContext) error {
		var err error
		res, err = s.adjustInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyIfLow(ctx, in, res)
	return res, nil
}

// ReceiveInput entrada de mercancía (crea una capa de compra).
type ReceiveInput struct {
	VariationID string
	BranchID    string
	Quantity    int
	UnitCost    *decimal.Decimal
	UserID      string
	Tx          TxContext
}

// ReceiveStock equivale a AdjustStock(+Quantity, stock_received, UnitCost).
func (s *StockService) ReceiveStock(ctx context.Context, in ReceiveInput) (*AdjustStockResult, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.AdjustStock(ctx, AdjustStockInput{
		VariationID: in.VariationID,
		BranchID:    in.BranchID,
		Delta:       in.Quantity,
		Reason:      entity.ReasonStockReceived,
		UserID:      in.UserID,
		UnitCost:    in.UnitCost,
		Tx:          in.Tx,
	})
}

// DispatchInput salida de mercancía (consume capas FIFO).
type DispatchInput struct {
	VariationID string
	BranchID    string
	Quantity    int
	UserID      string
	Tx          TxContext
}

// DispatchStock equivale a AdjustStock(-Quantity, stock_dispatched).
func (s *StockService) DispatchStock(ctx context.Context, in DispatchInput) (*AdjustStockResult, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.AdjustStock(ctx, AdjustStockInput{
		VariationID: in.VariationID,
		BranchID:    in.BranchID,
		Delta:       -in.Quantity,
		Reason:      entity.ReasonStockDispatched,
		UserID:      in.UserID,
		Tx:          in.Tx,
	})
}

func validateAdjust(in AdjustStockInput) error {
	if in.VariationID == "" || in.BranchID == "" || in.UserID == "" {
		return domain.ErrInvalidInput
	}
	if in.Delta == 0 || !entity.IsValidReason(in.Reason) {
		return domain.ErrInvalidInput
	}
	if in.Delta > MaxQuantity || in.Delta < -MaxQuantity {
		return domain.ErrInvalidInput
	}
	if in.Delta > 0 && (in.UnitCost == nil || in.UnitCost.IsNegative()) {
		return domain.ErrUnitCostRequired
	}
	return nil
}

// adjustInTx pasos 1–4: bloqueo, validación, ledger, movimiento y consumo de capas.
func (s *StockService) adjustInTx(ctx context.Context, tx TxContext, in AdjustStockInput) (*AdjustStockResult, error) {
	// Bloquea la fila (variación, sucursal); serializa ajustes concurrentes sobre la misma clave
	stock, err := tx.Stocks().FindStockForUpdate(ctx, in.VariationID, in.BranchID)
	if err != nil {
		return nil, err
	}
	if in.Delta > 0 && stock.Quantity > MaxQuantity-in.Delta {
		return nil, fmt.Errorf("%w: quantity %d + %d exceeds %d", domain.ErrInvalidInput, stock.Quantity, in.Delta, MaxQuantity)
	}
	newQty := stock.Quantity + in.Delta
	if newQty < 0 {
		return nil, domain.ErrNegativeStock
	}

	if err := tx.Stocks().UpdateStockQuantity(ctx, in.VariationID, in.BranchID, newQty); err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		VariationID:    in.VariationID,
		BranchID:       in.BranchID,
		QuantityChange: in.Delta,
		Reason:         in.Reason,
		UserID:         in.UserID,
		Reference:      in.Reference,
	}
	if in.Delta > 0 {
		remaining := in.Delta
		cost := *in.UnitCost
		mov.QuantityRemaining = &remaining
		mov.UnitCost = &cost
	}
	if err := tx.Movements().CreateMovement(ctx, mov); err != nil {
		return nil, err
	}

	res := &AdjustStockResult{Quantity: newQty, MovementID: mov.ID, CostOfGoods: decimal.Zero, threshold: stock.LowStockThreshold}
	if in.Delta < 0 {
		draws, err := s.consumeLayers(ctx, tx, in.VariationID, in.BranchID, -in.Delta)
		if err != nil {
			return nil, err
		}
		res.Draws = draws
		res.CostOfGoods = inventory.CostOfDraws(draws)
	}
	return res, nil
}

// consumeLayers descuenta need unidades de las capas de compra, una actualización por capa en orden FIFO.
func (s *StockService) consumeLayers(ctx context.Context, tx TxContext, variationID, branchID string, need int) ([]inventory.Draw, error) {
	movs, err := tx.Movements().FindPurchaseLayers(ctx, variationID, branchID)
	if err != nil {
		return nil, err
	}
	draws, err := inventory.PlanConsumption(inventory.LayersFromMovements(movs), need)
	if err != nil {
		return nil, fmt.Errorf("%w: variation %s branch %s need %d", err, variationID, branchID, need)
	}
	for _, d := range draws {
		if err := tx.Movements().DecrementRemaining(ctx, d.MovementID, d.Quantity); err != nil {
			return nil, err
		}
	}
	return draws, nil
}

// notifyIfLow paso 5. Un fallo se registra y se descarta: nunca afecta el ajuste.
func (s *StockService) notifyIfLow(ctx context.Context, in AdjustStockInput, res *AdjustStockResult) {
	if s.notifier == nil || res.Quantity > res.threshold {
		return
	}
	alert := LowStockAlert{
		VariationID: in.VariationID,
		BranchID:    in.BranchID,
		UserID:      in.UserID,
		Quantity:    res.Quantity,
		Threshold:   res.threshold,
	}
	if err := s.notifier.NotifyLowStock(ctx, alert); err != nil {
		s.log.Warn().Err(err).
			Str("variation_id", in.VariationID).
			Str("branch_id", in.BranchID).
			Int("quantity", res.Quantity).
			Int("threshold", res.threshold).
			Msg("notificación de stock bajo fallida")
	}
}
