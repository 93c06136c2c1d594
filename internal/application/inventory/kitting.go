package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/inventory"
)

// KitComponent variación que compone un kit y cuántas unidades lleva cada kit.
type KitComponent struct {
	VariationID string
	Quantity    int
}

// KitInput entrada para armar o desarmar Quantity kits en una sucursal.
// Con Tx no nil la operación se une a la transacción del caller.
type KitInput struct {
	KitVariationID string
	BranchID       string
	Quantity       int
	Components     []KitComponent
	UserID         string
	Tx             TxContext
}

// KitResult resultado de la operación; Reference agrupa todos sus movimientos.
type KitResult struct {
	Reference   string
	KitQuantity int
	TotalCost   decimal.Decimal
}

// AssembleKit consume los componentes (FIFO, motivo kitting) y recibe el kit con costo unitario
// igual al costo FIFO de los componentes dividido entre la cantidad de kits. Todo en una transacción.
func (s *StockService) AssembleKit(ctx context.Context, in KitInput) (*KitResult, error) {
	components, _, err := normalizeKit(in)
	if err != nil {
		return nil, err
	}
	ref := uuid.New().String()

	var res *KitResult
	err = s.runKit(ctx, in.Tx, func(k *kitTx) error {
		total := decimal.Zero
		for _, c := range components {
			out, err := k.adjust(ctx, AdjustStockInput{
				VariationID: c.VariationID,
				BranchID:    in.BranchID,
				Delta:       -c.Quantity * in.Quantity,
				Reason:      entity.ReasonKitting,
				UserID:      in.UserID,
				Reference:   ref,
			})
			if err != nil {
				return err
			}
			total = total.Add(out.CostOfGoods)
		}
		unitCost := inventory.UnitCost(total, in.Quantity)
		if _, err := k.adjust(ctx, AdjustStockInput{
			VariationID: in.KitVariationID,
			BranchID:    in.BranchID,
			Delta:       in.Quantity,
			Reason:      entity.ReasonKitting,
			UserID:      in.UserID,
			UnitCost:    &unitCost,
			Reference:   ref,
		}); err != nil {
			return err
		}
		res = &KitResult{Reference: ref, KitQuantity: in.Quantity, TotalCost: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DisassembleKit consume kits (FIFO, motivo de-kitting) y devuelve sus componentes al stock.
// El costo FIFO de los kits se reparte en partes iguales por unidad de componente.
func (s *StockService) DisassembleKit(ctx context.Context, in KitInput) (*KitResult, error) {
	components, componentUnits, err := normalizeKit(in)
	if err != nil {
		return nil, err
	}
	ref := uuid.New().String()

	var res *KitResult
	err = s.runKit(ctx, in.Tx, func(k *kitTx) error {
		out, err := k.adjust(ctx, AdjustStockInput{
			VariationID: in.KitVariationID,
			BranchID:    in.BranchID,
			Delta:       -in.Quantity,
			Reason:      entity.ReasonDeKitting,
			UserID:      in.UserID,
			Reference:   ref,
		})
		if err != nil {
			return err
		}
		unitCost := inventory.UnitCost(out.CostOfGoods, componentUnits)
		for _, c := range components {
			if _, err := k.adjust(ctx, AdjustStockInput{
				VariationID: c.VariationID,
				BranchID:    in.BranchID,
				Delta:       c.Quantity * in.Quantity,
				Reason:      entity.ReasonDeKitting,
				UserID:      in.UserID,
				UnitCost:    &unitCost,
				Reference:   ref,
			}); err != nil {
				return err
			}
		}
		res = &KitResult{Reference: ref, KitQuantity: in.Quantity, TotalCost: out.CostOfGoods}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// kitTx ajustes de una operación de kit sobre una misma transacción.
// Con deferAlerts los avisos de stock bajo esperan al commit.
type kitTx struct {
	s           *StockService
	tx          TxContext
	deferAlerts bool
	pending     []lowStockCheck
}

type lowStockCheck struct {
	in  AdjustStockInput
	res *AdjustStockResult
}

func (k *kitTx) adjust(ctx context.Context, in AdjustStockInput) (*AdjustStockResult, error) {
	in.Tx = k.tx
	if err := validateAdjust(in); err != nil {
		return nil, err
	}
	res, err := k.s.adjustInTx(ctx, k.tx, in)
	if err != nil {
		return nil, err
	}
	if k.deferAlerts {
		k.pending = append(k.pending, lowStockCheck{in: in, res: res})
	} else {
		k.s.notifyIfLow(ctx, in, res)
	}
	return res, nil
}

// runKit reutiliza la transacción del caller (avisos inmediatos, como AdjustStock anidado) o abre
// una propia y emite los avisos solo si el commit tuvo éxito.
func (s *StockService) runKit(ctx context.Context, callerTx TxContext, fn func(k *kitTx) error) error {
	if callerTx != nil {
		return fn(&kitTx{s: s, tx: callerTx})
	}
	var k *kitTx
	err := s.txRunner.Run(ctx, func(tx TxContext) error {
		k = &kitTx{s: s, tx: tx, deferAlerts: true}
		return fn(k)
	})
	if err != nil {
		return err
	}
	for _, p := range k.pending {
		s.notifyIfLow(ctx, p.in, p.res)
	}
	return nil
}

// normalizeKit valida la entrada, agrupa componentes repetidos y los ordena por variación
// para que dos operaciones concurrentes bloqueen las filas en el mismo orden.
// Devuelve además el total de unidades de componente (Σ cantidad por kit * kits), acotado a MaxQuantity.
func normalizeKit(in KitInput) ([]KitComponent, int, error) {
	if in.KitVariationID == "" || in.BranchID == "" || in.UserID == "" {
		return nil, 0, domain.ErrInvalidInput
	}
	if in.Quantity <= 0 || in.Quantity > MaxQuantity || len(in.Components) == 0 {
		return nil, 0, domain.ErrInvalidInput
	}
	byVariation := make(map[string]int, len(in.Components))
	perKit := 0
	for _, c := range in.Components {
		if c.VariationID == "" || c.VariationID == in.KitVariationID || c.Quantity <= 0 {
			return nil, 0, domain.ErrInvalidInput
		}
		// perKit <= MaxQuantity en cada paso, la suma no desborda
		if c.Quantity > MaxQuantity-perKit {
			return nil, 0, fmt.Errorf("%w: components per kit exceed %d", domain.ErrInvalidInput, MaxQuantity)
		}
		perKit += c.Quantity
		byVariation[c.VariationID] += c.Quantity
	}
	if perKit > MaxQuantity/in.Quantity {
		return nil, 0, fmt.Errorf("%w: %d components x %d kits exceed %d", domain.ErrInvalidInput, perKit, in.Quantity, MaxQuantity)
	}
	out := make([]KitComponent, 0, len(byVariation))
	for id, qty := range byVariation {
		out = append(out, KitComponent{VariationID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariationID < out[j].VariationID })
	return out, perKit * in.Quantity, nil
}
