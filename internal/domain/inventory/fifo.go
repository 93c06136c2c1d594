package inventory

import (
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Layer porción sin consumir de una entrada histórica (capa de compra).
type Layer struct {
	MovementID int64
	Remaining  int
	UnitCost   decimal.Decimal
}

// Draw unidades tomadas de una capa por una salida.
type Draw struct {
	MovementID int64
	Quantity   int
	UnitCost   decimal.Decimal
}

// LayersFromMovements convierte movimientos de entrada en capas, respetando el orden recibido.
// Ignora los movimientos que no son capas abiertas.
func LayersFromMovements(movs []*entity.StockMovement) []Layer {
	layers := make([]Layer, 0, len(movs))
	for _, m := range movs {
		if m == nil || !m.IsPurchaseLayer() {
			continue
		}
		cost := decimal.Zero
		if m.UnitCost != nil {
			cost = *m.UnitCost
		}
		layers = append(layers, Layer{MovementID: m.ID, Remaining: *m.QuantityRemaining, UnitCost: cost})
	}
	return layers
}

// PlanConsumption consume need unidades de las capas en el orden dado (más antigua primero).
// Una capa solo se toca cuando todas las anteriores quedaron en cero.
// Si las capas no alcanzan devuelve domain.ErrInsufficientLayers y ningún plan.
func PlanConsumption(layers []Layer, need int) ([]Draw, error) {
	if need <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var draws []Draw
	for _, l := range layers {
		if need == 0 {
			break
		}
		if l.Remaining <= 0 {
			continue
		}
		take := min(l.Remaining, need)
		draws = append(draws, Draw{MovementID: l.MovementID, Quantity: take, UnitCost: l.UnitCost})
		need -= take
	}
	if need > 0 {
		return nil, domain.ErrInsufficientLayers
	}
	return draws, nil
}

// CostOfDraws costo total de las unidades tomadas: Σ cantidad * costo unitario.
func CostOfDraws(draws []Draw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.UnitCost.Mul(decimal.NewFromInt(int64(d.Quantity))))
	}
	return total
}

// UnitCost reparte un costo total entre qty unidades (costo promedio de la operación).
func UnitCost(total decimal.Decimal, qty int) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(qty)))
}
