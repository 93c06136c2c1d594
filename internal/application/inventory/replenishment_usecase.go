package inventory

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stockledger/internal/application/dto"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

const (
	SourceForecast  = "forecast"
	SourceHeuristic = "heuristic"

	defaultPredictorConcurrency = 4
)

var (
	errPredictorDisabled = errors.New("predictor de demanda no configurado")
	errNoProduct         = errors.New("variación sin producto asociado")
	errBadForecast       = errors.New("pronóstico inválido")
)

// ReplenishmentUseCase propone órdenes de compra para una sucursal. Solo lectura: no toca el ledger.
type ReplenishmentUseCase struct {
	stocks      repository.StockRepository
	movements   repository.StockMovementRepository
	predictor   DemandPredictor
	concurrency int
	log         zerolog.Logger
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
// concurrency limita las llamadas simultáneas al predictor (<= 0 usa el valor por defecto).
func NewReplenishmentUseCase(
	stocks repository.StockRepository,
	movements repository.StockMovementRepository,
	predictor DemandPredictor,
	concurrency int,
	log zerolog.Logger,
) *ReplenishmentUseCase {
	if concurrency <= 0 {
		concurrency = defaultPredictorConcurrency
	}
	return &ReplenishmentUseCase{
		stocks:      stocks,
		movements:   movements,
		predictor:   predictor,
		concurrency: concurrency,
		log:         log,
	}
}

// SuggestPurchaseOrders devuelve, para cada variación bajo su punto de reorden, la cantidad a pedir:
// demanda diaria pronosticada * días de entrega + punto de reorden - stock actual.
// Si el predictor falla para un producto se usa 1.5 * punto de reorden como stock ideal.
func (uc *ReplenishmentUseCase) SuggestPurchaseOrders(ctx context.Context, branchID string) ([]dto.PurchaseSuggestionDTO, error) {
	if branchID == "" {
		return nil, domain.ErrInvalidInput
	}

	// 1. Variaciones bajo el punto de reorden
	items, err := uc.stocks.FindProductsBelowThreshold(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []dto.PurchaseSuggestionDTO{}, nil
	}

	// 2. Pronóstico y costo de referencia por variación, con concurrencia acotada
	suggestions := make([]dto.PurchaseSuggestionDTO, len(items))
	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, item := range items {
		g.Go(func() error {
			s, err := uc.suggest(ctx, item)
			if err != nil {
				return err
			}
			suggestions[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. Mayor déficit primero
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		return a.ReorderPoint-a.CurrentStock > b.ReorderPoint-b.CurrentStock
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

func (uc *ReplenishmentUseCase) suggest(ctx context.Context, item repository.ReorderCandidate) (dto.PurchaseSuggestionDTO, error) {
	out := dto.PurchaseSuggestionDTO{
		VariationID:  item.VariationID,
		ProductID:    item.ProductID,
		CurrentStock: item.Quantity,
		ReorderPoint: item.ReorderPoint,
		LeadTimeDays: item.LeadTimeDays,
		UnitCost:     decimal.Zero,
	}

	forecast, err := uc.forecast(ctx, item.ProductID)
	if err == nil {
		out.DailyForecast = forecast
		out.Source = SourceForecast
		leadDemand := int(math.Ceil(forecast * float64(item.LeadTimeDays)))
		out.SuggestedOrderQty = leadDemand + item.ReorderPoint - item.Quantity
	} else {
		uc.log.Warn().Err(err).
			Str("product_id", item.ProductID).
			Str("variation_id", item.VariationID).
			Msg("predictor de demanda no disponible, usando heurística")
		out.Source = SourceHeuristic
		ideal := int(math.Ceil(float64(item.ReorderPoint) * 1.5))
		out.SuggestedOrderQty = ideal - item.Quantity
	}
	if out.SuggestedOrderQty < 1 {
		out.SuggestedOrderQty = 1
	}

	layers, err := uc.movements.FindPurchaseLayers(ctx, item.VariationID, item.BranchID)
	if err != nil {
		return dto.PurchaseSuggestionDTO{}, err
	}
	if n := len(layers); n > 0 && layers[n-1].UnitCost != nil {
		out.UnitCost = *layers[n-1].UnitCost
	}
	out.EstimatedOrderCost = out.UnitCost.Mul(decimal.NewFromInt(int64(out.SuggestedOrderQty)))
	return out, nil
}

func (uc *ReplenishmentUseCase) forecast(ctx context.Context, productID string) (float64, error) {
	if uc.predictor == nil {
		return 0, errPredictorDisabled
	}
	if productID == "" {
		return 0, errNoProduct
	}
	f, err := uc.predictor.PredictDemand(ctx, productID)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errBadForecast
	}
	return f, nil
}
