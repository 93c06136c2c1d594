package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest body para POST /api/stock/adjust.
type AdjustStockRequest struct {
	VariationID string           `json:"variation_id"`
	BranchID    string           `json:"branch_id"`
	Delta       int              `json:"delta"`
	Reason      string           `json:"reason"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
}

// ReceiveStockRequest body para POST /api/stock/receive.
type ReceiveStockRequest struct {
	VariationID string           `json:"variation_id"`
	BranchID    string           `json:"branch_id"`
	Quantity    int              `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
}

// DispatchStockRequest body para POST /api/stock/dispatch.
type DispatchStockRequest struct {
	VariationID string `json:"variation_id"`
	BranchID    string `json:"branch_id"`
	Quantity    int    `json:"quantity"`
}

// KitComponentRequest componente y cantidad por kit.
type KitComponentRequest struct {
	VariationID string `json:"variation_id"`
	Quantity    int    `json:"quantity"`
}

// KitRequest body para POST /api/kits/assemble y /api/kits/disassemble.
type KitRequest struct {
	KitVariationID string                `json:"kit_variation_id"`
	BranchID       string                `json:"branch_id"`
	Quantity       int                   `json:"quantity"`
	Components     []KitComponentRequest `json:"components"`
}

// LayerDrawDTO unidades tomadas de una capa de compra.
type LayerDrawDTO struct {
	MovementID int64           `json:"movement_id"`
	Quantity   int             `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

// StockQuantityResponse resultado de un ajuste.
type StockQuantityResponse struct {
	Quantity    int             `json:"quantity"`
	MovementID  int64           `json:"movement_id"`
	CostOfGoods decimal.Decimal `json:"cost_of_goods"`
	Draws       []LayerDrawDTO  `json:"draws,omitempty"`
}

// KitResponse resultado de armado o desarme de kits.
type KitResponse struct {
	Reference   string          `json:"reference"`
	KitQuantity int             `json:"kit_quantity"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// StockRecordDTO registro del ledger de stock.
type StockRecordDTO struct {
	VariationID       string `json:"variation_id"`
	BranchID          string `json:"branch_id"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// DiscrepancyDTO diferencia entre stock almacenado y log de movimientos.
type DiscrepancyDTO struct {
	VariationID    string `json:"variation_id"`
	BranchID       string `json:"branch_id"`
	StoredQuantity int    `json:"stored_quantity"`
	MovementSum    int    `json:"movement_sum"`
	LayerRemaining int    `json:"layer_remaining"`
	Difference     int    `json:"difference"`
}

// MovementDTO registro del log de movimientos.
type MovementDTO struct {
	ID                int64            `json:"id"`
	QuantityChange    int              `json:"quantity_change"`
	Reason            string           `json:"reason"`
	UserID            string           `json:"user_id"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	QuantityRemaining *int             `json:"quantity_remaining,omitempty"`
	Reference         string           `json:"reference,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// PurchaseSuggestionDTO sugerencia de compra para una variación bajo su punto de reorden.
type PurchaseSuggestionDTO struct {
	VariationID        string          `json:"variation_id"`
	ProductID          string          `json:"product_id"`
	CurrentStock       int             `json:"current_stock"`
	ReorderPoint       int             `json:"reorder_point"`
	LeadTimeDays       int             `json:"lead_time_days"`
	DailyForecast      float64         `json:"daily_forecast"`
	SuggestedOrderQty  int             `json:"suggested_order_qty"`
	UnitCost           decimal.Decimal `json:"unit_cost"`            // costo de la capa más reciente
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Source             string          `json:"source"`               // "forecast" | "heuristic"
	Priority           int             `json:"priority"`             // 1 = más urgente
}
