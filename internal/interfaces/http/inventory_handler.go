package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockledger/internal/application/dto"
	"github.com/jhoicas/stockledger/internal/application/inventory"
	"github.com/jhoicas/stockledger/internal/domain"
	"github.com/jhoicas/stockledger/internal/domain/entity"
	"github.com/jhoicas/stockledger/internal/domain/repository"
)

// InventoryHandler expone el ledger de stock por HTTP (protegido).
type InventoryHandler struct {
	stock         *inventory.StockService
	replenishment *inventory.ReplenishmentUseCase
	log           zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(stock *inventory.StockService, replenishment *inventory.ReplenishmentUseCase, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{stock: stock, replenishment: replenishment, log: log}
}

// Adjust godoc
// @Summary      Ajuste manual de stock (conteo, daño, pérdida, devolución, corrección)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "delta firmado; unit_cost obligatorio si delta > 0"
// @Success      201   {object}  dto.StockQuantityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if !canOperateOn(c, in.BranchID) {
		return forbiddenBranch(c)
	}
	res, err := h.stock.AdjustStock(c.Context(), inventory.AdjustStockInput{
		VariationID: in.VariationID,
		BranchID:    in.BranchID,
		Delta:       in.Delta,
		Reason:      in.Reason,
		UserID:      GetUserID(c),
		UnitCost:    in.UnitCost,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockQuantityResponse(res))
}

// Receive godoc
// @Summary      Entrada de mercancía (crea capa de compra)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveStockRequest  true  "variation_id, branch_id, quantity, unit_cost"
// @Success      201   {object}  dto.StockQuantityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/receive [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if !canOperateOn(c, in.BranchID) {
		return forbiddenBranch(c)
	}
	res, err := h.stock.ReceiveStock(c.Context(), inventory.ReceiveInput{
		VariationID: in.VariationID,
		BranchID:    in.BranchID,
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockQuantityResponse(res))
}

// Dispatch godoc
// @Summary      Salida de mercancía (consume capas FIFO)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DispatchStockRequest  true  "variation_id, branch_id, quantity"
// @Success      201   {object}  dto.StockQuantityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/dispatch [post]
func (h *InventoryHandler) Dispatch(c *fiber.Ctx) error {
	var in dto.DispatchStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if !canOperateOn(c, in.BranchID) {
		return forbiddenBranch(c)
	}
	res, err := h.stock.DispatchStock(c.Context(), inventory.DispatchInput{
		VariationID: in.VariationID,
		BranchID:    in.BranchID,
		Quantity:    in.Quantity,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockQuantityResponse(res))
}

// AssembleKit godoc
// @Summary      Armar kits a partir de sus componentes
// @Tags         kits
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.KitRequest  true  "kit, sucursal, cantidad y componentes por kit"
// @Success      201   {object}  dto.KitResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/kits/assemble [post]
func (h *InventoryHandler) AssembleKit(c *fiber.Ctx) error {
	return h.kit(c, h.stock.AssembleKit)
}

// DisassembleKit godoc
// @Summary      Desarmar kits y devolver sus componentes al stock
// @Tags         kits
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.KitRequest  true  "kit, sucursal, cantidad y componentes por kit"
// @Success      201   {object}  dto.KitResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/kits/disassemble [post]
func (h *InventoryHandler) DisassembleKit(c *fiber.Ctx) error {
	return h.kit(c, h.stock.DisassembleKit)
}

func (h *InventoryHandler) kit(c *fiber.Ctx, op func(context.Context, inventory.KitInput) (*inventory.KitResult, error)) error {
	var in dto.KitRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if !canOperateOn(c, in.BranchID) {
		return forbiddenBranch(c)
	}
	components := make([]inventory.KitComponent, 0, len(in.Components))
	for _, comp := range in.Components {
		components = append(components, inventory.KitComponent{VariationID: comp.VariationID, Quantity: comp.Quantity})
	}
	res, err := op(c.Context(), inventory.KitInput{
		KitVariationID: in.KitVariationID,
		BranchID:       in.BranchID,
		Quantity:       in.Quantity,
		Components:     components,
		UserID:         GetUserID(c),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.KitResponse{
		Reference:   res.Reference,
		KitQuantity: res.KitQuantity,
		TotalCost:   res.TotalCost,
	})
}

// LowStock godoc
// @Summary      Variaciones en o bajo su umbral de stock (solo la sucursal del token si no es admin)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        threshold  query  int  false  "Umbral global; vacío = umbral de cada registro"
// @Success      200  {array}   dto.StockRecordDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/low [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	var threshold *int
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "threshold debe ser entero"})
		}
		threshold = &n
	}
	list, err := h.stock.GetLowStockProducts(c.Context(), threshold)
	if err != nil {
		return h.writeError(c, err)
	}
	out := make([]dto.StockRecordDTO, 0, len(list))
	for _, r := range list {
		if canOperateOn(c, r.BranchID) {
			out = append(out, toStockRecordDTO(r))
		}
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// Discrepancies godoc
// @Summary      Registros cuyo stock no coincide con el log de movimientos
// @Tags         branches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "Sucursal"
// @Success      200  {array}   dto.DiscrepancyDTO
// @Router       /api/branches/{id}/discrepancies [get]
func (h *InventoryHandler) Discrepancies(c *fiber.Ctx) error {
	list, err := h.stock.GetInventoryDiscrepancies(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	out := make([]dto.DiscrepancyDTO, 0, len(list))
	for _, d := range list {
		out = append(out, toDiscrepancyDTO(d))
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// PurchaseSuggestions godoc
// @Summary      Sugerencias de compra para la sucursal
// @Tags         branches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "Sucursal"
// @Success      200  {array}   dto.PurchaseSuggestionDTO
// @Router       /api/branches/{id}/purchase-suggestions [get]
func (h *InventoryHandler) PurchaseSuggestions(c *fiber.Ctx) error {
	if !canOperateOn(c, c.Params("id")) {
		return forbiddenBranch(c)
	}
	list, err := h.replenishment.SuggestPurchaseOrders(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "suggestions": list})
}

// Movements godoc
// @Summary      Log de movimientos de una variación en una sucursal
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        variation  path   string  true   "Variación"
// @Param        branch     path   string  true   "Sucursal"
// @Param        limit      query  int     false  "Máximo de registros (100 por defecto, 500 máximo)"
// @Success      200  {array}   dto.MovementDTO
// @Router       /api/stock/{variation}/{branch}/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	if !canOperateOn(c, c.Params("branch")) {
		return forbiddenBranch(c)
	}
	limit := c.QueryInt("limit", 0)
	list, err := h.stock.ListMovements(c.Context(), c.Params("variation"), c.Params("branch"), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	out := make([]dto.MovementDTO, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementDTO(m))
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// forbiddenBranch 403 para tokens limitados a otra sucursal.
func forbiddenBranch(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "BRANCH_FORBIDDEN", Message: "la sucursal no corresponde al token"})
}

// writeError traduce los errores de dominio a HTTP: 404, 400 y 409; el resto es 500 y se registra.
func (h *InventoryHandler) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "registro de stock no encontrado"})
	case errors.Is(err, domain.ErrUnitCostRequired):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "UNIT_COST_REQUIRED", Message: "unit_cost es obligatorio para entradas"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNegativeStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NEGATIVE_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrInsufficientLayers):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_LAYERS", Message: "el historial de compras no cubre la salida"})
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("error interno en inventario")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func toStockQuantityResponse(res *inventory.AdjustStockResult) dto.StockQuantityResponse {
	out := dto.StockQuantityResponse{
		Quantity:    res.Quantity,
		MovementID:  res.MovementID,
		CostOfGoods: res.CostOfGoods,
	}
	for _, d := range res.Draws {
		out.Draws = append(out.Draws, dto.LayerDrawDTO{MovementID: d.MovementID, Quantity: d.Quantity, UnitCost: d.UnitCost})
	}
	return out
}

func toStockRecordDTO(r entity.StockRecord) dto.StockRecordDTO {
	return dto.StockRecordDTO{
		VariationID:       r.VariationID,
		BranchID:          r.BranchID,
		Quantity:          r.Quantity,
		LowStockThreshold: r.LowStockThreshold,
	}
}

func toDiscrepancyDTO(d repository.Discrepancy) dto.DiscrepancyDTO {
	return dto.DiscrepancyDTO{
		VariationID:    d.VariationID,
		BranchID:       d.BranchID,
		StoredQuantity: d.StoredQuantity,
		MovementSum:    d.MovementSum,
		LayerRemaining: d.LayerRemaining,
		Difference:     d.Difference(),
	}
}

func toMovementDTO(m *entity.StockMovement) dto.MovementDTO {
	return dto.MovementDTO{
		ID:                m.ID,
		QuantityChange:    m.QuantityChange,
		Reason:            m.Reason,
		UserID:            m.UserID,
		UnitCost:          m.UnitCost,
		QuantityRemaining: m.QuantityRemaining,
		Reference:         m.Reference,
		CreatedAt:         m.CreatedAt,
	}
}
