package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockledger/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock         *inventory.StockService
	Replenishment *inventory.ReplenishmentUseCase
	JWTSecret     string
	JWTIssuer     string
	Log           zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	h := NewInventoryHandler(deps.Stock, deps.Replenishment, deps.Log)

	// Stock
	stock := protected.Group("/stock")
	stock.Post("/adjust", RequireRole(RoleAdmin), h.Adjust)
	stock.Post("/receive", RequireRole(RoleAdmin, RoleBodeguero), h.Receive)
	stock.Post("/dispatch", RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor), h.Dispatch)
	stock.Get("/low", h.LowStock)
	stock.Get("/:variation/:branch/movements", h.Movements)

	// Kits
	kits := protected.Group("/kits", RequireRole(RoleAdmin, RoleBodeguero))
	kits.Post("/assemble", h.AssembleKit)
	kits.Post("/disassemble", h.DisassembleKit)

	// Sucursales
	branches := protected.Group("/branches")
	branches.Get("/:id/discrepancies", RequireRole(RoleAdmin), h.Discrepancies)
	branches.Get("/:id/purchase-suggestions", RequireRole(RoleAdmin, RoleBodeguero), h.PurchaseSuggestions)
}
