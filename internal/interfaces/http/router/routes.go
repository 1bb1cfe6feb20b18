package router

import (
	"github.com/erp/purchasing/internal/infrastructure/auth"
	"github.com/erp/purchasing/internal/interfaces/http/handler"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers mounted by the engine. Outbox may be nil
// when the event outbox is not wired.
type Handlers struct {
	PurchaseOrders *handler.PurchaseOrderHandler
	Inventory      *handler.InventoryHandler
	Outbox         *handler.OutboxHandler
	System         *handler.SystemHandler
}

// PurchasingGroups builds the /api/v1 route groups. Reads need the read
// scope, state changes the write scope and outbox recovery the admin scope;
// scopes are only enforced when JWT auth is enabled.
func PurchasingGroups(h Handlers) []RouteRegistrar {
	read := middleware.RequireScope(auth.ScopeRead, auth.ScopeWrite)
	write := middleware.RequireScope(auth.ScopeWrite)

	var groups []RouteRegistrar

	if po := h.PurchaseOrders; po != nil {
		orders := NewDomainGroup("purchase-orders", "/purchase-orders")
		orders.
			POST("", write, po.Create).
			GET("", read, po.List).
			GET("/number/:number", read, po.GetByNumber).
			GET("/:id", read, po.GetByID).
			PUT("/:id/lines", write, po.UpdateLines).
			DELETE("/:id", write, po.Delete).
			POST("/:id/submit", write, po.Submit).
			POST("/:id/send", write, po.Send).
			POST("/:id/confirm", write, po.Confirm).
			POST("/:id/cancel", write, po.Cancel).
			POST("/:id/receive", write, po.Receive).
			GET("/:id/adjustments", read, po.ListAdjustments).
			POST("/:id/adjustments/retry", write, po.RetryAdjustments).
			GET("/:id/export", read, po.Export).
			GET("/:id/pdf", read, po.DownloadPDF)
		groups = append(groups, orders)
	}

	if h.Inventory != nil {
		inventory := NewDomainGroup("inventory", "/inventory")
		inventory.GET("/:product_id", read, h.Inventory.GetStockLevel)
		groups = append(groups, inventory)
	}

	if h.Outbox != nil {
		admin := NewDomainGroup("admin", "/admin").Use(middleware.RequireScope(auth.ScopeAdmin))
		admin.Group("outbox", "/outbox").
			GET("/stats", h.Outbox.GetStats).
			GET("/dead-letters", h.Outbox.ListDeadLetters).
			POST("/dead-letters/retry-all", h.Outbox.RetryAllDeadLetters).
			POST("/dead-letters/:id/retry", h.Outbox.RetryDeadLetter)
		groups = append(groups, admin)
	}

	if h.System != nil {
		system := NewDomainGroup("system", "/system")
		system.GET("/info", h.System.GetSystemInfo)
		groups = append(groups, system)
	}

	return groups
}
