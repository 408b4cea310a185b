package router

import (
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/handler"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// InvoicingRoutes builds the invoice and line item route groups:
//
//	GET    /invoices
//	POST   /invoices
//	GET    /invoices/:id
//	PUT    /invoices/:id/notes
//	POST   /invoices/:id/recalculate
//	GET    /invoices/:id/milestones
//	GET    /invoices/:id/line-items
//	POST   /invoices/:id/line-items
//	PUT    /invoices/:id/line-items
//	PATCH  /line-items/:id
//	DELETE /line-items/:id
func InvoicingRoutes(invoices *handler.InvoiceHandler, items *handler.LineItemHandler) []RouteRegistrar {
	invoiceRoutes := NewResourceGroup("invoices", "/invoices").
		GET("", invoices.List).
		POST("", invoices.Create).
		GET("/:id", invoices.Get).
		PUT("/:id/notes", invoices.UpdateNotes).
		POST("/:id/recalculate", invoices.Recalculate).
		GET("/:id/milestones", invoices.Milestones).
		GET("/:id/line-items", items.List).
		POST("/:id/line-items", items.Create).
		PUT("/:id/line-items", items.Replace)

	lineItemRoutes := NewResourceGroup("line-items", "/line-items").
		PATCH("/:id", items.Update).
		DELETE("/:id", items.Delete)

	return []RouteRegistrar{invoiceRoutes, lineItemRoutes}
}

// HealthRoutes registers the health checks outside the versioned API
func HealthRoutes(r *Router, health *handler.HealthHandler) {
	r.engine.GET("/health/live", health.Live)
	r.engine.GET("/health/ready", health.Ready)
}

// SwaggerRoutes serves the generated API documentation under /swagger,
// guarded by SwaggerProtection
func SwaggerRoutes(r *Router, cfg middleware.SwaggerConfig) {
	r.engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg), ginSwagger.WrapHandler(swaggerFiles.Handler))
}
