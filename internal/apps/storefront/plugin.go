package storefront

import (
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/apps"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Plugin struct{}

func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) ID() string { return "storefront" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{
		&Product{},
		&Order{},
		&OrderItem{},
	}
}

func (p *Plugin) RegisterRoutes(r apps.Routers, db *gorm.DB, cfg *config.Config) {
	catalog := NewCatalogHandler(NewCatalogService(db))
	orders := NewOrderHandler(NewOrderService(db))

	// Catalog (public, read-only)
	r.Public.Get("/products", catalog.ListProducts)
	r.Public.Get("/products/:id", catalog.GetProduct)
	r.Public.Get("/categories", catalog.Categories)

	// Orders. The guard on Get admits every role; it runs so the caller's
	// role is known when deciding whether another user's order is visible.
	r.Protected.Post("/orders", orders.Create)
	r.Protected.Get("/orders", orders.List)
	r.Protected.Get("/orders/:id", r.Guard(models.RoleUser, models.RoleMerchant), orders.Get)
	r.Protected.Put("/orders/:id/status", r.Guard(models.RoleMerchant), orders.UpdateStatus)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	orders := NewOrderHandler(NewOrderService(db))

	router.Get("/storefront/orders", orders.ListAll)
}

var _ apps.AdminPlugin = (*Plugin)(nil)
