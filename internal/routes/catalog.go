package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/machine"
	"github.com/fieldops/fieldops/internal/middleware"
	"github.com/fieldops/fieldops/internal/product"
	"github.com/fieldops/fieldops/internal/servicerequest"
	"github.com/fieldops/fieldops/internal/sparepart"
)

// RegisterCatalogRoutes wires machines, spare parts and registered products.
func RegisterCatalogRoutes(r fiber.Router, machines *machine.Handler, parts *sparepart.Handler, products *product.Handler) {
	admin := middleware.RequireRole(identity.RoleAdmin)

	r.Get("/machines", machines.List)
	r.Post("/machines", admin, machines.Create)
	r.Put("/machines/:id", admin, machines.Update)
	r.Get("/dropdown/machines", machines.Dropdown)

	r.Get("/parts", parts.List)
	r.Post("/parts", admin, parts.Create)
	r.Patch("/parts/machines/assign", admin, parts.Assign)
	r.Put("/parts/:id", admin, parts.Update)
	r.Get("/dropdown/parts", parts.Dropdown)

	r.Get("/products", products.List)
	r.Post("/products", products.Create)
	r.Put("/products/:id", products.Update)
	r.Get("/dropdown/products", products.Dropdown)
}

// RegisterRequestRoutes wires the service request lifecycle.
func RegisterRequestRoutes(r fiber.Router, h *servicerequest.Handler) {
	r.Get("/requests", h.List)
	r.Get("/requests/:id", h.Get)
	r.Post("/requests", h.Create)
	r.Patch("/requests/:id/approve", middleware.RequireRole(identity.RoleAdmin), h.Approve)
	r.Patch("/requests/:id/close", middleware.RequireRole(identity.RoleAdmin, identity.RoleEngineer), h.Close)
}
