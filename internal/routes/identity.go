package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/customer"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/middleware"
)

// RegisterIdentityRoutes wires customer, staff and engineer management.
// Public customer registration is mounted separately.
func RegisterIdentityRoutes(r fiber.Router, customers *customer.Handler, users *identity.Handler) {
	admin := middleware.RequireRole(identity.RoleAdmin)
	managers := middleware.RequireRole(identity.RoleAdmin, identity.RoleOwner)

	r.Get("/customers", customers.List)
	r.Get("/customers/staff", users.Staff)
	r.Put("/customers/:id", managers, customers.Update)
	r.Get("/dropdown/customers", customers.Dropdown)

	r.Post("/users", managers, users.CreateStaff)
	r.Put("/users/:id", managers, users.UpdateStaff)

	r.Get("/engineers", admin, users.Engineers)
	r.Post("/engineers", admin, users.CreateEngineer)
	r.Put("/engineers/:id", admin, users.UpdateEngineer)
}
