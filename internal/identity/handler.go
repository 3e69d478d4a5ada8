package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/dto"
)

// ActorFunc returns the authenticated user of a request.
type ActorFunc func(c *fiber.Ctx) (User, bool)

// Handler exposes staff and engineer management.
type Handler struct {
	service *Service
	actor   ActorFunc
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, actor ActorFunc) *Handler {
	return &Handler{service: service, actor: actor}
}

// Staff lists owners and staff. Admins may filter with ?customer=.
func (h *Handler) Staff(c *fiber.Ctx) error {
	actor, _ := h.actor(c)
	users, err := h.service.Staff(c.UserContext(), actor, c.Query("customer"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(ToDTOs(users))
}

// CreateStaff adds a customer user.
func (h *Handler) CreateStaff(c *fiber.Ctx) error {
	return h.create(c, RoleStaff)
}

// UpdateStaff edits a customer user.
func (h *Handler) UpdateStaff(c *fiber.Ctx) error {
	return h.update(c, RoleStaff)
}

// Engineers lists every engineer.
func (h *Handler) Engineers(c *fiber.Ctx) error {
	users, err := h.service.Engineers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(ToDTOs(users))
}

// CreateEngineer adds an engineer.
func (h *Handler) CreateEngineer(c *fiber.Ctx) error {
	return h.create(c, RoleEngineer)
}

// UpdateEngineer edits an engineer.
func (h *Handler) UpdateEngineer(c *fiber.Ctx) error {
	return h.update(c, RoleEngineer)
}

func (h *Handler) create(c *fiber.Ctx, role string) error {
	actor, _ := h.actor(c)
	var req dto.CreateOrEditUser
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if role == RoleEngineer {
		req.Role = ""
	}
	user, err := h.service.Create(c.UserContext(), actor, req, role)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(ToDTO(user))
}

func (h *Handler) update(c *fiber.Ctx, role string) error {
	actor, _ := h.actor(c)
	var req dto.CreateOrEditUser
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if role == RoleEngineer {
		req.Role = ""
	}
	user, err := h.service.Update(c.UserContext(), actor, c.Params("id"), req, role)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(ToDTO(user))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownCustomer):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMobileTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
