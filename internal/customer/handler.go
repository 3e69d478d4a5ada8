package customer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/identity"
)

// Handler exposes customer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a customer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register creates a customer and its owner account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req dto.CreateOrEditCustomer
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	created, err := h.service.Register(c.UserContext(), req)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(ToDTO(created, 1))
}

// Update edits a customer.
func (h *Handler) Update(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	var req dto.CreateOrEditCustomer
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.service.Update(c.UserContext(), actor, c.Params("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(ToDTO(updated, 0))
}

// List returns the customers visible to the caller.
func (h *Handler) List(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	out, err := h.service.List(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Dropdown returns id/label pairs.
func (h *Handler) Dropdown(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	out, err := h.service.Dropdown(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDuplicate), errors.Is(err, identity.ErrMobileTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
