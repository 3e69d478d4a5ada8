package product

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/dto"
)

// Handler exposes product endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a product HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	all, err := h.service.List(c.UserContext(), actor)
	if err != nil {
		return err
	}
	out := make([]dto.RegisteredProduct, 0, len(all))
	for _, p := range all {
		out = append(out, ToDTO(p))
	}
	return c.JSON(out)
}

func (h *Handler) Dropdown(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	out, err := h.service.Dropdown(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	return h.save(c, "")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	return h.save(c, c.Params("id"))
}

func (h *Handler) save(c *fiber.Ctx, id string) error {
	actor, _ := auth.CurrentUser(c)
	var req dto.CreateOrEditRegisteredProduct
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.Save(c.UserContext(), actor, id, req)
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDuplicateSerial):
		return fiber.NewError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(ToDTO(p))
}
