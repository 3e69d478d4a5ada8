package machine

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/media"
)

// Handler exposes machine endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a machine HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *fiber.Ctx) error {
	all, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.Machine, 0, len(all))
	for _, m := range all {
		out = append(out, ToDTO(m))
	}
	return c.JSON(out)
}

func (h *Handler) Dropdown(c *fiber.Ctx) error {
	out, err := h.service.Dropdown(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Create handles POST machines with an optional "file" photo.
func (h *Handler) Create(c *fiber.Ctx) error {
	return h.save(c, "")
}

// Update handles PUT machines/:id.
func (h *Handler) Update(c *fiber.Ctx) error {
	return h.save(c, c.Params("id"))
}

func (h *Handler) save(c *fiber.Ctx, id string) error {
	actor, _ := auth.CurrentUser(c)
	var req dto.CreateOrEditMachine
	f, err := media.ParseBody(c, &req)
	if err != nil {
		return err
	}
	var photo *multipart.FileHeader
	if files := media.Files(f, "file"); len(files) > 0 {
		photo = files[0]
	}
	m, err := h.service.Save(c.UserContext(), actor, id, req, photo)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(ToDTO(m))
}
