package sparepart

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/media"
)

// Handler exposes spare part endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a spare part HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *fiber.Ctx) error {
	all, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.SparePart, 0, len(all))
	for _, p := range all {
		out = append(out, ToDTO(p))
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

func (h *Handler) Create(c *fiber.Ctx) error {
	return h.save(c, "")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	return h.save(c, c.Params("id"))
}

// Assign handles PATCH parts/machines/assign.
func (h *Handler) Assign(c *fiber.Ctx) error {
	var req dto.AssignMachinesToParts
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Assign(c.UserContext(), req); err != nil {
		return httpError(err)
	}
	msg := "Machines assigned"
	if req.Flag == dto.FlagRemove {
		msg = "Machines removed"
	}
	return c.JSON(dto.Message{Message: msg})
}

func (h *Handler) save(c *fiber.Ctx, id string) error {
	actor, _ := auth.CurrentUser(c)
	var req dto.CreateOrEditSparePart
	f, err := media.ParseBody(c, &req)
	if err != nil {
		return err
	}
	var photo *multipart.FileHeader
	if files := media.Files(f, "file"); len(files) > 0 {
		photo = files[0]
	}
	p, err := h.service.Save(c.UserContext(), actor, id, req, photo)
	if err != nil {
		return httpError(err)
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(ToDTO(p))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownMachine):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicatePartNo):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
