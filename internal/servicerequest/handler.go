package servicerequest

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/media"
)

// Handler exposes service request endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a service request HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	all, err := h.service.List(c.UserContext(), actor)
	if err != nil {
		return err
	}
	out := make([]dto.ServiceRequest, 0, len(all))
	for _, r := range all {
		out = append(out, ToDTO(r, ShowCode(actor)))
	}
	return c.JSON(out)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	r, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(ToDTO(r, ShowCode(actor)))
}

// Create handles the multipart POST requests with "body" and "files".
func (h *Handler) Create(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	var req dto.NewServiceRequest
	f, err := media.ParseBody(c, &req)
	if err != nil {
		return err
	}
	r, err := h.service.Create(c.UserContext(), actor, req, media.Files(f, "files"))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(ToDTO(r, ShowCode(actor)))
}

func (h *Handler) Approve(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	var req dto.ApproveServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	r, err := h.service.Approve(c.UserContext(), actor, c.Params("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(ToDTO(r, ShowCode(actor)))
}

func (h *Handler) Close(c *fiber.Ctx) error {
	actor, _ := auth.CurrentUser(c)
	var req dto.CloseServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	r, err := h.service.Close(c.UserContext(), actor, c.Params("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(ToDTO(r, ShowCode(actor)))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrClosed), errors.Is(err, ErrNotApproved):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrCodeLocked):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrHappyCode):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
