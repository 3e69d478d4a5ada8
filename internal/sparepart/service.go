package sparepart

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/machine"
	"github.com/fieldops/fieldops/internal/media"
)

// ErrUnknownMachine is returned when an assignment names a missing machine.
var ErrUnknownMachine = errors.New("machine not found")

// Service manages spare parts.
type Service struct {
	repo     Repository
	machines *machine.Service
	media    media.Store
	nowF     func() time.Time
}

// NewService builds the spare part service.
func NewService(repo Repository, machines *machine.Service, store media.Store) *Service {
	return &Service{repo: repo, machines: machines, media: store, nowF: time.Now}
}

// List returns every part with its compatible machines.
func (s *Service) List(ctx context.Context) ([]Part, error) {
	return s.repo.List(ctx)
}

// Dropdown lists active parts as id/label pairs.
func (s *Service) Dropdown(ctx context.Context) ([]dto.DropDown, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DropDown, 0, len(all))
	for _, p := range all {
		if p.IsActive {
			out = append(out, dto.DropDown{ID: p.ID, Label: p.Name + " - " + p.PartNo})
		}
	}
	return out, nil
}

// Save creates a part when id is empty and updates it otherwise.
func (s *Service) Save(ctx context.Context, actor identity.User, id string, in dto.CreateOrEditSparePart, photo *multipart.FileHeader) (Part, error) {
	if err := form.Validate(in); err != nil {
		return Part{}, err
	}
	if in.Price.IsNegative() {
		return Part{}, form.FieldErrors{"price": "Price must not be negative"}
	}
	now := s.nowF().UTC()
	var p Part
	if id == "" {
		p = Part{ID: uuid.New().String(), IsActive: true, Audit: dto.Audit{CreatedAt: now, CreatedBy: identity.Ref(actor)}}
	} else {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return Part{}, err
		}
		p = existing
	}
	p.Name = strings.TrimSpace(in.Name)
	p.PartNo = strings.TrimSpace(in.PartNo)
	p.Price = in.Price.Round(2)
	p.Audit.UpdatedAt = now
	p.Audit.UpdatedBy = identity.Ref(actor)

	if photo != nil {
		url, kind, err := media.SaveUpload(ctx, s.media, "parts", photo)
		if err != nil {
			return Part{}, form.FieldErrors{"file": err.Error()}
		}
		if kind != "photo" {
			return Part{}, form.FieldErrors{"file": "photo must be an image"}
		}
		p.Photo = url
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return Part{}, err
	}
	return p, nil
}

// Assign links (FlagAssign) or unlinks (FlagRemove) every listed machine to
// every listed part.
func (s *Service) Assign(ctx context.Context, in dto.AssignMachinesToParts) error {
	if err := form.Validate(in); err != nil {
		return err
	}
	machines := make([]dto.DropDown, 0, len(in.MachineIDs))
	for _, id := range in.MachineIDs {
		m, err := s.machines.Get(ctx, id)
		if errors.Is(err, machine.ErrNotFound) {
			return ErrUnknownMachine
		}
		if err != nil {
			return err
		}
		machines = append(machines, dto.DropDown{ID: m.ID, Label: m.Name})
	}
	return s.repo.Link(ctx, in.PartIDs, machines, in.Flag == dto.FlagAssign)
}
