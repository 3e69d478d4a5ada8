package machine

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/media"
)

// Service manages machines.
type Service struct {
	repo  Repository
	media media.Store
	nowF  func() time.Time
}

// NewService builds the machine service.
func NewService(repo Repository, store media.Store) *Service {
	return &Service{repo: repo, media: store, nowF: time.Now}
}

// List returns every machine.
func (s *Service) List(ctx context.Context) ([]Machine, error) {
	return s.repo.List(ctx)
}

// Get returns a machine by id.
func (s *Service) Get(ctx context.Context, id string) (Machine, error) {
	return s.repo.FindByID(ctx, id)
}

// Dropdown lists active machines as id/label pairs.
func (s *Service) Dropdown(ctx context.Context) ([]dto.DropDown, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DropDown, 0, len(all))
	for _, m := range all {
		if m.IsActive {
			out = append(out, dto.DropDown{ID: m.ID, Label: m.Name + " (" + m.Model + ")"})
		}
	}
	return out, nil
}

// Save creates a machine when id is empty and updates it otherwise. A photo
// replaces the stored one.
func (s *Service) Save(ctx context.Context, actor identity.User, id string, in dto.CreateOrEditMachine, photo *multipart.FileHeader) (Machine, error) {
	if err := form.Validate(in); err != nil {
		return Machine{}, err
	}
	now := s.nowF().UTC()
	var m Machine
	if id == "" {
		m = Machine{ID: uuid.New().String(), IsActive: true, Audit: dto.Audit{CreatedAt: now, CreatedBy: identity.Ref(actor)}}
	} else {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return Machine{}, err
		}
		m = existing
	}
	m.Name = strings.TrimSpace(in.Name)
	m.Model = strings.TrimSpace(in.Model)
	m.Audit.UpdatedAt = now
	m.Audit.UpdatedBy = identity.Ref(actor)

	if photo != nil {
		url, kind, err := media.SaveUpload(ctx, s.media, "machines", photo)
		if err != nil {
			return Machine{}, form.FieldErrors{"file": err.Error()}
		}
		if kind != "photo" {
			return Machine{}, form.FieldErrors{"file": "photo must be an image"}
		}
		m.Photo = url
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return Machine{}, err
	}
	return m, nil
}
