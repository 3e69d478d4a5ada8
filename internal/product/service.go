package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/customer"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/machine"
)

// ErrForbidden is returned when the acting user may not touch the product.
var ErrForbidden = errors.New("you are not allowed to perform this action")

// Service manages registered products.
type Service struct {
	repo      Repository
	machines  *machine.Service
	customers *customer.Service
	nowF      func() time.Time
}

// NewService builds the product service.
func NewService(repo Repository, machines *machine.Service, customers *customer.Service) *Service {
	return &Service{repo: repo, machines: machines, customers: customers, nowF: time.Now}
}

// Visible reports whether actor may see products of customerID.
func Visible(actor identity.User, customerID string) bool {
	switch actor.Role {
	case identity.RoleAdmin, identity.RoleEngineer:
		return true
	default:
		return actor.CustomerID != "" && actor.CustomerID == customerID
	}
}

// List returns the products visible to actor.
func (s *Service) List(ctx context.Context, actor identity.User) ([]Product, error) {
	switch actor.Role {
	case identity.RoleAdmin, identity.RoleEngineer:
		return s.repo.List(ctx, "")
	}
	if actor.CustomerID == "" {
		return nil, nil
	}
	return s.repo.List(ctx, actor.CustomerID)
}

// Get returns a product visible to actor.
func (s *Service) Get(ctx context.Context, actor identity.User, id string) (Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !Visible(actor, p.Customer.ID) {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// Dropdown lists visible active products labelled by serial and machine.
func (s *Service) Dropdown(ctx context.Context, actor identity.User) ([]dto.DropDown, error) {
	all, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DropDown, 0, len(all))
	for _, p := range all {
		if p.IsActive {
			out = append(out, dto.DropDown{ID: p.ID, Label: p.SerialNo + " - " + p.Machine.Label})
		}
	}
	return out, nil
}

// Save registers a product when id is empty and edits it otherwise. Marking
// a product installed starts its warranty.
func (s *Service) Save(ctx context.Context, actor identity.User, id string, in dto.CreateOrEditRegisteredProduct) (Product, error) {
	if err := form.Validate(in); err != nil {
		return Product{}, err
	}
	if actor.Role != identity.RoleAdmin && !(actor.Role == identity.RoleOwner && actor.CustomerID == in.Customer) {
		return Product{}, ErrForbidden
	}
	m, err := s.machines.Get(ctx, in.Machine)
	if errors.Is(err, machine.ErrNotFound) {
		return Product{}, form.FieldErrors{"machine": "Machine type is required"}
	}
	if err != nil {
		return Product{}, err
	}
	c, err := s.customers.Get(ctx, in.Customer)
	if errors.Is(err, customer.ErrNotFound) {
		return Product{}, form.FieldErrors{"customer": "Customer is required"}
	}
	if err != nil {
		return Product{}, err
	}

	now := s.nowF().UTC()
	var p Product
	if id == "" {
		p = Product{ID: uuid.New().String(), IsActive: true, Audit: dto.Audit{CreatedAt: now, CreatedBy: identity.Ref(actor)}}
	} else {
		if p, err = s.Get(ctx, actor, id); err != nil {
			return Product{}, err
		}
	}
	p.SerialNo = strings.TrimSpace(in.SerialNo)
	p.Machine = dto.DropDown{ID: m.ID, Label: m.Name}
	p.MachinePhoto = m.Photo
	p.Customer = dto.DropDown{ID: c.ID, Label: c.Name}
	if in.IsInstalled && !p.IsInstalled && p.InstallationDate == nil {
		installed := now
		warranty := now.Add(WarrantyPeriod)
		p.InstallationDate, p.WarrantyUpto = &installed, &warranty
	}
	p.IsInstalled = in.IsInstalled
	p.Audit.UpdatedAt = now
	p.Audit.UpdatedBy = identity.Ref(actor)
	if err := s.repo.Save(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}
