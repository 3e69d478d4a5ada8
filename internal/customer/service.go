package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
)

// ErrForbidden is returned when the acting user may not touch the customer.
var ErrForbidden = errors.New("you are not allowed to perform this action")

// Service manages customers and their owner accounts.
type Service struct {
	repo   Repository
	ids    *identity.Service
	logger *slog.Logger
	nowF   func() time.Time
}

// NewService builds the customer service and registers it as the identity
// service's customer lookup.
func NewService(repo Repository, ids *identity.Service, logger *slog.Logger) *Service {
	s := &Service{repo: repo, ids: ids, logger: logger, nowF: time.Now}
	ids.SetCustomerLookup(s)
	return s
}

// CustomerName resolves a customer id to its name.
func (s *Service) CustomerName(ctx context.Context, id string) (string, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	return s.repo.FindByID(ctx, id)
}

// Register creates a customer together with its owner account. It is open to
// unauthenticated callers.
func (s *Service) Register(ctx context.Context, in dto.CreateOrEditCustomer) (Customer, error) {
	if err := form.Validate(in); err != nil {
		return Customer{}, err
	}
	if _, err := s.ids.Repository().FindByMobile(ctx, in.Mobile); err == nil {
		return Customer{}, identity.ErrMobileTaken
	} else if !errors.Is(err, identity.ErrNotFound) {
		return Customer{}, err
	}

	now := s.nowF().UTC()
	c := Customer{ID: uuid.New().String(), IsActive: true}
	apply(&c, in)
	c.Audit = dto.Audit{CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, c); err != nil {
		return Customer{}, err
	}
	owner, err := s.ids.Register(ctx, c.ID, c.Name, in)
	if err != nil {
		if derr := s.repo.Delete(ctx, c.ID); derr != nil {
			s.logger.Error("customer rollback failed", slog.String("customer_id", c.ID), slog.Any("error", derr))
		}
		return Customer{}, fmt.Errorf("create owner: %w", err)
	}
	s.logger.Info("customer.register completed", slog.String("customer_id", c.ID), slog.String("owner_id", owner.ID))
	return c, nil
}

// Update edits a customer. Admins may edit any customer, owners their own.
func (s *Service) Update(ctx context.Context, actor identity.User, id string, in dto.CreateOrEditCustomer) (Customer, error) {
	if err := form.Validate(in); err != nil {
		return Customer{}, err
	}
	if !canManage(actor, id) {
		return Customer{}, ErrForbidden
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	apply(&c, in)
	c.Audit.UpdatedAt = s.nowF().UTC()
	c.Audit.UpdatedBy = identity.Ref(actor)
	if err := s.repo.Update(ctx, c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// List returns the customers visible to actor with their user counts.
func (s *Service) List(ctx context.Context, actor identity.User) ([]dto.Customer, error) {
	all, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	counts, err := s.ids.Repository().CountByCustomer(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Customer, 0, len(all))
	for _, c := range all {
		out = append(out, ToDTO(c, counts[c.ID]))
	}
	return out, nil
}

// Dropdown lists active customers visible to actor as id/label pairs.
func (s *Service) Dropdown(ctx context.Context, actor identity.User) ([]dto.DropDown, error) {
	all, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DropDown, 0, len(all))
	for _, c := range all {
		if c.IsActive {
			out = append(out, dto.DropDown{ID: c.ID, Label: c.Name})
		}
	}
	return out, nil
}

func (s *Service) visible(ctx context.Context, actor identity.User) ([]Customer, error) {
	if actor.Role == identity.RoleAdmin || actor.Role == identity.RoleEngineer {
		return s.repo.List(ctx)
	}
	if actor.CustomerID == "" {
		return nil, nil
	}
	c, err := s.repo.FindByID(ctx, actor.CustomerID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []Customer{c}, nil
}

func canManage(actor identity.User, customerID string) bool {
	switch actor.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleOwner:
		return actor.CustomerID == customerID
	default:
		return false
	}
}

func apply(c *Customer, in dto.CreateOrEditCustomer) {
	c.Name = strings.TrimSpace(in.Name)
	c.Address = strings.TrimSpace(in.Address)
	c.GST = strings.ToUpper(strings.TrimSpace(in.GST))
	c.Pincode = in.Pincode
	c.Email = strings.TrimSpace(in.Email)
	c.Mobile = in.Mobile
}
