package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
)

var (
	// ErrForbidden is returned when the acting user may not perform the change.
	ErrForbidden = errors.New("you are not allowed to perform this action")
	// ErrInactive is returned for deactivated accounts.
	ErrInactive = errors.New("user is inactive")
	// ErrUnknownCustomer is returned when a user references a missing customer.
	ErrUnknownCustomer = errors.New("customer not found")
)

// CustomerLookup resolves customer names for new users.
type CustomerLookup interface {
	CustomerName(ctx context.Context, id string) (string, error)
}

// Service manages users and their roles.
type Service struct {
	repo      Repository
	customers CustomerLookup
	nowF      func() time.Time
}

// NewService creates a new identity service. customers may be nil until the
// customer service is built; see SetCustomerLookup.
func NewService(repo Repository, customers CustomerLookup) *Service {
	return &Service{repo: repo, customers: customers, nowF: time.Now}
}

// SetCustomerLookup wires the customer resolver after construction.
func (s *Service) SetCustomerLookup(customers CustomerLookup) {
	s.customers = customers
}

// Repository exposes the backing store.
func (s *Service) Repository() Repository {
	return s.repo
}

// ByID returns a user by id.
func (s *Service) ByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// ForLogin returns the active user owning mobile.
func (s *Service) ForLogin(ctx context.Context, mobile string) (User, error) {
	user, err := s.repo.FindByMobile(ctx, mobile)
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrInactive
	}
	return user, nil
}

// RecordLogin stamps the last login time.
func (s *Service) RecordLogin(ctx context.Context, id string) error {
	return s.repo.TouchLogin(ctx, id, s.nowF())
}

// Create adds a user with role. Owners may only add staff to their own
// customer; admins may add anyone.
func (s *Service) Create(ctx context.Context, actor User, in dto.CreateOrEditUser, role string) (User, error) {
	if err := form.Validate(in); err != nil {
		return User{}, err
	}
	role, err := resolveRole(role, in.Role, RoleStaff)
	if err != nil {
		return User{}, err
	}
	if err := s.authorize(actor, in.Customer, role); err != nil {
		return User{}, err
	}
	name, err := s.customerName(ctx, in.Customer)
	if err != nil {
		return User{}, err
	}
	now := s.nowF().UTC()
	user := User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		Mobile:       in.Mobile,
		Role:         role,
		CustomerID:   in.Customer,
		CustomerName: name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Update edits a user. The user's role family (engineer or customer user)
// cannot change through this call.
func (s *Service) Update(ctx context.Context, actor User, id string, in dto.CreateOrEditUser, role string) (User, error) {
	if err := form.Validate(in); err != nil {
		return User{}, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if (user.Role == RoleEngineer) != (role == RoleEngineer) {
		return User{}, ErrNotFound
	}
	current := user.Role
	role, err = resolveRole(role, in.Role, current)
	if err != nil {
		return User{}, err
	}
	if err := s.authorize(actor, user.CustomerID, user.Role); err != nil {
		return User{}, err
	}
	if err := s.authorize(actor, in.Customer, role); err != nil {
		return User{}, err
	}
	name, err := s.customerName(ctx, in.Customer)
	if err != nil {
		return User{}, err
	}
	user.Username = strings.TrimSpace(in.Username)
	user.Email = strings.TrimSpace(in.Email)
	user.Mobile = in.Mobile
	user.Role = role
	user.CustomerID = in.Customer
	user.CustomerName = name
	user.UpdatedAt = s.nowF().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Staff lists the owners and staff visible to actor.
func (s *Service) Staff(ctx context.Context, actor User, customerID string) ([]User, error) {
	f := Filter{Roles: []string{RoleOwner, RoleStaff}}
	switch actor.Role {
	case RoleAdmin:
		f.CustomerID = customerID
	case RoleOwner, RoleStaff:
		f.CustomerID = actor.CustomerID
	default:
		return nil, ErrForbidden
	}
	return s.repo.List(ctx, f)
}

// Engineers lists every engineer.
func (s *Service) Engineers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx, Filter{Roles: []string{RoleEngineer}})
}

// Register adds the owner account of a newly registered customer.
func (s *Service) Register(ctx context.Context, customerID, customerName string, in dto.CreateOrEditCustomer) (User, error) {
	now := s.nowF().UTC()
	user := User{
		ID:           uuid.New().String(),
		Username:     in.Name,
		Email:        in.Email,
		Mobile:       in.Mobile,
		Role:         RoleOwner,
		CustomerID:   customerID,
		CustomerName: customerName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// EnsureAdmin creates the administrator account for mobile when no user owns
// that number yet.
func (s *Service) EnsureAdmin(ctx context.Context, mobile string) (User, error) {
	user, err := s.repo.FindByMobile(ctx, mobile)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	now := s.nowF().UTC()
	user = User{
		ID:        uuid.New().String(),
		Username:  "admin",
		Mobile:    mobile,
		Role:      RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, fmt.Errorf("create admin: %w", err)
	}
	return user, nil
}

// resolveRole picks the role for a user managed through the family endpoint:
// engineers stay engineers, customer users take the requested role or keep
// fallback.
func resolveRole(family, requested, fallback string) (string, error) {
	if family == RoleEngineer {
		return RoleEngineer, nil
	}
	switch requested {
	case "":
		return fallback, nil
	case RoleOwner, RoleStaff, RoleAdmin:
		return requested, nil
	default:
		return "", ErrForbidden
	}
}

func (s *Service) authorize(actor User, customerID, role string) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleOwner:
		if role == RoleStaff && customerID == actor.CustomerID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *Service) customerName(ctx context.Context, id string) (string, error) {
	if s.customers == nil {
		return "", nil
	}
	name, err := s.customers.CustomerName(ctx, id)
	if err != nil {
		return "", ErrUnknownCustomer
	}
	return name, nil
}

// ToDTO converts a user to its wire form.
func ToDTO(u User) dto.User {
	out := dto.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      u.Role,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.CustomerID != "" {
		out.Customer = &dto.DropDown{ID: u.CustomerID, Label: u.CustomerName}
	}
	return out
}

// ToDTOs converts a slice of users.
func ToDTOs(users []User) []dto.User {
	out := make([]dto.User, 0, len(users))
	for _, u := range users {
		out = append(out, ToDTO(u))
	}
	return out
}
