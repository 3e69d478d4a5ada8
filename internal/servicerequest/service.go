package servicerequest

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/customer"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/media"
	"github.com/fieldops/fieldops/internal/notification"
	"github.com/fieldops/fieldops/internal/otp"
	"github.com/fieldops/fieldops/internal/product"
)

var (
	// ErrForbidden is returned when the acting user may not change the request.
	ErrForbidden = errors.New("you are not allowed to perform this action")
	// ErrClosed is returned for changes to a closed request.
	ErrClosed = errors.New("service request is already closed")
	// ErrNotApproved is returned when closing a request nobody approved.
	ErrNotApproved = errors.New("service request is not approved yet")
	// ErrHappyCode is returned when the closing code does not match.
	ErrHappyCode = errors.New("invalid happy code")
	// ErrCodeLocked is returned once MaxCodeAttempts codes were submitted.
	// An admin approval unlocks the request again.
	ErrCodeLocked = errors.New("too many happy code attempts, ask an admin to re-approve the request")
)

const (
	// MaxMedia bounds the files attached to one request.
	MaxMedia = 10
	// MaxCodeAttempts bounds happy code submissions between approvals.
	MaxCodeAttempts = 5
)

// Service runs the service request lifecycle: open, approve, close.
type Service struct {
	repo      Repository
	products  *product.Service
	customers *customer.Service
	ids       *identity.Service
	media     media.Store
	notifier  notification.Notifier
	logger    *slog.Logger
	nowF      func() time.Time
	codeF     func() (string, error)
}

// NewService wires the request service.
func NewService(repo Repository, products *product.Service, customers *customer.Service, ids *identity.Service,
	store media.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		customers: customers,
		ids:       ids,
		media:     store,
		notifier:  notifier,
		logger:    logger,
		nowF:      time.Now,
		codeF:     otp.Generate,
	}
}

// ShowCode reports whether actor may read a request's happy code. Engineers
// get it from the customer on site.
func ShowCode(actor identity.User) bool {
	return actor.Role != identity.RoleEngineer
}

// List returns the requests visible to actor.
func (s *Service) List(ctx context.Context, actor identity.User) ([]Request, error) {
	f, ok := filterFor(actor)
	if !ok {
		return nil, nil
	}
	return s.repo.List(ctx, f)
}

// Get returns a request visible to actor.
func (s *Service) Get(ctx context.Context, actor identity.User, id string) (Request, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	f, ok := filterFor(actor)
	if !ok || !f.match(r) {
		return Request{}, ErrNotFound
	}
	return r, nil
}

// Create opens a request on a product of the caller's customer. Uploaded
// images become photos and videos become videos. The customer receives the
// happy code that closes the request.
func (s *Service) Create(ctx context.Context, actor identity.User, in dto.NewServiceRequest, files []*multipart.FileHeader) (Request, error) {
	if err := form.Validate(in); err != nil {
		return Request{}, err
	}
	if actor.Role == identity.RoleEngineer {
		return Request{}, ErrForbidden
	}
	if len(files) > MaxMedia {
		return Request{}, form.FieldErrors{"files": fmt.Sprintf("at most %d files", MaxMedia)}
	}
	p, err := s.products.Get(ctx, actor, in.Product)
	if errors.Is(err, product.ErrNotFound) {
		return Request{}, form.FieldErrors{"product": "Select a registered product"}
	}
	if err != nil {
		return Request{}, err
	}
	code, err := s.codeF()
	if err != nil {
		return Request{}, fmt.Errorf("happy code: %w", err)
	}

	now := s.nowF().UTC()
	r := Request{
		ID:        uuid.New().String(),
		Product:   dto.DropDown{ID: p.ID, Label: p.SerialNo},
		Customer:  p.Customer,
		Machine:   p.Machine,
		Problem:   strings.TrimSpace(in.Problem),
		HappyCode: code,
		Audit:     dto.Audit{CreatedAt: now, UpdatedAt: now, CreatedBy: identity.Ref(actor), UpdatedBy: identity.Ref(actor)},
	}
	for _, fh := range files {
		url, kind, err := media.SaveUpload(ctx, s.media, "requests/"+r.ID, fh)
		if err != nil {
			return Request{}, form.FieldErrors{"files": err.Error()}
		}
		if kind == "video" {
			r.Videos = append(r.Videos, url)
		} else {
			r.Photos = append(r.Photos, url)
		}
	}

	r, err = s.repo.Create(ctx, r)
	if err != nil {
		return Request{}, err
	}
	s.notifyCustomer(ctx, r)
	return r, nil
}

// Approve assigns an engineer. Only admins approve.
func (s *Service) Approve(ctx context.Context, actor identity.User, id string, in dto.ApproveServiceRequest) (Request, error) {
	if err := form.Validate(in); err != nil {
		return Request{}, err
	}
	if actor.Role != identity.RoleAdmin {
		return Request{}, ErrForbidden
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.Closed() {
		return Request{}, ErrClosed
	}
	eng, err := s.ids.ByID(ctx, in.Engineer)
	if err != nil || eng.Role != identity.RoleEngineer || !eng.IsActive {
		return Request{}, form.FieldErrors{"engineer": "Engineer is required"}
	}

	now := s.nowF().UTC()
	if !r.IsApproved {
		by := identity.Ref(actor)
		r.IsApproved, r.ApprovedBy, r.ApprovedOn = true, &by, &now
	}
	assigned := identity.Ref(eng)
	r.AssignedEngineer = &assigned
	r.CodeAttempts = 0
	r.Audit.UpdatedAt, r.Audit.UpdatedBy = now, identity.Ref(actor)
	if err := s.repo.Update(ctx, r); err != nil {
		return Request{}, err
	}
	if err := s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindServiceRequest,
		Destination: eng.Mobile,
		Body:        fmt.Sprintf("Service request %s for %s (%s) is assigned to you", r.RequestID, r.Customer.Label, r.Machine.Label),
	}); err != nil {
		s.logger.Warn("engineer notification failed", slog.String("request_id", r.RequestID), slog.Any("error", err))
	}
	return r, nil
}

// Close completes an approved request with the customer's happy code. The
// assigned engineer or an admin may close it.
func (s *Service) Close(ctx context.Context, actor identity.User, id string, in dto.CloseServiceRequest) (Request, error) {
	if err := form.Validate(in); err != nil {
		return Request{}, err
	}
	if in.PayableAmount.IsNegative() || in.PaidAmount.IsNegative() {
		return Request{}, form.FieldErrors{"paid_amount": "Amounts must not be negative"}
	}
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return Request{}, err
	}
	switch actor.Role {
	case identity.RoleAdmin:
	case identity.RoleEngineer:
		if r.AssignedEngineer == nil || r.AssignedEngineer.ID != actor.ID {
			return Request{}, ErrForbidden
		}
	default:
		return Request{}, ErrForbidden
	}
	if r.Closed() {
		return Request{}, ErrClosed
	}
	if !r.IsApproved {
		return Request{}, ErrNotApproved
	}
	attempt, err := s.repo.AddCodeAttempt(ctx, r.ID)
	if err != nil {
		return Request{}, err
	}
	if attempt > MaxCodeAttempts {
		return Request{}, ErrCodeLocked
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(in.Code)), []byte(r.HappyCode)) != 1 {
		s.logger.Warn("happy code rejected", slog.String("request_id", r.RequestID), slog.Int("attempt", attempt))
		if attempt == MaxCodeAttempts {
			return Request{}, ErrCodeLocked
		}
		return Request{}, ErrHappyCode
	}
	r.CodeAttempts = attempt

	now := s.nowF().UTC()
	by := identity.Ref(actor)
	r.ClosedBy, r.ClosedOn = &by, &now
	r.PaymentMode = in.PaymentMode
	if !in.PaymentDate.IsZero() {
		paid := in.PaymentDate.UTC()
		r.PaymentDate = &paid
	}
	r.PayableAmount = in.PayableAmount.Round(2)
	r.PaidAmount = in.PaidAmount.Round(2)
	r.Audit.UpdatedAt, r.Audit.UpdatedBy = now, by
	if err := s.repo.Update(ctx, r); err != nil {
		return Request{}, err
	}
	return r, nil
}

func (s *Service) notifyCustomer(ctx context.Context, r Request) {
	c, err := s.customers.Get(ctx, r.Customer.ID)
	if err != nil {
		s.logger.Warn("customer lookup failed", slog.String("request_id", r.RequestID), slog.Any("error", err))
		return
	}
	err = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindServiceRequest,
		Destination: c.Mobile,
		Body:        fmt.Sprintf("Service request %s registered. Share happy code %s with the engineer once the work is done", r.RequestID, r.HappyCode),
		Secret:      true,
	})
	if err != nil {
		s.logger.Warn("customer notification failed", slog.String("request_id", r.RequestID), slog.Any("error", err))
	}
}

func filterFor(actor identity.User) (Filter, bool) {
	switch actor.Role {
	case identity.RoleAdmin:
		return Filter{}, true
	case identity.RoleEngineer:
		return Filter{EngineerID: actor.ID}, true
	default:
		if actor.CustomerID == "" {
			return Filter{}, false
		}
		return Filter{CustomerID: actor.CustomerID}, true
	}
}
