package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
)

type customerNames map[string]string

func (c customerNames) CustomerName(_ context.Context, id string) (string, error) {
	name, ok := c[id]
	if !ok {
		return "", errors.New("missing")
	}
	return name, nil
}

func newTestService(t *testing.T) (*Service, User) {
	t.Helper()
	svc := NewService(NewMemoryRepository(), customerNames{"c1": "Acme", "c2": "Globex"})
	admin, err := svc.EnsureAdmin(context.Background(), "9999999999")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return svc, admin
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, admin := newTestService(t)
	again, err := svc.EnsureAdmin(context.Background(), "9999999999")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if again.ID != admin.ID {
		t.Fatalf("expected existing admin %s, got %s", admin.ID, again.ID)
	}
}

func TestCreateStaffByAdminAndOwner(t *testing.T) {
	ctx := context.Background()
	svc, admin := newTestService(t)

	owner, err := svc.Create(ctx, admin, dto.CreateOrEditUser{Username: "owner one", Mobile: "9000000001", Role: RoleOwner, Customer: "c1"}, RoleStaff)
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	if owner.Role != RoleOwner || owner.CustomerName != "Acme" {
		t.Fatalf("unexpected owner %+v", owner)
	}

	staff, err := svc.Create(ctx, owner, dto.CreateOrEditUser{Username: "staff one", Mobile: "9000000002", Customer: "c1"}, RoleStaff)
	if err != nil {
		t.Fatalf("owner creates staff: %v", err)
	}
	if staff.Role != RoleStaff {
		t.Fatalf("expected staff role, got %s", staff.Role)
	}

	if _, err := svc.Create(ctx, owner, dto.CreateOrEditUser{Username: "intruder", Mobile: "9000000003", Customer: "c2"}, RoleStaff); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign customer, got %v", err)
	}
	if _, err := svc.Create(ctx, owner, dto.CreateOrEditUser{Username: "engineer", Mobile: "9000000004", Customer: "c1"}, RoleEngineer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for engineer by owner, got %v", err)
	}

	list, err := svc.Staff(ctx, owner, "")
	if err != nil {
		t.Fatalf("staff: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected owner and staff, got %d", len(list))
	}
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, admin := newTestService(t)

	_, err := svc.Create(ctx, admin, dto.CreateOrEditUser{Username: "ab", Mobile: "12", Customer: "c1"}, RoleStaff)
	fields, ok := form.AsFieldErrors(err)
	if !ok || fields["mobile"] == "" {
		t.Fatalf("expected mobile field error, got %v", err)
	}

	if _, err := svc.Create(ctx, admin, dto.CreateOrEditUser{Username: "dupe user", Mobile: "9999999999", Customer: "c1"}, RoleStaff); !errors.Is(err, ErrMobileTaken) {
		t.Fatalf("expected ErrMobileTaken, got %v", err)
	}
	if _, err := svc.Create(ctx, admin, dto.CreateOrEditUser{Username: "lost user", Mobile: "9000000009", Customer: "nope"}, RoleStaff); !errors.Is(err, ErrUnknownCustomer) {
		t.Fatalf("expected ErrUnknownCustomer, got %v", err)
	}
}

func TestEngineerLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, admin := newTestService(t)

	eng, err := svc.Create(ctx, admin, dto.CreateOrEditUser{Username: "field eng", Mobile: "9000000010", Customer: "c1", Role: RoleOwner}, RoleEngineer)
	if err != nil {
		t.Fatalf("create engineer: %v", err)
	}
	if eng.Role != RoleEngineer {
		t.Fatalf("expected engineer role, got %s", eng.Role)
	}

	updated, err := svc.Update(ctx, admin, eng.ID, dto.CreateOrEditUser{Username: "field engineer", Mobile: "9000000011", Customer: "c2"}, RoleEngineer)
	if err != nil {
		t.Fatalf("update engineer: %v", err)
	}
	if updated.Username != "field engineer" || updated.CustomerName != "Globex" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(ctx, admin, eng.ID, dto.CreateOrEditUser{Username: "field engineer", Mobile: "9000000011", Customer: "c2"}, RoleStaff); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected engineer hidden from staff endpoint, got %v", err)
	}

	engineers, err := svc.Engineers(ctx)
	if err != nil {
		t.Fatalf("engineers: %v", err)
	}
	if len(engineers) != 1 || engineers[0].ID != eng.ID {
		t.Fatalf("unexpected engineers %+v", engineers)
	}
}

func TestForLoginAndRecordLogin(t *testing.T) {
	ctx := context.Background()
	svc, admin := newTestService(t)

	if _, err := svc.ForLogin(ctx, "9123456789"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.RecordLogin(ctx, admin.ID); err != nil {
		t.Fatalf("record login: %v", err)
	}
	got, err := svc.ForLogin(ctx, admin.Mobile)
	if err != nil {
		t.Fatalf("for login: %v", err)
	}
	if got.LastLogin == nil {
		t.Fatalf("expected last login stamped")
	}

	inactive := got
	inactive.IsActive = false
	if err := svc.Repository().Update(ctx, inactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.ForLogin(ctx, admin.Mobile); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestToDTO(t *testing.T) {
	out := ToDTO(User{ID: "u1", Username: "a", CustomerID: "c1", CustomerName: "Acme"})
	if out.Customer == nil || out.Customer.Label != "Acme" {
		t.Fatalf("expected customer dropdown, got %+v", out.Customer)
	}
	if ToDTO(User{ID: "u2"}).Customer != nil {
		t.Fatalf("expected no customer for admin")
	}
}
