package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/logging"
)

func newTestService(t *testing.T) (*Service, *identity.Service, identity.User) {
	t.Helper()
	ids := identity.NewService(identity.NewMemoryRepository(), nil)
	admin, err := ids.EnsureAdmin(context.Background(), "9999999999")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return NewService(NewMemoryRepository(), ids, logging.Discard()), ids, admin
}

func acme(mobile string) dto.CreateOrEditCustomer {
	return dto.CreateOrEditCustomer{
		Name:    "Acme Foods",
		Address: "12 Mill Road",
		GST:     "22aaaaa0000a1z5",
		Pincode: 560001,
		Email:   "ops@acme.test",
		Mobile:  mobile,
	}
}

func TestRegisterCreatesOwner(t *testing.T) {
	ctx := context.Background()
	svc, ids, _ := newTestService(t)

	c, err := svc.Register(ctx, acme("9000000001"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if c.GST != "22AAAAA0000A1Z5" {
		t.Fatalf("expected normalised gst, got %s", c.GST)
	}

	owner, err := ids.ForLogin(ctx, "9000000001")
	if err != nil {
		t.Fatalf("owner login lookup: %v", err)
	}
	if owner.Role != identity.RoleOwner || owner.CustomerID != c.ID || owner.CustomerName != "Acme Foods" {
		t.Fatalf("unexpected owner %+v", owner)
	}
}

func TestRegisterRejectsTakenMobile(t *testing.T) {
	ctx := context.Background()
	svc, _, admin := newTestService(t)

	if _, err := svc.Register(ctx, acme(admin.Mobile)); !errors.Is(err, identity.ErrMobileTaken) {
		t.Fatalf("expected ErrMobileTaken, got %v", err)
	}
	all, err := svc.List(ctx, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no customer to be left behind, got %d", len(all))
	}
}

func TestRegisterValidates(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := acme("9000000001")
	in.Pincode = 12

	_, err := svc.Register(context.Background(), in)
	var fe form.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected field errors, got %v", err)
	}
}

func TestUpdatePermissions(t *testing.T) {
	ctx := context.Background()
	svc, ids, admin := newTestService(t)

	first, err := svc.Register(ctx, acme("9000000001"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second := acme("9000000002")
	second.Name = "Globex Corp"
	other, err := svc.Register(ctx, second)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	owner, err := ids.ForLogin(ctx, "9000000001")
	if err != nil {
		t.Fatalf("owner: %v", err)
	}

	edit := acme("9000000001")
	edit.Address = "14 Mill Road"
	updated, err := svc.Update(ctx, owner, first.ID, edit)
	if err != nil {
		t.Fatalf("owner updates own customer: %v", err)
	}
	if updated.Address != "14 Mill Road" || updated.Audit.UpdatedBy.ID != owner.ID {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(ctx, owner, other.ID, second); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign customer, got %v", err)
	}
	if _, err := svc.Update(ctx, admin, other.ID, second); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	ctx := context.Background()
	svc, ids, admin := newTestService(t)

	first, err := svc.Register(ctx, acme("9000000001"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second := acme("9000000002")
	second.Name = "Globex Corp"
	if _, err := svc.Register(ctx, second); err != nil {
		t.Fatalf("register: %v", err)
	}

	all, err := svc.List(ctx, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin should see 2 customers, got %d", len(all))
	}
	if all[0].Users != 1 {
		t.Fatalf("expected owner counted, got %d", all[0].Users)
	}

	owner, _ := ids.ForLogin(ctx, "9000000001")
	own, err := svc.Dropdown(ctx, owner)
	if err != nil {
		t.Fatalf("dropdown: %v", err)
	}
	if len(own) != 1 || own[0].ID != first.ID {
		t.Fatalf("owner should only see own customer, got %+v", own)
	}
}
