package sparepart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/machine"
	"github.com/fieldops/fieldops/internal/media"
)

var admin = identity.User{ID: "admin-1", Username: "admin", Role: identity.RoleAdmin, IsActive: true}

func newTestService(t *testing.T) (*Service, machine.Machine) {
	t.Helper()
	store := media.NewMemoryStore()
	machines := machine.NewService(machine.NewMemoryRepository(), store)
	m, err := machines.Save(context.Background(), admin, "", dto.CreateOrEditMachine{Name: "Filler", Model: "F-200"}, nil)
	if err != nil {
		t.Fatalf("machine: %v", err)
	}
	return NewService(NewMemoryRepository(), machines, store), m
}

func TestSaveRoundsPrice(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Save(context.Background(), admin, "", dto.CreateOrEditSparePart{Name: "Seal kit", PartNo: "SK-1", Price: decimal.RequireFromString("12.345")}, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !p.Price.Equal(decimal.RequireFromString("12.35")) {
		t.Fatalf("expected 12.35, got %s", p.Price)
	}
}

func TestSaveRejectsNegativePrice(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Save(context.Background(), admin, "", dto.CreateOrEditSparePart{Name: "Seal kit", PartNo: "SK-1", Price: decimal.NewFromInt(-1)}, nil)
	var fe form.FieldErrors
	if !errors.As(err, &fe) || fe["price"] == "" {
		t.Fatalf("expected price field error, got %v", err)
	}
}

func TestSaveRejectsDuplicatePartNo(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if _, err := svc.Save(ctx, admin, "", dto.CreateOrEditSparePart{Name: "Seal kit", PartNo: "SK-1"}, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Save(ctx, admin, "", dto.CreateOrEditSparePart{Name: "Other", PartNo: "SK-1"}, nil); !errors.Is(err, ErrDuplicatePartNo) {
		t.Fatalf("expected ErrDuplicatePartNo, got %v", err)
	}
}

func TestAssignAndRemoveMachines(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService(t)
	p, err := svc.Save(ctx, admin, "", dto.CreateOrEditSparePart{Name: "Seal kit", PartNo: "SK-1"}, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	in := dto.AssignMachinesToParts{MachineIDs: []string{m.ID}, PartIDs: []string{p.ID}, Flag: dto.FlagAssign}
	if err := svc.Assign(ctx, in); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Assigning twice must not duplicate the link.
	if err := svc.Assign(ctx, in); err != nil {
		t.Fatalf("assign again: %v", err)
	}
	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || len(all[0].Machines) != 1 || all[0].Machines[0].ID != m.ID {
		t.Fatalf("expected one linked machine, got %+v", all)
	}

	in.Flag = dto.FlagRemove
	if err := svc.Assign(ctx, in); err != nil {
		t.Fatalf("remove: %v", err)
	}
	all, _ = svc.List(ctx)
	if len(all[0].Machines) != 0 {
		t.Fatalf("expected machines removed, got %+v", all[0].Machines)
	}
}

func TestAssignUnknownMachine(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p, _ := svc.Save(ctx, admin, "", dto.CreateOrEditSparePart{Name: "Seal kit", PartNo: "SK-1"}, nil)

	err := svc.Assign(ctx, dto.AssignMachinesToParts{MachineIDs: []string{"missing"}, PartIDs: []string{p.ID}, Flag: dto.FlagAssign})
	if !errors.Is(err, ErrUnknownMachine) {
		t.Fatalf("expected ErrUnknownMachine, got %v", err)
	}
}
