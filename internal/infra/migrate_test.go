package infra

import (
	"io/fs"
	"testing"
)

func TestMigrateRejectsBadInput(t *testing.T) {
	if err := Migrate("", "up"); err == nil {
		t.Fatalf("expected error without DSN")
	}
	if err := Migrate("postgres://localhost/fieldops", "sideways"); err == nil {
		t.Fatalf("expected error for invalid direction")
	}
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(ups) == 0 || len(ups) != len(downs) {
		t.Fatalf("expected paired migrations, got %d up and %d down", len(ups), len(downs))
	}
}
