package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no product matches.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateSerial is returned when the serial number is registered.
	ErrDuplicateSerial = errors.New("serial number already registered")
)

// Repository persists registered products.
type Repository interface {
	Save(ctx context.Context, p Product) error
	FindByID(ctx context.Context, id string) (Product, error)
	// List returns products of customerID, or all when it is empty.
	List(ctx context.Context, customerID string) ([]Product, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed product repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectProducts = `SELECT p.id, p.sl_no, m.id, m.name, m.photo, c.id, c.name, p.is_installed,
        p.installation_date, p.warranty_upto, p.is_active, p.created_at, p.updated_at,
        p.created_by, COALESCE(cb.username, ''), p.updated_by, COALESCE(ub.username, '')
    FROM registered_products p
    JOIN machines m ON m.id = p.machine_id
    JOIN customers c ON c.id = p.customer_id
    LEFT JOIN users cb ON cb.id = p.created_by
    LEFT JOIN users ub ON ub.id = p.updated_by`

// Save inserts or updates a product.
func (r *PostgresRepository) Save(ctx context.Context, p Product) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	machineID, err := uuid.Parse(p.Machine.ID)
	if err != nil {
		return err
	}
	customerID, err := uuid.Parse(p.Customer.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO registered_products (id, sl_no, machine_id, customer_id, is_installed,
            installation_date, warranty_upto, is_active, created_at, updated_at, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO UPDATE SET sl_no = EXCLUDED.sl_no, machine_id = EXCLUDED.machine_id,
            customer_id = EXCLUDED.customer_id, is_installed = EXCLUDED.is_installed,
            installation_date = EXCLUDED.installation_date, warranty_upto = EXCLUDED.warranty_upto,
            is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by`,
		id, p.SerialNo, machineID, customerID, p.IsInstalled, p.InstallationDate, p.WarrantyUpto, p.IsActive,
		p.Audit.CreatedAt.UTC(), p.Audit.UpdatedAt.UTC(), nullableUUID(p.Audit.CreatedBy.ID), nullableUUID(p.Audit.UpdatedBy.ID))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSerial
	}
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return Product{}, ErrNotFound
	}
	return scanProduct(r.db.QueryRow(ctx, selectProducts+` WHERE p.id = $1`, pid))
}

func (r *PostgresRepository) List(ctx context.Context, customerID string) ([]Product, error) {
	var cid any
	if customerID != "" {
		id, err := uuid.Parse(customerID)
		if err != nil {
			return nil, nil
		}
		cid = id
	}
	rows, err := r.db.Query(ctx, selectProducts+` WHERE ($1::uuid IS NULL OR p.customer_id = $1) ORDER BY p.created_at DESC`, cid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		id, machineID, customerID uuid.UUID
		createdBy, updatedBy      *uuid.UUID
		p                         Product
	)
	err := row.Scan(&id, &p.SerialNo, &machineID, &p.Machine.Label, &p.MachinePhoto, &customerID, &p.Customer.Label,
		&p.IsInstalled, &p.InstallationDate, &p.WarrantyUpto, &p.IsActive, &p.Audit.CreatedAt, &p.Audit.UpdatedAt,
		&createdBy, &p.Audit.CreatedBy.Label, &updatedBy, &p.Audit.UpdatedBy.Label)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.ID = id.String()
	p.Machine.ID = machineID.String()
	p.Customer.ID = customerID.String()
	if createdBy != nil {
		p.Audit.CreatedBy.ID = createdBy.String()
	}
	if updatedBy != nil {
		p.Audit.UpdatedBy.ID = updatedBy.String()
	}
	return p, nil
}

func nullableUUID(s string) any {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return id
}
