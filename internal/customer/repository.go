package customer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no customer matches.
	ErrNotFound = errors.New("customer not found")
	// ErrDuplicate is returned when the mobile number is already registered.
	ErrDuplicate = errors.New("customer with this mobile already exists")
)

// Repository persists customers.
type Repository interface {
	Create(ctx context.Context, c Customer) error
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context) ([]Customer, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed customer repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectCustomers = `SELECT c.id, c.name, c.address, c.gst, c.pincode, c.email, c.mobile, c.is_active,
        c.created_at, c.updated_at, c.created_by, COALESCE(cb.username, ''), c.updated_by, COALESCE(ub.username, '')
    FROM customers c
    LEFT JOIN users cb ON cb.id = c.created_by
    LEFT JOIN users ub ON ub.id = c.updated_by`

func (r *PostgresRepository) Create(ctx context.Context, c Customer) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO customers (id, name, address, gst, pincode, email, mobile, is_active,
        created_at, updated_at, created_by, updated_by) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, c.Name, c.Address, c.GST, c.Pincode, c.Email, c.Mobile, c.IsActive,
		c.Audit.CreatedAt.UTC(), c.Audit.UpdatedAt.UTC(), nullableUUID(c.Audit.CreatedBy.ID), nullableUUID(c.Audit.UpdatedBy.ID))
	return translate(err)
}

func (r *PostgresRepository) Update(ctx context.Context, c Customer) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE customers SET name = $1, address = $2, gst = $3, pincode = $4, email = $5,
        mobile = $6, is_active = $7, updated_at = $8, updated_by = $9 WHERE id = $10`,
		c.Name, c.Address, c.GST, c.Pincode, c.Email, c.Mobile, c.IsActive, c.Audit.UpdatedAt.UTC(),
		nullableUUID(c.Audit.UpdatedBy.ID), id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	cid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, cid)
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Customer, error) {
	cid, err := uuid.Parse(id)
	if err != nil {
		return Customer{}, ErrNotFound
	}
	return scanCustomer(r.db.QueryRow(ctx, selectCustomers+` WHERE c.id = $1`, cid))
}

func (r *PostgresRepository) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.db.Query(ctx, selectCustomers+` ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		id                   uuid.UUID
		createdBy, updatedBy *uuid.UUID
		c                    Customer
	)
	err := row.Scan(&id, &c.Name, &c.Address, &c.GST, &c.Pincode, &c.Email, &c.Mobile, &c.IsActive,
		&c.Audit.CreatedAt, &c.Audit.UpdatedAt, &createdBy, &c.Audit.CreatedBy.Label, &updatedBy, &c.Audit.UpdatedBy.Label)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	c.ID = id.String()
	if createdBy != nil {
		c.Audit.CreatedBy.ID = createdBy.String()
	}
	if updatedBy != nil {
		c.Audit.UpdatedBy.ID = updatedBy.String()
	}
	return c, nil
}

func nullableUUID(s string) any {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return id
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
