package machine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no machine matches.
var ErrNotFound = errors.New("machine not found")

// Repository persists machines.
type Repository interface {
	Save(ctx context.Context, m Machine) error
	FindByID(ctx context.Context, id string) (Machine, error)
	List(ctx context.Context) ([]Machine, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed machine repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectMachines = `SELECT m.id, m.name, m.model, m.photo, m.is_active, m.created_at, m.updated_at,
        m.created_by, COALESCE(cb.username, ''), m.updated_by, COALESCE(ub.username, '')
    FROM machines m
    LEFT JOIN users cb ON cb.id = m.created_by
    LEFT JOIN users ub ON ub.id = m.updated_by`

// Save inserts or updates a machine.
func (r *PostgresRepository) Save(ctx context.Context, m Machine) error {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO machines (id, name, model, photo, is_active, created_at, updated_at, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, model = EXCLUDED.model, photo = EXCLUDED.photo,
            is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by`,
		id, m.Name, m.Model, m.Photo, m.IsActive, m.Audit.CreatedAt.UTC(), m.Audit.UpdatedAt.UTC(),
		nullableUUID(m.Audit.CreatedBy.ID), nullableUUID(m.Audit.UpdatedBy.ID))
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Machine, error) {
	mid, err := uuid.Parse(id)
	if err != nil {
		return Machine{}, ErrNotFound
	}
	return scanMachine(r.db.QueryRow(ctx, selectMachines+` WHERE m.id = $1`, mid))
}

func (r *PostgresRepository) List(ctx context.Context) ([]Machine, error) {
	rows, err := r.db.Query(ctx, selectMachines+` ORDER BY m.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMachine(row pgx.Row) (Machine, error) {
	var (
		id                   uuid.UUID
		createdBy, updatedBy *uuid.UUID
		m                    Machine
	)
	err := row.Scan(&id, &m.Name, &m.Model, &m.Photo, &m.IsActive, &m.Audit.CreatedAt, &m.Audit.UpdatedAt,
		&createdBy, &m.Audit.CreatedBy.Label, &updatedBy, &m.Audit.UpdatedBy.Label)
	if errors.Is(err, pgx.ErrNoRows) {
		return Machine{}, ErrNotFound
	}
	if err != nil {
		return Machine{}, err
	}
	m.ID = id.String()
	if createdBy != nil {
		m.Audit.CreatedBy.ID = createdBy.String()
	}
	if updatedBy != nil {
		m.Audit.UpdatedBy.ID = updatedBy.String()
	}
	return m, nil
}

func nullableUUID(s string) any {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return id
}
