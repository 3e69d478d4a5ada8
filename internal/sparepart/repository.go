package sparepart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldops/internal/dto"
)

var (
	// ErrNotFound is returned when no part matches.
	ErrNotFound = errors.New("spare part not found")
	// ErrDuplicatePartNo is returned when the part number is taken.
	ErrDuplicatePartNo = errors.New("part number already exists")
)

// Repository persists parts and their machine compatibility.
type Repository interface {
	Save(ctx context.Context, p Part) error
	FindByID(ctx context.Context, id string) (Part, error)
	List(ctx context.Context) ([]Part, error)
	// Link adds (assign) or removes every part/machine pair.
	Link(ctx context.Context, partIDs []string, machines []dto.DropDown, assign bool) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed part repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectParts = `SELECT p.id, p.name, p.partno, p.photo, p.price::text, p.is_active, p.created_at, p.updated_at,
        p.created_by, COALESCE(cb.username, ''), p.updated_by, COALESCE(ub.username, '')
    FROM spare_parts p
    LEFT JOIN users cb ON cb.id = p.created_by
    LEFT JOIN users ub ON ub.id = p.updated_by`

// Save inserts or updates a part.
func (r *PostgresRepository) Save(ctx context.Context, p Part) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO spare_parts (id, name, partno, photo, price, is_active, created_at, updated_at, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, partno = EXCLUDED.partno, photo = EXCLUDED.photo,
            price = EXCLUDED.price, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at,
            updated_by = EXCLUDED.updated_by`,
		id, p.Name, p.PartNo, p.Photo, p.Price.String(), p.IsActive, p.Audit.CreatedAt.UTC(), p.Audit.UpdatedAt.UTC(),
		nullableUUID(p.Audit.CreatedBy.ID), nullableUUID(p.Audit.UpdatedBy.ID))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicatePartNo
	}
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Part, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return Part{}, ErrNotFound
	}
	p, err := scanPart(r.db.QueryRow(ctx, selectParts+` WHERE p.id = $1`, pid))
	if err != nil {
		return Part{}, err
	}
	links, err := r.links(ctx, []uuid.UUID{pid})
	if err != nil {
		return Part{}, err
	}
	p.Machines = links[p.ID]
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Part, error) {
	rows, err := r.db.Query(ctx, selectParts+` ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	var out []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := r.links(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Machines = links[out[i].ID]
	}
	return out, nil
}

// links loads compatible machines keyed by part id; nil ids loads all.
func (r *PostgresRepository) links(ctx context.Context, ids []uuid.UUID) (map[string][]dto.DropDown, error) {
	rows, err := r.db.Query(ctx, `SELECT pm.part_id, m.id, m.name FROM part_machines pm
        JOIN machines m ON m.id = pm.machine_id
        WHERE $1::uuid[] IS NULL OR pm.part_id = ANY($1)
        ORDER BY m.name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]dto.DropDown)
	for rows.Next() {
		var (
			partID, machineID uuid.UUID
			name              string
		)
		if err := rows.Scan(&partID, &machineID, &name); err != nil {
			return nil, err
		}
		out[partID.String()] = append(out[partID.String()], dto.DropDown{ID: machineID.String(), Label: name})
	}
	return out, rows.Err()
}

// Link updates part_machines in one transaction.
func (r *PostgresRepository) Link(ctx context.Context, partIDs []string, machines []dto.DropDown, assign bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range partIDs {
		pid, err := uuid.Parse(p)
		if err != nil {
			return ErrNotFound
		}
		for _, m := range machines {
			mid, err := uuid.Parse(m.ID)
			if err != nil {
				return err
			}
			if assign {
				_, err = tx.Exec(ctx, `INSERT INTO part_machines (part_id, machine_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, pid, mid)
			} else {
				_, err = tx.Exec(ctx, `DELETE FROM part_machines WHERE part_id = $1 AND machine_id = $2`, pid, mid)
			}
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" {
					return ErrNotFound
				}
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func scanPart(row pgx.Row) (Part, error) {
	var (
		id                   uuid.UUID
		price                string
		createdBy, updatedBy *uuid.UUID
		p                    Part
	)
	err := row.Scan(&id, &p.Name, &p.PartNo, &p.Photo, &price, &p.IsActive, &p.Audit.CreatedAt, &p.Audit.UpdatedAt,
		&createdBy, &p.Audit.CreatedBy.Label, &updatedBy, &p.Audit.UpdatedBy.Label)
	if errors.Is(err, pgx.ErrNoRows) {
		return Part{}, ErrNotFound
	}
	if err != nil {
		return Part{}, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Part{}, err
	}
	p.ID = id.String()
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
