package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrMobileTaken is returned when the mobile number already belongs to a user.
	ErrMobileTaken = errors.New("mobile number already registered")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByMobile(ctx context.Context, mobile string) (User, error)
	List(ctx context.Context, f Filter) ([]User, error)
	CountByCustomer(ctx context.Context) (map[string]int, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUsers = `SELECT u.id, u.username, u.email, u.mobile, u.role, u.customer_id, COALESCE(c.name, ''),
        u.is_active, u.last_login, u.created_at, u.updated_at
    FROM users u LEFT JOIN customers c ON c.id = u.customer_id`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, username, email, mobile, role, customer_id, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		userID, user.Username, user.Email, user.Mobile, user.Role, nullableUUID(user.CustomerID), user.IsActive,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return translate(err)
}

// Update overwrites the editable columns of a user.
func (r *PostgresRepository) Update(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET username = $1, email = $2, mobile = $3, role = $4, customer_id = $5,
        is_active = $6, updated_at = $7 WHERE id = $8`,
		user.Username, user.Email, user.Mobile, user.Role, nullableUUID(user.CustomerID), user.IsActive, user.UpdatedAt.UTC(), userID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, selectUsers+` WHERE u.id = $1`, userID))
}

// FindByMobile fetches a user by mobile number.
func (r *PostgresRepository) FindByMobile(ctx context.Context, mobile string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUsers+` WHERE u.mobile = $1`, mobile))
}

// List returns users matching f ordered by name.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]User, error) {
	var customerID any
	if f.CustomerID != "" {
		id, err := uuid.Parse(f.CustomerID)
		if err != nil {
			return nil, nil
		}
		customerID = id
	}
	roles := f.Roles
	if roles == nil {
		roles = []string{}
	}
	rows, err := r.db.Query(ctx, selectUsers+`
        WHERE ($1::uuid IS NULL OR u.customer_id = $1)
          AND (cardinality($2::text[]) = 0 OR u.role = ANY($2))
        ORDER BY u.username`, customerID, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountByCustomer returns the number of users per customer id.
func (r *PostgresRepository) CountByCustomer(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT customer_id, COUNT(*) FROM users WHERE customer_id IS NOT NULL GROUP BY customer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var (
			id uuid.UUID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id.String()] = n
	}
	return counts, rows.Err()
}

// TouchLogin records a successful login.
func (r *PostgresRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC(), userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id         uuid.UUID
		customerID *uuid.UUID
		user       User
	)
	err := row.Scan(&id, &user.Username, &user.Email, &user.Mobile, &user.Role, &customerID, &user.CustomerName,
		&user.IsActive, &user.LastLogin, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	if customerID != nil {
		user.CustomerID = customerID.String()
	}
	return user, nil
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
		return ErrMobileTaken
	}
	return err
}
