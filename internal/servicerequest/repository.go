package servicerequest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fieldops/fieldops/internal/dto"
)

// ErrNotFound is returned when no request matches.
var ErrNotFound = errors.New("service request not found")

// Repository persists service requests.
type Repository interface {
	// Create stores r and returns it with its RequestID assigned.
	Create(ctx context.Context, r Request) (Request, error)
	Update(ctx context.Context, r Request) error
	FindByID(ctx context.Context, id string) (Request, error)
	List(ctx context.Context, f Filter) ([]Request, error)
	// AddCodeAttempt atomically counts one happy code submission and returns
	// the new count.
	AddCodeAttempt(ctx context.Context, id string) (int, error)
}

// FormatRequestID renders the human-readable number of the n-th request.
func FormatRequestID(n int64) string {
	return fmt.Sprintf("SR-%04d", n)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed request repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectRequests = `SELECT r.id, r.request_id, p.id, p.sl_no, c.id, c.name, m.id, m.name, r.problem, r.photos, r.videos,
        r.payment_mode, r.payment_date, r.payable_amount::text, r.paid_amount::text, r.is_approved,
        r.approved_by, COALESCE(ab.username, ''), r.approved_on,
        r.assigned_engineer, COALESCE(ae.username, ''),
        r.closed_by, COALESCE(clb.username, ''), r.closed_on, r.happy_code, r.code_attempts,
        r.created_at, r.updated_at, r.created_by, COALESCE(cb.username, ''), r.updated_by, COALESCE(ub.username, '')
    FROM service_requests r
    JOIN registered_products p ON p.id = r.product_id
    JOIN machines m ON m.id = p.machine_id
    JOIN customers c ON c.id = r.customer_id
    LEFT JOIN users ab ON ab.id = r.approved_by
    LEFT JOIN users ae ON ae.id = r.assigned_engineer
    LEFT JOIN users clb ON clb.id = r.closed_by
    LEFT JOIN users cb ON cb.id = r.created_by
    LEFT JOIN users ub ON ub.id = r.updated_by`

func (s *PostgresRepository) Create(ctx context.Context, r Request) (Request, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return Request{}, err
	}
	var seq int64
	if err := s.db.QueryRow(ctx, `SELECT nextval('service_request_seq')`).Scan(&seq); err != nil {
		return Request{}, fmt.Errorf("next request id: %w", err)
	}
	r.RequestID = FormatRequestID(seq)
	_, err = s.db.Exec(ctx, `INSERT INTO service_requests (id, request_id, product_id, customer_id, problem, photos, videos,
            happy_code, created_at, updated_at, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, r.RequestID, nullableUUID(r.Product.ID), nullableUUID(r.Customer.ID), r.Problem, nonNil(r.Photos), nonNil(r.Videos),
		r.HappyCode, r.Audit.CreatedAt.UTC(), r.Audit.UpdatedAt.UTC(), nullableUUID(r.Audit.CreatedBy.ID), nullableUUID(r.Audit.UpdatedBy.ID))
	if err != nil {
		return Request{}, err
	}
	return r, nil
}

func (s *PostgresRepository) Update(ctx context.Context, r Request) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE service_requests SET payment_mode = $1, payment_date = $2,
            payable_amount = $3::numeric, paid_amount = $4::numeric, is_approved = $5, approved_by = $6, approved_on = $7,
            assigned_engineer = $8, closed_by = $9, closed_on = $10, updated_at = $11, updated_by = $12, code_attempts = $13
        WHERE id = $14`,
		r.PaymentMode, r.PaymentDate, r.PayableAmount.String(), r.PaidAmount.String(), r.IsApproved,
		refID(r.ApprovedBy), r.ApprovedOn, refID(r.AssignedEngineer), refID(r.ClosedBy), r.ClosedOn,
		r.Audit.UpdatedAt.UTC(), nullableUUID(r.Audit.UpdatedBy.ID), r.CodeAttempts, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresRepository) FindByID(ctx context.Context, id string) (Request, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	return scanRequest(s.db.QueryRow(ctx, selectRequests+` WHERE r.id = $1`, rid))
}

func (s *PostgresRepository) List(ctx context.Context, f Filter) ([]Request, error) {
	rows, err := s.db.Query(ctx, selectRequests+`
        WHERE ($1::uuid IS NULL OR r.customer_id = $1)
          AND ($2::uuid IS NULL OR r.assigned_engineer = $2)
        ORDER BY r.created_at DESC`, nullableUUID(f.CustomerID), nullableUUID(f.EngineerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresRepository) AddCodeAttempt(ctx context.Context, id string) (int, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}
	var n int
	err = s.db.QueryRow(ctx, `UPDATE service_requests SET code_attempts = code_attempts + 1
        WHERE id = $1 RETURNING code_attempts`, rid).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		id, productID, customerID, machineID                 uuid.UUID
		approvedBy, engineer, closedBy, createdBy, updatedBy *uuid.UUID
		approvedByName, engineerName, closedByName           string
		payable, paid                                        string
		r                                                    Request
	)
	err := row.Scan(&id, &r.RequestID, &productID, &r.Product.Label, &customerID, &r.Customer.Label, &machineID, &r.Machine.Label,
		&r.Problem, &r.Photos, &r.Videos, &r.PaymentMode, &r.PaymentDate, &payable, &paid, &r.IsApproved,
		&approvedBy, &approvedByName, &r.ApprovedOn, &engineer, &engineerName, &closedBy, &closedByName, &r.ClosedOn, &r.HappyCode, &r.CodeAttempts,
		&r.Audit.CreatedAt, &r.Audit.UpdatedAt, &createdBy, &r.Audit.CreatedBy.Label, &updatedBy, &r.Audit.UpdatedBy.Label)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, err
	}
	if r.PayableAmount, err = decimal.NewFromString(payable); err != nil {
		return Request{}, err
	}
	if r.PaidAmount, err = decimal.NewFromString(paid); err != nil {
		return Request{}, err
	}
	r.ID = id.String()
	r.Product.ID = productID.String()
	r.Customer.ID = customerID.String()
	r.Machine.ID = machineID.String()
	r.ApprovedBy = ref(approvedBy, approvedByName)
	r.AssignedEngineer = ref(engineer, engineerName)
	r.ClosedBy = ref(closedBy, closedByName)
	if createdBy != nil {
		r.Audit.CreatedBy.ID = createdBy.String()
	}
	if updatedBy != nil {
		r.Audit.UpdatedBy.ID = updatedBy.String()
	}
	return r, nil
}

func ref(id *uuid.UUID, label string) *dto.DropDown {
	if id == nil {
		return nil
	}
	return &dto.DropDown{ID: id.String(), Label: label}
}

func refID(d *dto.DropDown) any {
	if d == nil {
		return nil
	}
	return nullableUUID(d.ID)
}

func nullableUUID(s string) any {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return id
}

