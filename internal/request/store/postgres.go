package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sou1357/bloodbankapp/internal/request/models"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
	txcontext "github.com/sou1357/bloodbankapp/pkg/platform/tx"
)

// Postgres persists blood requests in PostgreSQL. Queries route through an
// ambient transaction when one is present in the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const requestColumns = `id, hospital_id, patient_name, blood_group, units_needed, urgency, status, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, request *models.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		request.ID,
		request.HospitalID,
		request.PatientName,
		string(request.BloodGroup),
		request.UnitsNeeded,
		string(request.Urgency),
		string(request.Status),
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Postgres) ListByHospital(ctx context.Context, hospitalID string) ([]*models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE hospital_id = $1 ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query, hospitalID)
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query)
}

// Execute atomically validates and mutates one request. The row is locked
// with FOR UPDATE for the duration of the callback pair, so the check and the
// write are one critical section. Callers needing the lock to span multiple
// records run Execute inside an ambient transaction.
func (s *Postgres) Execute(ctx context.Context, id string, validate func(*models.BloodRequest) error, mutate func(*models.BloodRequest)) (*models.BloodRequest, error) {
	runner, ownTx := s.execer(ctx), false
	if _, ok := txcontext.From(ctx); !ok {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()
		runner, ownTx = tx, true
	}

	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1 FOR UPDATE`
	request, err := s.scanOne(runner.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)

	update := `UPDATE blood_requests SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := runner.ExecContext(ctx, update, string(request.Status), request.UpdatedAt, request.ID); err != nil {
		return nil, fmt.Errorf("update blood request: %w", err)
	}

	if ownTx {
		if err := runner.(*sql.Tx).Commit(); err != nil {
			return nil, fmt.Errorf("commit blood request update: %w", err)
		}
	}
	return request, nil
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.BloodRequest, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.BloodRequest
	for rows.Next() {
		request, err := s.scanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func (s *Postgres) scanOne(row *sql.Row) (*models.BloodRequest, error) {
	request, err := s.scanRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return request, err
}

func (s *Postgres) scanRow(scan func(dest ...any) error) (*models.BloodRequest, error) {
	var (
		request models.BloodRequest
		group   string
		urgency string
		status  string
	)
	err := scan(
		&request.ID,
		&request.HospitalID,
		&request.PatientName,
		&group,
		&request.UnitsNeeded,
		&urgency,
		&status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	request.BloodGroup = domain.BloodGroup(group)
	request.Urgency = models.Urgency(urgency)
	request.Status = models.Status(status)
	return &request, nil
}
