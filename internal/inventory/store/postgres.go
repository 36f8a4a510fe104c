package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sou1357/bloodbankapp/internal/inventory/models"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
	txcontext "github.com/sou1357/bloodbankapp/pkg/platform/tx"
)

// Postgres persists the ledger in PostgreSQL. Queries route through an
// ambient transaction when one is present in the context, so Decrement can
// participate in the issuance double-write.
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

const recordColumns = `id, blood_group, quantity, expiry_date, status, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO inventory (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.ID,
		string(record.BloodGroup),
		record.Quantity,
		record.ExpiryDate,
		string(record.Status),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert inventory record: %w", err)
	}
	return nil
}

func (s *Postgres) FindByGroup(ctx context.Context, group domain.BloodGroup) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM inventory WHERE blood_group = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, string(group)))
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM inventory WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Postgres) List(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM inventory ORDER BY blood_group ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, record *models.Record) error {
	query := `
		UPDATE inventory
		SET quantity = $1, expiry_date = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		record.Quantity,
		record.ExpiryDate,
		string(record.Status),
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update inventory record: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM inventory WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory record: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Decrement subtracts amount from the group's quantity. The sufficiency check
// lives in the UPDATE predicate, so two concurrent decrements can never drive
// the quantity below zero regardless of isolation level. A zero-row result
// after a successful read means a concurrent writer got there first; that is
// surfaced as ErrTxConflict so the caller can retry.
func (s *Postgres) Decrement(ctx context.Context, group domain.BloodGroup, amount int) (*models.Record, error) {
	record, err := s.FindByGroup(ctx, group)
	if err != nil {
		return nil, err
	}
	if record.Quantity < amount {
		return nil, &InsufficientError{Available: record.Quantity}
	}

	query := `
		UPDATE inventory
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE blood_group = $2 AND quantity >= $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query, amount, string(group))
	if err != nil {
		return nil, fmt.Errorf("decrement inventory: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, sentinel.ErrTxConflict
	}

	return s.FindByGroup(ctx, group)
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Record, error) {
	record, err := s.scanRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return record, err
}

func (s *Postgres) scan(rows *sql.Rows) (*models.Record, error) {
	return s.scanRow(rows.Scan)
}

func (s *Postgres) scanRow(scan func(dest ...any) error) (*models.Record, error) {
	var (
		record models.Record
		group  string
		expiry sql.NullTime
		status string
	)
	err := scan(&record.ID, &group, &record.Quantity, &expiry, &status, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	record.BloodGroup = domain.BloodGroup(group)
	record.Status = models.RecordStatus(status)
	if expiry.Valid {
		record.ExpiryDate = &expiry.Time
	}
	return &record, nil
}
