package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sou1357/bloodbankapp/internal/identity/models"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
)

// Postgres persists users in PostgreSQL. Email uniqueness is backed by a
// unique index on lower(email); see scripts/schema.sql.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, organization_kind, license_number, donor_blood_group, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		string(user.OrganizationKind),
		user.LicenseNumber,
		string(user.DonorBloodGroup),
		user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *Postgres) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, organization_kind, license_number, donor_blood_group, created_at
		FROM users ` + where

	var (
		user      models.User
		role      string
		orgKind   sql.NullString
		license   sql.NullString
		donorType sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&orgKind,
		&license,
		&donorType,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	user.Role = domain.Role(role)
	user.OrganizationKind = domain.OrganizationKind(orgKind.String)
	user.LicenseNumber = license.String
	user.DonorBloodGroup = domain.BloodGroup(donorType.String)
	return &user, nil
}
