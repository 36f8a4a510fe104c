// Package service implements the inventory ledger operations: per-blood-group
// unit counts with read, create, and adjustment. The decrement path used by
// issuance lives in the issuance coordinator, not here.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sou1357/bloodbankapp/internal/inventory/models"
	"github.com/sou1357/bloodbankapp/internal/policy"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
	"github.com/sou1357/bloodbankapp/pkg/requestcontext"
)

// Store is the persistence seam for the ledger.
type Store interface {
	Create(ctx context.Context, record *models.Record) error
	FindByGroup(ctx context.Context, group domain.BloodGroup) (*models.Record, error)
	FindByID(ctx context.Context, id string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Update(ctx context.Context, record *models.Record) error
	Delete(ctx context.Context, id string) error
}

// SnapshotCache is the optional read-side cache for the listing.
type SnapshotCache interface {
	Get(ctx context.Context) ([]*models.Record, bool)
	Set(ctx context.Context, records []*models.Record)
	Invalidate(ctx context.Context)
}

// AdjustInput carries a manual restock/adjustment. Nil fields keep the
// stored value, mirroring the partial-update semantics of the ledger API.
type AdjustInput struct {
	Quantity   *int
	ExpiryDate *time.Time
	Status     *models.RecordStatus
}

type Service struct {
	ledger Store
	cache  SnapshotCache
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSnapshotCache enables the read-side listing cache.
func WithSnapshotCache(cache SnapshotCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func New(ledger Store, opts ...Option) *Service {
	s := &Service{ledger: ledger, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all ledger records ordered by blood group. Any authenticated
// identity may read availability.
func (s *Service) List(ctx context.Context) ([]*models.Record, error) {
	if s.cache != nil {
		if records, ok := s.cache.Get(ctx); ok {
			return records, nil
		}
	}

	records, err := s.ledger.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list inventory")
	}

	if s.cache != nil {
		s.cache.Set(ctx, records)
	}
	return records, nil
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "inventory record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load inventory record")
	}
	return record, nil
}

// GetByGroup returns the record for a blood group.
func (s *Service) GetByGroup(ctx context.Context, group domain.BloodGroup) (*models.Record, error) {
	record, err := s.ledger.FindByGroup(ctx, group)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "blood group %s not found in inventory", group)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load inventory record")
	}
	return record, nil
}

// Create initializes the ledger record for a blood group. One record per
// group is an invariant enforced here, not left to storage.
func (s *Service) Create(ctx context.Context, caller domain.Identity, group domain.BloodGroup, quantity int, expiry *time.Time, status models.RecordStatus) (*models.Record, error) {
	if err := policy.BloodBankOnly(caller); err != nil {
		return nil, err
	}

	record, err := models.NewRecord(uuid.NewString(), group, quantity, expiry, status, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "inventory for blood group %s already exists", group)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create inventory record")
	}

	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "inventory record created",
		"blood_group", group.String(),
		"quantity", quantity,
		"actor_id", caller.ID,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	return record, nil
}

// Adjust overwrites quantity/expiry/status for manual restocking. Quantity
// must stay non-negative; the blood group key never changes.
func (s *Service) Adjust(ctx context.Context, caller domain.Identity, id string, input AdjustInput) (*models.Record, error) {
	if err := policy.BloodBankOnly(caller); err != nil {
		return nil, err
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "quantity cannot be negative")
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil {
		record.Quantity = *input.Quantity
	}
	if input.ExpiryDate != nil {
		record.ExpiryDate = input.ExpiryDate
	}
	if input.Status != nil {
		record.Status = *input.Status
	}
	record.UpdatedAt = requestcontext.Now(ctx)

	if err := s.ledger.Update(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "inventory record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update inventory record")
	}

	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "inventory record adjusted",
		"record_id", id,
		"actor_id", caller.ID,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	return record, nil
}

// Delete removes a ledger record.
func (s *Service) Delete(ctx context.Context, caller domain.Identity, id string) error {
	if err := policy.BloodBankOnly(caller); err != nil {
		return err
	}

	if err := s.ledger.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "inventory record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete inventory record")
	}

	s.invalidate(ctx)
	return nil
}

// Invalidate drops the read-side snapshot. The issuance coordinator calls
// this after a successful decrement.
func (s *Service) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
