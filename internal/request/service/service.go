// Package service implements the blood-request lifecycle: creation by
// hospitals and the approve/reject transitions by blood banks. Issuance is
// owned by the issuance coordinator because it spans two stores.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	identitymodels "github.com/sou1357/bloodbankapp/internal/identity/models"
	"github.com/sou1357/bloodbankapp/internal/platform/metrics"
	"github.com/sou1357/bloodbankapp/internal/policy"
	"github.com/sou1357/bloodbankapp/internal/request/models"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
	"github.com/sou1357/bloodbankapp/pkg/requestcontext"
)

// Store is the persistence seam for blood requests.
type Store interface {
	Create(ctx context.Context, request *models.BloodRequest) error
	FindByID(ctx context.Context, id string) (*models.BloodRequest, error)
	ListByHospital(ctx context.Context, hospitalID string) ([]*models.BloodRequest, error)
	ListAll(ctx context.Context) ([]*models.BloodRequest, error)
	Execute(ctx context.Context, id string, validate func(*models.BloodRequest) error, mutate func(*models.BloodRequest)) (*models.BloodRequest, error)
}

// ProfileLoader resolves a hospital's public profile for the blood-bank view.
type ProfileLoader interface {
	PublicProfile(ctx context.Context, userID string) (identitymodels.PublicProfile, error)
}

// CreateInput carries a hospital's new demand.
type CreateInput struct {
	PatientName string
	BloodGroup  domain.BloodGroup
	UnitsNeeded int
	Urgency     models.Urgency
}

// EnrichedRequest is a request joined with its owning hospital's public
// profile. A read-side convenience for display, not a core invariant.
type EnrichedRequest struct {
	*models.BloodRequest
	Hospital *identitymodels.PublicProfile `json:"hospital,omitempty"`
}

// profileFetchLimit bounds the fan-out when enriching the blood-bank listing.
const profileFetchLimit = 4

type Service struct {
	requests Store
	profiles ProfileLoader
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(requests Store, profiles ProfileLoader, opts ...Option) *Service {
	s := &Service{requests: requests, profiles: profiles, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new request in the PENDING state. Hospital only.
func (s *Service) Create(ctx context.Context, caller domain.Identity, input CreateInput) (*models.BloodRequest, error) {
	if err := policy.HospitalOnly(caller); err != nil {
		return nil, err
	}

	request, err := models.NewBloodRequest(
		uuid.NewString(),
		caller.ID,
		input.PatientName,
		input.BloodGroup,
		input.UnitsNeeded,
		input.Urgency,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create blood request")
	}

	if s.metrics != nil {
		s.metrics.RequestsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "blood request created",
		"request_id", requestcontext.RequestID(ctx),
		"blood_request_id", request.ID,
		"blood_group", request.BloodGroup.String(),
		"units_needed", request.UnitsNeeded,
		"urgency", string(request.Urgency),
		"hospital_id", caller.ID,
		"log_type", "audit",
	)
	return request, nil
}

// Get returns one request, enforcing ownership: hospitals see only their own.
func (s *Service) Get(ctx context.Context, caller domain.Identity, id string) (*models.BloodRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "blood request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blood request")
	}
	if err := policy.CanViewRequest(caller, request.HospitalID); err != nil {
		return nil, err
	}
	return request, nil
}

// ListForHospital returns the caller's own requests, newest first.
func (s *Service) ListForHospital(ctx context.Context, caller domain.Identity) ([]*models.BloodRequest, error) {
	if err := policy.HospitalOnly(caller); err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByHospital(ctx, caller.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list blood requests")
	}
	return requests, nil
}

// ListAll returns every request for the blood-bank view, newest first, each
// joined with its hospital's public profile. Profiles are fetched with a
// bounded errgroup; a missing profile degrades to an unenriched row rather
// than failing the listing.
func (s *Service) ListAll(ctx context.Context, caller domain.Identity) ([]*EnrichedRequest, error) {
	if err := policy.BloodBankOnly(caller); err != nil {
		return nil, err
	}

	requests, err := s.requests.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list blood requests")
	}

	enriched := make([]*EnrichedRequest, len(requests))
	for i, request := range requests {
		enriched[i] = &EnrichedRequest{BloodRequest: request}
	}

	var (
		mu       sync.Mutex
		profiles = make(map[string]*identitymodels.PublicProfile)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileFetchLimit)

	for _, hospitalID := range hospitalIDs(requests) {
		hospitalID := hospitalID
		g.Go(func() error {
			profile, err := s.profiles.PublicProfile(gctx, hospitalID)
			if err != nil {
				return nil
			}
			mu.Lock()
			profiles[hospitalID] = &profile
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, row := range enriched {
		row.Hospital = profiles[row.HospitalID]
	}
	return enriched, nil
}

// Approve moves a PENDING request to APPROVED. Blood bank only.
func (s *Service) Approve(ctx context.Context, caller domain.Identity, id string) (*models.BloodRequest, error) {
	request, err := s.transition(ctx, caller, id, "approved",
		(*models.BloodRequest).CanApprove,
		(*models.BloodRequest).ApplyApprove,
	)
	if err == nil && s.metrics != nil {
		s.metrics.RequestsApproved.Inc()
	}
	return request, err
}

// Reject moves a PENDING request to REJECTED. Blood bank only.
func (s *Service) Reject(ctx context.Context, caller domain.Identity, id string) (*models.BloodRequest, error) {
	request, err := s.transition(ctx, caller, id, "rejected",
		(*models.BloodRequest).CanReject,
		(*models.BloodRequest).ApplyReject,
	)
	if err == nil && s.metrics != nil {
		s.metrics.RequestsRejected.Inc()
	}
	return request, err
}

func (s *Service) transition(
	ctx context.Context,
	caller domain.Identity,
	id string,
	action string,
	validate func(*models.BloodRequest) error,
	apply func(*models.BloodRequest, time.Time),
) (*models.BloodRequest, error) {
	if err := policy.BloodBankOnly(caller); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	request, err := s.requests.Execute(ctx, id, validate, func(r *models.BloodRequest) {
		apply(r, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "blood request not found")
		}
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update blood request")
	}

	s.logger.InfoContext(ctx, "blood request "+action,
		"request_id", requestcontext.RequestID(ctx),
		"blood_request_id", id,
		"actor_id", caller.ID,
		"log_type", "audit",
	)
	return request, nil
}

func hospitalIDs(requests []*models.BloodRequest) []string {
	seen := make(map[string]bool, len(requests))
	var ids []string
	for _, request := range requests {
		if !seen[request.HospitalID] {
			seen[request.HospitalID] = true
			ids = append(ids, request.HospitalID)
		}
	}
	return ids
}
