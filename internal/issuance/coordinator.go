// Package issuance fulfils approved blood requests. Marking a request ISSUED
// and decrementing the inventory ledger is one atomic step: either both
// writes land or neither does, and stock can never go negative or be spent
// twice for the same request.
package issuance

import (
	"context"
	"errors"
	"log/slog"

	invmodels "github.com/sou1357/bloodbankapp/internal/inventory/models"
	invstore "github.com/sou1357/bloodbankapp/internal/inventory/store"
	"github.com/sou1357/bloodbankapp/internal/platform/metrics"
	"github.com/sou1357/bloodbankapp/internal/policy"
	requestmodels "github.com/sou1357/bloodbankapp/internal/request/models"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
	"github.com/sou1357/bloodbankapp/pkg/requestcontext"
)

// RequestStore is the slice of the request store the coordinator needs.
type RequestStore interface {
	Execute(ctx context.Context, id string, validate func(*requestmodels.BloodRequest) error, mutate func(*requestmodels.BloodRequest)) (*requestmodels.BloodRequest, error)
}

// Ledger is the inventory decrement seam.
type Ledger interface {
	Decrement(ctx context.Context, group domain.BloodGroup, amount int) (*invmodels.Record, error)
}

// SnapshotInvalidator drops the inventory read cache after a decrement.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context)
}

type Coordinator struct {
	requests  RequestStore
	ledger    Ledger
	tx        StoreTx
	snapshots SnapshotInvalidator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(c *Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithSnapshotInvalidator wires cache invalidation after successful issuance.
func WithSnapshotInvalidator(s SnapshotInvalidator) Option {
	return func(c *Coordinator) {
		c.snapshots = s
	}
}

func New(requests RequestStore, ledger Ledger, tx StoreTx, opts ...Option) *Coordinator {
	c := &Coordinator{requests: requests, ledger: ledger, tx: tx, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue moves an APPROVED request to ISSUED and deducts its units from the
// ledger in one transaction. Blood bank only. A transient conflict (another
// writer touched the same rows) is retried once; insufficient stock and
// lifecycle violations are final and leave both records untouched.
func (c *Coordinator) Issue(ctx context.Context, caller domain.Identity, requestID string) (*requestmodels.BloodRequest, error) {
	if err := policy.BloodBankOnly(caller); err != nil {
		return nil, err
	}

	request, err := c.issueOnce(ctx, requestID)
	if errors.Is(err, sentinel.ErrTxConflict) {
		if c.metrics != nil {
			c.metrics.IssuanceConflictRetries.Inc()
		}
		c.logger.WarnContext(ctx, "issuance conflict, retrying",
			"blood_request_id", requestID,
			"request_id", requestcontext.RequestID(ctx),
		)
		request, err = c.issueOnce(ctx, requestID)
	}
	if err != nil {
		return nil, c.translate(err)
	}

	if c.metrics != nil {
		c.metrics.RequestsIssued.Inc()
	}
	if c.snapshots != nil {
		c.snapshots.Invalidate(ctx)
	}
	c.logger.InfoContext(ctx, "blood request issued",
		"blood_request_id", request.ID,
		"blood_group", request.BloodGroup.String(),
		"units_issued", request.UnitsNeeded,
		"actor_id", caller.ID,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	return request, nil
}

// issueOnce runs one transactional attempt. The lifecycle check runs before
// the decrement so a request that cannot be issued never touches the ledger;
// the decrement runs before the status write so its failure aborts with the
// request still APPROVED. Once a request is APPROVED the only transition out
// is ISSUED, and issuance attempts are serialized by the transaction, so the
// re-validation inside Execute cannot fail after the decrement succeeded.
func (c *Coordinator) issueOnce(ctx context.Context, requestID string) (*requestmodels.BloodRequest, error) {
	var issued *requestmodels.BloodRequest

	err := c.tx.RunInTx(ctx, func(ctx context.Context) error {
		var (
			group domain.BloodGroup
			units int
		)
		_, err := c.requests.Execute(ctx, requestID,
			func(r *requestmodels.BloodRequest) error {
				if err := r.CanIssue(); err != nil {
					return err
				}
				group, units = r.BloodGroup, r.UnitsNeeded
				return nil
			},
			func(r *requestmodels.BloodRequest) {},
		)
		if err != nil {
			return err
		}

		if _, err := c.ledger.Decrement(ctx, group, units); err != nil {
			return c.translateDecrement(err, units)
		}

		now := requestcontext.Now(ctx)
		issued, err = c.requests.Execute(ctx, requestID,
			(*requestmodels.BloodRequest).CanIssue,
			func(r *requestmodels.BloodRequest) {
				r.ApplyIssue(now)
			},
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

func (c *Coordinator) translateDecrement(err error, needed int) error {
	var insufficient *invstore.InsufficientError
	switch {
	case errors.As(err, &insufficient):
		if c.metrics != nil {
			c.metrics.IssuanceInsufficientStock.Inc()
		}
		return dErrors.NewInsufficientStock(insufficient.Available, needed)
	case errors.Is(err, sentinel.ErrNotFound):
		// Blood group never stocked: report it as zero availability.
		if c.metrics != nil {
			c.metrics.IssuanceInsufficientStock.Inc()
		}
		return dErrors.NewInsufficientStock(0, needed)
	default:
		return err
	}
}

func (c *Coordinator) translate(err error) error {
	var (
		domainErr *dErrors.Error
		stockErr  *dErrors.InsufficientStockError
	)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "blood request not found")
	case errors.Is(err, sentinel.ErrTxConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "issuance conflicted with a concurrent update")
	case errors.As(err, &domainErr), errors.As(err, &stockErr):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue blood request")
	}
}
