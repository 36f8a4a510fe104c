package issuance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	invmodels "github.com/sou1357/bloodbankapp/internal/inventory/models"
	invstore "github.com/sou1357/bloodbankapp/internal/inventory/store"
	requestmodels "github.com/sou1357/bloodbankapp/internal/request/models"
	requeststore "github.com/sou1357/bloodbankapp/internal/request/store"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
)

type CoordinatorSuite struct {
	suite.Suite
	requests    *requeststore.InMemory
	ledger      *invstore.InMemory
	coordinator *Coordinator
	ctx         context.Context
	bloodBank   domain.Identity
	hospital    domain.Identity
}

func (s *CoordinatorSuite) SetupTest() {
	s.requests = requeststore.NewInMemory()
	s.ledger = invstore.NewInMemory()
	s.coordinator = New(s.requests, s.ledger, NewMemoryTx())
	s.ctx = context.Background()
	s.bloodBank = domain.Identity{ID: "bank-1", Role: domain.RoleBloodService, OrganizationKind: domain.OrganizationBloodBank}
	s.hospital = domain.Identity{ID: "hosp-1", Role: domain.RoleBloodService, OrganizationKind: domain.OrganizationHospital}
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) stock(group domain.BloodGroup, quantity int) {
	record, err := invmodels.NewRecord(uuid.NewString(), group, quantity, nil, invmodels.StatusAvailable, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.Create(s.ctx, record))
}

func (s *CoordinatorSuite) approvedRequest(group domain.BloodGroup, units int) *requestmodels.BloodRequest {
	request, err := requestmodels.NewBloodRequest(uuid.NewString(), s.hospital.ID, "Jane Doe", group, units, requestmodels.UrgencyNormal, time.Now())
	s.Require().NoError(err)
	request.ApplyApprove(time.Now())
	s.Require().NoError(s.requests.Create(s.ctx, request))
	return request
}

func (s *CoordinatorSuite) quantityOf(group domain.BloodGroup) int {
	record, err := s.ledger.FindByGroup(s.ctx, group)
	s.Require().NoError(err)
	return record.Quantity
}

func (s *CoordinatorSuite) TestIssue() {
	s.Run("marks issued and decrements stock together", func() {
		s.stock(domain.BloodGroupONegative, 10)
		request := s.approvedRequest(domain.BloodGroupONegative, 4)

		issued, err := s.coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().NoError(err)
		s.Equal(requestmodels.StatusIssued, issued.Status)
		s.Equal(6, s.quantityOf(domain.BloodGroupONegative))
	})

	s.Run("insufficient stock leaves both records untouched", func() {
		s.stock(domain.BloodGroupBNegative, 2)
		request := s.approvedRequest(domain.BloodGroupBNegative, 5)

		_, err := s.coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().Error(err)

		var insufficient *dErrors.InsufficientStockError
		s.Require().True(errors.As(err, &insufficient))
		s.Equal(2, insufficient.Available)
		s.Equal(5, insufficient.Needed)

		found, findErr := s.requests.FindByID(s.ctx, request.ID)
		s.Require().NoError(findErr)
		s.Equal(requestmodels.StatusApproved, found.Status)
		s.Equal(2, s.quantityOf(domain.BloodGroupBNegative))
	})

	s.Run("unstocked blood group reports zero availability", func() {
		request := s.approvedRequest(domain.BloodGroupABPositive, 3)

		_, err := s.coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().Error(err)

		var insufficient *dErrors.InsufficientStockError
		s.Require().True(errors.As(err, &insufficient))
		s.Equal(0, insufficient.Available)
		s.Equal(3, insufficient.Needed)
	})

	s.Run("pending request cannot be issued and stock is untouched", func() {
		s.stock(domain.BloodGroupAPositive, 10)
		request, err := requestmodels.NewBloodRequest(uuid.NewString(), s.hospital.ID, "Jane Doe", domain.BloodGroupAPositive, 2, requestmodels.UrgencyNormal, time.Now())
		s.Require().NoError(err)
		s.Require().NoError(s.requests.Create(s.ctx, request))

		_, err = s.coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Equal(10, s.quantityOf(domain.BloodGroupAPositive))
	})

	s.Run("issuing twice fails the second attempt", func() {
		s.stock(domain.BloodGroupBPositive, 10)
		request := s.approvedRequest(domain.BloodGroupBPositive, 3)

		_, err := s.coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().NoError(err)

		_, err = s.coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Equal(7, s.quantityOf(domain.BloodGroupBPositive))
	})

	s.Run("unknown request is not found", func() {
		_, err := s.coordinator.Issue(s.ctx, s.bloodBank, uuid.NewString())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("hospitals cannot issue", func() {
		s.stock(domain.BloodGroupABNegative, 10)
		request := s.approvedRequest(domain.BloodGroupABNegative, 1)

		_, err := s.coordinator.Issue(s.ctx, s.hospital, request.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(10, s.quantityOf(domain.BloodGroupABNegative))
	})
}

// flakyLedger fails the first n decrements with a transient conflict before
// delegating to the real store.
type flakyLedger struct {
	inner    *invstore.InMemory
	failures int
}

func (l *flakyLedger) Decrement(ctx context.Context, group domain.BloodGroup, amount int) (*invmodels.Record, error) {
	if l.failures > 0 {
		l.failures--
		return nil, sentinel.ErrTxConflict
	}
	return l.inner.Decrement(ctx, group, amount)
}

func (s *CoordinatorSuite) TestTransientConflictRetry() {
	s.Run("one transient conflict is retried and succeeds", func() {
		s.stock(domain.BloodGroupONegative, 10)
		request := s.approvedRequest(domain.BloodGroupONegative, 4)

		coordinator := New(s.requests, &flakyLedger{inner: s.ledger, failures: 1}, NewMemoryTx())
		issued, err := coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().NoError(err)
		s.Equal(requestmodels.StatusIssued, issued.Status)
		s.Equal(6, s.quantityOf(domain.BloodGroupONegative))
	})

	s.Run("persistent conflict fails after one retry", func() {
		s.stock(domain.BloodGroupBPositive, 10)
		request := s.approvedRequest(domain.BloodGroupBPositive, 4)

		coordinator := New(s.requests, &flakyLedger{inner: s.ledger, failures: 5}, NewMemoryTx())
		_, err := coordinator.Issue(s.ctx, s.bloodBank, request.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		found, findErr := s.requests.FindByID(s.ctx, request.ID)
		s.Require().NoError(findErr)
		s.Equal(requestmodels.StatusApproved, found.Status)
		s.Equal(10, s.quantityOf(domain.BloodGroupBPositive))
	})
}

// TestConcurrentIssuance races many issuances against shared stock and
// verifies no units are ever created or spent twice.
func (s *CoordinatorSuite) TestConcurrentIssuance() {
	s.Run("two requests race for stock that covers only one", func() {
		s.stock(domain.BloodGroupONegative, 4)
		first := s.approvedRequest(domain.BloodGroupONegative, 3)
		second := s.approvedRequest(domain.BloodGroupONegative, 3)

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for _, id := range []string{first.ID, second.ID} {
			id := id
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.coordinator.Issue(s.ctx, s.bloodBank, id)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var succeeded, insufficient int
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			var stockErr *dErrors.InsufficientStockError
			s.Require().True(errors.As(err, &stockErr))
			insufficient++
		}
		s.Equal(1, succeeded)
		s.Equal(1, insufficient)
		s.Equal(1, s.quantityOf(domain.BloodGroupONegative))
	})

	s.Run("same request issued concurrently succeeds exactly once", func() {
		s.stock(domain.BloodGroupAPositive, 100)
		request := s.approvedRequest(domain.BloodGroupAPositive, 10)

		const attempts = 8
		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.coordinator.Issue(s.ctx, s.bloodBank, request.ID)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var succeeded int
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
			}
		}
		s.Equal(1, succeeded)
		s.Equal(90, s.quantityOf(domain.BloodGroupAPositive))
	})
}
