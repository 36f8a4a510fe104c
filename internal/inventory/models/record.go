package models

import (
	"time"

	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
)

// RecordStatus tags a ledger record. It is informational only: issuance
// eligibility depends solely on quantity.
type RecordStatus string

const (
	StatusAvailable RecordStatus = "AVAILABLE"
	StatusReserved  RecordStatus = "RESERVED"
	StatusExpired   RecordStatus = "EXPIRED"
)

// Record is one row of the inventory ledger: the unit count for a single
// blood group.
//
// Invariants:
//   - Quantity >= 0 at all times
//   - At most one record per blood group (enforced by the store)
type Record struct {
	ID         string            `json:"id"`
	BloodGroup domain.BloodGroup `json:"blood_group"`
	Quantity   int               `json:"quantity"`
	ExpiryDate *time.Time        `json:"expiry_date,omitempty"`
	Status     RecordStatus      `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewRecord validates and constructs a ledger record.
func NewRecord(id string, group domain.BloodGroup, quantity int, expiry *time.Time, status RecordStatus, now time.Time) (*Record, error) {
	if !group.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group %q", group)
	}
	if quantity < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "quantity cannot be negative")
	}
	if status == "" {
		status = StatusAvailable
	}
	return &Record{
		ID:         id,
		BloodGroup: group,
		Quantity:   quantity,
		ExpiryDate: expiry,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
