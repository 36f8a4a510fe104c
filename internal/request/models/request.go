package models

import (
	"strings"
	"time"

	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
)

// Status is a blood request's lifecycle state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusIssued   Status = "ISSUED"
)

// transitions is the fixed lifecycle graph. REJECTED and ISSUED are terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusIssued},
}

// CanTransitionTo reports whether the lifecycle graph permits the move.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Urgency classifies how fast a request must be served.
type Urgency string

const (
	UrgencyNormal    Urgency = "NORMAL"
	UrgencyEmergency Urgency = "EMERGENCY"
)

// BloodRequest is a hospital's demand for units of one blood group.
//
// Invariants:
//   - UnitsNeeded >= 1
//   - Status only moves along PENDING -> {APPROVED, REJECTED} and
//     APPROVED -> ISSUED; terminal states never change
//   - Requests are never deleted (they are the audit trail)
type BloodRequest struct {
	ID          string            `json:"id"`
	HospitalID  string            `json:"hospital_id"`
	PatientName string            `json:"patient_name"`
	BloodGroup  domain.BloodGroup `json:"blood_group"`
	UnitsNeeded int               `json:"units_needed"`
	Urgency     Urgency           `json:"urgency"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewBloodRequest validates and constructs a request in the PENDING state.
func NewBloodRequest(id, hospitalID, patientName string, group domain.BloodGroup, unitsNeeded int, urgency Urgency, now time.Time) (*BloodRequest, error) {
	patientName = strings.TrimSpace(patientName)

	if patientName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "patient name is required")
	}
	if !group.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group %q", group)
	}
	if unitsNeeded < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "units needed must be at least 1")
	}
	if urgency == "" {
		urgency = UrgencyNormal
	}
	if urgency != UrgencyNormal && urgency != UrgencyEmergency {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid urgency %q", urgency)
	}

	return &BloodRequest{
		ID:          id,
		HospitalID:  hospitalID,
		PatientName: patientName,
		BloodGroup:  group,
		UnitsNeeded: unitsNeeded,
		Urgency:     urgency,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanApprove checks the PENDING -> APPROVED transition.
// Use with ApplyApprove in Execute callbacks.
func (r *BloodRequest) CanApprove() error {
	return r.canTransition(StatusApproved)
}

// ApplyApprove transitions the request to APPROVED.
func (r *BloodRequest) ApplyApprove(now time.Time) {
	r.Status = StatusApproved
	r.UpdatedAt = now
}

// CanReject checks the PENDING -> REJECTED transition.
func (r *BloodRequest) CanReject() error {
	return r.canTransition(StatusRejected)
}

// ApplyReject transitions the request to REJECTED.
func (r *BloodRequest) ApplyReject(now time.Time) {
	r.Status = StatusRejected
	r.UpdatedAt = now
}

// CanIssue checks the APPROVED -> ISSUED transition.
func (r *BloodRequest) CanIssue() error {
	return r.canTransition(StatusIssued)
}

// ApplyIssue transitions the request to ISSUED.
func (r *BloodRequest) ApplyIssue(now time.Time) {
	r.Status = StatusIssued
	r.UpdatedAt = now
}

func (r *BloodRequest) canTransition(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot move request from %s to %s", r.Status, next)
	}
	return nil
}
