// Package policy classifies the calling identity and authorizes state
// transitions. It is the single reusable authorization predicate set: every
// role gate in the system goes through these functions, never through ad hoc
// checks in handlers.
package policy

import (
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
)

// HospitalOnly allows only hospital organization accounts.
// Denial is an explicit forbidden error, never a silent no-op.
func HospitalOnly(caller domain.Identity) error {
	if !caller.IsHospital() {
		return dErrors.New(dErrors.CodeForbidden, "access denied: hospital only")
	}
	return nil
}

// BloodBankOnly allows only blood-bank organization accounts.
func BloodBankOnly(caller domain.Identity) error {
	if !caller.IsBloodBank() {
		return dErrors.New(dErrors.CodeForbidden, "access denied: blood bank only")
	}
	return nil
}

// CanViewRequest enforces ownership on request reads: a hospital may only see
// requests it created; a blood bank may see any request.
func CanViewRequest(caller domain.Identity, hospitalID string) error {
	if caller.IsBloodBank() {
		return nil
	}
	if caller.IsHospital() && caller.ID == hospitalID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "access denied")
}
