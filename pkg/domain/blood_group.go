package domain

import dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"

// BloodGroup is one of the eight ABO/Rh types and the partition key of the
// inventory ledger.
//
// Usage: construct via ParseBloodGroup at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type BloodGroup string

const (
	BloodGroupAPositive  BloodGroup = "A+"
	BloodGroupANegative  BloodGroup = "A-"
	BloodGroupBPositive  BloodGroup = "B+"
	BloodGroupBNegative  BloodGroup = "B-"
	BloodGroupABPositive BloodGroup = "AB+"
	BloodGroupABNegative BloodGroup = "AB-"
	BloodGroupOPositive  BloodGroup = "O+"
	BloodGroupONegative  BloodGroup = "O-"
)

// validBloodGroups is the single source of truth for supported groups.
var validBloodGroups = map[BloodGroup]bool{
	BloodGroupAPositive:  true,
	BloodGroupANegative:  true,
	BloodGroupBPositive:  true,
	BloodGroupBNegative:  true,
	BloodGroupABPositive: true,
	BloodGroupABNegative: true,
	BloodGroupOPositive:  true,
	BloodGroupONegative:  true,
}

// ParseBloodGroup constructs a BloodGroup from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseBloodGroup(s string) (BloodGroup, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "blood group is required")
	}
	g := BloodGroup(s)
	if !g.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid blood group %q", s)
	}
	return g, nil
}

func (g BloodGroup) IsValid() bool {
	return validBloodGroups[g]
}

func (g BloodGroup) String() string {
	return string(g)
}
