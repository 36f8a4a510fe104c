package models

import (
	"strings"
	"time"

	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
)

// User is an account in the system: a donor or a blood-service organization.
//
// Invariants:
//   - Email is non-empty and unique (enforced by the store)
//   - Role is DONOR or BLOOD_SERVICE
//   - BLOOD_SERVICE users carry an organization kind; DONOR users may carry
//     a blood group
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             domain.Role
	OrganizationKind domain.OrganizationKind
	LicenseNumber    string
	DonorBloodGroup  domain.BloodGroup
	CreatedAt        time.Time
}

// NewUser validates and constructs an account. The password hash is produced
// by the service; this constructor never sees cleartext credentials.
func NewUser(id, name, email, passwordHash string, role domain.Role, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if !role.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid role %q", role)
	}

	return &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
	}, nil
}

// Identity projects the account into the authenticated-caller value used by
// policy checks and carried in JWT claims.
func (u *User) Identity() domain.Identity {
	return domain.Identity{
		ID:               u.ID,
		Role:             u.Role,
		OrganizationKind: u.OrganizationKind,
	}
}

// PublicProfile is the subset of a user exposed to other parties, e.g. the
// hospital details attached to the blood-bank request listing.
type PublicProfile struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	OrganizationKind domain.OrganizationKind `json:"organization_kind,omitempty"`
}

// Public returns the user's public profile.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		OrganizationKind: u.OrganizationKind,
	}
}
