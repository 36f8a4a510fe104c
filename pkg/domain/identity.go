package domain

// Role classifies an account. Donors register to give blood; blood-service
// organizations (hospitals and blood banks) operate the request workflow.
type Role string

const (
	RoleDonor        Role = "DONOR"
	RoleBloodService Role = "BLOOD_SERVICE"
)

var validRoles = map[Role]bool{
	RoleDonor:        true,
	RoleBloodService: true,
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}

// OrganizationKind distinguishes the two blood-service organization types.
// Only meaningful when Role is BLOOD_SERVICE.
type OrganizationKind string

const (
	OrganizationHospital  OrganizationKind = "HOSPITAL"
	OrganizationBloodBank OrganizationKind = "BLOOD_BANK"
)

var validOrganizationKinds = map[OrganizationKind]bool{
	OrganizationHospital:  true,
	OrganizationBloodBank: true,
}

func (k OrganizationKind) IsValid() bool {
	return validOrganizationKinds[k]
}

func (k OrganizationKind) String() string {
	return string(k)
}

// Identity is the authenticated caller as established by the auth middleware.
// The core treats it as an immutable fact per request: services never look up
// credentials, they only classify and authorize this value.
type Identity struct {
	ID               string
	Role             Role
	OrganizationKind OrganizationKind
}

// IsHospital reports whether the identity is a hospital organization account.
func (i Identity) IsHospital() bool {
	return i.Role == RoleBloodService && i.OrganizationKind == OrganizationHospital
}

// IsBloodBank reports whether the identity is a blood-bank organization account.
func (i Identity) IsBloodBank() bool {
	return i.Role == RoleBloodService && i.OrganizationKind == OrganizationBloodBank
}
