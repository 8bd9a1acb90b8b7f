package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can review team attendance
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

// IsOwner checks if role is company owner
func (r Role) IsOwner() bool {
	return r == RoleOwner
}

// IsManager checks if role is manager or owner
func (r Role) IsManager() bool {
	return r == RoleManager || r == RoleOwner
}

// IsPending checks if role is still in onboarding
func (r Role) IsPending() bool {
	return r == RolePending
}
