package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Manages team payroll
	RoleHR       Role = "hr"       // Runs payroll
	RoleEmployee Role = "employee" // Regular employee, own ledger only
	RolePending  Role = "pending"  // Still in onboarding
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleOwner, RoleManager, RoleHR, RoleEmployee, RolePending:
		return r, true
	}
	return "", false
}
