package models

// Staff roles. Employees act on behalf of their parent admin account.
const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
)

// ActingUser is the resolved authenticated staff member attached to a
// request by the auth middleware. A nil ActingUser means the request is
// unauthenticated.
type ActingUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	ParentUser string `json:"parent_user,omitempty"`
}

// TenantID returns the admin account that owns this user's data: the user
// itself for admins, the parent account for employees.
func (u *ActingUser) TenantID() string {
	if u.Role == RoleEmployee && u.ParentUser != "" {
		return u.ParentUser
	}
	return u.ID
}

// Privileged reports whether the user may see every order in the tenant
// rather than only its own.
func (u *ActingUser) Privileged() bool {
	return u.Role == RoleAdmin
}
