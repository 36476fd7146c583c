package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Principal is the authenticated caller produced by the auth middleware.
type Principal struct {
	UserID int64
	Role   Role
	Email  string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
