package user

// Role is the authenticated caller's role as carried in JWT claims.
type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
)

// Valid reports whether role is a recognized role.
func (role Role) Valid() bool {
	return role == RoleRider || role == RoleDriver
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}
