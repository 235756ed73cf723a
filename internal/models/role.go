package models

// Role is the editorial role carried by a resolved identity
type Role string

const (
	RoleReader    Role = "reader"
	RoleWriter    Role = "writer"
	RoleEditor    Role = "editor"
	RolePublisher Role = "publisher"
)

var roleRank = map[Role]int{
	RoleReader:    1,
	RoleWriter:    2,
	RoleEditor:    3,
	RolePublisher: 4,
}

// ValidRoles defines accepted role names
var ValidRoles = map[Role]bool{
	RoleReader:    true,
	RoleWriter:    true,
	RoleEditor:    true,
	RolePublisher: true,
}

// AtLeast reports whether r meets the minimum role
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Identity is the already-resolved caller of an operation
type Identity struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// Require checks that the identity exists and meets min
func (i *Identity) Require(min Role) error {
	if i == nil || i.Subject == "" {
		return Unauthenticated("authentication required")
	}
	if !i.Role.AtLeast(min) {
		return Forbidden("role %q cannot perform this action, requires %s", i.Role, min)
	}
	return nil
}
