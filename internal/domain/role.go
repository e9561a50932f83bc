package domain

import "strings"

// Role is a coarse permission tier carried in the access token.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// AdminEmailSuffix grants the admin role at registration.
const AdminEmailSuffix = "@admin.com"

var roleRank = map[Role]int{
	RoleCustomer:  1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// Valid reports whether r is one of the known tiers.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants every capability of min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && roleRank[r] >= roleRank[min]
}

// RoleForEmail returns the role assigned at registration.
func RoleForEmail(email string) Role {
	if strings.HasSuffix(strings.ToLower(email), AdminEmailSuffix) {
		return RoleAdmin
	}
	return RoleCustomer
}
