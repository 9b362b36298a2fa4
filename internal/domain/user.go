package domain

import (
	"strings"
)

// Role is the role claim supplied by the identity provider.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole normalizes a role claim. Unknown values are reported with ok=false.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleManager:
		return RoleManager, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// rank orders roles so the strongest of several claims can be picked.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// Stronger reports whether r grants more authority than other.
func (r Role) Stronger(other Role) bool {
	return r.rank() > other.rank()
}

// Identity is the verified caller for one request. The core trusts it as given.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Email  string `json:"email,omitempty"`
}

// IsReviewer reports whether the caller may review events and reports (MANAGER or ADMIN).
func (i Identity) IsReviewer() bool {
	return i.Role == RoleManager || i.Role == RoleAdmin
}

// TokenVerifier verifies a bearer token and returns the authenticated identity.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}
