package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the workflow role of a user. Roles are fixed by the approval
// pipeline and not configurable at runtime.
type Role string

const (
	RoleVendor  Role = "vendor"  // Authors and owns documents
	RolePIC     Role = "pic"     // Inspects goods and reviews work reports
	RoleDireksi Role = "direksi" // Final sign-off on work reports
)

// AllRoles lists every role in pipeline order
var AllRoles = []Role{RoleVendor, RolePIC, RoleDireksi}

// IsValid checks if the role is a known workflow role
func (r Role) IsValid() bool {
	switch r {
	case RoleVendor, RolePIC, RoleDireksi:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsReviewer reports whether the role reviews documents submitted by vendors
func (r Role) IsReviewer() bool {
	return r == RolePIC || r == RoleDireksi
}

// ParseRole parses a role name, case-insensitively
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// Actor is the verified identity on whose behalf a core operation runs.
// It is supplied by the transport layer and never read from ambient state.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// NewActor creates an actor
func NewActor(userID uuid.UUID, role Role) Actor {
	return Actor{UserID: userID, Role: role}
}

// IsZero reports whether the actor carries no identity
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil || !a.Role.IsValid()
}

// Is reports whether the actor is the given user
func (a Actor) Is(userID uuid.UUID) bool {
	return a.UserID == userID
}
