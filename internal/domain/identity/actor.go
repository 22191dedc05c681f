package identity

import (
	"slices"
	"strings"
)

// Role is a role tag carried by an actor. Role provisioning lives outside
// this module; the core only evaluates tags.
type Role string

const (
	RoleSuperAdmin        Role = "super_admin"
	RoleSeller            Role = "seller"
	RoleCallCenterAgent   Role = "call_center_agent"
	RoleCallCenterManager Role = "call_center_manager"
	RoleStockKeeper       Role = "stock_keeper"
	RolePackagingAgent    Role = "packaging_agent"
	RoleDeliveryAgent     Role = "delivery_agent"
)

// AllRoles returns every known role tag
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleSeller,
		RoleCallCenterAgent,
		RoleCallCenterManager,
		RoleStockKeeper,
		RolePackagingAgent,
		RoleDeliveryAgent,
	}
}

// IsValid checks if the role tag is known
func (r Role) IsValid() bool {
	return slices.Contains(AllRoles(), r)
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role tag, accepting any case and '-' or ' ' separators
func ParseRole(s string) (Role, bool) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	r := Role(normalized)
	return r, r.IsValid()
}

// Actor is the identity performing an operation. The role set is fixed at
// construction and copied on the way in and out.
type Actor struct {
	id    int64
	name  string
	roles []Role
}

// NewActor creates an actor with the given role tags; unknown and duplicate tags are dropped
func NewActor(id int64, name string, roles ...Role) Actor {
	set := make([]Role, 0, len(roles))
	for _, r := range roles {
		if r.IsValid() && !slices.Contains(set, r) {
			set = append(set, r)
		}
	}
	slices.Sort(set)
	return Actor{id: id, name: name, roles: set}
}

// System returns the actor used for system-driven work such as scheduled jobs
func System() Actor {
	return NewActor(0, "system", RoleSuperAdmin)
}

// ID returns the opaque actor identity
func (a Actor) ID() int64 {
	return a.id
}

// Name returns the display name
func (a Actor) Name() string {
	return a.name
}

// Roles returns a copy of the role tags
func (a Actor) Roles() []Role {
	return slices.Clone(a.roles)
}

// IsZero reports whether the actor was never initialized
func (a Actor) IsZero() bool {
	return a.id == 0 && a.name == "" && len(a.roles) == 0
}

// HasRole reports whether the actor carries the role tag
func (a Actor) HasRole(r Role) bool {
	return slices.Contains(a.roles, r)
}

// HasAnyRole reports whether the actor carries any of the tags
func (a Actor) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the actor overrides role checks
func (a Actor) IsSuperAdmin() bool {
	return a.HasRole(RoleSuperAdmin)
}

// IsManager reports whether the actor is a call center manager
func (a Actor) IsManager() bool {
	return a.HasRole(RoleCallCenterManager)
}

// Can reports whether the actor holds one of the allowed roles, or is a super admin
func (a Actor) Can(allowed ...Role) bool {
	return a.IsSuperAdmin() || a.HasAnyRole(allowed...)
}

// RoleNames returns the role tags as strings, for logs and audit events
func (a Actor) RoleNames() []string {
	names := make([]string, len(a.roles))
	for i, r := range a.roles {
		names[i] = string(r)
	}
	return names
}
