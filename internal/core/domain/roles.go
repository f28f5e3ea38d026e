package domain

import (
	"fmt"
	"strings"
)

// Role represents a user role in the organisation
type Role string

const (
	RoleAlumni      Role = "alumni"
	RoleMember      Role = "member"
	RoleManager     Role = "manager"
	RoleAlumniBoard Role = "alumni_board"
	RoleBoard       Role = "board"
	RoleAdmin       Role = "admin"
)

// roleRanks is the privilege order. Distinct roles may share a rank.
var roleRanks = map[Role]int{
	RoleAlumni:      1,
	RoleMember:      1,
	RoleManager:     2,
	RoleAlumniBoard: 3,
	RoleBoard:       3,
	RoleAdmin:       4,
}

// AllRoles lists every role, lowest rank first
func AllRoles() []Role {
	return []Role{RoleAlumni, RoleMember, RoleManager, RoleAlumniBoard, RoleBoard, RoleAdmin}
}

// ParseRole converts an untrusted string into a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the enumerated roles
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the privilege rank of a role
func Rank(r Role) (int, error) {
	rank, ok := roleRanks[r]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return rank, nil
}

// AtLeast reports whether actual is ranked at least as high as required.
// Unknown roles never satisfy the check.
func AtLeast(actual, required Role) bool {
	a, err := Rank(actual)
	if err != nil {
		return false
	}
	r, err := Rank(required)
	if err != nil {
		return false
	}
	return a >= r
}

// ExactMatch is strict identifier equality, independent of rank
func ExactMatch(actual, required Role) bool {
	return actual.Valid() && actual == required
}

// Permission names a guarded capability
type Permission string

const (
	PermViewInventory   Permission = "view_inventory"
	PermManageInventory Permission = "manage_inventory"
	PermManageEvents    Permission = "manage_events"
	PermManageProjects  Permission = "manage_projects"
	PermViewDashboard   Permission = "view_dashboard"
	PermInviteMembers   Permission = "invite_members"
	PermManageUsers     Permission = "manage_users"
)

// permissionRoles maps each permission to the minimum role that holds it
var permissionRoles = map[Permission]Role{
	PermViewInventory:   RoleMember,
	PermManageInventory: RoleManager,
	PermManageEvents:    RoleManager,
	PermManageProjects:  RoleManager,
	PermViewDashboard:   RoleManager,
	PermInviteMembers:   RoleBoard,
	PermManageUsers:     RoleAdmin,
}

func init() {
	for perm, role := range permissionRoles {
		if !role.Valid() {
			panic(fmt.Sprintf("permission %s mapped to unknown role %s", perm, role))
		}
	}
}

// RequiredRole returns the minimum role for a permission
func RequiredRole(p Permission) (Role, error) {
	role, ok := permissionRoles[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, string(p))
	}
	return role, nil
}

// Grants reports whether a role holds a permission
func Grants(r Role, p Permission) bool {
	required, err := RequiredRole(p)
	if err != nil {
		return false
	}
	return AtLeast(r, required)
}
