package auth

import (
	"github.com/gatherly/apiserver/internal/user"
)

// Permission names gate the protected operations of the service.
type Permission string

const (
	PermProfile          Permission = "profile"
	PermGetUsers         Permission = "getUsers"
	PermManageUsers      Permission = "manageUsers"
	PermGetEvents        Permission = "getEvents"
	PermManageEvents     Permission = "manageEvents"
	PermAssignRole       Permission = "assignRole"
	PermSendNotification Permission = "sendNotification"
	PermManageRSVP       Permission = "manageRSVP"
)

// rolePermissions is the static role to permission table, built once at
// process start and never mutated. Every role lists its rights explicitly;
// admin gets its breadth by enumeration, not by inheriting from staff.
var rolePermissions = buildRolePermissions(map[user.Role][]Permission{
	user.RoleUser: {
		PermProfile, PermGetEvents, PermManageRSVP,
	},
	user.RoleAdmin: {
		PermProfile, PermGetUsers, PermManageUsers, PermGetEvents,
		PermManageEvents, PermAssignRole, PermSendNotification,
	},
	user.RoleStaff: {
		PermProfile, PermGetUsers, PermManageUsers, PermGetEvents,
		PermManageEvents, PermSendNotification,
	},
})

func buildRolePermissions(table map[user.Role][]Permission) map[user.Role]map[Permission]struct{} {
	out := make(map[user.Role]map[Permission]struct{}, len(table))
	for role, perms := range table {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		out[role] = set
	}
	return out
}

// Authorize reports whether the role may perform the operation guarded by the
// permission. Unknown roles and unlisted permissions are denied.
func Authorize(role user.Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}
