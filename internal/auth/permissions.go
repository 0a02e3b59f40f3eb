package auth

// Access control is declarative configuration, not executed policy: the
// statement list names every permission the application knows about, and each
// role grants a subset.

// Permission is a "verb:scope:attribute" grant on the user resource.
type Permission string

// Statements enumerates every permission in the system.
var Statements = []Permission{
	// Reading the caller's own record.
	"read:own:id",
	"read:own:name",
	"read:own:email",
	"read:own:image",
	"read:own:createdAt",
	"read:own:updatedAt",
	"read:own:role",
	"read:own:banned",
	"read:own:banReason",
	"read:own:banExpires",

	// Reading other users' records.
	"read:other:id",
	"read:other:name",
	"read:other:email",
	"read:other:image",
	"read:other:createdAt",
	"read:other:updatedAt",
	"read:other:role",
	"read:other:banned",
	"read:other:banReason",
	"read:other:banExpires",

	// Updating the caller's own record.
	"update:own:name",
	"update:own:email",
	"update:own:image",

	// Updating other users' records.
	"update:other:name",
	"update:other:email",
	"update:other:image",

	// Moderation.
	"ban:other",
	"unban:other",
}

// Role grants a named subset of Statements.
type Role struct {
	Name  string
	Grant map[Permission]bool
}

func newRole(name string, perms ...Permission) Role {
	grant := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		grant[p] = true
	}
	return Role{Name: name, Grant: grant}
}

var (
	// RoleUser can read and update their own record.
	RoleUser = newRole("user",
		"read:own:id", "read:own:name", "read:own:email", "read:own:image",
		"read:own:createdAt", "read:own:updatedAt", "read:own:role",
		"update:own:name", "update:own:email", "update:own:image",
	)

	// RoleAdmin holds every permission in the statement list.
	RoleAdmin = newRole("admin", Statements...)
)

// Roles maps role names to their definitions.
var Roles = map[string]Role{
	RoleUser.Name:  RoleUser,
	RoleAdmin.Name: RoleAdmin,
}

// Allowed reports whether the named role grants the permission. Unknown roles
// grant nothing.
func Allowed(roleName string, perm Permission) bool {
	role, ok := Roles[roleName]
	if !ok {
		return false
	}
	return role.Grant[perm]
}
