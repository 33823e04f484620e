package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"quiz:start",
		"quiz:answer",
		"quiz:integrity",
		"quiz:submit",
	},
	"proctor": {
		"quiz:view",
		"audit:view",
	},
	"admin": {
		"*", // everything
	},
}
