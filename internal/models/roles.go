package models

// Project roles. Collectors only ever see their own entries; every other
// role sees the whole project.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleCreator    = "creator"
	RoleManager    = "manager"
	RoleCurator    = "curator"
	RoleCollector  = "collector"
	RoleViewer     = "viewer"
)

func RoleCanViewAll(role string) bool {
	return role != RoleCollector
}
