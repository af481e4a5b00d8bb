package domain

// User roles carried in access tokens and stored on users.
const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleAgent      = "AGENT"
)

// Lead sources recorded at creation time.
const (
	SourcePublic     = "public"
	SourceQuickEntry = "quick_entry"
	SourceImport     = "import"
)

// CanManageLeads reports whether a role set may assign, distribute and import.
func CanManageLeads(roles []string) bool {
	for _, r := range roles {
		if r == RoleAdmin || r == RoleSupervisor {
			return true
		}
	}
	return false
}
