package auth

import "launchpad_backend/internal/models"

// Permissions by role. Door staff can look tickets up and check them in;
// only admins moderate.
const (
	PermTicketsVerify   = "tickets:verify"
	PermTicketsCheckIn  = "tickets:checkin"
	PermTicketsModerate = "tickets:moderate"
	PermOrdersReconcile = "orders:reconcile"
	PermSubscribers     = "subscribers:moderate"
)

var Permissions = map[models.AdminRole][]string{
	models.AdminRoleAdmin: {
		PermTicketsVerify,
		PermTicketsCheckIn,
		PermTicketsModerate,
		PermOrdersReconcile,
		PermSubscribers,
	},
	models.AdminRoleDoor: {
		PermTicketsVerify,
		PermTicketsCheckIn,
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role models.AdminRole, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
