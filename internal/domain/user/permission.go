package user

type Permission string

const (
	// Self service
	PermissionAttendanceViewOwn Permission = "attendance.view_own"

	// Team attendance
	PermissionAttendanceViewAll Permission = "attendance.view_all"
	PermissionAttendanceCorrect Permission = "attendance.correct"
	PermissionAttendanceHealth  Permission = "attendance.health"

	// Reports
	PermissionReportsExportOwn Permission = "reports.export_own"
	PermissionReportsExportAll Permission = "reports.export_all"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceViewAll,
		PermissionAttendanceCorrect,
		PermissionAttendanceHealth,
		PermissionReportsExportOwn,
		PermissionReportsExportAll,
	},
	RoleManager: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceViewAll,
		PermissionAttendanceCorrect,
		PermissionAttendanceHealth,
		PermissionReportsExportOwn,
		PermissionReportsExportAll,
	},
	RoleEmployee: {
		PermissionAttendanceViewOwn,
		PermissionReportsExportOwn,
	},
	// pending users have no attendance yet
	RolePending: {},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
