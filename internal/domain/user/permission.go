package user

type Permission string

const (
	PermissionPayrollViewOwn      Permission = "payroll.view_own"
	PermissionPayrollViewAll      Permission = "payroll.view_all"
	PermissionPayrollUpdateStatus Permission = "payroll.update_status"
	PermissionPayrollCreate       Permission = "payroll.create"
	PermissionRewardPostBonus     Permission = "reward.post_bonus"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionPayrollViewOwn,
		PermissionPayrollViewAll,
		PermissionPayrollUpdateStatus,
		PermissionPayrollCreate,
		PermissionRewardPostBonus,
	},
	RoleManager: {
		PermissionPayrollViewOwn,
		PermissionPayrollViewAll,
		PermissionPayrollUpdateStatus,
		PermissionPayrollCreate,
		PermissionRewardPostBonus,
	},
	RoleHR: {
		PermissionPayrollViewOwn,
		PermissionPayrollViewAll,
		PermissionPayrollUpdateStatus,
		PermissionPayrollCreate,
		PermissionRewardPostBonus,
	},
	RoleEmployee: {
		PermissionPayrollViewOwn,
	},
	RolePending: {
		// Pending role has no permissions
	},
}
