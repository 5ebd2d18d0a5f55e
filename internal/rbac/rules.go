package rbac

const (
	RoleTaker    = "taker"
	RoleReporter = "reporter"
	RoleAdmin    = "admin"
)

const (
	PermTestCreate    = "test:create"
	PermTestView      = "test:view"
	PermTestList      = "test:list"
	PermAttemptSubmit = "attempt:submit"
	PermAttemptCreate = "attempt:create"
	PermAttemptSave   = "attempt:save"
	PermViewOwn       = "attempt:view-own"
	PermViewAll       = "attempt:view-all"
	PermStatsView     = "stats:view"
	PermEventsRead    = "events:read"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleTaker: {
		PermTestView,
		PermTestList,
		PermAttemptSubmit,
		PermAttemptCreate,
		PermAttemptSave,
		PermViewOwn,
	},
	// reporter is the narrative-report worker and analytics consumers
	RoleReporter: {
		PermTestView,
		PermTestList,
		PermViewAll,
		"stats:*",
		"events:*",
	},
	RoleAdmin: {
		"*",
	},
}
