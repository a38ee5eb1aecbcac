package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixAdminSession CachePrefix = "ADMIN_SESSION_"
	CachePrefixConfirmation CachePrefix = "CONFIRM_"
	CachePrefixSettings     CachePrefix = "SETTINGS"
)

// Job names recorded in job_runs
const (
	JobMembershipAudit = "MEMBERSHIP_AUDIT"
)

// Redis streams
const (
	BroadcastStream        = "keydrop:broadcast"
	BroadcastConsumerGroup = "broadcast-workers"
)

const (
	DefaultProductName = "Premium"
	RecentClaimsLimit  = 5
	DefaultPageSize    = 20
	MaxPageSize        = 100
)
