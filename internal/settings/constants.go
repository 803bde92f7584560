package settings

// DB config keys and defaults.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "ConvoFlow"

	// DailyMessageLimitKey caps standard-tier messages per user per day.
	DailyMessageLimitKey = "DAILY_MESSAGE_LIMIT"
	// DailyProMessageLimitKey caps pro-tier messages per user per day.
	DailyProMessageLimitKey = "DAILY_PRO_MESSAGE_LIMIT"
	// GuestRetentionDaysKey controls how long inactive guests are kept.
	GuestRetentionDaysKey = "GUEST_RETENTION_DAYS"
	// AuditRetentionDaysKey controls credential audit retention; 0 keeps rows forever.
	AuditRetentionDaysKey = "AUDIT_RETENTION_DAYS"

	// DefaultDailyMessageLimit is the fallback standard-tier daily cap.
	DefaultDailyMessageLimit = 100
	// DefaultDailyProMessageLimit is the fallback pro-tier daily cap.
	DefaultDailyProMessageLimit = 20
	// DefaultGuestRetentionDays is the fallback guest retention window.
	DefaultGuestRetentionDays = 30
	// DefaultAuditRetentionDays keeps audit rows forever by default.
	DefaultAuditRetentionDays = 0
)
