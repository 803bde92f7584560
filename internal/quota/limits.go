package quota

import internalsettings "github.com/convoflow/convoflow-server/internal/settings"

// DailyLimit resolves the configured daily cap for a tier, falling back to
// compiled defaults when the settings table has no override.
func DailyLimit(tier Tier) int64 {
	switch tier {
	case TierPro:
		return int64(internalsettings.DBConfigInt(internalsettings.DailyProMessageLimitKey, internalsettings.DefaultDailyProMessageLimit))
	default:
		return int64(internalsettings.DBConfigInt(internalsettings.DailyMessageLimitKey, internalsettings.DefaultDailyMessageLimit))
	}
}

// For returns the counter value for the given tier.
func (c Counts) For(tier Tier) int64 {
	if tier == TierPro {
		return c.Pro
	}
	return c.Standard
}

// Allows reports whether another message of the tier fits under the limit.
// A degraded zero-count read therefore admits: availability wins over
// accuracy on the send path.
func (c Counts) Allows(tier Tier) bool {
	return c.For(tier) < DailyLimit(tier)
}
