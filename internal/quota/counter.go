package quota

import (
	"context"
	"errors"
	"time"

	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Tier identifies a message-quota category.
type Tier string

// Quota tiers.
const (
	// TierStandard counts ordinary chat messages.
	TierStandard Tier = "standard"
	// TierPro counts messages routed to premium models.
	TierPro Tier = "pro"
)

// ErrUnknownTier indicates a tier outside the accepted set.
var ErrUnknownTier = errors.New("quota: unknown tier")

// Counts is a point-in-time read of a user's daily counters.
type Counts struct {
	Standard int64 `json:"standard_count"`
	Pro      int64 `json:"pro_count"`
}

// Counter tracks per-user daily message counters. Increments are single
// atomic column updates at the storage layer; daily counters are advisory,
// so the reset race documented on ResetAll is accepted.
type Counter struct {
	db *gorm.DB
}

// NewCounter constructs a Counter backed by GORM.
func NewCounter(conn *gorm.DB) *Counter {
	return &Counter{db: conn}
}

// tierColumn maps a tier onto its counter column.
func tierColumn(tier Tier) (string, error) {
	switch tier {
	case TierStandard:
		return "daily_message_count", nil
	case TierPro:
		return "daily_pro_message_count", nil
	default:
		return "", ErrUnknownTier
	}
}

// Increment adds one to the user's counter for the tier and refreshes
// last_active_at, in one statement. Concurrent increments for the same user
// never lose updates. A missing user is db.ErrNotFound; storage failures
// propagate — dropping a write silently is not acceptable.
func (c *Counter) Increment(ctx context.Context, userID string, tier Tier) error {
	column, errTier := tierColumn(tier)
	if errTier != nil {
		return errTier
	}

	res := c.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			column:           gorm.Expr(column+" + ?", 1),
			"last_active_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return db.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Read returns the user's counters with the full error taxonomy: a missing
// user is db.ErrNotFound, an unreachable store is db.ErrStorageUnavailable.
func (c *Counter) Read(ctx context.Context, userID string) (Counts, error) {
	var row models.User
	errTake := c.db.WithContext(ctx).
		Select("daily_message_count", "daily_pro_message_count").
		Where("id = ?", userID).
		Take(&row).Error
	if errTake != nil {
		return Counts{}, db.Classify(errTake)
	}
	return Counts{Standard: row.DailyMessageCount, Pro: row.DailyProMessageCount}, nil
}

// Get is the degraded read used on the chat-send path: when the store cannot
// serve the request it returns zero counts so sending stays available, and
// logs the degradation. Callers that must distinguish "unknown" from
// "definitely zero" use Read.
func (c *Counter) Get(ctx context.Context, userID string) Counts {
	counts, err := c.Read(ctx, userID)
	if err == nil {
		return counts
	}
	if errors.Is(err, db.ErrStorageUnavailable) {
		log.WithError(err).WithField("user_id", userID).Warn("quota: degraded read, returning zero counts")
	}
	return Counts{}
}

// ResetAll zeroes every user's counters in one bulk statement. An increment
// landing exactly at reset time may be lost; daily counters are advisory,
// not billing-grade.
func (c *Counter) ResetAll(ctx context.Context) error {
	res := c.db.WithContext(ctx).Exec(`
		UPDATE users
		SET daily_message_count = 0, daily_pro_message_count = 0
	`)
	if res.Error != nil {
		return db.Classify(res.Error)
	}
	log.Infof("quota: reset daily counters for %d users", res.RowsAffected)
	return nil
}

// SweepInactiveGuests deletes anonymous users whose last activity is older
// than inactiveDays. Registered users are never touched. Idempotent: a
// second run right after the first deletes nothing.
func (c *Counter) SweepInactiveGuests(ctx context.Context, inactiveDays int) (int64, error) {
	if inactiveDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -inactiveDays)

	res := c.db.WithContext(ctx).
		Where("is_anonymous = ? AND last_active_at < ?", true, cutoff).
		Delete(&models.User{})
	if res.Error != nil {
		return 0, db.Classify(res.Error)
	}
	if res.RowsAffected > 0 {
		log.Infof("quota: swept %d inactive guests (cutoff=%s)", res.RowsAffected, cutoff.Format(time.RFC3339))
	}
	return res.RowsAffected, nil
}
