package audit

import (
	"context"
	"time"

	internalsettings "github.com/convoflow/convoflow-server/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRetentionInterval = 6 * time.Hour
	defaultDeleteBatchSize   = 5000
	maxDeleteBatchesPerRun   = 2000
)

// RetentionCleaner periodically deletes audit rows older than the configured
// retention window. A retention of 0 days disables deletion entirely, which
// is the default: audit history is kept independently of user lifecycle.
type RetentionCleaner struct {
	db        *gorm.DB
	interval  time.Duration
	batchSize int
}

// NewRetentionCleaner constructs a cleaner with default cadence.
func NewRetentionCleaner(db *gorm.DB) *RetentionCleaner {
	if db == nil {
		return nil
	}
	return &RetentionCleaner{
		db:        db,
		interval:  defaultRetentionInterval,
		batchSize: defaultDeleteBatchSize,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *RetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("audit retention cleaner started (interval=%s)", c.interval)
}

func (c *RetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (c *RetentionCleaner) cleanupOnce(ctx context.Context) {
	if c == nil || c.db == nil {
		return
	}

	retentionDays := internalsettings.DBConfigInt(internalsettings.AuditRetentionDaysKey, internalsettings.DefaultAuditRetentionDays)
	if retentionDays <= 0 {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	deletedTotal := int64(0)
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			return
		}
		n, err := c.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("audit retention cleaner: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}

	if deletedTotal > 0 {
		log.Infof("audit retention cleaner: deleted %d rows (cutoff=%s retention_days=%d)", deletedTotal, cutoff.Format(time.RFC3339), retentionDays)
	}
}

func (c *RetentionCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	limit := c.batchSize
	if limit <= 0 {
		limit = defaultDeleteBatchSize
	}

	// Limited subquery keeps each delete short and avoids long table locks.
	res := c.db.WithContext(ctx).Exec(`
		DELETE FROM credential_audits
		WHERE id IN (
			SELECT id FROM credential_audits
			WHERE created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, cutoff, limit)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
