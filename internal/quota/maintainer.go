package quota

import (
	"context"
	"time"

	internalsettings "github.com/convoflow/convoflow-server/internal/settings"
	log "github.com/sirupsen/logrus"
)

// maintainerInterval is how often the maintainer checks whether the UTC day
// has rolled over.
const maintainerInterval = time.Hour

// Maintainer runs the daily counter reset and the inactive-guest sweep once
// per UTC day. Both operations are also callable directly on the Counter;
// the maintainer just provides the in-process schedule.
type Maintainer struct {
	counter  *Counter
	interval time.Duration

	lastRunDay string
}

// NewMaintainer constructs a Maintainer for the given counter.
func NewMaintainer(counter *Counter) *Maintainer {
	if counter == nil {
		return nil
	}
	return &Maintainer{
		counter:  counter,
		interval: maintainerInterval,
		// Seed with the current day so a mid-day restart does not wipe
		// counters accumulated since midnight.
		lastRunDay: time.Now().UTC().Format(time.DateOnly),
	}
}

// Start launches the maintenance loop in a background goroutine.
func (m *Maintainer) Start(ctx context.Context) {
	if m == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go m.run(ctx)
	log.Infof("quota maintainer started (interval=%s)", m.interval)
}

func (m *Maintainer) run(ctx context.Context) {
	for {
		timer := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
		m.tick(ctx)
	}
}

// tick runs the daily maintenance when the UTC day has changed.
func (m *Maintainer) tick(ctx context.Context) {
	today := time.Now().UTC().Format(time.DateOnly)
	if today == m.lastRunDay {
		return
	}

	if errReset := m.counter.ResetAll(ctx); errReset != nil {
		log.WithError(errReset).Warn("quota maintainer: daily reset failed")
		return
	}

	retentionDays := internalsettings.DBConfigInt(internalsettings.GuestRetentionDaysKey, internalsettings.DefaultGuestRetentionDays)
	if _, errSweep := m.counter.SweepInactiveGuests(ctx, retentionDays); errSweep != nil {
		log.WithError(errSweep).Warn("quota maintainer: guest sweep failed")
		return
	}

	m.lastRunDay = today
}
