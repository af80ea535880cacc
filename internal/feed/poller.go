package feed

import (
	"context"
	"time"
)

// DefaultPollInterval is how often the freshness poll wakes when the caller
// does not configure an interval.
const DefaultPollInterval = 2 * time.Minute

// Update is delivered to the poll listener after each wake-up that found
// fresh posts or failed.
type Update struct {
	// Fresh is the count of posts that were not previously cached.
	Fresh int
	// Err is the failure that ended the polling attempt, nil otherwise.
	Err error
}

// Poller periodically asks the server for posts newer than the newest
// cached one and merges them. A single failure ends the attempt; the caller
// decides whether to start a new one.
type Poller struct {
	sync     *Synchronizer
	interval time.Duration
	notify   func(Update)
}

// NewPoller creates a Poller over the given synchronizer. notify may be nil
// when the caller only wants the cache kept warm.
func NewPoller(s *Synchronizer, interval time.Duration, notify func(Update)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{sync: s, interval: interval, notify: notify}
}

// Run polls until ctx is cancelled or a poll fails. Cancellation is
// observed between wake-ups; a request already in flight is not cut short.
// On failure the error is delivered to the listener and returned, and the
// attempt terminates.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fresh, err := p.sync.CheckNewer()
			if err != nil {
				if p.notify != nil {
					p.notify(Update{Err: err})
				}
				return err
			}
			if fresh > 0 && p.notify != nil {
				p.notify(Update{Fresh: fresh})
			}
		}
	}
}
