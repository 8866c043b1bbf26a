package loginsession

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Janitor periodically removes stale sessions from a Repo. Lazy expiry keeps
// readers correct on its own; the sweep is what keeps the store from growing
// without bound over the process lifetime.
type Janitor struct {
	repo     Repo
	ttl      time.Duration
	grace    time.Duration
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	nowTime  func() time.Time
}

// NewJanitor creates a janitor sweeping sessions older than ttl+grace every
// interval. Grace keeps just-expired records visible to pollers long enough
// for the client to observe the expired status before the record vanishes.
func NewJanitor(repo Repo, ttl, grace, interval time.Duration) *Janitor {
	return &Janitor{
		repo:     repo,
		ttl:      ttl,
		grace:    grace,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		nowTime:  time.Now,
	}
}

// WithNowTime overrides the clock (primarily for testing)
func (j *Janitor) WithNowTime(nowFunc func() time.Time) *Janitor {
	j.nowTime = nowFunc
	return j
}

// Start begins the sweep loop in a goroutine
func (j *Janitor) Start(ctx context.Context) {
	log.Info().Str("interval", j.interval.String()).Msg("Starting login session janitor")
	go j.run(ctx)
}

// Stop gracefully stops the sweep loop
func (j *Janitor) Stop() {
	close(j.stopChan)
	<-j.doneChan
	log.Info().Msg("Login session janitor stopped")
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneChan)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopChan:
			j.sweep()
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *Janitor) sweep() {
	cutoff := j.nowTime().Add(-(j.ttl + j.grace))
	removed, err := j.repo.DeleteExpired(cutoff)
	if err != nil {
		log.Err(err).Msg("Failed to sweep expired login sessions")
		return
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Swept expired login sessions")
	}
}
