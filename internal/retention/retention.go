// Package retention purges old notification messages on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog/log"

	"teamchat/internal/observability"
)

const nextTickRetry = 30 * time.Second

// Purger deletes notification messages created before cutoff.
type Purger interface {
	PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job runs the purge on every tick of a cron expression.
type Job struct {
	purger  Purger
	cron    string
	keepFor time.Duration
	now     func() time.Time
}

// NewJob validates cronExpr and builds a job that keeps keepDays days of
// notifications.
func NewJob(purger Purger, cronExpr string, keepDays int) (*Job, error) {
	if cronExpr == "" {
		cronExpr = "0 3 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid retention cron expression: %q", cronExpr)
	}
	if keepDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", keepDays)
	}
	return &Job{
		purger:  purger,
		cron:    cronExpr,
		keepFor: time.Duration(keepDays) * 24 * time.Hour,
		now:     time.Now,
	}, nil
}

// RunOnce purges everything older than the retention window.
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.keepFor)
	n, err := j.purger.PurgeNotificationsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	observability.AddRetentionPurged(n)
	log.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("retention run finished")
	return n, nil
}

// Next returns the first tick strictly after t.
func (j *Job) Next(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(j.cron, t.UTC(), false)
}

// Run sleeps until each tick and purges, until ctx is done.
func (j *Job) Run(ctx context.Context) {
	log.Info().Str("cron", j.cron).Dur("keep_for", j.keepFor).Msg("retention scheduler started")
	for {
		wait := nextTickRetry
		next, err := j.Next(j.now())
		if err != nil {
			log.Error().Err(err).Str("cron", j.cron).Msg("retention next tick")
		} else {
			wait = time.Until(next)
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("retention scheduler stopping")
			return
		case <-time.After(wait):
		}
		if err != nil {
			continue
		}
		if _, err := j.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("retention run failed")
		}
	}
}
