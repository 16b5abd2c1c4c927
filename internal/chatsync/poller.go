package chatsync

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"teamchat/internal/observability"
)

const (
	MessagePollInterval   = 5 * time.Second
	DirectoryPollInterval = 10 * time.Second
)

// Poller runs tick on a fixed interval until its context ends. A cycle that
// fails is logged and retried on the next tick; it never stops the loop.
type Poller struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context) error
	skip     SkipFunc
	now      func() time.Time
	trigger  chan struct{}
}

// NewPoller builds a poller. skip may be nil.
func NewPoller(name string, interval time.Duration, tick func(ctx context.Context) error, skip SkipFunc) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		tick:     tick,
		skip:     skip,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an early cycle. Requests made while one is pending
// coalesce.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.cycle(ctx)
		case <-p.trigger:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	if p.skip != nil && p.skip(p.now()) {
		observability.IncSyncPoll(p.name, "skipped")
		return
	}
	if err := p.tick(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		observability.IncSyncPoll(p.name, "error")
		log.Warn().Err(err).Str("poller", p.name).Msg("poll failed")
		return
	}
	observability.IncSyncPoll(p.name, "ok")
}
