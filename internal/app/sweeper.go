package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/core"
)

// Sweeper periodically retires overdue recruitments and rooms and purges old
// messages. It runs out-of-band from request handling; every pass is a bulk,
// idempotent update and no notifications are sent for sweeper-driven expiry.
type Sweeper struct {
	store      core.Store
	interval   time.Duration
	messageTTL time.Duration
}

func NewSweeper(store core.Store, interval, messageTTL time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval, messageTTL: messageTTL}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// A failed pass is logged and retried on the next interval.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Str("module", "app.sweeper").Dur("interval", s.interval).Msg("sweeper started")
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Each step is independent; one failing does not
// stop the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	if n, err := s.store.DeleteMessagesBefore(ctx, now.Add(-s.messageTTL)); err != nil {
		log.Error().Err(err).Str("module", "app.sweeper").Msg("purge messages")
	} else if n > 0 {
		log.Info().Str("module", "app.sweeper").Int64("count", n).Msg("purged messages")
	}

	if n, err := s.store.ExpireRecruitments(ctx, now); err != nil {
		log.Error().Err(err).Str("module", "app.sweeper").Msg("expire recruitments")
	} else if n > 0 {
		log.Info().Str("module", "app.sweeper").Int64("count", n).Msg("expired recruitments")
	}

	if n, err := s.store.ExpireRooms(ctx, now); err != nil {
		log.Error().Err(err).Str("module", "app.sweeper").Msg("expire rooms")
	} else if n > 0 {
		log.Info().Str("module", "app.sweeper").Int64("count", n).Msg("expired rooms")
	}
}
