package session

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher re-validates the profile on a cron schedule
type Refresher struct {
	c      *Controller
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewRefresher schedules RefreshUserData on schedule ("@every 1m", "*/5 * * * *", ...)
func NewRefresher(ctx context.Context, c *Controller, schedule string, logger zerolog.Logger) (*Refresher, error) {
	r := &Refresher{
		c:      c,
		cron:   cron.New(),
		logger: logger.With().Str("component", "refresher").Logger(),
	}

	if _, err := r.cron.AddFunc(schedule, func() { r.tick(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	return r, nil
}

// Start begins firing on schedule
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) tick(ctx context.Context) {
	if !r.c.State().IsAuthenticated() {
		r.logger.Debug().Msg("No session, skipping scheduled refresh")
		return
	}

	if err := r.c.RefreshUserData(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Scheduled profile refresh failed")
		return
	}

	r.logger.Debug().Msg("Profile refreshed on schedule")
}
