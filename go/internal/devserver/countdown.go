package devserver

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// Countdown drives the shared quiz timer and the periodic active-user
// broadcast. The timer counts down once per second and wraps back to its
// full duration at zero, which is the server-side reset clients observe.
type Countdown struct {
	hub      *Hub
	store    *Store
	clock    clockwork.Clock
	duration int
	activity time.Duration
	maxAge   int64
}

// NewCountdown creates a countdown broadcaster.
func NewCountdown(hub *Hub, store *Store, clock clockwork.Clock, cfg *Config) *Countdown {
	return &Countdown{
		hub:      hub,
		store:    store,
		clock:    clock,
		duration: cfg.TimerSeconds,
		activity: time.Duration(cfg.ActivityIntervalSec) * time.Second,
		maxAge:   cfg.ActivityMaxAgeSec,
	}
}

// Run broadcasts update_timer every second and update_times on the activity
// interval until ctx is cancelled.
func (c *Countdown) Run(ctx context.Context) {
	tick := c.clock.NewTicker(time.Second)
	activity := c.clock.NewTicker(c.activity)
	defer tick.Stop()
	defer activity.Stop()

	remaining := c.duration
	for {
		select {
		case <-ctx.Done():
			return

		case <-tick.Chan():
			c.broadcastTimer(remaining)
			remaining--
			if remaining < 0 {
				remaining = c.duration
			}

		case <-activity.Chan():
			c.broadcastActivity()
		}
	}
}

func (c *Countdown) broadcastTimer(remaining int) {
	env, err := events.NewEnvelope(events.EventUpdateTimer, events.TimerPayload{SecondsRemaining: &remaining})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode timer event")
		return
	}
	c.hub.BroadcastAll(env)
}

func (c *Countdown) broadcastActivity() {
	users := c.store.ActiveSeconds(c.maxAge)
	env, err := events.NewEnvelope(events.EventUpdateTimes, events.ActiveUsersPayload{Users: users})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode active-users event")
		return
	}
	c.hub.BroadcastAll(env)
}
