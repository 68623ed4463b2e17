package idle

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/minesgame/internal/dependencies/clock"
	"github.com/mcoot/minesgame/internal/model"
)

// DefaultDelay is how long a round may sit idle before the player is nudged
const DefaultDelay = 20 * time.Second

// Registry holds at most one pending idle timer per player
type Registry struct {
	clock  clock.Clock
	delay  time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	timers map[model.PlayerID]*entry
}

type entry struct {
	timer clock.Timer
}

// New creates a registry firing after delay (DefaultDelay if non-positive)
func New(clk clock.Clock, delay time.Duration, logger *slog.Logger) *Registry {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Registry{
		clock:  clk,
		delay:  delay,
		logger: logger.With(slog.String("component", "idle")),
		timers: make(map[model.PlayerID]*entry),
	}
}

// Arm replaces any pending timer for player with a fresh one that calls
// notify once the delay elapses
func (r *Registry) Arm(player model.PlayerID, notify func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[player]; ok {
		old.timer.Stop()
	}
	e := &entry{}
	e.timer = r.clock.AfterFunc(r.delay, func() { r.fire(player, e, notify) })
	r.timers[player] = e
}

// Disarm cancels the pending timer for player, if any
func (r *Registry) Disarm(player model.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.timers[player]; ok {
		e.timer.Stop()
		delete(r.timers, player)
	}
}

// Active reports whether a timer is pending for player
func (r *Registry) Active(player model.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[player]
	return ok
}

// Len returns the number of pending timers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels every pending timer
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for player, e := range r.timers {
		e.timer.Stop()
		delete(r.timers, player)
	}
}

func (r *Registry) fire(player model.PlayerID, e *entry, notify func()) {
	r.mu.Lock()
	if r.timers[player] != e {
		// Superseded or disarmed after the timer was already scheduled to run
		r.mu.Unlock()
		return
	}
	delete(r.timers, player)
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("idle notification panicked",
				slog.String("player", player.String()),
				slog.String("panic", fmt.Sprint(rec)),
			)
		}
	}()
	notify()
}
