package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultRefreshInterval is how often a running timer redraws.
const DefaultRefreshInterval = 100 * time.Millisecond

// Snapshot is the display state of a timer at one instant.
type Snapshot struct {
	Running   bool          `json:"running"`
	Expired   bool          `json:"expired"`
	StartTime *time.Time    `json:"startTime,omitempty"`
	Remaining time.Duration `json:"remaining"`
	Elapsed   time.Duration `json:"elapsed"`
	Display   string        `json:"display"`
	Band      Band          `json:"band"`
}

// Config holds the settings for a Timer.
type Config struct {
	Duration time.Duration
	Refresh  time.Duration
	Format   Format
	// Render is called on every refresh tick with the current snapshot.
	Render func(Snapshot)
	// OnExpire is called once per start when the remaining time reaches zero.
	OnExpire func()
}

// Timer is a countdown anchored to a shared start timestamp. Every value it reports
// is recomputed from the clock; ticks only drive redraws.
type Timer struct {
	clock clockwork.Clock
	cfg   Config

	mu        sync.Mutex
	running   bool
	expired   bool
	start     time.Time
	stoppedAt time.Time
	stopCh    chan struct{}
}

// NewTimer creates a stopped timer.
func NewTimer(clock clockwork.Clock, cfg Config) *Timer {
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefreshInterval
	}
	if cfg.Format == "" {
		cfg.Format = FormatCountdownName
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{clock: clock, cfg: cfg}
}

// Duration returns the fixed countdown duration.
func (t *Timer) Duration() time.Duration {
	return t.cfg.Duration
}

// Start runs the timer from startTime. Restarting with the same start time is a
// no-op, also once that countdown has expired.
func (t *Timer) Start(startTime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if (t.running || t.expired) && t.start.Equal(startTime) {
		return
	}
	if t.running {
		close(t.stopCh)
	}

	t.start = startTime
	t.running = true
	t.expired = false
	t.stopCh = make(chan struct{})

	log.Debug().
		Time("start_time", startTime).
		Dur("duration", t.cfg.Duration).
		Msg("countdown started")

	go t.loop(t.stopCh)
}

// Stop halts the timer and freezes the display at the current value.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Reset stops the timer and clears its start time.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.start = time.Time{}
	t.stoppedAt = time.Time{}
	t.expired = false
}

// Running reports whether the timer is counting down.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Snapshot returns the current display state.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(t.clock.Now())
}

func (t *Timer) stopLocked() {
	if !t.running {
		return
	}
	t.running = false
	t.stoppedAt = t.clock.Now()
	close(t.stopCh)
	log.Debug().Time("start_time", t.start).Msg("countdown stopped")
}

func (t *Timer) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{Running: t.running, Expired: t.expired}

	switch {
	case t.start.IsZero():
		snap.Remaining = t.cfg.Duration
	case t.running:
		snap.Remaining = Remaining(now, t.start, t.cfg.Duration)
		snap.Elapsed = Elapsed(now, t.start)
	default:
		snap.Remaining = Remaining(t.stoppedAt, t.start, t.cfg.Duration)
		snap.Elapsed = Elapsed(t.stoppedAt, t.start)
	}
	if !t.start.IsZero() {
		start := t.start
		snap.StartTime = &start
	}

	if t.cfg.Format == FormatElapsedName {
		snap.Display = FormatElapsed(snap.Elapsed)
	} else {
		snap.Display = FormatCountdown(snap.Remaining)
	}
	snap.Band = BandFor(snap.Remaining)
	return snap
}

func (t *Timer) loop(stopCh chan struct{}) {
	ticker := t.clock.NewTicker(t.cfg.Refresh)
	defer ticker.Stop()

	if t.tick(stopCh) {
		return
	}
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			if t.tick(stopCh) {
				return
			}
		}
	}
}

// tick redraws and handles expiry. It returns true once the loop should exit.
func (t *Timer) tick(stopCh chan struct{}) bool {
	t.mu.Lock()
	if t.stopCh != stopCh || !t.running {
		t.mu.Unlock()
		return true
	}

	now := t.clock.Now()
	snap := t.snapshotLocked(now)
	fire := false
	if snap.Remaining <= 0 && !t.expired {
		t.expired = true
		t.running = false
		t.stoppedAt = t.start.Add(t.cfg.Duration)
		close(t.stopCh)
		fire = true
		snap = t.snapshotLocked(now)
	}
	t.mu.Unlock()

	if t.cfg.Render != nil {
		t.cfg.Render(snap)
	}
	if fire {
		log.Info().Time("start_time", *snap.StartTime).Msg("countdown expired")
		if t.cfg.OnExpire != nil {
			t.cfg.OnExpire()
		}
		return true
	}
	return false
}
