// Package clockdisplay renders a room's countdown on a terminal, kept in sync
// with the scoreboard over WebSocket with a polling fallback.
package clockdisplay

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Ralphbruens/Scoreboard/go/internal/countdown"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

type Config struct {
	Room     string
	Duration time.Duration
	Format   countdown.Format
	Refresh  time.Duration
	// Color wraps the display in the ANSI colour of its band.
	Color bool
}

// Display owns the local countdown of one room. Remote records reach it only
// through Observer, which drops stale and duplicate records.
type Display struct {
	cfg      Config
	timer    *countdown.Timer
	observer *timersync.Observer

	mu   sync.Mutex
	out  io.Writer
	last string
}

func New(clock clockwork.Clock, cfg Config, out io.Writer) *Display {
	d := &Display{cfg: cfg, out: out}
	d.timer = countdown.NewTimer(clock, countdown.Config{
		Duration: cfg.Duration,
		Refresh:  cfg.Refresh,
		Format:   cfg.Format,
		Render:   d.render,
	})
	d.observer = timersync.NewObserver(d.timer, func(timersync.Record) {
		d.render(d.timer.Snapshot())
	})
	return d
}

func (d *Display) Observer() *timersync.Observer {
	return d.observer
}

func (d *Display) Snapshot() countdown.Snapshot {
	return d.timer.Snapshot()
}

// ShowEvent prints a round event on its own line below the clock.
func (d *Display) ShowEvent(ev timersync.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "\n%s  %s\n", ev.Timestamp.Local().Format("15:04:05"), describe(ev.Type))
	d.last = ""
}

// Close stops the local countdown.
func (d *Display) Close() {
	d.timer.Stop()
}

// render redraws the clock line when its text changed.
func (d *Display) render(snap countdown.Snapshot) {
	line := fmt.Sprintf("%s  %s", d.cfg.Room, snap.Display)
	if d.cfg.Color {
		line = bandColor(snap.Band) + line + ansiReset
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if line == d.last {
		return
	}
	d.last = line
	fmt.Fprintf(d.out, "\r%s", line)
}

func bandColor(b countdown.Band) string {
	switch b {
	case countdown.BandWarning:
		return ansiYellow
	case countdown.BandExpired:
		return ansiRed
	default:
		return ansiGreen
	}
}

func describe(t timersync.EventType) string {
	switch t {
	case timersync.EventPlayerCheckedIn:
		return "player checked in"
	case timersync.EventPlayerFinished:
		return "player finished"
	case timersync.EventRoundClosed:
		return "round closed"
	case timersync.EventResultsPublished:
		return "results published"
	case timersync.EventRoundReset:
		return "round reset"
	default:
		return string(t)
	}
}
