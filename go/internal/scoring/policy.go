package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ralphbruens/Scoreboard/go/internal/countdown"
)

// Direction defines which netto scores rank first.
type Direction int

const (
	// Ascending ranks lower netto scores first.
	Ascending Direction = iota
	// Descending ranks higher netto scores first.
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// Policy names.
const (
	PolicyElapsed   = "elapsed"
	PolicyCountdown = "countdown"
)

// ErrUnknownPolicy is returned by Lookup for an unsupported policy name.
var ErrUnknownPolicy = errors.New("unknown scoring policy")

// Policy turns a stop event into bruto and netto scores.
type Policy interface {
	Name() string
	// Bruto computes the raw score for a player stopped at now.
	Bruto(now, start time.Time, duration time.Duration) int64
	// ExpiryBruto is the raw score of a player auto-stopped when the countdown expires.
	ExpiryBruto(duration time.Duration) int64
	// Netto adjusts the bruto score by the player's bonus (seconds).
	Netto(bruto int64, bonusSeconds int) int64
	Direction() Direction
	// FormatScore renders a bruto or netto value for display.
	FormatScore(value int64) string
}

// ElapsedPolicy scores the elapsed time in milliseconds; lower netto wins.
type ElapsedPolicy struct{}

func (ElapsedPolicy) Name() string { return PolicyElapsed }

func (ElapsedPolicy) Bruto(now, start time.Time, _ time.Duration) int64 {
	return countdown.Elapsed(now, start).Milliseconds()
}

func (ElapsedPolicy) ExpiryBruto(duration time.Duration) int64 {
	return duration.Milliseconds()
}

func (ElapsedPolicy) Netto(bruto int64, bonusSeconds int) int64 {
	return bruto + int64(bonusSeconds)*1000
}

func (ElapsedPolicy) Direction() Direction { return Ascending }

func (ElapsedPolicy) FormatScore(value int64) string {
	return countdown.FormatMillis(countdown.FormatElapsedName, value)
}

// CountdownPolicy scores the whole seconds left on the countdown; higher netto wins.
type CountdownPolicy struct{}

func (CountdownPolicy) Name() string { return PolicyCountdown }

func (CountdownPolicy) Bruto(now, start time.Time, duration time.Duration) int64 {
	return countdown.Remaining(now, start, duration).Milliseconds() / 1000
}

func (CountdownPolicy) ExpiryBruto(time.Duration) int64 {
	return 0
}

func (CountdownPolicy) Netto(bruto int64, bonusSeconds int) int64 {
	return bruto + int64(bonusSeconds)
}

func (CountdownPolicy) Direction() Direction { return Descending }

func (CountdownPolicy) FormatScore(value int64) string {
	return fmt.Sprintf("%ds", value)
}

// Lookup returns the policy registered under name.
func Lookup(name string) (Policy, error) {
	switch name {
	case PolicyElapsed:
		return ElapsedPolicy{}, nil
	case PolicyCountdown:
		return CountdownPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Better reports whether netto score a ranks strictly ahead of b.
func Better(d Direction, a, b int64) bool {
	if d == Descending {
		return a > b
	}
	return a < b
}
