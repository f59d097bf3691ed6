package countdown

import (
	"fmt"
	"time"
)

// Format selects how a timer value is rendered.
type Format string

const (
	// FormatCountdownName renders remaining time as SSS.ff.
	FormatCountdownName Format = "countdown"
	// FormatElapsedName renders elapsed time as MM:SS.ff.
	FormatElapsedName Format = "elapsed"
)

// ParseFormat validates a configured display format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCountdownName, FormatElapsedName:
		return Format(s), nil
	case "":
		return FormatCountdownName, nil
	default:
		return "", fmt.Errorf("unknown display format %q", s)
	}
}

// Band is the cosmetic colour band of a countdown display.
type Band string

const (
	BandNormal  Band = "normal"
	BandWarning Band = "warning"
	BandExpired Band = "expired"
)

// WarningThreshold is the remaining time at which the display turns to the warning band.
const WarningThreshold = 30 * time.Second

// Remaining returns max(0, duration - (now - start)).
func Remaining(now, start time.Time, duration time.Duration) time.Duration {
	remaining := duration - now.Sub(start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Elapsed returns max(0, now - start).
func Elapsed(now, start time.Time) time.Duration {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// FormatCountdown renders d as seconds padded to 3 digits and hundredths padded to 2.
func FormatCountdown(d time.Duration) string {
	ms := clampMillis(d)
	return fmt.Sprintf("%03d.%02d", ms/1000, (ms%1000)/10)
}

// FormatElapsed renders d as MM:SS.ff.
func FormatElapsed(d time.Duration) string {
	ms := clampMillis(d)
	totalSeconds := ms / 1000
	return fmt.Sprintf("%02d:%02d.%02d", totalSeconds/60, totalSeconds%60, (ms%1000)/10)
}

// FormatMillis renders a millisecond value with the given format.
func FormatMillis(format Format, ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if format == FormatElapsedName {
		return FormatElapsed(d)
	}
	return FormatCountdown(d)
}

// BandFor returns the colour band for the remaining time.
func BandFor(remaining time.Duration) Band {
	switch {
	case remaining <= 0:
		return BandExpired
	case remaining <= WarningThreshold:
		return BandWarning
	default:
		return BandNormal
	}
}

func clampMillis(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
