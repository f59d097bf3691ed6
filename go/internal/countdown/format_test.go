package countdown

import (
	"testing"
	"time"
)

func TestRemainingNeverNegative(t *testing.T) {
	start := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	durations := []time.Duration{0, time.Second, 90 * time.Second, 120 * time.Second}

	for _, d := range durations {
		for _, extra := range []time.Duration{0, time.Millisecond, time.Hour} {
			now := start.Add(d + extra)
			if got := Remaining(now, start, d); got != 0 {
				t.Errorf("Remaining(elapsed=%v, duration=%v) = %v, want 0", d+extra, d, got)
			}
		}
	}
}

func TestRemaining(t *testing.T) {
	start := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	got := Remaining(start.Add(83*time.Second), start, 120*time.Second)
	if got != 37*time.Second {
		t.Fatalf("Remaining = %v, want 37s", got)
	}
	if got := Elapsed(start.Add(-time.Second), start); got != 0 {
		t.Fatalf("Elapsed before start = %v, want 0", got)
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "000.00"},
		{90 * time.Second, "090.00"},
		{120 * time.Second, "120.00"},
		{37*time.Second + 456*time.Millisecond, "037.45"},
		{-5 * time.Second, "000.00"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.in); got != tt.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00.00"},
		{65432 * time.Millisecond, "01:05.43"},
		{12345 * time.Millisecond, "00:12.34"},
		{10*time.Minute + 999*time.Millisecond, "10:00.99"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.in); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want Band
	}{
		{0, BandExpired},
		{time.Millisecond, BandWarning},
		{30 * time.Second, BandWarning},
		{30*time.Second + time.Millisecond, BandNormal},
	}
	for _, tt := range tests {
		if got := BandFor(tt.in); got != tt.want {
			t.Errorf("BandFor(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatCountdownName {
		t.Fatalf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if _, err := ParseFormat("hh:mm"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if got := FormatMillis(FormatElapsedName, 65432); got != "01:05.43" {
		t.Fatalf("FormatMillis = %q", got)
	}
}
