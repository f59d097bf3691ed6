package clockdisplay

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Ralphbruens/Scoreboard/go/internal/countdown"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestDisplay(t *testing.T) (*Display, *clockwork.FakeClock, *syncBuffer) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(base.Add(10 * time.Second))
	out := &syncBuffer{}
	d := New(clock, Config{Room: "ABC123", Duration: 120 * time.Second}, out)
	t.Cleanup(d.Close)
	return d, clock, out
}

func TestDisplayFollowsRecords(t *testing.T) {
	d, clock, out := newTestDisplay(t)

	if !d.Observer().Apply(timersync.Running("ABC123", base, base.Add(10*time.Second))) {
		t.Fatal("running record not applied")
	}
	if got := out.String(); !strings.Contains(got, "\rABC123  110.00") {
		t.Fatalf("output = %q, want the clock at 110.00", got)
	}

	clock.Advance(5 * time.Second)
	start := base
	if !d.Observer().Apply(timersync.Stopped("ABC123", &start, base.Add(15*time.Second))) {
		t.Fatal("stopped record not applied")
	}
	snap := d.Snapshot()
	if snap.Running {
		t.Error("display still running after stop")
	}
	if snap.Remaining != 105*time.Second {
		t.Errorf("remaining = %v, want 105s", snap.Remaining)
	}
	if got := out.String(); !strings.HasSuffix(got, "\rABC123  105.00") {
		t.Errorf("output = %q, want to end at 105.00", got)
	}
}

func TestDisplayIgnoresStaleRecord(t *testing.T) {
	d, _, _ := newTestDisplay(t)

	d.Observer().Apply(timersync.Stopped("ABC123", nil, base.Add(time.Second)))
	if d.Observer().Apply(timersync.Running("ABC123", base, base)) {
		t.Fatal("stale running record applied")
	}
	if d.Snapshot().Running {
		t.Error("stale record started the clock")
	}
}

func TestDisplayRedrawsOnlyOnChange(t *testing.T) {
	d, _, out := newTestDisplay(t)

	snap := countdown.Snapshot{Display: "120.00", Band: countdown.BandNormal}
	d.render(snap)
	d.render(snap)
	if got := strings.Count(out.String(), "\r"); got != 1 {
		t.Errorf("redraws = %d, want 1", got)
	}
}

func TestDisplayColor(t *testing.T) {
	out := &syncBuffer{}
	d := New(clockwork.NewFakeClockAt(base), Config{Room: "ABC123", Duration: time.Minute, Color: true}, out)
	defer d.Close()

	d.render(countdown.Snapshot{Display: "020.00", Band: countdown.BandWarning})
	if got := out.String(); got != "\r"+ansiYellow+"ABC123  020.00"+ansiReset {
		t.Errorf("output = %q", got)
	}
}

func TestShowEvent(t *testing.T) {
	d, _, out := newTestDisplay(t)

	ev, err := timersync.NewEvent("ABC123", timersync.EventRoundClosed, base, nil)
	if err != nil {
		t.Fatal(err)
	}
	d.ShowEvent(ev)
	if got := out.String(); !strings.Contains(got, "round closed") {
		t.Errorf("output = %q, want the event", got)
	}
}
