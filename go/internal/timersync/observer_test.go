package timersync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeReconciler struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeReconciler) Start(startTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start "+startTime.Format(time.RFC3339))
}

func (f *fakeReconciler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
}

func (f *fakeReconciler) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "reset")
}

func (f *fakeReconciler) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestObserverAppliesOnlyNewerRecords(t *testing.T) {
	target := &fakeReconciler{}
	obs := NewObserver(target, nil)

	start := base
	if !obs.Apply(Running("ABC123", start, base)) {
		t.Fatal("first record was not applied")
	}
	// Same version delivered again by a second transport.
	if obs.Apply(Running("ABC123", start, base)) {
		t.Error("equal updated_at was applied")
	}
	if obs.Apply(Stopped("ABC123", &start, base.Add(-time.Second))) {
		t.Error("older record was applied")
	}
	if !obs.Apply(Stopped("ABC123", &start, base.Add(time.Second))) {
		t.Error("newer stop was not applied")
	}

	want := []string{"start 2026-03-14T09:00:00Z", "stop"}
	if diff := cmp.Diff(want, target.Calls()); diff != "" {
		t.Errorf("reconciler calls mismatch (-want +got):\n%s", diff)
	}
	if got := obs.LastUpdated(); got != base.Add(time.Second).UnixMilli() {
		t.Errorf("LastUpdated() = %d", got)
	}
}

func TestObserverResetsOnStoppedWithoutStart(t *testing.T) {
	target := &fakeReconciler{}
	var seen []Record
	obs := NewObserver(target, func(rec Record) { seen = append(seen, rec) })

	obs.Apply(Stopped("ABC123", nil, base))

	if diff := cmp.Diff([]string{"reset"}, target.Calls()); diff != "" {
		t.Errorf("reconciler calls mismatch (-want +got):\n%s", diff)
	}
	if len(seen) != 1 {
		t.Errorf("onApply called %d times, want 1", len(seen))
	}
}

func TestObserverRejectsInvalidRecords(t *testing.T) {
	obs := NewObserver(&fakeReconciler{}, nil)

	tests := []struct {
		name string
		rec  Record
	}{
		{"missing room", Record{State: StateStopped, UpdatedAt: 1}},
		{"running without start", Record{RoomCode: "A", State: StateRunning, UpdatedAt: 1}},
		{"unknown state", Record{RoomCode: "A", State: "paused", UpdatedAt: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if obs.Apply(tt.rec) {
				t.Error("invalid record was applied")
			}
		})
	}
}

func TestRouterDispatchesByRoom(t *testing.T) {
	router := NewRouter()
	a, b := &fakeReconciler{}, &fakeReconciler{}
	unregisterA := router.Register("AAAAAA", NewObserver(a, nil))
	router.Register("BBBBBB", NewObserver(b, nil))

	if err := router.PublishTimer(context.Background(), Running("AAAAAA", base, base)); err != nil {
		t.Fatal(err)
	}
	if len(a.Calls()) != 1 || len(b.Calls()) != 0 {
		t.Errorf("calls a=%v b=%v", a.Calls(), b.Calls())
	}

	unregisterA()
	if n := router.Dispatch(Stopped("AAAAAA", nil, base.Add(time.Second))); n != 0 {
		t.Errorf("Dispatch() after unregister applied %d", n)
	}
	if diff := cmp.Diff([]string{"BBBBBB"}, router.Rooms()); diff != "" {
		t.Errorf("Rooms() mismatch (-want +got):\n%s", diff)
	}
}

type failingPublisher struct{ err error }

func (f failingPublisher) PublishTimer(context.Context, Record) error { return f.err }

func TestMultiPublisherAttemptsEveryTransport(t *testing.T) {
	router := NewRouter()
	target := &fakeReconciler{}
	router.Register("ABC123", NewObserver(target, nil))

	boom := errors.New("boom")
	pub := MultiPublisher{failingPublisher{err: boom}, router}

	err := pub.PublishTimer(context.Background(), Running("ABC123", base, base))
	if !errors.Is(err, boom) {
		t.Errorf("PublishTimer() error = %v, want %v", err, boom)
	}
	if len(target.Calls()) != 1 {
		t.Error("router was skipped after a failing transport")
	}
}
