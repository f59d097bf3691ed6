package round

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	records []timersync.Record
	events  []timersync.Event
}

func (r *recorder) PublishTimer(_ context.Context, rec timersync.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recorder) PublishEvent(_ context.Context, ev timersync.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Records() []timersync.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]timersync.Record(nil), r.records...)
}

func (r *recorder) EventTypes() []timersync.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]timersync.EventType, 0, len(r.events))
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

// failingStore fails every session write.
type failingStore struct {
	*MemoryStore
}

func (failingStore) SaveSession(context.Context, *models.Round) error {
	return errors.New("connection refused")
}

type testEnv struct {
	app   *App
	clock *clockwork.FakeClock
	store *MemoryStore
	rec   *recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(base)
	store := NewMemoryStore()
	rec := &recorder{}
	app := NewApp(clock, AppConfig{}, AppDeps{Store: store, Timers: rec, Events: rec})
	t.Cleanup(app.Close)
	return &testEnv{app: app, clock: clock, store: store, rec: rec}
}

func (e *testEnv) room(t *testing.T, names ...string) string {
	t.Helper()
	ctx := context.Background()
	resp, err := e.app.CreateRoom(ctx, "", nil)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	code := resp.State.RoomCode
	for i, name := range names {
		if _, err := e.app.CheckIn(ctx, code, i+1, name); err != nil {
			t.Fatalf("CheckIn(%s) error = %v", name, err)
		}
	}
	return code
}

func waitForStatus(t *testing.T, app *App, code string, status models.RoundStatus) *StateView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := app.State(context.Background(), code)
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state.Status == status {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %s", code, status)
	return nil
}

func TestCreateRoomDefaults(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.app.CreateRoom(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	state := resp.State
	if len(state.RoomCode) != 6 {
		t.Errorf("room code %q is not 6 characters", state.RoomCode)
	}
	if state.Status != models.RoundStatusOpen {
		t.Errorf("status = %s, want OPEN", state.Status)
	}
	if diff := cmp.Diff(DefaultSettings(), state.Settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
	if len(state.Fields) != 5 {
		t.Errorf("fields = %d, want 5", len(state.Fields))
	}
	if state.Timer.Display != "120.00" {
		t.Errorf("timer display = %q, want 120.00", state.Timer.Display)
	}
	if state.ConnectionStatus != ConnectionOnline {
		t.Errorf("connection status = %s", state.ConnectionStatus)
	}
}

func TestCreateRoomJoinsExisting(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")

	resp, err := env.app.CreateRoom(context.Background(), "  "+strings.ToLower(code), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.State.RoomCode != code || !resp.State.Fields[0].CheckedIn {
		t.Errorf("joined room %s without Ann", resp.State.RoomCode)
	}

	if _, err := env.app.CreateRoom(context.Background(), "AB", nil); !errors.Is(err, ErrInvalidRoomCode) {
		t.Errorf("CreateRoom(AB) error = %v, want %v", err, ErrInvalidRoomCode)
	}
}

func TestCheckInValidation(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")
	ctx := context.Background()

	tests := []struct {
		name   string
		field  int
		player string
		want   error
	}{
		{"duplicate name ignores case", 2, "ANN", ErrDuplicateName},
		{"empty name", 2, "   ", ErrInvalidName},
		{"occupied field", 1, "Bob", ErrFieldOccupied},
		{"field out of range", 6, "Bob", ErrInvalidField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.app.CheckIn(ctx, code, tt.field, tt.player); !errors.Is(err, tt.want) {
				t.Errorf("CheckIn() error = %v, want %v", err, tt.want)
			}
		})
	}

	state, _ := env.app.State(ctx, code)
	if got := len(checkedIn(state)); got != 1 {
		t.Errorf("checked in players = %d, want 1", got)
	}
}

func TestSetBonusAppliesToFieldAndPlayer(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")
	ctx := context.Background()

	if _, err := env.app.SetBonus(ctx, code, 1, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := env.app.SetBonus(ctx, code, 2, 15); err != nil {
		t.Fatal(err)
	}
	if _, err := env.app.SetBonus(ctx, code, 2, -1); !errors.Is(err, ErrInvalidBonus) {
		t.Errorf("negative bonus error = %v", err)
	}
	resp, err := env.app.CheckIn(ctx, code, 2, "Bob")
	if err != nil {
		t.Fatal(err)
	}

	fields := resp.State.Fields
	if fields[0].BonusScore != 10 || fields[1].BonusScore != 15 {
		t.Errorf("bonuses = %d, %d; want 10, 15", fields[0].BonusScore, fields[1].BonusScore)
	}

	if _, err := env.app.Start(ctx, code); err != nil {
		t.Fatal(err)
	}
	if _, err := env.app.SetBonus(ctx, code, 1, 20); !errors.Is(err, ErrWrongStatus) {
		t.Errorf("SetBonus() while running error = %v, want %v", err, ErrWrongStatus)
	}
}

func TestStartRequiresPlayers(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t)

	if _, err := env.app.Start(context.Background(), code); !errors.Is(err, ErrNoPlayers) {
		t.Errorf("Start() error = %v, want %v", err, ErrNoPlayers)
	}
	if len(env.rec.Records()) != 0 {
		t.Error("timer record published for a refused start")
	}
}

func TestStopScoresAndClosesRound(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann", "Bob")
	ctx := context.Background()

	if _, err := env.app.SetBonus(ctx, code, 1, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := env.app.Stop(ctx, code, 1); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() before start error = %v, want %v", err, ErrNotRunning)
	}
	if _, err := env.app.Start(ctx, code); err != nil {
		t.Fatal(err)
	}

	env.clock.Advance(83 * time.Second)
	resp, err := env.app.Stop(ctx, code, 1)
	if err != nil {
		t.Fatal(err)
	}
	ann := resp.State.Fields[0]
	if *ann.BrutoScore != 37 || *ann.NettoScore != 42 || ann.Display != "37s" {
		t.Errorf("Ann bruto=%d netto=%d display=%q; want 37, 42, 37s", *ann.BrutoScore, *ann.NettoScore, ann.Display)
	}
	if resp.State.Status != models.RoundStatusRunning {
		t.Errorf("status = %s, want RUNNING while Bob is still out", resp.State.Status)
	}

	if _, err := env.app.Stop(ctx, code, 1); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("second Stop() error = %v, want %v", err, ErrAlreadyFinished)
	}
	if _, err := env.app.Stop(ctx, code, 3); !errors.Is(err, ErrPlayerNotLoaded) {
		t.Errorf("Stop() on empty field error = %v, want %v", err, ErrPlayerNotLoaded)
	}

	env.clock.Advance(10 * time.Second)
	resp, err = env.app.Stop(ctx, code, 2)
	if err != nil {
		t.Fatal(err)
	}
	if resp.State.Status != models.RoundStatusClosed {
		t.Errorf("status = %s, want CLOSED", resp.State.Status)
	}
	if resp.State.Timer.Running {
		t.Error("timer still running after the last player finished")
	}

	records := env.rec.Records()
	if len(records) != 2 {
		t.Fatalf("published %d timer records, want 2", len(records))
	}
	if records[0].State != timersync.StateRunning || records[1].State != timersync.StateStopped {
		t.Errorf("record states = %s, %s", records[0].State, records[1].State)
	}
	if records[1].UpdatedAt <= records[0].UpdatedAt {
		t.Error("timer record versions are not increasing")
	}
	if !records[0].StartTime.Equal(base) {
		t.Errorf("start time = %v, want %v", records[0].StartTime, base)
	}

	wantEvents := []timersync.EventType{
		timersync.EventPlayerCheckedIn,
		timersync.EventPlayerCheckedIn,
		timersync.EventPlayerFinished,
		timersync.EventPlayerFinished,
		timersync.EventRoundClosed,
	}
	if diff := cmp.Diff(wantEvents, env.rec.EventTypes()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExpiryAutoStopsUnfinishedPlayers(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann", "Bob", "Cat")
	ctx := context.Background()

	if _, err := env.app.Start(ctx, code); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(100 * time.Second)
	if _, err := env.app.Stop(ctx, code, 2); err != nil {
		t.Fatal(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := env.clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(21 * time.Second)

	state := waitForStatus(t, env.app, code, models.RoundStatusClosed)
	if len(state.SessionResults) != 3 {
		t.Fatalf("session results = %d, want 3", len(state.SessionResults))
	}

	auto := 0
	for _, res := range state.SessionResults {
		if res.AutoStopped {
			auto++
			if res.BrutoScore != 0 {
				t.Errorf("%s auto-stopped with bruto %d, want 0", res.Name, res.BrutoScore)
			}
			if !res.FinishedAt.Equal(base.Add(120 * time.Second)) {
				t.Errorf("%s finished at %v", res.Name, res.FinishedAt)
			}
		}
	}
	if auto != 2 {
		t.Errorf("auto-stopped %d players, want 2", auto)
	}
	if state.SessionResults[0].Name != "Bob" {
		t.Errorf("leader = %s, want Bob", state.SessionResults[0].Name)
	}
	if !state.Timer.Expired || state.Timer.Display != "000.00" {
		t.Errorf("timer expired=%v display=%q", state.Timer.Expired, state.Timer.Display)
	}
}

func TestPublishResultsAppendsToLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann", "Bob")
	ctx := context.Background()

	if _, err := env.app.PublishResults(ctx, code); !errors.Is(err, ErrWrongStatus) {
		t.Errorf("PublishResults() while open error = %v, want %v", err, ErrWrongStatus)
	}

	env.app.Start(ctx, code)
	env.clock.Advance(30 * time.Second)
	env.app.Stop(ctx, code, 1)
	env.clock.Advance(30 * time.Second)
	env.app.Stop(ctx, code, 2)

	resp, err := env.app.PublishResults(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", resp.Warnings)
	}
	state := resp.State
	if state.Status != models.RoundStatusPublished {
		t.Errorf("status = %s, want PUBLISHED", state.Status)
	}

	var names []string
	for _, e := range state.TodayLeaderboard {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"Ann", "Bob"}, names); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}
	if len(state.WeeklyLeaderboard) != 2 {
		t.Errorf("weekly leaderboard = %d entries, want 2", len(state.WeeklyLeaderboard))
	}

	history, err := env.app.History(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Errorf("stored results = %d, want 2", len(history))
	}

	if _, err := env.app.PublishResults(ctx, code); !errors.Is(err, ErrWrongStatus) {
		t.Errorf("second PublishResults() error = %v, want %v", err, ErrWrongStatus)
	}
}

func TestResetClearsRoundAndTimer(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")
	ctx := context.Background()

	env.app.Start(ctx, code)
	before, _ := env.app.State(ctx, code)

	resp, err := env.app.Reset(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	state := resp.State
	if state.Status != models.RoundStatusOpen || len(checkedIn(state)) != 0 || len(state.SessionResults) != 0 {
		t.Errorf("round not cleared: status=%s players=%d results=%d", state.Status, len(checkedIn(state)), len(state.SessionResults))
	}
	if state.RoundID == before.RoundID {
		t.Error("reset kept the round id")
	}
	if state.Timer.Running || state.Timer.StartTime != nil {
		t.Errorf("timer not reset: %+v", state.Timer)
	}

	records := env.rec.Records()
	last := records[len(records)-1]
	if last.State != timersync.StateStopped || last.StartTime != nil {
		t.Errorf("last record = %+v, want stopped without start", last)
	}
}

func TestFieldBonusesSeededAndKeptOnReset(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t)
	ctx := context.Background()

	resp, err := env.app.CheckIn(ctx, code, 3, "Cat")
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.State.Fields[2].BonusScore; got != 15 {
		t.Errorf("field 3 bonus after check-in = %d, want 15", got)
	}
	if _, err := env.app.SetBonus(ctx, code, 1, 30); err != nil {
		t.Fatal(err)
	}

	resp, err = env.app.Reset(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, f := range resp.State.Fields {
		got = append(got, f.BonusScore)
	}
	if diff := cmp.Diff([]int{30, 10, 15, 20, 25}, got); diff != "" {
		t.Errorf("bonuses after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoteFailureIsReportedAsWarning(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	app := NewApp(clock, AppConfig{}, AppDeps{Store: failingStore{NewMemoryStore()}})
	t.Cleanup(app.Close)
	ctx := context.Background()

	resp, err := app.CreateRoom(ctx, "ROOM01", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", resp.Warnings)
	}

	resp, err = app.CheckIn(ctx, "ROOM01", 1, "Ann")
	if err != nil {
		t.Fatalf("CheckIn() error = %v, want warning only", err)
	}
	if len(resp.Warnings) != 1 || !resp.State.Fields[0].CheckedIn {
		t.Errorf("local change lost or warning missing: %+v", resp)
	}
}

func TestRoomRestoredFromStore(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")

	other := NewApp(env.clock, AppConfig{}, AppDeps{Store: env.store})
	t.Cleanup(other.Close)

	state, err := other.State(context.Background(), code)
	if err != nil {
		t.Fatal(err)
	}
	if state.Fields[0].Name != "Ann" {
		t.Errorf("restored field 1 = %+v", state.Fields[0])
	}

	if _, err := other.State(context.Background(), "ZZZZZZ"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("State(unknown) error = %v, want %v", err, ErrRoomNotFound)
	}
}

func TestExpiredRunningRoomClosesOnRestore(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")
	if _, err := env.app.Start(context.Background(), code); err != nil {
		t.Fatal(err)
	}

	// Nobody held the room while its countdown ran out.
	later := clockwork.NewFakeClockAt(base.Add(3 * time.Minute))
	other := NewApp(later, AppConfig{}, AppDeps{Store: env.store})
	t.Cleanup(other.Close)

	state := waitForStatus(t, other, code, models.RoundStatusClosed)
	if len(state.SessionResults) != 1 {
		t.Fatalf("session results = %d, want 1", len(state.SessionResults))
	}
	res := state.SessionResults[0]
	if !res.AutoStopped || res.BrutoScore != 0 {
		t.Errorf("result auto=%v bruto=%d; want auto-stopped with bruto 0", res.AutoStopped, res.BrutoScore)
	}
	if !res.FinishedAt.Equal(base.Add(120 * time.Second)) {
		t.Errorf("finished at %v, want countdown end", res.FinishedAt)
	}
}

func TestRefreshPullsNewerSession(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")
	ctx := context.Background()

	other := NewApp(env.clock, AppConfig{}, AppDeps{Store: env.store})
	t.Cleanup(other.Close)
	if _, err := other.State(ctx, code); err != nil {
		t.Fatal(err)
	}

	env.clock.Advance(time.Second)
	if _, err := env.app.CheckIn(ctx, code, 2, "Bob"); err != nil {
		t.Fatal(err)
	}

	resp, err := other.Refresh(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if resp.State.Fields[1].Name != "Bob" {
		t.Errorf("refresh did not load Bob: %+v", resp.State.Fields[1])
	}
}

func TestOfflineMode(t *testing.T) {
	app := NewApp(clockwork.NewFakeClockAt(base), AppConfig{}, AppDeps{})
	t.Cleanup(app.Close)

	resp, err := app.CreateRoom(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.State.ConnectionStatus != ConnectionOffline {
		t.Errorf("connection status = %s, want offline", resp.State.ConnectionStatus)
	}
}

func TestExportFilename(t *testing.T) {
	env := newTestEnv(t)
	code := env.room(t, "Ann")

	doc, err := env.app.Export(context.Background(), code)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Filename(); got != "scoreboard-results-2026-03-14.json" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestRoomCodes(t *testing.T) {
	for i := 0; i < 20; i++ {
		code := newRoomCode()
		if _, err := normalizeRoomCode(code); err != nil {
			t.Fatalf("generated code %q is invalid: %v", code, err)
		}
	}
	got, err := normalizeRoomCode(" ab12cd ")
	if err != nil || got != "AB12CD" {
		t.Errorf("normalizeRoomCode() = %q, %v", got, err)
	}
}

func checkedIn(state *StateView) []FieldView {
	var fields []FieldView
	for _, f := range state.Fields {
		if f.CheckedIn {
			fields = append(fields, f)
		}
	}
	return fields
}
