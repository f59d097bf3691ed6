package round

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/countdown"
	"github.com/Ralphbruens/Scoreboard/go/internal/leaderboard"
	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/scoring"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// AppConfig holds the round app settings.
type AppConfig struct {
	Defaults models.RoundSettings
	Refresh  time.Duration
	// RemoteTimeout bounds remote writes that are not tied to a request, such
	// as the auto-stop on expiry.
	RemoteTimeout time.Duration
}

// AppDeps are the collaborators of the round app. Store nil means offline.
type AppDeps struct {
	Store   SessionStore
	Offline bool
	Boards  *leaderboard.Boards
	Timers  timersync.Publisher
	Events  timersync.EventPublisher
}

// App handles the round lifecycle of every room.
type App struct {
	clock   clockwork.Clock
	cfg     AppConfig
	store   SessionStore
	offline bool
	boards  *leaderboard.Boards
	timers  timersync.Publisher
	events  timersync.EventPublisher

	mu    sync.Mutex
	rooms map[string]*roomState
}

// roomState owns one room. Every read and write of round goes through mu.
type roomState struct {
	mu       sync.Mutex
	round    *models.Round
	policy   scoring.Policy
	timer    *countdown.Timer
	observer *timersync.Observer
}

// remoteOps collects the remote writes of one local change.
type remoteOps struct {
	session *models.Round
	timer   *timersync.Record
	results []models.RaceResult
	events  []timersync.Event
}

// NewApp creates a new round App
func NewApp(clock clockwork.Clock, cfg AppConfig, deps AppDeps) *App {
	defaults, err := normalizeSettings(cfg.Defaults, DefaultSettings())
	if err != nil {
		log.Warn().Err(err).Msg("invalid default round settings, using built-in defaults")
		defaults = DefaultSettings()
	}
	cfg.Defaults = defaults
	if cfg.Refresh <= 0 {
		cfg.Refresh = countdown.DefaultRefreshInterval
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 5 * time.Second
	}
	store := deps.Store
	offline := deps.Offline
	if store == nil {
		store = NewMemoryStore()
		offline = true
	}
	boards := deps.Boards
	if boards == nil {
		boards = leaderboard.NewBoards(clock, leaderboard.DefaultConfig(), nil)
	}
	return &App{
		clock:   clock,
		cfg:     cfg,
		store:   store,
		offline: offline,
		boards:  boards,
		timers:  deps.Timers,
		events:  deps.Events,
		rooms:   make(map[string]*roomState),
	}
}

// CreateRoom opens a room. An empty code generates a fresh one; a known code
// joins the existing room, restoring it from the remote records if needed.
func (a *App) CreateRoom(ctx context.Context, code string, settings *models.RoundSettings) (*Response, error) {
	if code == "" {
		return a.createNewRoom(ctx, settings)
	}

	code, err := normalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	rs, err := a.room(ctx, code)
	if err == nil {
		return &Response{State: a.view(ctx, rs)}, nil
	}
	if !errors.Is(err, ErrRoomNotFound) {
		return nil, err
	}
	return a.openRoom(ctx, code, settings)
}

func (a *App) createNewRoom(ctx context.Context, settings *models.RoundSettings) (*Response, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := newRoomCode()
		if _, err := a.room(ctx, code); errors.Is(err, ErrRoomNotFound) {
			return a.openRoom(ctx, code, settings)
		}
	}
	return nil, fmt.Errorf("failed to generate a free room code")
}

func (a *App) openRoom(ctx context.Context, code string, settings *models.RoundSettings) (*Response, error) {
	var requested models.RoundSettings
	if settings != nil {
		requested = *settings
	}
	normalized, err := normalizeSettings(requested, a.cfg.Defaults)
	if err != nil {
		return nil, err
	}

	r := &models.Round{
		ID:       uuid.New(),
		RoomCode: code,
		Status:   models.RoundStatusOpen,
		Settings: normalized,
	}
	clearRound(r)
	touch(r, a.clock.Now())

	rs, err := a.newRoomState(r)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if existing, ok := a.rooms[code]; ok {
		a.mu.Unlock()
		rs.timer.Stop()
		return &Response{State: a.view(ctx, existing)}, nil
	}
	a.rooms[code] = rs
	a.mu.Unlock()

	log.Info().
		Str("room_code", code).
		Str("policy", normalized.Policy).
		Int("fields", normalized.Fields).
		Msg("room created")

	warnings := a.flush(ctx, remoteOps{session: r.Clone()})
	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// CheckIn places a player on a field. Only allowed while the round is open.
func (a *App) CheckIn(ctx context.Context, code string, field int, name string) (*Response, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	r := rs.round
	if r.Status != models.RoundStatusOpen {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot check in while %s", ErrWrongStatus, r.Status)
	}
	idx, err := fieldIndex(r, field)
	if err != nil {
		rs.mu.Unlock()
		return nil, err
	}
	if r.Players[idx] != nil {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: field %d", ErrFieldOccupied, field)
	}
	for _, p := range r.ActivePlayers() {
		if strings.EqualFold(p.Name, name) {
			rs.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
	}

	now := a.clock.Now()
	player := &models.Player{
		ID:          uuid.New(),
		Name:        name,
		FieldNumber: field,
		BonusScore:  r.Bonuses[idx],
		CheckedInAt: now,
	}
	r.Players[idx] = player
	r.Outcomes[idx] = models.Pending()
	touch(r, now)

	ops := remoteOps{session: r.Clone()}
	a.addEvent(&ops, r.RoomCode, timersync.EventPlayerCheckedIn, now, fieldView(r, rs.policy, idx))
	rs.mu.Unlock()

	log.Info().
		Str("room_code", r.RoomCode).
		Str("player", name).
		Int("field", field).
		Msg("player checked in")

	warnings := a.flush(ctx, ops)
	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// SetBonus sets the bonus of a field and of the player on it. Only allowed
// before recording starts.
func (a *App) SetBonus(ctx context.Context, code string, field int, bonus int) (*Response, error) {
	if bonus < 0 {
		return nil, ErrInvalidBonus
	}
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	r := rs.round
	if r.Status != models.RoundStatusOpen {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot change bonus while %s", ErrWrongStatus, r.Status)
	}
	idx, err := fieldIndex(r, field)
	if err != nil {
		rs.mu.Unlock()
		return nil, err
	}
	r.Bonuses[idx] = bonus
	if p := r.Players[idx]; p != nil {
		p.BonusScore = bonus
	}
	touch(r, a.clock.Now())
	ops := remoteOps{session: r.Clone()}
	rs.mu.Unlock()

	warnings := a.flush(ctx, ops)
	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// Start fixes the recording start time and starts the shared countdown.
func (a *App) Start(ctx context.Context, code string) (*Response, error) {
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	r := rs.round
	if r.Status != models.RoundStatusOpen {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot start while %s", ErrWrongStatus, r.Status)
	}
	if len(r.ActivePlayers()) == 0 {
		rs.mu.Unlock()
		return nil, ErrNoPlayers
	}

	now := a.clock.Now()
	start := now
	r.StartTime = &start
	r.Status = models.RoundStatusRunning
	for i := range r.Outcomes {
		r.Outcomes[i] = models.Pending()
	}
	r.Results = nil
	touch(r, now)

	rec := timersync.Record{
		RoomCode:  r.RoomCode,
		State:     timersync.StateRunning,
		StartTime: &start,
		UpdatedAt: nextVersion(rs.observer, now),
	}
	rs.observer.Apply(rec)
	ops := remoteOps{session: r.Clone(), timer: &rec}
	rs.mu.Unlock()

	log.Info().
		Str("room_code", r.RoomCode).
		Time("start_time", start).
		Dur("duration", r.Settings.Duration).
		Msg("recording started")

	warnings := a.flush(ctx, ops)
	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// Stop records the score of the player on field. When the last player
// finishes the round closes.
func (a *App) Stop(ctx context.Context, code string, field int) (*Response, error) {
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	r := rs.round
	if r.Status != models.RoundStatusRunning || r.StartTime == nil {
		rs.mu.Unlock()
		return nil, ErrNotRunning
	}
	idx, err := fieldIndex(r, field)
	if err != nil {
		rs.mu.Unlock()
		return nil, err
	}
	if r.Players[idx] == nil {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: field %d", ErrPlayerNotLoaded, field)
	}
	if r.Outcomes[idx].IsFinished() {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyFinished, r.Players[idx].Name)
	}

	now := a.clock.Now()
	var ops remoteOps
	bruto := brutoAt(rs.policy, now, *r.StartTime, r.Settings.Duration)
	a.finishLocked(rs, &ops, idx, bruto, now, false)
	if r.FinishedCount() == len(r.ActivePlayers()) {
		a.closeLocked(rs, &ops, now)
	}
	touch(r, now)
	ops.session = r.Clone()
	rs.mu.Unlock()

	warnings := a.flush(ctx, ops)
	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// handleExpiry auto-stops every unfinished player when the countdown reaches zero.
func (a *App) handleExpiry(rs *roomState) {
	rs.mu.Lock()
	r := rs.round
	if r.Status != models.RoundStatusRunning || r.StartTime == nil {
		rs.mu.Unlock()
		return
	}

	now := a.clock.Now()
	finishedAt := r.StartTime.Add(r.Settings.Duration)
	if now.Before(finishedAt) {
		// A late expiry from a timer that has since been restarted.
		rs.mu.Unlock()
		return
	}
	bruto := rs.policy.ExpiryBruto(r.Settings.Duration)

	var ops remoteOps
	stopped := 0
	for idx, p := range r.Players {
		if p == nil || r.Outcomes[idx].IsFinished() {
			continue
		}
		a.finishLocked(rs, &ops, idx, bruto, finishedAt, true)
		stopped++
	}
	a.closeLocked(rs, &ops, now)
	touch(r, now)
	ops.session = r.Clone()
	code := r.RoomCode
	rs.mu.Unlock()

	log.Info().
		Str("room_code", code).
		Int("auto_stopped", stopped).
		Msg("countdown expired, round closed")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RemoteTimeout)
	defer cancel()
	for _, w := range a.flush(ctx, ops) {
		log.Warn().Str("room_code", code).Msg(w)
	}
}

// PublishResults ranks the session results and appends them to the leaderboard.
func (a *App) PublishResults(ctx context.Context, code string) (*Response, error) {
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	r := rs.round
	if r.Status != models.RoundStatusClosed {
		rs.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot publish while %s", ErrWrongStatus, r.Status)
	}
	now := a.clock.Now()
	leaderboard.SortResults(r.Results, rs.policy.Direction())
	r.Status = models.RoundStatusPublished
	touch(r, now)

	results := append([]models.RaceResult(nil), r.Results...)
	ops := remoteOps{session: r.Clone(), results: results}
	a.addEvent(&ops, r.RoomCode, timersync.EventResultsPublished, now, results)
	policy := rs.policy
	rs.mu.Unlock()

	var warnings []string
	if _, err := a.boards.For(ctx, policy).Append(ctx, results...); err != nil {
		warnings = append(warnings, err.Error())
	}
	warnings = append(warnings, a.flush(ctx, ops)...)

	log.Info().
		Str("room_code", code).
		Int("results", len(results)).
		Msg("results published")

	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// Refresh reloads the round from the remote records when they are newer.
func (a *App) Refresh(ctx context.Context, code string) (*Response, error) {
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}
	code = rs.code()

	var warnings []string
	remote, err := a.store.LoadSession(ctx, code)
	switch {
	case errors.Is(err, ErrSessionNotFound):
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("failed to load session: %v", err))
	default:
		rs.mu.Lock()
		if remote.LastUpdated > rs.round.LastUpdated {
			a.mergeRemoteLocked(rs, remote)
		}
		rs.mu.Unlock()
	}

	rec, err := a.store.FetchTimer(ctx, code)
	switch {
	case errors.Is(err, timersync.ErrNoRecord):
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("failed to fetch timer: %v", err))
	default:
		rs.mu.Lock()
		rs.observer.Apply(rec)
		rs.mu.Unlock()
	}

	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// mergeRemoteLocked replaces the round contents with remote, keeping local settings.
func (a *App) mergeRemoteLocked(rs *roomState, remote *models.Round) {
	r := rs.round
	fields := r.Settings.Fields
	if len(remote.Players) != fields || len(remote.Bonuses) != fields || len(remote.Outcomes) != fields {
		log.Warn().Str("room_code", r.RoomCode).Msg("ignoring remote session with mismatched field count")
		return
	}

	r.ID = remote.ID
	r.Status = remote.Status
	r.StartTime = remote.StartTime
	r.Players = remote.Players
	r.Bonuses = remote.Bonuses
	r.Outcomes = remote.Outcomes
	r.Results = remote.Results
	r.LastUpdated = remote.LastUpdated

	rec := timersync.Record{
		RoomCode:  r.RoomCode,
		State:     timersync.StateStopped,
		UpdatedAt: r.LastUpdated,
	}
	switch {
	case r.Status == models.RoundStatusRunning && r.StartTime != nil:
		rec.State = timersync.StateRunning
		rec.StartTime = r.StartTime
	case r.Status != models.RoundStatusOpen:
		rec.StartTime = r.StartTime
	}
	rs.observer.Apply(rec)
	log.Info().Str("room_code", r.RoomCode).Msg("round refreshed from remote session")
}

// Reset clears the round for a new attempt and stops the shared countdown.
func (a *App) Reset(ctx context.Context, code string) (*Response, error) {
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	r := rs.round
	now := a.clock.Now()
	r.ID = uuid.New()
	r.Status = models.RoundStatusOpen
	r.StartTime = nil
	clearRound(r)
	touch(r, now)

	rec := timersync.Record{
		RoomCode:  r.RoomCode,
		State:     timersync.StateStopped,
		UpdatedAt: nextVersion(rs.observer, now),
	}
	rs.observer.Apply(rec)
	ops := remoteOps{session: r.Clone(), timer: &rec}
	a.addEvent(&ops, r.RoomCode, timersync.EventRoundReset, now, nil)
	rs.mu.Unlock()

	log.Info().Str("room_code", r.RoomCode).Msg("round reset")

	warnings := a.flush(ctx, ops)
	return &Response{State: a.view(ctx, rs), Warnings: warnings}, nil
}

// State returns the read model of a room.
func (a *App) State(ctx context.Context, code string) (*StateView, error) {
	rs, err := a.room(ctx, code)
	if err != nil {
		return nil, err
	}
	return a.view(ctx, rs), nil
}

// TimerRecord returns the current timer record of a room.
func (a *App) TimerRecord(ctx context.Context, code string) (timersync.Record, error) {
	rs, err := a.room(ctx, code)
	if err != nil {
		return timersync.Record{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	r := rs.round
	rec := timersync.Record{
		RoomCode:  r.RoomCode,
		State:     timersync.StateStopped,
		UpdatedAt: rs.observer.LastUpdated(),
	}
	if r.StartTime != nil {
		start := *r.StartTime
		rec.StartTime = &start
	}
	if rs.timer.Running() {
		rec.State = timersync.StateRunning
	}
	return rec, nil
}

// History returns every published result of a room, oldest round first.
func (a *App) History(ctx context.Context, code string) ([]models.RaceResult, error) {
	code, err := normalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	results, err := a.store.ListResults(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list results: %w", ErrUnavailable, err)
	}
	return results, nil
}

// Export builds the export document of a room.
func (a *App) Export(ctx context.Context, code string) (*ExportDocument, error) {
	view, err := a.State(ctx, code)
	if err != nil {
		return nil, err
	}
	return &ExportDocument{
		SessionResults:    view.SessionResults,
		TodayLeaderboard:  view.TodayLeaderboard,
		WeeklyLeaderboard: view.WeeklyLeaderboard,
		ExportDate:        a.clock.Now().UTC(),
	}, nil
}

// Close stops the timers of every room.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rs := range a.rooms {
		rs.timer.Stop()
	}
}

// Offline reports whether the app runs without remote records.
func (a *App) Offline() bool {
	return a.offline
}

func (a *App) room(ctx context.Context, code string) (*roomState, error) {
	code, err := normalizeRoomCode(code)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	rs, ok := a.rooms[code]
	a.mu.Unlock()
	if ok {
		return rs, nil
	}

	stored, err := a.store.LoadSession(ctx, code)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load session: %w", ErrUnavailable, err)
	}

	rs, err = a.newRoomState(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to restore room %s: %w", code, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.rooms[code]; ok {
		rs.timer.Stop()
		return existing, nil
	}
	a.rooms[code] = rs
	log.Info().Str("room_code", code).Str("status", string(stored.Status)).Msg("room restored")
	return rs, nil
}

func (a *App) newRoomState(r *models.Round) (*roomState, error) {
	policy, err := scoring.Lookup(r.Settings.Policy)
	if err != nil {
		return nil, err
	}
	format, err := countdown.ParseFormat(r.Settings.DisplayFormat)
	if err != nil {
		return nil, err
	}
	if len(r.Players) != r.Settings.Fields || len(r.Outcomes) != r.Settings.Fields || len(r.Bonuses) != r.Settings.Fields {
		return nil, fmt.Errorf("%w: field slices do not match %d fields", ErrInvalidSettings, r.Settings.Fields)
	}

	rs := &roomState{round: r, policy: policy}
	rs.timer = countdown.NewTimer(a.clock, countdown.Config{
		Duration: r.Settings.Duration,
		Refresh:  a.cfg.Refresh,
		Format:   format,
		OnExpire: func() { a.handleExpiry(rs) },
	})
	rs.observer = timersync.NewObserver(rs.timer, nil)

	if r.Status == models.RoundStatusRunning && r.StartTime != nil {
		rs.observer.Apply(timersync.Record{
			RoomCode:  r.RoomCode,
			State:     timersync.StateRunning,
			StartTime: r.StartTime,
			UpdatedAt: max(r.LastUpdated, 1),
		})
	}
	return rs, nil
}

func (a *App) finishLocked(rs *roomState, ops *remoteOps, idx int, bruto int64, finishedAt time.Time, auto bool) {
	r := rs.round
	p := r.Players[idx]
	r.Outcomes[idx] = models.Finished(bruto)

	result := models.RaceResult{
		ID:          uuid.New(),
		RoundID:     r.ID,
		PlayerID:    p.ID,
		Name:        p.Name,
		FieldNumber: p.FieldNumber,
		BrutoScore:  bruto,
		BonusScore:  p.BonusScore,
		NettoScore:  rs.policy.Netto(bruto, p.BonusScore),
		Policy:      rs.policy.Name(),
		CheckedInAt: p.CheckedInAt,
		FinishedAt:  finishedAt,
		AutoStopped: auto,
	}
	r.Results = append(r.Results, result)
	a.addEvent(ops, r.RoomCode, timersync.EventPlayerFinished, finishedAt, result)

	log.Info().
		Str("room_code", r.RoomCode).
		Str("player", p.Name).
		Int64("bruto", bruto).
		Int64("netto", result.NettoScore).
		Bool("auto_stopped", auto).
		Msg("player finished")
}

func (a *App) closeLocked(rs *roomState, ops *remoteOps, now time.Time) {
	r := rs.round
	r.Status = models.RoundStatusClosed

	rec := timersync.Record{
		RoomCode:  r.RoomCode,
		State:     timersync.StateStopped,
		StartTime: r.StartTime,
		UpdatedAt: nextVersion(rs.observer, now),
	}
	rs.observer.Apply(rec)
	ops.timer = &rec
	a.addEvent(ops, r.RoomCode, timersync.EventRoundClosed, now, nil)
}

func (a *App) addEvent(ops *remoteOps, room string, typ timersync.EventType, at time.Time, payload any) {
	ev, err := timersync.NewEvent(room, typ, at, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to build event")
		return
	}
	ops.events = append(ops.events, ev)
}

// flush performs the remote writes of a local change. Failures come back as
// warnings; nothing is retried.
func (a *App) flush(ctx context.Context, ops remoteOps) []string {
	var warnings []string
	warn := func(msg string, err error) {
		log.Warn().Err(err).Msg(msg)
		warnings = append(warnings, fmt.Sprintf("%s: %v", msg, err))
	}

	if ops.session != nil {
		if err := a.store.SaveSession(ctx, ops.session); err != nil {
			warn("failed to save session", err)
		}
		if len(ops.results) > 0 {
			if err := a.store.InsertResults(ctx, ops.session.RoomCode, ops.results); err != nil {
				warn("failed to insert results", err)
			}
		}
	}
	if ops.timer != nil {
		if err := a.store.PublishTimer(ctx, *ops.timer); err != nil {
			warn("failed to save timer", err)
		}
		if a.timers != nil {
			if err := a.timers.PublishTimer(ctx, *ops.timer); err != nil {
				warn("failed to publish timer", err)
			}
		}
	}
	if a.events != nil {
		for _, ev := range ops.events {
			if err := a.events.PublishEvent(ctx, ev); err != nil {
				warn("failed to publish event", err)
			}
		}
	}
	return warnings
}

func (a *App) view(ctx context.Context, rs *roomState) *StateView {
	rs.mu.Lock()
	r := rs.round
	view := &StateView{
		RoomCode:         r.RoomCode,
		RoundID:          r.ID.String(),
		Status:           r.Status,
		ConnectionStatus: ConnectionOnline,
		Settings:         r.Settings,
		Direction:        rs.policy.Direction().String(),
		Timer:            rs.timer.Snapshot(),
		Fields:           make([]FieldView, len(r.Players)),
		SessionResults:   append([]models.RaceResult{}, r.Results...),
		LastUpdated:      r.LastUpdated,
	}
	view.Settings.BonusScores = append([]int(nil), r.Settings.BonusScores...)
	for idx := range r.Players {
		view.Fields[idx] = fieldView(r, rs.policy, idx)
	}
	policy := rs.policy
	rs.mu.Unlock()

	if a.offline {
		view.ConnectionStatus = ConnectionOffline
	}
	leaderboard.SortResults(view.SessionResults, policy.Direction())
	boards := a.boards.For(ctx, policy).Views()
	view.TodayLeaderboard = boards.TodayLeaderboard
	view.WeeklyLeaderboard = boards.WeeklyLeaderboard
	return view
}

func (rs *roomState) code() string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.round.RoomCode
}

func fieldView(r *models.Round, policy scoring.Policy, idx int) FieldView {
	fv := FieldView{
		FieldNumber: idx + 1,
		BonusScore:  r.Bonuses[idx],
	}
	p := r.Players[idx]
	if p == nil {
		return fv
	}
	fv.Name = p.Name
	fv.BonusScore = p.BonusScore
	fv.CheckedIn = true
	if bruto, ok := r.Outcomes[idx].Bruto(); ok {
		netto := policy.Netto(bruto, p.BonusScore)
		fv.Finished = true
		fv.BrutoScore = &bruto
		fv.NettoScore = &netto
		fv.Display = policy.FormatScore(bruto)
	}
	return fv
}

func fieldIndex(r *models.Round, field int) (int, error) {
	if field < 1 || field > r.Settings.Fields {
		return 0, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidField, field, r.Settings.Fields)
	}
	return field - 1, nil
}

// brutoAt scores a stop at now, capping it at the expiry score once the
// countdown has run out.
func brutoAt(policy scoring.Policy, now, start time.Time, duration time.Duration) int64 {
	if now.Sub(start) >= duration {
		return policy.ExpiryBruto(duration)
	}
	return policy.Bruto(now, start, duration)
}

// nextVersion returns a timer record version strictly greater than the last applied one.
func nextVersion(o *timersync.Observer, now time.Time) int64 {
	v := now.UnixMilli()
	if last := o.LastUpdated(); v <= last {
		v = last + 1
	}
	return v
}

// clearRound empties the fields. Field bonuses are kept and only seeded from
// the settings when the round has none yet.
func clearRound(r *models.Round) {
	n := r.Settings.Fields
	r.Players = make([]*models.Player, n)
	r.Outcomes = make([]models.Outcome, n)
	r.Results = nil
	if len(r.Bonuses) != n {
		r.Bonuses = make([]int, n)
		copy(r.Bonuses, r.Settings.BonusScores)
	}
}

func touch(r *models.Round, now time.Time) {
	v := now.UnixMilli()
	if v <= r.LastUpdated {
		v = r.LastUpdated + 1
	}
	r.LastUpdated = v
}
