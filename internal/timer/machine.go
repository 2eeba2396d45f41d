package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"flowtimer/internal/model"
)

var (
	ErrInvalidMode     = errors.New("mode must be one of pomodoro, shortBreak, longBreak")
	ErrVersionConflict = errors.New("timer state changed concurrently")
	ErrClosed          = errors.New("timer machine closed")
)

// ConflictError is returned by Do when the caller's base version is stale.
type ConflictError struct {
	Current Snapshot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: current version %d", ErrVersionConflict, e.Current.Version)
}

func (e *ConflictError) Unwrap() error { return ErrVersionConflict }

// Deps are the collaborators a Machine dispatches effects to. Any of them
// may be nil.
type Deps struct {
	Audio     AudioNotifier
	Recorder  SessionRecorder
	Durations DurationStore
	Logger    *log.Logger
	Clock     func() time.Time
}

// Options contains runtime knobs for a Machine.
type Options struct {
	TickInterval  time.Duration
	RecordTimeout time.Duration
	// DisableTicker leaves reconciliation entirely to Wake and Do callers.
	DisableTicker bool
}

// Snapshot is the externally visible view of a machine.
type Snapshot struct {
	Mode             model.Mode           `json:"mode"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	TotalSeconds     int                  `json:"totalSeconds"`
	Running          bool                 `json:"isRunning"`
	TargetEpoch      *int64               `json:"targetEpoch"`
	PomodoroCount    int                  `json:"pomodoroCount"`
	Progress         float64              `json:"progress"`
	Phase            Phase                `json:"uiPhase"`
	Durations        model.DurationConfig `json:"durations"`
	Intention        string               `json:"intention,omitempty"`
	Version          int                  `json:"version"`
	ServerTime       time.Time            `json:"serverTime"`
}

// Event is published to subscribers after every state change.
type Event struct {
	Snapshot Snapshot `json:"state"`
	Effects  []Effect `json:"effects,omitempty"`
}

// Machine serializes actions against one timer state and carries out the
// effects the reducer asks for.
type Machine struct {
	mu          sync.Mutex
	state       State
	version     int
	deps        Deps
	options     Options
	tickerGen   uint64
	tickerStop  chan struct{}
	subscribers []chan Event
	inflight    sync.WaitGroup
	closed      bool
	// pendingDurations is the newest config not yet handed to the store.
	pendingDurations *model.DurationConfig
	savingDurations  bool
}

func NewMachine(state State, deps Deps, options Options) *Machine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.RecordTimeout <= 0 {
		options.RecordTimeout = 5 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if state.Durations.Validate() != nil {
		state = NewState(state.Durations)
	}
	if !state.Mode.Valid() {
		state.Mode = model.ModePomodoro
		state.RemainingSeconds = state.TotalSeconds()
	}
	if state.Running != (state.TargetEpoch != nil) {
		state.Running = false
		state.TargetEpoch = nil
	}
	if state.RemainingSeconds < 0 {
		state.RemainingSeconds = 0
	}

	machine := &Machine{
		state:   state,
		version: 1,
		deps:    deps,
		options: options,
	}
	machine.syncTickerLocked()
	return machine
}

// Do applies action if baseVersion is zero or matches the current version.
// The action is stamped with the machine clock. A pause reconciles at the
// same instant first so a completion that is already due is not lost.
func (m *Machine) Do(action Action, baseVersion int) (Snapshot, error) {
	if err := validate(action); err != nil {
		return m.Snapshot(), err
	}

	m.mu.Lock()
	now := m.deps.Clock()
	if m.closed {
		snapshot := m.snapshotLocked(now)
		m.mu.Unlock()
		return snapshot, ErrClosed
	}
	if baseVersion > 0 && baseVersion != m.version {
		snapshot := m.snapshotLocked(now)
		m.mu.Unlock()
		return snapshot, &ConflictError{Current: snapshot}
	}

	action.Now = now
	actions := []Action{action}
	if action.Type == ActionPause {
		actions = []Action{Reconcile(now), action}
	}
	snapshot, effects := m.commitLocked(now, actions...)
	m.mu.Unlock()

	m.dispatch(effects)
	return snapshot, nil
}

func (m *Machine) Start() Snapshot {
	snapshot, _ := m.Do(Start(time.Time{}), 0)
	return snapshot
}

func (m *Machine) Pause() Snapshot {
	snapshot, _ := m.Do(Pause(time.Time{}), 0)
	return snapshot
}

func (m *Machine) Reset() Snapshot {
	snapshot, _ := m.Do(Reset(), 0)
	return snapshot
}

func (m *Machine) SwitchMode(mode model.Mode) (Snapshot, error) {
	return m.Do(SwitchMode(mode), 0)
}

func (m *Machine) UpdateDurations(durations model.DurationConfig) (Snapshot, error) {
	return m.Do(UpdateDurations(durations, time.Time{}), 0)
}

func (m *Machine) SetIntention(intention string) Snapshot {
	snapshot, _ := m.Do(SetIntention(intention), 0)
	return snapshot
}

// Wake reconciles against the clock out of band, e.g. when a client regains
// focus after being suspended.
func (m *Machine) Wake() Snapshot {
	snapshot, _ := m.Do(Reconcile(time.Time{}), 0)
	return snapshot
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(m.deps.Clock())
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers an observer channel. Slow observers miss events
// rather than block the machine.
func (m *Machine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch
	}
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *Machine) Unsubscribe(events <-chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ch := range m.subscribers {
		if ch == events {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Flush waits for in-flight recorder and persistence calls.
func (m *Machine) Flush() {
	m.inflight.Wait()
}

// Close stops the ticker, waits for pending writes and closes subscribers.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopTickerLocked()
	m.mu.Unlock()

	m.Flush()

	m.mu.Lock()
	subscribers := m.subscribers
	m.subscribers = nil
	m.mu.Unlock()
	for _, ch := range subscribers {
		close(ch)
	}
}

func validate(action Action) error {
	switch action.Type {
	case ActionSwitchMode:
		if !action.Mode.Valid() {
			return ErrInvalidMode
		}
	case ActionUpdateDurations:
		if err := action.Durations.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) applyLocked(actions ...Action) ([]Effect, bool) {
	var effects []Effect
	changed := false
	for _, action := range actions {
		next, produced := Apply(m.state, action)
		if !next.Equal(m.state) {
			changed = true
		}
		m.state = next
		effects = append(effects, produced...)
	}
	if changed {
		m.version++
	}
	m.syncTickerLocked()
	return effects, changed
}

// commitLocked applies actions and, still under the lock, publishes the
// event and queues any durations to persist, so both follow version order.
// Collaborator calls are left to dispatch.
func (m *Machine) commitLocked(now time.Time, actions ...Action) (Snapshot, []Effect) {
	effects, changed := m.applyLocked(actions...)
	snapshot := m.snapshotLocked(now)
	for _, effect := range effects {
		if effect.Type == EffectDurationsChanged && effect.Durations != nil {
			durations := *effect.Durations
			m.pendingDurations = &durations
		}
	}
	if changed || len(effects) > 0 {
		m.publishLocked(Event{Snapshot: snapshot, Effects: effects})
	}
	return snapshot, effects
}

func (m *Machine) snapshotLocked(now time.Time) Snapshot {
	state := m.state
	var target *int64
	if state.TargetEpoch != nil {
		value := *state.TargetEpoch
		target = &value
	}
	return Snapshot{
		Mode:             state.Mode,
		RemainingSeconds: max(state.RemainingSeconds, 0),
		TotalSeconds:     state.TotalSeconds(),
		Running:          state.Running,
		TargetEpoch:      target,
		PomodoroCount:    state.PomodoroCount,
		Progress:         state.Progress(),
		Phase:            state.Phase(),
		Durations:        state.Durations,
		Intention:        state.Intention,
		Version:          m.version,
		ServerTime:       now,
	}
}

// syncTickerLocked runs a ticker exactly while the phase is running. Each
// ticker carries a generation so a tick that races a stop is discarded.
func (m *Machine) syncTickerLocked() {
	if m.state.Running && !m.closed {
		m.startTickerLocked()
		return
	}
	m.stopTickerLocked()
}

func (m *Machine) startTickerLocked() {
	if m.options.DisableTicker || m.tickerStop != nil {
		return
	}
	m.tickerGen++
	stop := make(chan struct{})
	m.tickerStop = stop
	go m.runTicker(m.tickerGen, stop)
}

func (m *Machine) stopTickerLocked() {
	if m.tickerStop == nil {
		return
	}
	close(m.tickerStop)
	m.tickerStop = nil
}

func (m *Machine) runTicker(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(m.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.tick(gen)
		}
	}
}

func (m *Machine) tick(gen uint64) {
	m.mu.Lock()
	if m.closed || m.tickerStop == nil || gen != m.tickerGen {
		m.mu.Unlock()
		return
	}
	now := m.deps.Clock()
	_, effects := m.commitLocked(now, Reconcile(now))
	m.mu.Unlock()

	m.dispatch(effects)
}

// dispatch runs collaborator calls outside the lock.
func (m *Machine) dispatch(effects []Effect) {
	for _, effect := range effects {
		switch effect.Type {
		case EffectPhaseStarted:
			if m.deps.Audio != nil {
				m.notify(func() { m.deps.Audio.PhaseStarted(effect.Mode) })
			}
		case EffectPhaseEnded:
			if m.deps.Audio != nil {
				m.notify(func() { m.deps.Audio.PhaseEnded(effect.Mode) })
			}
		case EffectSessionCompleted:
			if effect.Session != nil {
				m.record(*effect.Session)
			}
		case EffectDurationsChanged:
			m.saveDurations()
		}
	}
}

func (m *Machine) notify(fn func()) {
	defer m.recoverCollaborator("audio notifier")
	fn()
}

func (m *Machine) record(record model.SessionRecord) {
	if m.deps.Recorder == nil {
		return
	}
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer m.recoverCollaborator("session recorder")

		ctx, cancel := context.WithTimeout(context.Background(), m.options.RecordTimeout)
		defer cancel()
		if err := m.deps.Recorder.RecordSession(ctx, record); err != nil {
			m.deps.Logger.Printf("record %s session: %v", record.Mode, err)
		}
	}()
}

// saveDurations starts the machine's single save worker unless it is
// already running. The worker always writes the newest pending config, so
// an older config can never land after a newer one.
func (m *Machine) saveDurations() {
	if m.deps.Durations == nil {
		return
	}
	m.mu.Lock()
	if m.savingDurations || m.pendingDurations == nil {
		m.mu.Unlock()
		return
	}
	m.savingDurations = true
	m.inflight.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.inflight.Done()
		for {
			m.mu.Lock()
			pending := m.pendingDurations
			m.pendingDurations = nil
			if pending == nil {
				m.savingDurations = false
				m.mu.Unlock()
				return
			}
			m.mu.Unlock()
			m.writeDurations(*pending)
		}
	}()
}

func (m *Machine) writeDurations(durations model.DurationConfig) {
	defer m.recoverCollaborator("duration store")

	ctx, cancel := context.WithTimeout(context.Background(), m.options.RecordTimeout)
	defer cancel()
	if err := m.deps.Durations.SaveDurations(ctx, durations); err != nil {
		m.deps.Logger.Printf("save durations: %v", err)
	}
}

func (m *Machine) recoverCollaborator(name string) {
	if r := recover(); r != nil {
		m.deps.Logger.Printf("%s panicked: %v", name, r)
	}
}

// publishLocked fans event out without blocking on slow subscribers.
func (m *Machine) publishLocked(event Event) {
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
