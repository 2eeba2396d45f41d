package timer

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowtimer/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []model.SessionRecord
	err     error
	panics  bool
}

func (r *fakeRecorder) RecordSession(_ context.Context, record model.SessionRecord) error {
	if r.panics {
		panic("recorder exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return r.err
}

func (r *fakeRecorder) Records() []model.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SessionRecord(nil), r.records...)
}

type fakeAudio struct {
	mu     sync.Mutex
	events []string
}

func (a *fakeAudio) PhaseStarted(mode model.Mode) { a.add("start:" + string(mode)) }
func (a *fakeAudio) PhaseEnded(mode model.Mode)   { a.add("end:" + string(mode)) }

func (a *fakeAudio) add(event string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *fakeAudio) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

type fakeDurationStore struct {
	mu      sync.Mutex
	loaded  model.DurationConfig
	loadErr error
	saved   []model.DurationConfig
}

func (s *fakeDurationStore) LoadDurations(context.Context) (model.DurationConfig, error) {
	return s.loaded, s.loadErr
}

func (s *fakeDurationStore) SaveDurations(_ context.Context, durations model.DurationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, durations)
	return nil
}

func (s *fakeDurationStore) Saved() []model.DurationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.DurationConfig(nil), s.saved...)
}

type machineFixture struct {
	machine  *Machine
	clock    *fakeClock
	recorder *fakeRecorder
	audio    *fakeAudio
	store    *fakeDurationStore
	logs     *bytes.Buffer
}

func newMachineFixture(t *testing.T, options Options) *machineFixture {
	t.Helper()
	fixture := &machineFixture{
		clock:    newFakeClock(epoch),
		recorder: &fakeRecorder{},
		audio:    &fakeAudio{},
		store:    &fakeDurationStore{},
		logs:     &bytes.Buffer{},
	}
	fixture.machine = NewMachine(NewState(model.DefaultDurations()), Deps{
		Audio:     fixture.audio,
		Recorder:  fixture.recorder,
		Durations: fixture.store,
		Logger:    log.New(fixture.logs, "", 0),
		Clock:     fixture.clock.Now,
	}, options)
	t.Cleanup(fixture.machine.Close)
	return fixture
}

func TestMachineCompletionDispatchesEffects(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})

	snapshot := f.machine.Start()
	require.True(t, snapshot.Running)
	require.Equal(t, PhaseWork, snapshot.Phase)

	f.clock.Advance(25 * time.Minute)
	snapshot = f.machine.Wake()
	f.machine.Flush()

	assert.False(t, snapshot.Running)
	assert.Equal(t, model.ModeShortBreak, snapshot.Mode)
	assert.Equal(t, 1, snapshot.PomodoroCount)
	assert.Equal(t, []string{"start:pomodoro", "end:pomodoro"}, f.audio.Events())

	records := f.recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, model.ModePomodoro, records[0].Mode)
	assert.True(t, records[0].StartedAt.Equal(epoch))
	assert.True(t, records[0].EndedAt.Equal(epoch.Add(25*time.Minute)))
}

func TestMachineRepeatedWakeCompletesOnce(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	f.machine.Start()

	f.clock.Advance(2 * time.Hour)
	first := f.machine.Wake()
	second := f.machine.Wake()
	f.machine.Flush()

	assert.Len(t, f.recorder.Records(), 1)
	assert.Equal(t, first.Version, second.Version)
}

func TestMachineRecorderFailureDoesNotAffectTimer(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	f.recorder.err = errors.New("backend unavailable")

	f.machine.Start()
	f.clock.Advance(26 * time.Minute)
	snapshot := f.machine.Wake()
	f.machine.Flush()

	assert.Equal(t, model.ModeShortBreak, snapshot.Mode)
	assert.Contains(t, f.logs.String(), "record pomodoro session: backend unavailable")

	snapshot = f.machine.Start()
	assert.True(t, snapshot.Running)
	assert.Equal(t, PhaseBreak, snapshot.Phase)
}

func TestMachineRecorderPanicIsContained(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	f.recorder.panics = true

	f.machine.Start()
	f.clock.Advance(25 * time.Minute)
	snapshot := f.machine.Wake()
	f.machine.Flush()

	assert.Equal(t, model.ModeShortBreak, snapshot.Mode)
	assert.Contains(t, f.logs.String(), "session recorder panicked")
}

func TestMachinePauseCatchesDueCompletion(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	f.machine.Start()

	f.clock.Advance(30 * time.Minute)
	snapshot := f.machine.Pause()
	f.machine.Flush()

	assert.Equal(t, model.ModeShortBreak, snapshot.Mode)
	assert.False(t, snapshot.Running)
	assert.Len(t, f.recorder.Records(), 1)
}

func TestMachinePauseFreezesReconciledRemaining(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	f.machine.Start()

	f.clock.Advance(90 * time.Second)
	snapshot := f.machine.Pause()

	assert.False(t, snapshot.Running)
	assert.Nil(t, snapshot.TargetEpoch)
	assert.Equal(t, 25*60-90, snapshot.RemainingSeconds)
}

func TestMachineVersionConflict(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	base := f.machine.Snapshot().Version

	started, err := f.machine.Do(Start(time.Time{}), base)
	require.NoError(t, err)
	assert.Equal(t, base+1, started.Version)

	_, err = f.machine.Do(Pause(time.Time{}), base)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, conflict.Current.Running)
	assert.Equal(t, started.Version, conflict.Current.Version)
}

func TestMachineNoopDoesNotBumpVersion(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	before := f.machine.Snapshot().Version

	after := f.machine.Pause()
	assert.Equal(t, before, after.Version)
}

func TestMachineRejectsInvalidInput(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})

	_, err := f.machine.SwitchMode(model.Mode("siesta"))
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = f.machine.UpdateDurations(model.DurationConfig{Pomodoro: 25, ShortBreak: 0, LongBreak: 15})
	assert.ErrorIs(t, err, model.ErrInvalidDurations)
}

func TestMachineUpdateDurationsPersists(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	updated := model.DurationConfig{Pomodoro: 45, ShortBreak: 10, LongBreak: 20}

	snapshot, err := f.machine.UpdateDurations(updated)
	require.NoError(t, err)
	f.machine.Flush()

	assert.Equal(t, 45*60, snapshot.RemainingSeconds)
	assert.Equal(t, []model.DurationConfig{updated}, f.store.Saved())
}

func TestMachineSubscribersReceiveEvents(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	events := f.machine.Subscribe(4)

	f.machine.Start()

	select {
	case event := <-events:
		assert.True(t, event.Snapshot.Running)
		require.Len(t, event.Effects, 1)
		assert.Equal(t, EffectPhaseStarted, event.Effects[0].Type)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	f.machine.Unsubscribe(events)
	_, open := <-events
	assert.False(t, open)
}

func TestMachineTickerCompletesPhase(t *testing.T) {
	f := newMachineFixture(t, Options{TickInterval: 5 * time.Millisecond})
	f.machine.Start()
	f.clock.Advance(25*time.Minute + time.Second)

	assert.Eventually(t, func() bool {
		return len(f.recorder.Records()) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	f.machine.Flush()
	assert.Len(t, f.recorder.Records(), 1)
	assert.False(t, f.machine.Snapshot().Running)
}

func TestMachineSwitchModeCancelsPendingCompletion(t *testing.T) {
	f := newMachineFixture(t, Options{TickInterval: 5 * time.Millisecond})
	f.machine.Start()

	_, err := f.machine.SwitchMode(model.ModeLongBreak)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	time.Sleep(40 * time.Millisecond)
	f.machine.Flush()

	assert.Empty(t, f.recorder.Records())
	snapshot := f.machine.Snapshot()
	assert.Equal(t, model.ModeLongBreak, snapshot.Mode)
	assert.Equal(t, 15*60, snapshot.RemainingSeconds)
}

func TestMachineConcurrentCallsAreSerialized(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.machine.Start()
		}()
		go func() {
			defer wg.Done()
			f.machine.Pause()
		}()
	}
	wg.Wait()

	state := f.machine.State()
	assert.Equal(t, state.Running, state.TargetEpoch != nil)
}

func TestMachineClosedRejectsActions(t *testing.T) {
	f := newMachineFixture(t, Options{DisableTicker: true})
	events := f.machine.Subscribe(1)
	f.machine.Close()

	_, open := <-events
	assert.False(t, open)

	_, err := f.machine.Do(Start(time.Time{}), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoadDurationsFallsBackToDefaults(t *testing.T) {
	logger := log.New(&bytes.Buffer{}, "", 0)
	ctx := context.Background()

	assert.Equal(t, model.DefaultDurations(), LoadDurations(ctx, nil, logger))
	assert.Equal(t, model.DefaultDurations(), LoadDurations(ctx, &fakeDurationStore{loadErr: errors.New("corrupt")}, logger))
	assert.Equal(t, model.DefaultDurations(), LoadDurations(ctx, &fakeDurationStore{loaded: model.DurationConfig{Pomodoro: 0}}, logger))

	custom := model.DurationConfig{Pomodoro: 30, ShortBreak: 6, LongBreak: 20}
	assert.Equal(t, custom, LoadDurations(ctx, &fakeDurationStore{loaded: custom}, logger))
}

// slowDurationStore blocks the save of one particular config until released.
type slowDurationStore struct {
	fakeDurationStore
	slowPomodoro int
	entered      chan struct{}
	release      chan struct{}
}

func (s *slowDurationStore) SaveDurations(ctx context.Context, durations model.DurationConfig) error {
	if durations.Pomodoro == s.slowPomodoro {
		close(s.entered)
		<-s.release
	}
	return s.fakeDurationStore.SaveDurations(ctx, durations)
}

func TestMachineDurationSavesKeepUpdateOrder(t *testing.T) {
	store := &slowDurationStore{
		slowPomodoro: 30,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	machine := NewMachine(NewState(model.DefaultDurations()), Deps{
		Durations: store,
		Logger:    log.New(&bytes.Buffer{}, "", 0),
		Clock:     newFakeClock(epoch).Now,
	}, Options{DisableTicker: true})
	t.Cleanup(machine.Close)

	_, err := machine.UpdateDurations(model.DurationConfig{Pomodoro: 30, ShortBreak: 5, LongBreak: 15})
	require.NoError(t, err)
	<-store.entered

	latest := model.DurationConfig{Pomodoro: 40, ShortBreak: 5, LongBreak: 15}
	_, err = machine.UpdateDurations(latest)
	require.NoError(t, err)
	close(store.release)
	machine.Flush()

	saved := store.Saved()
	require.NotEmpty(t, saved)
	assert.Equal(t, latest, saved[len(saved)-1])
	assert.Equal(t, machine.State().Durations, saved[len(saved)-1])
}

// blockingAudio holds PhaseStarted until released, like a D-Bus call that
// hangs.
type blockingAudio struct {
	entered chan struct{}
	release chan struct{}
}

func (a *blockingAudio) PhaseStarted(model.Mode) {
	close(a.entered)
	<-a.release
}

func (a *blockingAudio) PhaseEnded(model.Mode) {}

func TestMachineEventsFollowVersionOrderDespiteSlowAudio(t *testing.T) {
	audio := &blockingAudio{entered: make(chan struct{}), release: make(chan struct{})}
	machine := NewMachine(NewState(model.DefaultDurations()), Deps{
		Audio:  audio,
		Logger: log.New(&bytes.Buffer{}, "", 0),
		Clock:  newFakeClock(epoch).Now,
	}, Options{DisableTicker: true})
	t.Cleanup(machine.Close)
	events := machine.Subscribe(8)

	started := make(chan struct{})
	go func() {
		defer close(started)
		machine.Start()
	}()
	<-audio.entered
	paused := machine.Pause()
	close(audio.release)
	<-started

	var received []Event
	for len(received) < 2 {
		select {
		case event := <-events:
			received = append(received, event)
		case <-time.After(time.Second):
			t.Fatalf("expected 2 events, got %d", len(received))
		}
	}

	assert.Less(t, received[0].Snapshot.Version, received[1].Snapshot.Version)
	assert.True(t, received[0].Snapshot.Running)
	last := received[1].Snapshot
	assert.False(t, last.Running)
	assert.Equal(t, paused.Version, last.Version)
	assert.False(t, machine.Snapshot().Running)
}
