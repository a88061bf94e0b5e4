package control

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/input"
	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/sequencer"
	"controlling_poolspa/internal/setpoint"
	"controlling_poolspa/internal/status"
	"controlling_poolspa/internal/timer"
)

var t0 = time.Date(2026, 7, 4, 13, 0, 0, 0, time.UTC)

const tick = 100 * time.Millisecond

type fakeDriver struct {
	writes []equipment.RelaySet
	err    error
}

func (d *fakeDriver) Write(s equipment.RelaySet) error {
	if d.err != nil {
		return d.err
	}
	d.writes = append(d.writes, s)
	return nil
}

type fakeSensor struct {
	temp float64
	err  error
}

func (s *fakeSensor) ReadTemp() (float64, error) { return s.temp, s.err }

type fakeButtons struct{ raw uint8 }

func (b *fakeButtons) ReadButtons() (uint8, error) { return b.raw, nil }

type fakeLEDs struct{ masks []uint16 }

func (l *fakeLEDs) WriteLEDs(m uint16) error {
	l.masks = append(l.masks, m)
	return nil
}

func (l *fakeLEDs) last() uint16 {
	if len(l.masks) == 0 {
		return 0
	}
	return l.masks[len(l.masks)-1]
}

type fakeSink struct {
	events   []models.PoolEvent
	samples  []models.TempSample
	settings []models.Settings
}

func (s *fakeSink) Event(e models.PoolEvent)    { s.events = append(s.events, e) }
func (s *fakeSink) Sample(t models.TempSample)  { s.samples = append(s.samples, t) }
func (s *fakeSink) Settings(st models.Settings) { s.settings = append(s.settings, st) }

func (s *fakeSink) ofType(typ string) []models.PoolEvent {
	var out []models.PoolEvent
	for _, e := range s.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	t       *testing.T
	now     time.Time
	drv     *fakeDriver
	sensor  *fakeSensor
	buttons *fakeButtons
	leds    *fakeLEDs
	sink    *fakeSink
	queue   *input.Queue
	store   *status.Store
	seq     *sequencer.Sequencer
	timers  *timer.Scheduler
	temps   *setpoint.Controller
	eng     *Engine
}

type harnessOpt func(*harness, *timer.Durations, *timer.DailyStart)

func withDurations(f func(*timer.Durations)) harnessOpt {
	return func(_ *harness, d *timer.Durations, _ *timer.DailyStart) { f(d) }
}

func startingAt(at time.Time) harnessOpt {
	return func(h *harness, _ *timer.Durations, _ *timer.DailyStart) { h.now = at }
}

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		now:     t0,
		drv:     &fakeDriver{},
		sensor:  &fakeSensor{temp: 75},
		buttons: &fakeButtons{},
		leds:    &fakeLEDs{},
		sink:    &fakeSink{},
		queue:   input.NewQueue(input.DefaultQueueSize),
		store:   status.NewStore(),
	}
	durations := timer.DefaultDurations()
	daily := timer.DefaultDailyStart()
	for _, o := range opts {
		o(h, &durations, &daily)
	}

	var err error
	h.seq, err = sequencer.New(h.drv, sequencer.DefaultTimings(), nil)
	require.NoError(t, err)
	h.timers, err = timer.NewScheduler(durations, daily)
	require.NoError(t, err)
	h.temps, err = setpoint.New(setpoint.DefaultLimits(), 80, 100, nil)
	require.NoError(t, err)

	layer := input.NewLayer(input.NewDebouncer(input.DefaultDebounce), input.NewEncoder(input.DefaultStepsPerDetent), h.queue)
	h.eng, err = NewEngine(Options{
		Sequencer: h.seq,
		Scheduler: h.timers,
		Setpoints: h.temps,
		Layer:     layer,
		Queue:     h.queue,
		Buttons:   h.buttons,
		LEDs:      h.leds,
		Sensor:    h.sensor,
		Store:     h.store,
		Sink:      h.sink,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) step() { h.eng.Step(h.now) }

func (h *harness) advance(d time.Duration) {
	end := h.now.Add(d)
	for h.now.Before(end) {
		h.now = h.now.Add(tick)
		h.step()
	}
}

// press injects a remote button and runs one tick.
func (h *harness) press(b equipment.Button) {
	h.queue.Push(input.RemoteEvent{Kind: input.RemoteButton, Button: b, Source: "test"})
	h.now = h.now.Add(tick)
	h.step()
}

func (h *harness) remote(k input.RemoteKind) {
	h.queue.Push(input.RemoteEvent{Kind: k, Source: "test"})
	h.now = h.now.Add(tick)
	h.step()
}

func (h *harness) mode() equipment.Mode { return h.eng.Machine().Mode() }

func TestNewEngineRequiresComponents(t *testing.T) {
	_, err := NewEngine(Options{})
	require.Error(t, err)
}

func TestFilterPoolFromIdle(t *testing.T) {
	h := newHarness(t)
	h.step()
	h.press(equipment.ButtonFilterPool)

	assert.Equal(t, equipment.ModeFilterPool, h.mode())
	assert.NotZero(t, h.leds.last()&equipment.ButtonLED(equipment.ButtonFilterPool))
	assert.True(t, h.timers.Active(timer.TimerMode))
	assert.Equal(t, 20*time.Minute, h.timers.Remaining(h.now, timer.TimerMode))

	bound := sequencer.DefaultTimings().StartupBound()
	h.advance(bound)
	want := equipment.Config{Valves: equipment.ValvesHeatPool, Pump: equipment.PumpPool, Heater: equipment.HeatingNone}
	assert.Equal(t, want, h.seq.Current())
	assert.Equal(t, sequencer.StateDone, h.seq.State())

	st := h.store.Load()
	assert.Equal(t, "FILTER_POOL", st.Mode)
	assert.Equal(t, "DONE", st.Sequencer)
	assert.Contains(t, st.Relays, "POOL_PUMP")
	assert.InDelta(t, int((20*time.Minute-bound)/time.Second), st.RemainingSec, 1)

	changes := h.sink.ofType(models.EventModeChange)
	require.Len(t, changes, 1)
	assert.Equal(t, "FILTER_POOL", changes[0].Mode)
}

func TestHeatSpaDuringHeatPoolRejected(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonHeatPool)
	h.advance(70 * time.Second)
	require.True(t, h.seq.HeaterOn())

	writes := len(h.drv.writes)
	relays := h.seq.Relays()
	h.press(equipment.ButtonHeatSpa)
	h.advance(5 * time.Second)

	assert.Equal(t, equipment.ModeHeatPool, h.mode())
	assert.Equal(t, writes, len(h.drv.writes))
	assert.Equal(t, relays, h.seq.Relays())
	rejected := h.sink.ofType(models.EventRejected)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Description, "HEAT_SPA")
}

func TestLeavingHeatModeDropsHeaterAndHoldsValves(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonHeatPool)
	h.advance(70 * time.Second)
	require.True(t, h.seq.HeaterOn())
	valves := h.seq.Relays() & equipment.ValveRelays

	h.press(equipment.ButtonHeatPool)
	assert.Equal(t, equipment.ModeIdle, h.mode())
	assert.False(t, h.seq.HeaterOn())

	h.advance(59 * time.Second)
	assert.Equal(t, valves, h.seq.Relays()&equipment.ValveRelays)
	assert.True(t, h.seq.Circulating())

	h.advance(10 * time.Second)
	assert.Equal(t, sequencer.StateIdle, h.seq.State())
	assert.False(t, h.seq.Circulating())
}

func TestEncoderClampsPoolSetpoint(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonHeatPool)
	for i := 0; i < 25; i++ {
		h.remote(input.RemoteTempUp)
	}
	assert.Equal(t, 92, h.temps.Pool())
	require.NotEmpty(t, h.sink.settings)
	assert.Equal(t, 92, h.sink.settings[len(h.sink.settings)-1].PoolSetpointF)
	assert.Equal(t, 92, h.store.Load().PoolSetF)
}

func TestEncoderIgnoredOutsideHeatMode(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonFilterPool)
	h.remote(input.RemoteTempUp)
	h.remote(input.RemoteTempDown)

	assert.Equal(t, 80, h.temps.Pool())
	assert.Equal(t, 100, h.temps.Spa())
	assert.Empty(t, h.sink.ofType(models.EventSetpoint))
	assert.Empty(t, h.sink.settings)
}

func TestModeTimeoutReturnsToIdle(t *testing.T) {
	h := newHarness(t, withDurations(func(d *timer.Durations) {
		d.Mode[equipment.ModeFilterSpa] = 2 * time.Minute
	}))
	h.press(equipment.ButtonFilterSpa)
	h.advance(2*time.Minute - time.Second)
	assert.Equal(t, equipment.ModeFilterSpa, h.mode())

	h.advance(time.Second)
	assert.Equal(t, equipment.ModeIdle, h.mode())
	timeouts := h.sink.ofType(models.EventTimeout)
	require.Len(t, timeouts, 1)
	assert.Contains(t, timeouts[0].Description, "FILTER_SPA")
}

func TestPoolLightTimesOut(t *testing.T) {
	h := newHarness(t, withDurations(func(d *timer.Durations) { d.PoolLight = time.Minute }))
	h.press(equipment.ButtonPoolLight)

	assert.True(t, h.seq.Relays().Has(equipment.RelayPoolLight))
	assert.NotZero(t, h.leds.last()&equipment.ButtonLED(equipment.ButtonPoolLight))
	assert.Equal(t, equipment.ModeIdle, h.mode())

	h.advance(time.Minute)
	assert.False(t, h.seq.Relays().Has(equipment.RelayPoolLight))
	assert.False(t, h.eng.Machine().Light())
	assert.Len(t, h.sink.ofType(models.EventAccessory), 2)
}

func TestSpaJetsToggle(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonSpaJets)
	assert.True(t, h.seq.Relays().Has(equipment.RelaySpaJetsPump))
	assert.True(t, h.store.Load().SpaJets)

	h.press(equipment.ButtonSpaJets)
	assert.False(t, h.seq.Relays().Has(equipment.RelaySpaJetsPump))
	assert.False(t, h.timers.Active(timer.TimerSpaJets))
}

func TestStopShutsEverythingDown(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonPoolLight)
	h.press(equipment.ButtonHeatPool)
	h.advance(70 * time.Second)
	require.True(t, h.seq.HeaterOn())

	h.remote(input.RemoteStop)
	assert.Equal(t, equipment.ModeIdle, h.mode())
	assert.False(t, h.seq.HeaterOn())
	assert.False(t, h.seq.Relays().Has(equipment.RelayPoolLight))
	assert.Len(t, h.sink.ofType(models.EventStop), 1)

	// A light request during the unwind waits for it to finish.
	h.press(equipment.ButtonPoolLight)
	assert.False(t, h.seq.Relays().Has(equipment.RelayPoolLight))

	h.advance(70 * time.Second)
	assert.Equal(t, sequencer.StateIdle, h.seq.State())
	assert.False(t, h.seq.Circulating())
	assert.True(t, h.seq.Relays().Has(equipment.RelayPoolLight))
}

func TestSensorFaultDropsDemand(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonHeatPool)
	h.advance(70 * time.Second)
	require.True(t, h.seq.HeaterOn())

	h.sensor.err = errors.New("crc mismatch")
	h.advance(time.Second)

	assert.False(t, h.seq.HeaterOn())
	assert.Equal(t, equipment.ModeHeatPool, h.mode())
	assert.Len(t, h.sink.ofType(models.EventSensorFault), 1)
	st := h.store.Load()
	assert.Nil(t, st.WaterTempF)
	assert.Contains(t, st.ErrorCodes, CodeSensorFault)

	h.sensor.err = nil
	h.advance(time.Second)
	assert.True(t, h.seq.HeaterOn())
	assert.Empty(t, h.store.Load().ErrorCodes)
}

func TestTemperatureLEDs(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonHeatPool)
	assert.NotZero(t, h.leds.last()&equipment.LEDGreen)

	h.advance(70 * time.Second)
	assert.Equal(t, equipment.LEDRed, h.leds.last()&(equipment.LEDRed|equipment.LEDGreen|equipment.LEDBlue))

	h.sensor.temp = 85
	h.advance(time.Second)
	assert.Equal(t, equipment.LEDBlue, h.leds.last()&(equipment.LEDRed|equipment.LEDGreen|equipment.LEDBlue))
}

func TestWaterLevelCycle(t *testing.T) {
	h := newHarness(t)
	for _, want := range []equipment.Mode{equipment.ModeFillSpa, equipment.ModeEmptySpa, equipment.ModeIdle} {
		h.press(equipment.ButtonSpaWaterLevel)
		assert.Equal(t, want, h.mode())
	}

	h.press(equipment.ButtonFilterPool)
	h.press(equipment.ButtonSpaWaterLevel)
	assert.Equal(t, equipment.ModeFilterPool, h.mode())
	assert.Len(t, h.sink.ofType(models.EventRejected), 1)
}

func TestPanelButtonDebounced(t *testing.T) {
	h := newHarness(t)
	h.buttons.raw = 1 << equipment.ButtonFilterSpa
	h.advance(time.Second)
	assert.Equal(t, equipment.ModeFilterSpa, h.mode())

	h.buttons.raw = 0
	h.advance(time.Second)
	assert.Equal(t, equipment.ModeFilterSpa, h.mode())

	h.buttons.raw = 1 << equipment.ButtonFilterSpa
	h.advance(time.Second)
	assert.Equal(t, equipment.ModeIdle, h.mode())
	changes := h.sink.ofType(models.EventModeChange)
	require.Len(t, changes, 2)
	assert.Contains(t, changes[0].Description, SourcePanel)
}

func TestSamplesOnlyWhileCirculating(t *testing.T) {
	h := newHarness(t)
	h.advance(2 * time.Minute)
	assert.Empty(t, h.sink.samples)

	start := h.now
	h.press(equipment.ButtonFilterPool)
	h.advance(3 * time.Minute)
	require.Len(t, h.sink.samples, 3)
	first := h.sink.samples[0]
	assert.False(t, first.TakenAt.Before(start.Add(sequencer.DefaultTimings().ValveSettle)))
	assert.Equal(t, "FILTER_POOL", first.Mode)
	assert.Equal(t, 75.0, first.WaterF)
	assert.Equal(t, time.Minute, h.sink.samples[1].TakenAt.Sub(first.TakenAt))
}

func TestDailyScheduledStart(t *testing.T) {
	h := newHarness(t, startingAt(time.Date(2026, 7, 5, 0, 59, 0, 0, time.UTC)))
	h.advance(59 * time.Second)
	assert.Equal(t, equipment.ModeIdle, h.mode())

	h.advance(2 * time.Second)
	assert.Equal(t, equipment.ModeFilterPool, h.mode())
	require.Len(t, h.sink.ofType(models.EventSchedule), 1)

	// Stopping inside the hour does not restart it the same day.
	h.remote(input.RemoteStop)
	h.advance(time.Minute)
	assert.Equal(t, equipment.ModeIdle, h.mode())
	assert.Len(t, h.sink.ofType(models.EventSchedule), 1)
}

func TestMenuCyclesPages(t *testing.T) {
	h := newHarness(t)
	h.step()
	assert.Equal(t, "STATUS", h.store.Load().DisplayPage)
	assert.True(t, strings.HasPrefix(h.store.Load().Display[0], "IDLE"))

	h.press(equipment.ButtonMenu)
	st := h.store.Load()
	assert.Equal(t, "SCHEDULE", st.DisplayPage)
	assert.Equal(t, "Daily filter ON", st.Display[0])
	assert.Equal(t, "Start 01 AM", st.Display[1])
	assert.NotZero(t, h.leds.last()&equipment.ButtonLED(equipment.ButtonMenu))

	h.press(equipment.ButtonMenu)
	assert.Equal(t, "SYSTEM", h.store.Load().DisplayPage)
	h.press(equipment.ButtonMenu)
	assert.Equal(t, "STATUS", h.store.Load().DisplayPage)
	assert.Zero(t, h.leds.last()&equipment.ButtonLED(equipment.ButtonMenu))
}

func TestDriverFaultReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.press(equipment.ButtonFilterPool)
	h.drv.err = errors.New("gpio busy")
	h.advance(10 * time.Second)

	assert.Equal(t, equipment.ModeIdle, h.mode())
	assert.NotEmpty(t, h.sink.ofType(models.EventFault))
	assert.Contains(t, h.store.Load().ErrorCodes, CodeDriverFault)
}

func TestRunUnwindsOnCancel(t *testing.T) {
	h := newHarness(t)
	fake := t0
	h.eng.now = func() time.Time {
		fake = fake.Add(time.Second)
		return fake
	}
	h.queue.Push(input.RemoteEvent{Kind: input.RemoteButton, Button: equipment.ButtonHeatPool, Source: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.eng.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return h.store.Load().HeaterOn }, 5*time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.Equal(t, sequencer.StateIdle, h.seq.State())
	assert.Equal(t, equipment.RelaySet(0), h.seq.Relays())
	assert.Equal(t, equipment.ModeIdle, h.mode())
}

func TestSteadyTickDoesNotAllocate(t *testing.T) {
	for _, mode := range []equipment.Button{equipment.ButtonMenu, equipment.ButtonFilterPool} {
		h := newHarness(t)
		h.step()
		h.press(mode)
		h.advance(sequencer.DefaultTimings().StartupBound())

		before := h.store.Version()
		allocs := testing.AllocsPerRun(200, h.step)
		assert.Zero(t, allocs, "after %s", mode)
		assert.Equal(t, before, h.store.Version(), "an unchanged tick must not republish")
	}
}

func TestSnapshotRepublishedWhenCountdownMoves(t *testing.T) {
	h := newHarness(t)
	h.step()
	h.press(equipment.ButtonFilterPool)
	h.advance(sequencer.DefaultTimings().StartupBound())

	prev := h.store.Load()
	v := h.store.Version()
	h.now = h.now.Add(time.Second)
	h.step()

	require.Greater(t, h.store.Version(), v)
	cur := h.store.Load()
	assert.Equal(t, prev.RemainingSec-1, cur.RemainingSec)
	assert.True(t, cur.UpdatedAt.After(prev.UpdatedAt))
	assert.Equal(t, prev.Relays, cur.Relays)
}
