package control

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/input"
	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/sequencer"
	"controlling_poolspa/internal/setpoint"
	"controlling_poolspa/internal/status"
	"controlling_poolspa/internal/timer"
)

// Error codes published in the snapshot.
const (
	CodeSensorFault     = "SENSOR_FAULT"
	CodeTimingViolation = "TIMING_VIOLATION"
	CodeDriverFault     = "DRIVER_FAULT"
)

const (
	// DefaultTick is the control-loop period.
	DefaultTick = 100 * time.Millisecond
	// DefaultSampleInterval spaces temperature history samples.
	DefaultSampleInterval = time.Minute

	unwindMargin = 5 * time.Second
)

// Options wires an Engine. Sequencer, Scheduler, Setpoints, Layer, Sensor
// and Store are required.
type Options struct {
	Table     equipment.ModeTable
	Sequencer *sequencer.Sequencer
	Scheduler *timer.Scheduler
	Setpoints *setpoint.Controller
	Layer     *input.Layer
	Queue     *input.Queue
	Buttons   ButtonReader
	LEDs      LEDWriter
	Sensor    TempSensor
	Store     *status.Store
	Sink      Sink
	Log       *logger.Logger

	SampleInterval time.Duration
	Clock          func() time.Time
}

// Engine owns the control state and runs one tick at a time: input, mode
// machine, timers, setpoint, sequencer, LEDs, display and snapshot.
type Engine struct {
	machine *Machine
	seq     *sequencer.Sequencer
	timers  *timer.Scheduler
	temps   *setpoint.Controller
	layer   *input.Layer
	queue   *input.Queue
	buttons ButtonReader
	leds    LEDWriter
	sensor  TempSensor
	store   *status.Store
	sink    Sink
	log     *logger.Logger
	now     func() time.Time

	sampleEvery time.Duration
	lastSample  time.Time

	display   Display
	last      frame
	published bool
	names     map[equipment.RelaySet][]string
	ledMask   uint16
	ledsValid bool
	buttonErr bool
	ledErr    bool
	stopping  bool
}

func NewEngine(o Options) (*Engine, error) {
	if o.Sequencer == nil || o.Scheduler == nil || o.Setpoints == nil || o.Layer == nil || o.Sensor == nil || o.Store == nil {
		return nil, errors.New("control: engine is missing a required component")
	}
	if o.Table == nil {
		o.Table = equipment.DefaultModeTable()
	}
	if err := o.Table.Validate(); err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if o.Sink == nil {
		o.Sink = nopSink{}
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.SampleInterval <= 0 {
		o.SampleInterval = DefaultSampleInterval
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}

	e := &Engine{
		machine:     newMachine(o.Table, o.Sequencer, o.Scheduler, o.Setpoints, o.Sink, o.Log),
		seq:         o.Sequencer,
		timers:      o.Scheduler,
		temps:       o.Setpoints,
		layer:       o.Layer,
		queue:       o.Queue,
		buttons:     o.Buttons,
		leds:        o.LEDs,
		sensor:      o.Sensor,
		store:       o.Store,
		sink:        o.Sink,
		log:         o.Log,
		now:         o.Clock,
		sampleEvery: o.SampleInterval,
		names:       make(map[equipment.RelaySet][]string),
	}
	e.display.clear()
	return e, nil
}

// Machine exposes the mode machine, for tests and read-only inspection.
func (e *Engine) Machine() *Machine { return e.machine }

// Run ticks until ctx is cancelled, then stops everything and keeps
// ticking until the sequencer has walked the shutdown path.
func (e *Engine) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	e.log.Infow("control_loop_started", "tick", tick.String())
	for {
		select {
		case <-ctx.Done():
			e.unwind(ticker.C)
			return
		case <-ticker.C:
			e.Step(e.now())
		}
	}
}

func (e *Engine) unwind(tick <-chan time.Time) {
	now := e.now()
	e.stopping = true
	e.machine.Stop(now, SourceShutdown)

	t := e.seq.Timings()
	deadline := now.Add(t.HeaterCooldown + t.PumpOffSettle + unwindMargin)
	for {
		e.Step(now)
		if !e.seq.Busy() && e.seq.State() == sequencer.StateIdle {
			e.log.Infow("control_loop_stopped", "relays", e.seq.Relays().String())
			return
		}
		if !now.Before(deadline) {
			e.log.Warnw("control_loop_unwind_timeout", "state", e.seq.State().String(), "relays", e.seq.Relays().String())
			return
		}
		<-tick
		now = e.now()
	}
}

// Step runs one control tick at now. It never blocks.
func (e *Engine) Step(now time.Time) {
	if !e.stopping {
		e.handleInput(now)
	}

	for _, x := range e.timers.Poll(now) {
		e.machine.Expired(now, x)
	}
	if !e.stopping {
		if mode, ok := e.timers.ScheduledStart(now, e.machine.Mode() != equipment.ModeIdle); ok {
			e.machine.Scheduled(now, mode)
		}
	}

	reading, sensorErr := e.sensor.ReadTemp()
	wasFaulted := e.temps.Faulted()
	demand, err := e.temps.Update(e.machine.Mode(), reading, sensorErr)
	if err != nil && !wasFaulted {
		e.machine.SensorFault(now, err)
	}
	e.seq.SetHeaterDemand(demand)
	e.machine.syncAccessories()

	if err := e.seq.Tick(now); err != nil {
		e.machine.Fault(now, err)
	}

	e.writeLEDs()
	e.sample(now)
	e.publish(now)
}

func (e *Engine) handleInput(now time.Time) {
	var raw uint8
	if e.buttons != nil {
		v, err := e.buttons.ReadButtons()
		switch {
		case err != nil && !e.buttonErr:
			e.log.Errorw("buttons_read_failed", "err", err)
			e.buttonErr = true
		case err == nil:
			raw = v
			e.buttonErr = false
		}
	}

	for _, ev := range e.layer.Poll(now, raw) {
		src := SourcePanel
		if ev.Remote {
			src = ev.Source
		}
		switch ev.Kind {
		case input.KindButton:
			e.machine.Button(now, ev.Button, src)
		case input.KindEncoder:
			e.machine.Encoder(now, ev.Delta, src)
		case input.KindStop:
			e.machine.Stop(now, src)
		}
	}
}

// writeLEDs pushes the mask only when it changed or the last write failed.
func (e *Engine) writeLEDs() {
	mask := e.machine.LEDs()
	if e.leds == nil || (e.ledsValid && mask == e.ledMask) {
		e.ledMask = mask
		return
	}
	if err := e.leds.WriteLEDs(mask); err != nil {
		if !e.ledErr {
			e.log.Errorw("leds_write_failed", "err", err)
		}
		e.ledErr = true
		e.ledsValid = false
		return
	}
	e.ledErr = false
	e.ledMask = mask
	e.ledsValid = true
}

// sample emits one history point per interval while water circulates.
func (e *Engine) sample(now time.Time) {
	if !e.seq.Circulating() || e.temps.Faulted() || math.IsNaN(e.temps.Reading()) {
		return
	}
	if !e.lastSample.IsZero() && now.Sub(e.lastSample) < e.sampleEvery {
		return
	}
	e.lastSample = now
	mode := e.machine.Mode()
	e.sink.Sample(models.TempSample{
		TakenAt:   now,
		WaterF:    e.temps.Reading(),
		SetpointF: e.temps.Target(mode),
		Mode:      mode.String(),
		HeaterOn:  e.seq.HeaterOn(),
	})
}

// faultMask is the set of active fault codes.
type faultMask uint8

const (
	faultSensor faultMask = 1 << iota
	faultTiming
	faultDriver

	numFaultSets = 1 << 3
)

// faultSets holds the code list of every mask so a tick never builds one.
var faultSets = func() (sets [numFaultSets][]string) {
	codes := [...]string{CodeSensorFault, CodeTimingViolation, CodeDriverFault}
	for m := range sets {
		for i, c := range codes {
			if m&(1<<i) != 0 {
				sets[m] = append(sets[m], c)
			}
		}
	}
	return sets
}()

func (f faultMask) codes() []string { return faultSets[f%numFaultSets] }

func (e *Engine) faults() faultMask {
	var f faultMask
	if e.temps.Faulted() {
		f |= faultSensor
	}
	if err := e.seq.Fault(); err != nil {
		switch {
		case errors.Is(err, sequencer.ErrTimingViolation):
			f |= faultTiming
		case errors.Is(err, sequencer.ErrDriver):
			f |= faultDriver
		}
	}
	return f
}

// relayNames returns the names of the relays in s. Slices are cached per
// set and shared by snapshots, which never modify them.
func (e *Engine) relayNames(s equipment.RelaySet) []string {
	if names, ok := e.names[s]; ok {
		return names
	}
	names := make([]string, 0, equipment.NumRelays)
	for r := 0; r < equipment.NumRelays; r++ {
		if s.Has(equipment.Relay(r)) {
			names = append(names, equipment.Relay(r).String())
		}
	}
	e.names[s] = names
	return names
}

// dropCounter is implemented by sinks that shed load.
type dropCounter interface{ Dropped() uint64 }

// frame is everything the snapshot and the display show, at the resolution
// they show it. The snapshot is rebuilt only when the frame changes.
type frame struct {
	mode       equipment.Mode
	page       Page
	seq        sequencer.State
	cur        equipment.Config
	relays     equipment.RelaySet
	leds       uint16
	heaterOn   bool
	light      bool
	jets       bool
	demand     bool
	pool, spa  int
	hasReading bool
	reading    float64
	faults     faultMask
	dropped    uint64
	remaining  int
	lightSec   int
	jetsSec    int
	holdSec    int
	// countdowns as the display rounds them
	remainingShown time.Duration
	holdShown      time.Duration
	clock          int64
}

func (e *Engine) publish(now time.Time) {
	var dropped uint64
	if e.queue != nil {
		dropped += e.queue.Dropped()
	}
	if dc, ok := e.sink.(dropCounter); ok {
		dropped += dc.Dropped()
	}

	hold := e.seq.HoldRemaining(now)
	remaining := e.timers.Remaining(now, timer.TimerMode)
	light, jets := e.machine.accessoryRemaining(now)
	reading := e.temps.Reading()

	f := frame{
		mode:           e.machine.Mode(),
		page:           e.machine.Page(),
		seq:            e.seq.State(),
		cur:            e.seq.Current(),
		relays:         e.seq.Relays(),
		leds:           e.ledMask,
		heaterOn:       e.seq.HeaterOn(),
		light:          e.machine.Light(),
		jets:           e.machine.Jets(),
		demand:         e.temps.Demand(),
		pool:           e.temps.Pool(),
		spa:            e.temps.Spa(),
		faults:         e.faults(),
		dropped:        dropped,
		remaining:      seconds(remaining),
		lightSec:       seconds(light),
		jetsSec:        seconds(jets),
		holdSec:        seconds(hold),
		remainingShown: remaining.Round(time.Second),
		holdShown:      hold.Round(time.Second),
	}
	if !math.IsNaN(reading) {
		f.hasReading, f.reading = true, reading
	}
	if f.page == PageSystem {
		f.clock = now.Unix()
	}
	if e.published && f == e.last {
		return
	}
	e.last, e.published = f, true

	v := view{
		now:       now,
		reading:   reading,
		faults:    f.faults.codes(),
		dropped:   dropped,
		relays:    f.relays,
		seqState:  f.seq.String(),
		hold:      hold,
		remaining: remaining,
	}
	e.machine.render(&e.display, v)

	st := &models.PoolState{
		Mode:          f.mode.String(),
		Sequencer:     v.seqState,
		Valves:        f.cur.Valves.String(),
		Pump:          f.cur.Pump.String(),
		HeaterArmed:   f.cur.Heater.String(),
		HeaterOn:      f.heaterOn,
		Relays:        e.relayNames(f.relays),
		RelayMask:     uint16(f.relays),
		LEDMask:       f.leds,
		PoolLight:     f.light,
		SpaJets:       f.jets,
		PoolSetF:      f.pool,
		SpaSetF:       f.spa,
		HeatDemand:    f.demand,
		RemainingSec:  f.remaining,
		LightSec:      f.lightSec,
		JetsSec:       f.jetsSec,
		HoldSec:       f.holdSec,
		ErrorCodes:    v.faults,
		Display:       e.display.Lines(),
		DisplayPage:   f.page.String(),
		DroppedEvents: dropped,
		UpdatedAt:     now.UTC(),
	}
	if f.hasReading {
		r := f.reading
		st.WaterTempF = &r
	}
	e.store.Publish(st)
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
