package sequencer

import (
	"errors"
	"fmt"
	"time"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/logger"
)

var (
	// ErrTimingViolation means a relay write would have broken a switching
	// interlock. The write is refused and the shutdown path is forced.
	ErrTimingViolation = errors.New("relay timing violation")
	// ErrDriver wraps failures reported by the relay driver.
	ErrDriver = errors.New("relay driver failure")
)

// Driver applies a logical relay set to the hardware. Polarity is the
// driver's concern.
type Driver interface {
	Write(equipment.RelaySet) error
}

// State is the sequencer's externally visible step.
type State int

const (
	StateIdle State = iota
	StateHeaterCooldown
	StatePumpOffSettle
	StateValveMoving
	StatePumpOnSettle
	StateHeaterArm
	StateDone
)

var stateNames = [...]string{
	"IDLE", "HEATER_COOLDOWN", "PUMP_OFF_SETTLE", "VALVE_MOVING", "PUMP_ON_SETTLE", "HEATER_ARM", "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("STATE_%d", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// maxSteps bounds the planner iterations in one Tick.
const maxSteps = 8

// Sequencer is the only writer of relay state. It walks the equipment from
// the configuration it is in to the requested one, one timed step at a time.
// It is not safe for concurrent use; the control loop owns it.
type Sequencer struct {
	driver  Driver
	timings Timings
	log     *logger.Logger

	started   bool
	state     State
	holdUntil time.Time

	target     equipment.Config
	pending    equipment.Config
	hasPending bool
	aborting   bool
	fault      error

	relays      equipment.RelaySet
	valves      equipment.ValveConfig
	armed       equipment.HeaterMode
	demand      bool
	accessories equipment.RelaySet

	heaterOffAt  time.Time
	pumpOffAt    time.Time
	pumpOnAt     time.Time
	valveMovedAt time.Time

	writes uint64
}

func New(driver Driver, timings Timings, log *logger.Logger) (*Sequencer, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrDriver)
	}
	if err := timings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sequencer{driver: driver, timings: timings, log: log}, nil
}

// Request submits a new target. The most recent request wins and is adopted
// at the next step boundary; a running hold is never cut short.
func (s *Sequencer) Request(c equipment.Config) {
	s.pending = c
	s.hasPending = true
}

// Abort drops any pending target and runs the shutdown path from the next
// Tick: heater off, cooldown, pump off, settle, idle. Accessories go off.
func (s *Sequencer) Abort() {
	s.hasPending = false
	s.aborting = true
	s.target = equipment.Off
	s.accessories = 0
	// Holds that protect the equipment while shutting down are kept; any
	// other hold is dropped so the shutdown starts now.
	if s.state != StateHeaterCooldown && s.state != StatePumpOffSettle {
		s.holdUntil = time.Time{}
	}
}

// SetHeaterDemand tells the sequencer whether the setpoint controller wants
// heat. The heater relay follows it only while a heater is armed.
func (s *Sequencer) SetHeaterDemand(on bool) { s.demand = on }

// SetAccessory switches the pool light or spa jets pump. Other relays are
// ignored.
func (s *Sequencer) SetAccessory(r equipment.Relay, on bool) {
	if !equipment.AccessoryRelays.Has(r) {
		return
	}
	if s.aborting && on {
		return
	}
	s.accessories = s.accessories.With(r, on)
}

// Tick advances the sequence as far as the clock allows and then applies
// the heater gate and accessory state. Errors are also recorded as the
// sequencer fault.
//
// Holds are measured on the monotonic clock when now carries a reading, as
// time.Now does, so a wall-clock step cannot shorten a cooldown or settle.
func (s *Sequencer) Tick(now time.Time) error {
	if !s.started {
		if err := s.driver.Write(0); err != nil {
			return s.failDriver(err)
		}
		s.started = true
		s.writes++
		// The pumps may have been running before a restart.
		s.pumpOffAt = now
	}

	for i := 0; i < maxSteps; i++ {
		if now.Before(s.holdUntil) {
			break
		}
		advanced, err := s.step(now)
		if err != nil {
			return s.fail(now, err)
		}
		if !advanced {
			break
		}
	}

	if err := s.trim(now); err != nil {
		return s.fail(now, err)
	}
	return nil
}

// step performs at most one relay change or hold. It reports whether the
// sequence moved.
func (s *Sequencer) step(now time.Time) (bool, error) {
	if s.hasPending && !s.aborting {
		s.target = s.pending
		s.hasPending = false
	}
	t := s.target
	move := s.valvesMustMove(t)
	pump := s.pump()

	// 1. heater off before anything under it changes
	if s.armed != equipment.HeatingNone && (s.armed != t.Heater || move || pump != t.Pump) {
		s.armed = equipment.HeatingNone
		if err := s.commit(now, s.relays&^equipment.HeaterRelays); err != nil {
			return false, err
		}
		s.hold(StateHeaterCooldown, laterOf(now, s.cooldownEnd()))
		s.log.Infow("sequencer_heater_disarmed", "target", t.String(), "hold_until", s.holdUntil)
		return true, nil
	}

	// 2. pump off before a valve move or a pump change
	if pump != equipment.PumpNone && (pump != t.Pump || move) {
		if err := s.commit(now, s.relays&^equipment.PumpRelays); err != nil {
			return false, err
		}
		s.hold(StatePumpOffSettle, now.Add(s.timings.PumpOffSettle))
		s.log.Infow("sequencer_pump_off", "pump", pump.String(), "target", t.String())
		return true, nil
	}

	// 3. move valves once everything upstream is quiet
	if move {
		if until := s.cooldownEnd(); now.Before(until) {
			s.hold(StateHeaterCooldown, until)
			return true, nil
		}
		if until := s.pumpOffEnd(); now.Before(until) {
			s.hold(StatePumpOffSettle, until)
			return true, nil
		}
		if err := s.commit(now, s.relays.ApplyValves(t.Valves)); err != nil {
			return false, err
		}
		s.valves = t.Valves
		s.valveMovedAt = now
		s.hold(StateValveMoving, now.Add(s.timings.ValveSettle))
		s.log.Infow("sequencer_valves_moving", "valves", t.Valves.String(), "hold_until", s.holdUntil)
		return true, nil
	}

	// 4. start the pump on settled valves
	if t.Pump != equipment.PumpNone && pump != t.Pump {
		if until := laterOf(s.valveSettleEnd(), s.pumpOffEnd()); now.Before(until) {
			s.hold(StateValveMoving, until)
			return true, nil
		}
		r, _ := equipment.PumpRelay(t.Pump)
		if err := s.commit(now, (s.relays&^equipment.PumpRelays).With(r, true)); err != nil {
			return false, err
		}
		s.pumpOnAt = now
		s.hold(StatePumpOnSettle, now.Add(s.timings.PumpOnSettle))
		s.log.Infow("sequencer_pump_on", "pump", t.Pump.String())
		return true, nil
	}

	// 5. arm the heater on established flow
	if t.Heater != equipment.HeatingNone && s.armed != t.Heater {
		if until := laterOf(s.valveSettleEnd(), s.pumpOnEnd()); now.Before(until) {
			s.hold(StatePumpOnSettle, until)
			return true, nil
		}
		s.armed = t.Heater
		s.hold(StateHeaterArm, now)
		s.log.Infow("sequencer_heater_armed", "heater", t.Heater.String())
		return true, nil
	}

	return s.finish(), nil
}

// finish settles into DONE or IDLE once nothing is left to do.
func (s *Sequencer) finish() bool {
	next := StateDone
	if s.target == equipment.Off || (s.target.Pump == equipment.PumpNone && s.target.Heater == equipment.HeatingNone) {
		next = StateIdle
	}
	if s.aborting {
		s.aborting = false
		s.log.Infow("sequencer_shutdown_complete")
	}
	s.state = next
	return false
}

// trim applies the heater gate and accessory relays without any hold.
func (s *Sequencer) trim(now time.Time) error {
	next := s.relays&^equipment.AccessoryRelays | s.accessories

	next &^= equipment.HeaterRelays
	if r, ok := equipment.HeaterRelay(s.armed); ok && s.demand && (s.state == StateHeaterArm || s.state == StateDone) {
		next = next.With(r, true)
	}

	if next == s.relays {
		return nil
	}
	return s.commit(now, next)
}

// commit checks the interlocks for a transition from the current relays to
// next, writes next and records when each group changed.
func (s *Sequencer) commit(now time.Time, next equipment.RelaySet) error {
	if next == s.relays {
		return nil
	}
	if err := s.checkInterlocks(now, next); err != nil {
		return err
	}
	if err := s.driver.Write(next); err != nil {
		return fmt.Errorf("%w: %v", ErrDriver, err)
	}
	s.writes++

	prev := s.relays
	s.relays = next
	if prev&equipment.HeaterRelays != 0 && next&equipment.HeaterRelays == 0 {
		s.heaterOffAt = now
	}
	if prev&equipment.PumpRelays != 0 && next&equipment.PumpRelays == 0 {
		s.pumpOffAt = now
	}
	return nil
}

// fail records err as the fault and forces the shutdown path.
func (s *Sequencer) fail(now time.Time, err error) error {
	s.fault = err
	msg := "sequencer_driver_failed"
	if errors.Is(err, ErrTimingViolation) {
		msg = "sequencer_timing_violation"
	}
	s.log.Errorw(msg, "err", err, "state", s.state.String(), "relays", s.relays.String())
	s.hasPending = false
	s.aborting = true
	s.target = equipment.Off
	s.accessories = 0
	s.holdUntil = time.Time{}
	// Drop the heater right away; it is always safe.
	if s.relays&equipment.HeaterRelays != 0 {
		s.armed = equipment.HeatingNone
		if werr := s.commit(now, s.relays&^equipment.HeaterRelays); werr == nil {
			s.hold(StateHeaterCooldown, s.cooldownEnd())
		}
	}
	return err
}

func (s *Sequencer) failDriver(err error) error {
	err = fmt.Errorf("%w: %v", ErrDriver, err)
	s.fault = err
	s.log.Errorw("sequencer_driver_failed", "err", err)
	return err
}

func (s *Sequencer) hold(st State, until time.Time) {
	s.state = st
	s.holdUntil = until
}

func (s *Sequencer) valvesMustMove(t equipment.Config) bool {
	return t.Valves != equipment.ValvesUndefined && t.Valves != s.valves
}

func (s *Sequencer) pump() equipment.PumpStatus {
	switch {
	case s.relays.Has(equipment.RelayPoolPump):
		return equipment.PumpPool
	case s.relays.Has(equipment.RelaySpaPump):
		return equipment.PumpSpa
	}
	return equipment.PumpNone
}

// A zero timestamp means the event never happened, so its hold is satisfied.
func after(at time.Time, d time.Duration) time.Time {
	if at.IsZero() {
		return time.Time{}
	}
	return at.Add(d)
}

func (s *Sequencer) cooldownEnd() time.Time {
	return after(s.heaterOffAt, s.timings.HeaterCooldown)
}
func (s *Sequencer) pumpOffEnd() time.Time { return after(s.pumpOffAt, s.timings.PumpOffSettle) }
func (s *Sequencer) valveSettleEnd() time.Time {
	return after(s.valveMovedAt, s.timings.ValveSettle)
}
func (s *Sequencer) pumpOnEnd() time.Time { return after(s.pumpOnAt, s.timings.PumpOnSettle) }

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// State returns the current step.
func (s *Sequencer) State() State { return s.state }

// Busy reports whether a sequence is in progress.
func (s *Sequencer) Busy() bool {
	return s.hasPending || (s.state != StateIdle && s.state != StateDone)
}

// Relays returns the last relay set written to the driver.
func (s *Sequencer) Relays() equipment.RelaySet { return s.relays }

// Current is the configuration the equipment is actually in.
func (s *Sequencer) Current() equipment.Config {
	return equipment.Config{Valves: s.valves, Pump: s.pump(), Heater: s.armed}
}

// Target is the configuration being driven toward.
func (s *Sequencer) Target() equipment.Config {
	if s.hasPending {
		return s.pending
	}
	return s.target
}

// HeaterArmed reports the heater that may fire on demand.
func (s *Sequencer) HeaterArmed() equipment.HeaterMode { return s.armed }

// HeaterOn reports whether a heater relay is energized.
func (s *Sequencer) HeaterOn() bool { return s.relays&equipment.HeaterRelays != 0 }

// Circulating reports whether a circulation pump runs.
func (s *Sequencer) Circulating() bool { return s.relays&equipment.PumpRelays != 0 }

// HoldRemaining is how long the current step still has to wait.
func (s *Sequencer) HoldRemaining(now time.Time) time.Duration {
	left := s.holdUntil.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Fault returns the last timing or driver error, if any.
func (s *Sequencer) Fault() error { return s.fault }

func (s *Sequencer) ClearFault() { s.fault = nil }

// Writes counts relay writes issued to the driver.
func (s *Sequencer) Writes() uint64 { return s.writes }

// Timings returns the configured holds.
func (s *Sequencer) Timings() Timings { return s.timings }
