package control

import (
	"fmt"
	"time"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/sequencer"
	"controlling_poolspa/internal/setpoint"
	"controlling_poolspa/internal/timer"
)

// Sources of a request, as written to the event log.
const (
	SourcePanel    = "panel"
	SourceSchedule = "schedule"
	SourceTimer    = "timer"
	SourceShutdown = "shutdown"
)

// Machine is the mode state machine. It turns button edges, encoder ticks
// and timer expiries into sequencer requests and accessory switches.
type Machine struct {
	table  equipment.ModeTable
	seq    *sequencer.Sequencer
	timers *timer.Scheduler
	temps  *setpoint.Controller
	sink   Sink
	log    *logger.Logger

	mode  equipment.Mode
	light bool
	jets  bool
	page  Page
}

func newMachine(table equipment.ModeTable, seq *sequencer.Sequencer, timers *timer.Scheduler,
	temps *setpoint.Controller, sink Sink, log *logger.Logger) *Machine {
	return &Machine{table: table, seq: seq, timers: timers, temps: temps, sink: sink, log: log}
}

func (m *Machine) Mode() equipment.Mode { return m.mode }
func (m *Machine) Light() bool          { return m.light }
func (m *Machine) Jets() bool           { return m.jets }
func (m *Machine) Page() Page           { return m.page }

// Button handles one debounced press.
func (m *Machine) Button(now time.Time, b equipment.Button, source string) {
	switch b {
	case equipment.ButtonHeatSpa:
		m.modeButton(now, b, equipment.ModeHeatSpa, source)
	case equipment.ButtonHeatPool:
		m.modeButton(now, b, equipment.ModeHeatPool, source)
	case equipment.ButtonFilterSpa:
		m.modeButton(now, b, equipment.ModeFilterSpa, source)
	case equipment.ButtonFilterPool:
		m.modeButton(now, b, equipment.ModeFilterPool, source)
	case equipment.ButtonSpaWaterLevel:
		m.waterLevel(now, source)
	case equipment.ButtonPoolLight:
		m.setAccessory(now, timer.TimerPoolLight, !m.light, source)
	case equipment.ButtonSpaJets:
		m.setAccessory(now, timer.TimerSpaJets, !m.jets, source)
	case equipment.ButtonMenu:
		m.page = m.page.next()
	}
}

// modeButton enters target from IDLE, leaves it when it is the active mode
// and rejects it while another mode runs.
func (m *Machine) modeButton(now time.Time, b equipment.Button, target equipment.Mode, source string) {
	switch m.mode {
	case equipment.ModeIdle:
		m.enter(now, target, models.EventModeChange, fmt.Sprintf("%s started (%s)", target, source))
	case target:
		m.enter(now, equipment.ModeIdle, models.EventModeChange, fmt.Sprintf("%s stopped (%s)", target, source))
	default:
		m.reject(now, b, source)
	}
}

// waterLevel cycles IDLE -> FILL_SPA -> EMPTY_SPA -> IDLE.
func (m *Machine) waterLevel(now time.Time, source string) {
	var next equipment.Mode
	switch m.mode {
	case equipment.ModeIdle:
		next = equipment.ModeFillSpa
	case equipment.ModeFillSpa:
		next = equipment.ModeEmptySpa
	case equipment.ModeEmptySpa:
		next = equipment.ModeIdle
	default:
		m.reject(now, equipment.ButtonSpaWaterLevel, source)
		return
	}
	m.enter(now, next, models.EventModeChange, fmt.Sprintf("water level: %s -> %s (%s)", m.mode, next, source))
}

func (m *Machine) reject(now time.Time, b equipment.Button, source string) {
	m.log.Infow("mode_rejected", "button", b.String(), "mode", m.mode.String(), "source", source)
	m.emit(now, models.EventRejected, fmt.Sprintf("%s ignored: %s active", b, m.mode),
		map[string]any{"button": b.String(), "source": source})
}

func (m *Machine) setAccessory(now time.Time, id timer.ID, on bool, source string) {
	var relay equipment.Relay
	switch id {
	case timer.TimerPoolLight:
		relay = equipment.RelayPoolLight
		m.light = on
	case timer.TimerSpaJets:
		relay = equipment.RelaySpaJetsPump
		m.jets = on
	default:
		return
	}
	m.seq.SetAccessory(relay, on)
	if on {
		m.timers.StartAccessory(now, id)
	} else {
		m.timers.Stop(id)
	}
	state := "off"
	if on {
		state = "on"
	}
	m.log.Infow("accessory_switched", "relay", relay.String(), "on", on, "source", source)
	m.emit(now, models.EventAccessory, fmt.Sprintf("%s %s (%s)", relay, state, source),
		map[string]any{"relay": relay.String(), "on": on})
}

// Encoder applies detent ticks to the active heat setpoint.
func (m *Machine) Encoder(now time.Time, delta int, source string) {
	v, ok := m.temps.Adjust(m.mode, delta)
	if !ok {
		return
	}
	m.emit(now, models.EventSetpoint, fmt.Sprintf("%s setpoint %dF (%s)", m.mode, v, source),
		map[string]any{"setpoint_f": v, "delta": delta})
	m.sink.Settings(models.Settings{PoolSetpointF: m.temps.Pool(), SpaSetpointF: m.temps.Spa(), UpdatedAt: now})
}

// Expired handles a countdown that ran out.
func (m *Machine) Expired(now time.Time, e timer.Expiry) {
	switch e.Timer {
	case timer.TimerMode:
		if m.mode != e.Mode {
			return
		}
		m.enter(now, equipment.ModeIdle, models.EventTimeout,
			fmt.Sprintf("%s timed out after %s", e.Mode, m.timers.Duration(e.Mode)))
	case timer.TimerPoolLight, timer.TimerSpaJets:
		m.setAccessory(now, e.Timer, false, SourceTimer)
	}
}

// Scheduled starts the daily filter run when the system is idle.
func (m *Machine) Scheduled(now time.Time, mode equipment.Mode) bool {
	if m.mode != equipment.ModeIdle {
		return false
	}
	m.enter(now, mode, models.EventSchedule, fmt.Sprintf("%s started (%s)", mode, SourceSchedule))
	return true
}

// Stop aborts everything: mode IDLE, accessories off, timers stopped and
// the sequencer on its shutdown path.
func (m *Machine) Stop(now time.Time, source string) {
	prev := m.mode
	m.mode = equipment.ModeIdle
	m.light, m.jets = false, false
	m.timers.StopAll()
	m.seq.Abort()
	m.log.Infow("stop_requested", "from", prev.String(), "source", source)
	m.emit(now, models.EventStop, fmt.Sprintf("stop from %s, %s -> IDLE (%s)", prev, equipment.ModeIdle, source),
		map[string]any{"from": prev.String()})
}

// Fault returns to IDLE after the sequencer refused a write or the driver
// failed. The sequencer is already on its shutdown path.
func (m *Machine) Fault(now time.Time, err error) {
	prev := m.mode
	m.mode = equipment.ModeIdle
	m.light, m.jets = false, false
	m.timers.StopAll()
	m.seq.Abort()
	m.log.Errorw("sequencer_fault", "err", err, "from", prev.String())
	m.emit(now, models.EventFault, fmt.Sprintf("fault in %s: %v", prev, err),
		map[string]any{"from": prev.String(), "error": err.Error()})
}

// SensorFault records the start of a sensor fault episode.
func (m *Machine) SensorFault(now time.Time, err error) {
	m.emit(now, models.EventSensorFault, fmt.Sprintf("sensor fault, heater demand off: %v", err), nil)
}

// syncAccessories re-asserts the accessory switches; the sequencer refuses
// them while it shuts down.
func (m *Machine) syncAccessories() {
	m.seq.SetAccessory(equipment.RelayPoolLight, m.light)
	m.seq.SetAccessory(equipment.RelaySpaJetsPump, m.jets)
}

func (m *Machine) enter(now time.Time, next equipment.Mode, typ, desc string) {
	prev := m.mode
	m.mode = next
	m.timers.StartMode(now, next)
	m.seq.Request(m.table.Lookup(next))
	if next != equipment.ModeIdle {
		m.seq.ClearFault()
	}
	m.log.Infow("mode_changed", "from", prev.String(), "to", next.String(), "reason", typ)
	m.emit(now, typ, desc, map[string]any{"from": prev.String(), "to": next.String()})
}

func (m *Machine) emit(now time.Time, typ, desc string, meta map[string]any) {
	ev := models.PoolEvent{
		OccurredAt:  now,
		Type:        typ,
		Mode:        m.mode.String(),
		Description: desc,
	}
	if meta != nil {
		ev.Metadata = meta
	}
	m.sink.Event(ev)
}

// heatRequested reports a heat mode whose heater is not armed yet.
func (m *Machine) heatRequested() bool {
	return m.table.Lookup(m.mode).Heater != equipment.HeatingNone
}

// LEDs computes the panel LED mask: one bit per lit button plus exactly one
// temperature colour while a heat mode is active (red firing, blue armed,
// green still sequencing).
func (m *Machine) LEDs() uint16 {
	var mask uint16
	switch m.mode {
	case equipment.ModeHeatSpa:
		mask |= equipment.ButtonLED(equipment.ButtonHeatSpa)
	case equipment.ModeHeatPool:
		mask |= equipment.ButtonLED(equipment.ButtonHeatPool)
	case equipment.ModeFilterSpa:
		mask |= equipment.ButtonLED(equipment.ButtonFilterSpa)
	case equipment.ModeFilterPool:
		mask |= equipment.ButtonLED(equipment.ButtonFilterPool)
	case equipment.ModeFillSpa, equipment.ModeEmptySpa:
		mask |= equipment.ButtonLED(equipment.ButtonSpaWaterLevel)
	}
	if m.light {
		mask |= equipment.ButtonLED(equipment.ButtonPoolLight)
	}
	if m.jets {
		mask |= equipment.ButtonLED(equipment.ButtonSpaJets)
	}
	if m.page != PageStatus {
		mask |= equipment.ButtonLED(equipment.ButtonMenu)
	}

	switch {
	case m.seq.HeaterOn():
		mask |= equipment.LEDRed
	case m.seq.HeaterArmed() != equipment.HeatingNone:
		mask |= equipment.LEDBlue
	case m.heatRequested():
		mask |= equipment.LEDGreen
	}
	return mask
}
