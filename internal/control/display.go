package control

import (
	"fmt"
	"math"
	"strings"
	"time"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/timer"
)

// Page is the MENU page shown on the character display.
type Page uint8

const (
	PageStatus Page = iota
	PageSchedule
	PageSystem

	numPages
)

var pageNames = [numPages]string{"STATUS", "SCHEDULE", "SYSTEM"}

func (p Page) String() string {
	if p >= numPages {
		return fmt.Sprintf("PAGE_%d", uint8(p))
	}
	return pageNames[p]
}

func (p Page) next() Page { return (p + 1) % numPages }

// Display geometry of the 4x20 character LCD.
const (
	DisplayRows = 4
	DisplayCols = 20
)

// Display is the character buffer, space padded.
type Display [DisplayRows][DisplayCols]byte

func (d *Display) clear() {
	for r := range d {
		for c := range d[r] {
			d[r][c] = ' '
		}
	}
}

// line writes a formatted row, truncated to the display width.
func (d *Display) line(row int, format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	n := copy(d[row][:], s)
	for c := n; c < DisplayCols; c++ {
		d[row][c] = ' '
	}
}

// Lines returns the rows as strings.
func (d *Display) Lines() [DisplayRows]string {
	var out [DisplayRows]string
	for r := range d {
		out[r] = strings.TrimRight(string(d[r][:]), " ")
	}
	return out
}

// clock formats a countdown as h:mm:ss or m:ss.
func clock(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	s := int(d.Round(time.Second) / time.Second)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// view is what the renderer needs from one tick.
type view struct {
	now       time.Time
	reading   float64
	faults    []string
	dropped   uint64
	relays    equipment.RelaySet
	seqState  string
	hold      time.Duration
	remaining time.Duration
}

func (m *Machine) render(d *Display, v view) {
	d.clear()
	switch m.page {
	case PageSchedule:
		m.renderSchedule(d)
	case PageSystem:
		m.renderSystem(d, v)
	default:
		m.renderStatus(d, v)
	}
}

func (m *Machine) renderStatus(d *Display, v view) {
	d.line(0, "%-11s%9s", m.mode, clock(v.remaining))

	water := "--"
	if !math.IsNaN(v.reading) {
		water = fmt.Sprintf("%.0f", v.reading)
	}
	if sp := m.temps.Target(m.mode); sp > 0 {
		d.line(1, "Water %sF  Set %dF", water, sp)
	} else {
		d.line(1, "Water %sF", water)
	}

	if v.hold > 0 {
		d.line(2, "%-15s%5s", v.seqState, clock(v.hold))
	} else {
		d.line(2, "%s", v.seqState)
	}

	if len(v.faults) > 0 {
		d.line(3, "FAULT %s", v.faults[0])
		return
	}
	d.line(3, "Light %-3s Jets %s", onOff(m.light), onOff(m.jets))
}

func (m *Machine) renderSchedule(d *Display) {
	daily := m.timers.Daily()
	d.line(0, "Daily filter %s", onOff(daily.Enabled))
	d.line(1, "Start %s", daily)
	d.line(2, "%s %s", daily.Mode, m.timers.Duration(daily.Mode))
	d.line(3, "Pool %dF  Spa %dF", m.temps.Pool(), m.temps.Spa())
}

func (m *Machine) renderSystem(d *Display, v view) {
	d.line(0, "Relays %03X", uint16(v.relays))
	if len(v.faults) > 0 {
		d.line(1, "Fault %s", strings.Join(v.faults, ","))
	} else {
		d.line(1, "No faults")
	}
	d.line(2, "Dropped %d", v.dropped)
	d.line(3, "%s", v.now.Format("15:04:05"))
}

// accessoryRemaining returns the countdowns shown on the status page.
func (m *Machine) accessoryRemaining(now time.Time) (light, jets time.Duration) {
	return m.timers.Remaining(now, timer.TimerPoolLight), m.timers.Remaining(now, timer.TimerSpaJets)
}
