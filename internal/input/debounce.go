package input

import (
	"time"

	"controlling_poolspa/internal/equipment"
)

// DefaultDebounce is how long a raw level must hold before it is believed.
const DefaultDebounce = 50 * time.Millisecond

type lineState struct {
	raw       bool
	stable    bool
	changedAt time.Time
}

// Debouncer filters switch bounce on the eight button lines. Bit n of a raw
// sample is button n, 1 meaning pressed.
type Debouncer struct {
	window time.Duration
	lines  [equipment.NumButtons]lineState
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window}
}

// Update feeds one raw sample and returns the mask of buttons whose
// debounced state went from released to pressed.
func (d *Debouncer) Update(now time.Time, raw uint8) uint8 {
	var pressed uint8
	for i := range d.lines {
		l := &d.lines[i]
		level := raw&(1<<i) != 0
		if level != l.raw {
			l.raw = level
			l.changedAt = now
			continue
		}
		if level == l.stable || now.Sub(l.changedAt) < d.window {
			continue
		}
		l.stable = level
		if level {
			pressed |= 1 << i
		}
	}
	return pressed
}

// Pressed reports the debounced state of b.
func (d *Debouncer) Pressed(b equipment.Button) bool {
	if !b.Valid() {
		return false
	}
	return d.lines[b].stable
}
