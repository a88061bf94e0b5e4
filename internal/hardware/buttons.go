package hardware

import (
	"fmt"

	"controlling_poolspa/internal/equipment"
)

type valueGetter interface {
	Values([]int) error
}

// Buttons samples the eight panel buttons. activeLevel is the line level of
// a pressed button; the lines are pulled up, so 0 for switches to ground.
type Buttons struct {
	lines       valueGetter
	activeLevel int
	vals        [equipment.NumButtons]int
}

func newButtons(lines valueGetter, activeLevel int) *Buttons {
	return &Buttons{lines: lines, activeLevel: activeLevel}
}

// ReadButtons returns one bit per held button.
func (b *Buttons) ReadButtons() (uint8, error) {
	if err := b.lines.Values(b.vals[:]); err != nil {
		return 0, fmt.Errorf("read button lines: %w", err)
	}
	return pack(b.vals[:], b.activeLevel), nil
}

func pack(vals []int, active int) uint8 {
	var raw uint8
	for i, v := range vals {
		if v == active {
			raw |= 1 << i
		}
	}
	return raw
}
