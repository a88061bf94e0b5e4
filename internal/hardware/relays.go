package hardware

import (
	"fmt"

	"controlling_poolspa/internal/equipment"
)

// valueSetter is the part of *gpiocdev.Lines the relay bank uses.
type valueSetter interface {
	SetValues([]int) error
}

// Relays drives the ten relay outputs. Bit n of a RelaySet goes to the n-th
// configured pin; onLevel is the line level that energizes a relay.
type Relays struct {
	lines   valueSetter
	onLevel int
	vals    [equipment.NumRelays]int
}

func newRelays(lines valueSetter, onLevel int) *Relays {
	return &Relays{lines: lines, onLevel: onLevel}
}

// Write implements sequencer.Driver.
func (r *Relays) Write(set equipment.RelaySet) error {
	levels(set, r.onLevel, r.vals[:])
	if err := r.lines.SetValues(r.vals[:]); err != nil {
		return fmt.Errorf("set relay lines %s: %w", set, err)
	}
	return nil
}

// levels fills dst with the line level for each relay.
func levels(set equipment.RelaySet, onLevel int, dst []int) {
	off := 1 - onLevel
	for i := range dst {
		if set.Has(equipment.Relay(i)) {
			dst[i] = onLevel
		} else {
			dst[i] = off
		}
	}
}

// offLevels is the all-off output used when the lines are first requested.
func offLevels(onLevel int) []int {
	vals := make([]int, equipment.NumRelays)
	levels(0, onLevel, vals)
	return vals
}
