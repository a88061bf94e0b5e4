package hardware

import (
	"fmt"

	"controlling_poolspa/internal/equipment"
)

// pin is one output line; *gpiocdev.Line satisfies it.
type pin interface {
	SetValue(int) error
}

// ledBits is the width of the two chained TLC5916 sink drivers.
const ledBits = 16

// LEDs bit-bangs the panel LED mask into the TLC5916 shift registers, most
// significant bit first, then pulses latch.
type LEDs struct {
	data, clock, latch pin
}

func newLEDs(data, clock, latch pin) *LEDs {
	return &LEDs{data: data, clock: clock, latch: latch}
}

// WriteLEDs implements control.LEDWriter.
func (l *LEDs) WriteLEDs(mask uint16) error {
	mask &= 1<<equipment.NumLEDs - 1
	for i := ledBits - 1; i >= 0; i-- {
		if err := l.data.SetValue(int(mask>>i) & 1); err != nil {
			return fmt.Errorf("led data: %w", err)
		}
		if err := pulse(l.clock); err != nil {
			return fmt.Errorf("led clock: %w", err)
		}
	}
	if err := pulse(l.latch); err != nil {
		return fmt.Errorf("led latch: %w", err)
	}
	return nil
}

func pulse(p pin) error {
	if err := p.SetValue(1); err != nil {
		return err
	}
	return p.SetValue(0)
}
