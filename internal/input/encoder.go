package input

import "sync/atomic"

// DefaultStepsPerDetent is the number of valid quadrature transitions per
// mechanical click of a standard encoder.
const DefaultStepsPerDetent = 4

// quadrature maps (previous<<2 | current) to a step direction. Entries of 0
// are either no change or a both-bits jump, which is noise.
var quadrature = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// Encoder decodes a 2-bit gray-code rotary encoder. Feed is called from the
// sampling context (GPIO edge handler or a fast poller, at least 1 kHz since
// missed samples lose transitions); Take is called from the control loop.
type Encoder struct {
	steps int8
	prev  uint8
	acc   int8

	detents atomic.Int32
}

func NewEncoder(stepsPerDetent int) *Encoder {
	if stepsPerDetent <= 0 || stepsPerDetent > 8 {
		stepsPerDetent = DefaultStepsPerDetent
	}
	return &Encoder{steps: int8(stepsPerDetent)}
}

// Reset sets the starting A/B level without emitting a step.
func (e *Encoder) Reset(ab uint8) {
	e.prev = ab & 0b11
	e.acc = 0
}

// Feed decodes one A/B sample (bit 1 = A, bit 0 = B).
func (e *Encoder) Feed(ab uint8) {
	ab &= 0b11
	dir := quadrature[e.prev<<2|ab]
	e.prev = ab
	if dir == 0 {
		return
	}
	// a reversal mid-detent restarts the count in the new direction
	if (dir > 0) != (e.acc > 0) && e.acc != 0 {
		e.acc = 0
	}
	e.acc += dir
	if e.acc >= e.steps {
		e.acc = 0
		e.detents.Add(1)
	} else if e.acc <= -e.steps {
		e.acc = 0
		e.detents.Add(-1)
	}
}

// Take returns the net detents since the previous call.
func (e *Encoder) Take() int {
	return int(e.detents.Swap(0))
}
