package sequencer

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTimings = errors.New("invalid sequencer timings")

// Timings are the hold durations between relay steps.
type Timings struct {
	HeaterCooldown time.Duration
	PumpOffSettle  time.Duration
	ValveSettle    time.Duration
	PumpOnSettle   time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		HeaterCooldown: 60 * time.Second,
		PumpOffSettle:  3 * time.Second,
		ValveSettle:    45 * time.Second,
		PumpOnSettle:   3 * time.Second,
	}
}

// DebugTimings shortens the long holds for bench testing.
func DebugTimings() Timings {
	t := DefaultTimings()
	t.HeaterCooldown = 5 * time.Second
	t.ValveSettle = 5 * time.Second
	return t
}

func (t Timings) Validate() error {
	if t.HeaterCooldown <= 0 || t.PumpOffSettle <= 0 || t.ValveSettle <= 0 || t.PumpOnSettle <= 0 {
		return fmt.Errorf("%w: all delays must be positive: %+v", ErrInvalidTimings, t)
	}
	return nil
}

// Worst case from a standing start to a running pump.
func (t Timings) StartupBound() time.Duration {
	return t.PumpOffSettle + t.ValveSettle + t.PumpOnSettle
}
