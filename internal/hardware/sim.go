package hardware

import (
	"sync/atomic"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/logger"
)

// SimRelays stands in for the relay bank when hardware is disabled.
type SimRelays struct {
	log  *logger.Logger
	last atomic.Uint32
}

func NewSimRelays(log *logger.Logger) *SimRelays {
	if log == nil {
		log = logger.Nop()
	}
	return &SimRelays{log: log}
}

func (r *SimRelays) Write(set equipment.RelaySet) error {
	r.last.Store(uint32(set))
	r.log.Debugw("sim_relays_written", "relays", set.String())
	return nil
}

// Last returns the most recent write.
func (r *SimRelays) Last() equipment.RelaySet { return equipment.RelaySet(r.last.Load()) }

// SimLEDs records the LED mask.
type SimLEDs struct {
	mask atomic.Uint32
}

func (l *SimLEDs) WriteLEDs(mask uint16) error {
	l.mask.Store(uint32(mask))
	return nil
}

func (l *SimLEDs) Mask() uint16 { return uint16(l.mask.Load()) }
