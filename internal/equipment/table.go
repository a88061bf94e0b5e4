package equipment

import (
	"errors"
	"fmt"
)

var ErrIncompleteTable = errors.New("mode table incomplete")

// ModeTable maps every Mode to exactly one equipment configuration.
type ModeTable map[Mode]Config

// DefaultModeTable is the plumbing of the installed system.
func DefaultModeTable() ModeTable {
	return ModeTable{
		ModeIdle:       Off,
		ModeHeatSpa:    {Valves: ValvesHeatSpa, Pump: PumpSpa, Heater: HeatingSpa},
		ModeHeatPool:   {Valves: ValvesHeatPool, Pump: PumpPool, Heater: HeatingPool},
		ModeFillSpa:    {Valves: ValvesFillSpa, Pump: PumpPool, Heater: HeatingNone},
		ModeEmptySpa:   {Valves: ValvesEmptySpa, Pump: PumpSpa, Heater: HeatingNone},
		ModeFilterPool: {Valves: ValvesHeatPool, Pump: PumpPool, Heater: HeatingNone},
		ModeFilterSpa:  {Valves: ValvesHeatSpa, Pump: PumpSpa, Heater: HeatingNone},
	}
}

// Validate checks that the table covers every mode, that IDLE runs nothing,
// that a pump always has a defined valve path and a heater always has a pump.
func (t ModeTable) Validate() error {
	for m := Mode(0); int(m) < NumModes; m++ {
		cfg, ok := t[m]
		if !ok {
			return fmt.Errorf("%w: no entry for %s", ErrIncompleteTable, m)
		}
		if cfg.Heater != HeatingNone && (cfg.Pump == PumpNone || cfg.Valves == ValvesUndefined) {
			return fmt.Errorf("%w: %s heats without flow", ErrIncompleteTable, m)
		}
		if cfg.Pump != PumpNone && cfg.Valves == ValvesUndefined {
			return fmt.Errorf("%w: %s pumps against unknown valves", ErrIncompleteTable, m)
		}
	}
	if len(t) != NumModes {
		return fmt.Errorf("%w: %d entries for %d modes", ErrIncompleteTable, len(t), NumModes)
	}
	if t[ModeIdle] != Off {
		return fmt.Errorf("%w: IDLE must map to all off", ErrIncompleteTable)
	}
	return nil
}

// Lookup returns the configuration for m.
func (t ModeTable) Lookup(m Mode) Config {
	return t[m]
}
