package equipment

import "fmt"

// Mode is the top-level operating state selecting which accessory is being run.
type Mode int

const (
	ModeIdle Mode = iota
	ModeHeatSpa
	ModeHeatPool
	ModeFillSpa
	ModeEmptySpa
	ModeFilterPool
	ModeFilterSpa

	NumModes = int(ModeFilterSpa) + 1
)

var modeNames = [NumModes]string{
	"IDLE", "HEAT_SPA", "HEAT_POOL", "FILL_SPA", "EMPTY_SPA", "FILTER_POOL", "FILTER_SPA",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= NumModes {
		return fmt.Sprintf("MODE_%d", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMode accepts the upper-case names returned by String.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return ModeIdle, fmt.Errorf("unknown mode %q", s)
}

// ValveConfig is the target physical position of the diverter valves.
type ValveConfig int

const (
	ValvesUndefined ValveConfig = iota
	ValvesHeatSpa
	ValvesHeatPool
	ValvesFillSpa
	ValvesEmptySpa
)

func (v ValveConfig) String() string {
	switch v {
	case ValvesUndefined:
		return "UNDEFINED"
	case ValvesHeatSpa:
		return "HEAT_SPA"
	case ValvesHeatPool:
		return "HEAT_POOL"
	case ValvesFillSpa:
		return "FILL_SPA"
	case ValvesEmptySpa:
		return "EMPTY_SPA"
	default:
		return fmt.Sprintf("VALVES_%d", int(v))
	}
}

func (v ValveConfig) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// PumpStatus names the circulation pump that should be running.
type PumpStatus int

const (
	PumpNone PumpStatus = iota
	PumpSpa
	PumpPool
)

func (p PumpStatus) String() string {
	switch p {
	case PumpNone:
		return "NONE"
	case PumpSpa:
		return "SPA"
	case PumpPool:
		return "POOL"
	default:
		return fmt.Sprintf("PUMP_%d", int(p))
	}
}

func (p PumpStatus) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// HeaterMode names the body of water the heater is armed for.
type HeaterMode int

const (
	HeatingNone HeaterMode = iota
	HeatingSpa
	HeatingPool
)

func (h HeaterMode) String() string {
	switch h {
	case HeatingNone:
		return "NONE"
	case HeatingSpa:
		return "SPA"
	case HeatingPool:
		return "POOL"
	default:
		return fmt.Sprintf("HEATING_%d", int(h))
	}
}

func (h HeaterMode) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// Config is one complete equipment configuration: valves, pump and heater.
type Config struct {
	Valves ValveConfig `json:"valves"`
	Pump   PumpStatus  `json:"pump"`
	Heater HeaterMode  `json:"heater"`
}

// Off is the configuration with nothing running and the valves left in place.
var Off = Config{Valves: ValvesUndefined, Pump: PumpNone, Heater: HeatingNone}

func (c Config) String() string {
	return fmt.Sprintf("valves=%s pump=%s heater=%s", c.Valves, c.Pump, c.Heater)
}
