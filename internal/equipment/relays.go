package equipment

import (
	"fmt"
	"strings"
)

// Relay identifies one of the ten physical relays.
type Relay uint8

const (
	RelayPoolPump Relay = iota
	RelaySpaPump
	RelaySpaJetsPump
	RelayHeatPool
	RelayHeatSpa
	RelayPoolValve
	RelaySpaValve
	RelayHeaterValve
	RelayPoolLight
	RelaySpare

	NumRelays = int(RelaySpare) + 1
)

var relayNames = [NumRelays]string{
	"POOL_PUMP", "SPA_PUMP", "SPA_JETS_PUMP", "HEAT_POOL", "HEAT_SPA",
	"POOL_VALVE", "SPA_VALVE", "HEATER_VALVE", "POOL_LIGHT", "SPARE",
}

func (r Relay) String() string {
	if int(r) >= NumRelays {
		return fmt.Sprintf("RELAY_%d", int(r))
	}
	return relayNames[r]
}

// RelaySet is the logical on/off state of all relays, one bit per Relay.
// Physical polarity is applied by the driver, not here.
type RelaySet uint16

// Relay groups used by the sequencer's guards.
const (
	PumpRelays      = RelaySet(1<<RelayPoolPump | 1<<RelaySpaPump)
	HeaterRelays    = RelaySet(1<<RelayHeatPool | 1<<RelayHeatSpa)
	ValveRelays     = RelaySet(1<<RelayPoolValve | 1<<RelaySpaValve | 1<<RelayHeaterValve)
	AccessoryRelays = RelaySet(1<<RelaySpaJetsPump | 1<<RelayPoolLight)

	allRelays = RelaySet(1<<NumRelays - 1)
)

func (s RelaySet) Has(r Relay) bool { return s&(1<<r) != 0 }

// With returns s with relay r set to on.
func (s RelaySet) With(r Relay, on bool) RelaySet {
	if on {
		return s | 1<<r
	}
	return s &^ (1 << r)
}

// Changed returns the relays whose state differs between s and o.
func (s RelaySet) Changed(o RelaySet) RelaySet { return (s ^ o) & allRelays }

func (s RelaySet) String() string {
	var on []string
	for r := Relay(0); int(r) < NumRelays; r++ {
		if s.Has(r) {
			on = append(on, r.String())
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ",")
}

// Valve "left" means the water block sits on the left seen from the input
// port; left is the energized position.
const (
	valveLeft  = true
	valveRight = false
)

type valvePositions struct{ pool, spa, heater bool }

var valveTable = map[ValveConfig]valvePositions{
	ValvesHeatSpa:  {pool: valveLeft, spa: valveLeft, heater: valveLeft},
	ValvesHeatPool: {pool: valveRight, spa: valveRight, heater: valveLeft},
	ValvesFillSpa:  {pool: valveRight, spa: valveLeft, heater: valveRight},
	ValvesEmptySpa: {pool: valveLeft, spa: valveRight, heater: valveRight},
}

// ApplyValves returns s with the valve relays set for v. Undefined leaves
// the valve relays untouched.
func (s RelaySet) ApplyValves(v ValveConfig) RelaySet {
	p, ok := valveTable[v]
	if !ok {
		return s
	}
	return s.With(RelayPoolValve, p.pool).
		With(RelaySpaValve, p.spa).
		With(RelayHeaterValve, p.heater)
}

// PumpRelay maps a pump status to its relay.
func PumpRelay(p PumpStatus) (Relay, bool) {
	switch p {
	case PumpPool:
		return RelayPoolPump, true
	case PumpSpa:
		return RelaySpaPump, true
	}
	return 0, false
}

// HeaterRelay maps a heater mode to its relay.
func HeaterRelay(h HeaterMode) (Relay, bool) {
	switch h {
	case HeatingPool:
		return RelayHeatPool, true
	case HeatingSpa:
		return RelayHeatSpa, true
	}
	return 0, false
}
