package models

import "time"

// PoolState is the immutable snapshot published by the control loop once per
// tick. Readers must treat it as read-only.
type PoolState struct {
	Mode          string    `json:"mode"`            // IDLE | HEAT_SPA | HEAT_POOL | FILL_SPA | EMPTY_SPA | FILTER_POOL | FILTER_SPA
	Sequencer     string    `json:"sequencer_state"` // IDLE | HEATER_COOLDOWN | ... | DONE
	Valves        string    `json:"valves"`
	Pump          string    `json:"pump"`
	HeaterArmed   string    `json:"heater_armed"`
	HeaterOn      bool      `json:"heater_on"`
	Relays        []string  `json:"relays"` // names of energized relays
	RelayMask     uint16    `json:"relay_mask"`
	LEDMask       uint16    `json:"led_mask"`
	PoolLight     bool      `json:"pool_light"`
	SpaJets       bool      `json:"spa_jets"`
	WaterTempF    *float64  `json:"water_temp_f,omitempty"` // nil while the sensor is faulted
	PoolSetF      int       `json:"pool_setpoint_f"`
	SpaSetF       int       `json:"spa_setpoint_f"`
	HeatDemand    bool      `json:"heat_demand"`
	RemainingSec  int       `json:"remaining_seconds,omitempty"` // mode timeout
	LightSec      int       `json:"light_remaining_seconds,omitempty"`
	JetsSec       int       `json:"jets_remaining_seconds,omitempty"`
	HoldSec       int       `json:"hold_remaining_seconds,omitempty"` // current sequencer step
	ErrorCodes    []string  `json:"error_codes,omitempty"`            // SENSOR_FAULT, TIMING_VIOLATION, DRIVER_FAULT
	Display       [4]string `json:"display"`
	DisplayPage   string    `json:"display_page"`
	DroppedEvents uint64    `json:"dropped_events,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"` // last visible change
}
