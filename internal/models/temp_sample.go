package models

import "time"

// TempSample is one minute of temperature history.
type TempSample struct {
	TakenAt   time.Time `json:"taken_at"`
	WaterF    float64   `json:"water_f"`
	SetpointF int       `json:"setpoint_f,omitempty"`
	Mode      string    `json:"mode"`
	HeaterOn  bool      `json:"heater_on"`
}
