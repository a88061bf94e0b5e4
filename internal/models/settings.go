package models

import "time"

// Settings are the user-adjustable values that survive a restart.
type Settings struct {
	PoolSetpointF int       `json:"pool_setpoint_f"`
	SpaSetpointF  int       `json:"spa_setpoint_f"`
	UpdatedAt     time.Time `json:"updated_at"`
}
