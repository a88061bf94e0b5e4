package models

import "time"

// Event types written to the event log.
const (
	EventModeChange  = "MODE_CHANGE"
	EventRejected    = "REJECTED"
	EventAccessory   = "ACCESSORY"
	EventSetpoint    = "SETPOINT"
	EventTimeout     = "TIMEOUT"
	EventSchedule    = "SCHEDULE"
	EventStop        = "STOP"
	EventSensorFault = "SENSOR_FAULT"
	EventFault       = "FAULT"
)

// PoolEvent is a single log entry.
type PoolEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Mode        string    `json:"mode"`        // mode after the event
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
