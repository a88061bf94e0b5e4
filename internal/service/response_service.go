package service

import "time"

// LogFilter selects event-log entries.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", MODE_CHANGE, REJECTED, ACCESSORY, SETPOINT, TIMEOUT, SCHEDULE, STOP, SENSOR_FAULT, FAULT
	Limit int       // newest N; zero means the default
}

// HistoryFilter selects temperature samples.
type HistoryFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Default and maximum page sizes for list queries.
const (
	DefaultListLimit = 500
	MaxListLimit     = 5000
)

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	if n > MaxListLimit {
		return MaxListLimit
	}
	return n
}
