package timer

import (
	"fmt"
	"time"

	"controlling_poolspa/internal/equipment"
)

// DailyStart is the once-a-day automatic filter run.
type DailyStart struct {
	Enabled bool
	Hour    int  // 1-12
	PM      bool // false = AM
	Mode    equipment.Mode
}

// DefaultDailyStart filters the pool at 1 AM.
func DefaultDailyStart() DailyStart {
	return DailyStart{Enabled: true, Hour: 1, PM: false, Mode: equipment.ModeFilterPool}
}

func (d DailyStart) Validate() error {
	if !d.Enabled {
		return nil
	}
	if d.Hour < 1 || d.Hour > 12 {
		return fmt.Errorf("%w: daily start hour %d not in 1-12", ErrInvalidDurations, d.Hour)
	}
	if d.Mode != equipment.ModeFilterPool && d.Mode != equipment.ModeFilterSpa {
		return fmt.Errorf("%w: daily start mode %s is not a filter mode", ErrInvalidDurations, d.Mode)
	}
	return nil
}

// hour24 converts the 12-hour setting to 0-23.
func (d DailyStart) hour24() int {
	h := d.Hour % 12
	if d.PM {
		h += 12
	}
	return h
}

func (d DailyStart) String() string {
	ampm := "AM"
	if d.PM {
		ampm = "PM"
	}
	return fmt.Sprintf("%02d %s", d.Hour, ampm)
}

// Daily returns the configured daily start.
func (s *Scheduler) Daily() DailyStart { return s.daily }

// ScheduledStart reports whether the daily filter run should start now. It
// fires at most once per calendar day, during the configured hour, and only
// when no mode is active; a busy system is retried on later polls within the
// same hour.
func (s *Scheduler) ScheduledStart(now time.Time, modeActive bool) (equipment.Mode, bool) {
	if !s.daily.Enabled || now.Hour() != s.daily.hour24() {
		return equipment.ModeIdle, false
	}
	y, mon, d := now.Date()
	day := y*10000 + int(mon)*100 + d
	if day == s.lastStart || modeActive {
		return equipment.ModeIdle, false
	}
	s.lastStart = day
	return s.daily.Mode, true
}
