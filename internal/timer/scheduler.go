package timer

import (
	"errors"
	"fmt"
	"time"

	"controlling_poolspa/internal/equipment"
)

// ID names one independent countdown.
type ID uint8

const (
	TimerMode ID = iota
	TimerPoolLight
	TimerSpaJets

	numTimers = int(TimerSpaJets) + 1
)

func (id ID) String() string {
	switch id {
	case TimerMode:
		return "mode"
	case TimerPoolLight:
		return "pool_light"
	case TimerSpaJets:
		return "spa_jets"
	default:
		return fmt.Sprintf("timer_%d", uint8(id))
	}
}

var ErrInvalidDurations = errors.New("invalid timeout table")

// Durations holds how long each mode and accessory may run.
type Durations struct {
	Mode      map[equipment.Mode]time.Duration
	PoolLight time.Duration
	SpaJets   time.Duration
}

// DefaultDurations are the factory timeouts.
func DefaultDurations() Durations {
	return Durations{
		Mode: map[equipment.Mode]time.Duration{
			equipment.ModeHeatSpa:    180 * time.Minute,
			equipment.ModeHeatPool:   1440 * time.Minute,
			equipment.ModeFillSpa:    5 * time.Minute,
			equipment.ModeEmptySpa:   5 * time.Minute,
			equipment.ModeFilterPool: 20 * time.Minute,
			equipment.ModeFilterSpa:  10 * time.Minute,
		},
		PoolLight: 180 * time.Minute,
		SpaJets:   60 * time.Minute,
	}
}

// Validate requires a positive timeout for every non-idle mode and accessory.
func (d Durations) Validate() error {
	for m := equipment.Mode(0); int(m) < equipment.NumModes; m++ {
		if m == equipment.ModeIdle {
			continue
		}
		if d.Mode[m] <= 0 {
			return fmt.Errorf("%w: no timeout for %s", ErrInvalidDurations, m)
		}
	}
	if d.PoolLight <= 0 || d.SpaJets <= 0 {
		return fmt.Errorf("%w: accessory timeouts must be positive", ErrInvalidDurations)
	}
	return nil
}

// Expiry is a countdown that ran out.
type Expiry struct {
	Timer ID
	Mode  equipment.Mode
}

type countdown struct {
	active   bool
	mode     equipment.Mode
	deadline time.Time
}

// Scheduler keeps the mode and accessory countdowns. Deadlines are stored as
// wall-clock values and compared as calendar times, so a clock set or a long
// uptime never causes a wraparound.
type Scheduler struct {
	durations Durations
	timers    [numTimers]countdown
	expired   [numTimers]Expiry

	daily     DailyStart
	lastStart int // yyyymmdd of the last scheduled start
}

func NewScheduler(d Durations, daily DailyStart) (*Scheduler, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := daily.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{durations: d, daily: daily}, nil
}

func wall(t time.Time) time.Time { return t.Round(0) }

// StartMode arms the mode countdown for m, replacing any running one.
// IDLE stops it.
func (s *Scheduler) StartMode(now time.Time, m equipment.Mode) {
	if m == equipment.ModeIdle {
		s.Stop(TimerMode)
		return
	}
	s.timers[TimerMode] = countdown{active: true, mode: m, deadline: wall(now).Add(s.durations.Mode[m])}
}

// StartAccessory arms the pool light or spa jets countdown.
func (s *Scheduler) StartAccessory(now time.Time, id ID) {
	var d time.Duration
	switch id {
	case TimerPoolLight:
		d = s.durations.PoolLight
	case TimerSpaJets:
		d = s.durations.SpaJets
	default:
		return
	}
	s.timers[id] = countdown{active: true, deadline: wall(now).Add(d)}
}

func (s *Scheduler) Stop(id ID) {
	if int(id) < numTimers {
		s.timers[id] = countdown{}
	}
}

func (s *Scheduler) StopAll() {
	for i := range s.timers {
		s.timers[i] = countdown{}
	}
}

func (s *Scheduler) Active(id ID) bool {
	return int(id) < numTimers && s.timers[id].active
}

// Remaining returns the time left on id, zero when it is not running.
func (s *Scheduler) Remaining(now time.Time, id ID) time.Duration {
	if int(id) >= numTimers || !s.timers[id].active {
		return 0
	}
	left := s.timers[id].deadline.Sub(wall(now))
	if left < 0 {
		return 0
	}
	return left
}

// Duration returns the configured timeout for m.
func (s *Scheduler) Duration(m equipment.Mode) time.Duration { return s.durations.Mode[m] }

// Poll returns the countdowns that expired at or before now and disarms them.
// The slice aliases an internal buffer valid until the next call.
func (s *Scheduler) Poll(now time.Time) []Expiry {
	n := 0
	w := wall(now)
	for i := range s.timers {
		c := &s.timers[i]
		if !c.active || w.Before(c.deadline) {
			continue
		}
		s.expired[n] = Expiry{Timer: ID(i), Mode: c.mode}
		n++
		*c = countdown{}
	}
	return s.expired[:n]
}
