package setpoint

import (
	"errors"
	"fmt"
	"math"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/logger"
)

// ErrSensorFault is reported for an implausible or failed reading.
var ErrSensorFault = errors.New("temperature sensor fault")

// Limits bound the setpoints and the plausible sensor range, all in °F.
type Limits struct {
	Min      int
	MaxPool  int
	MaxSpa   int
	Band     float64
	SensorLo float64
	SensorHi float64
}

func DefaultLimits() Limits {
	return Limits{Min: 60, MaxPool: 92, MaxSpa: 105, Band: 1, SensorLo: 32, SensorHi: 120}
}

func (l Limits) Validate() error {
	if l.Min >= l.MaxPool || l.Min >= l.MaxSpa {
		return fmt.Errorf("setpoint limits inverted: min %d, pool max %d, spa max %d", l.Min, l.MaxPool, l.MaxSpa)
	}
	if l.Band <= 0 {
		return fmt.Errorf("hysteresis band must be positive, got %v", l.Band)
	}
	if l.SensorLo >= l.SensorHi {
		return fmt.Errorf("sensor range inverted: %v..%v", l.SensorLo, l.SensorHi)
	}
	return nil
}

// Controller owns the pool and spa setpoints and decides heater demand.
type Controller struct {
	limits Limits
	log    *logger.Logger

	pool, spa int
	demand    bool
	faulted   bool
	reading   float64
}

// New clamps the initial setpoints into range.
func New(limits Limits, pool, spa int, log *logger.Logger) (*Controller, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Controller{limits: limits, log: log, reading: math.NaN()}
	c.pool = clamp(pool, limits.Min, limits.MaxPool)
	c.spa = clamp(spa, limits.Min, limits.MaxSpa)
	return c, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Adjust moves the setpoint of the active heat mode by delta degrees. It
// returns the new value and whether the mode had a setpoint at all.
func (c *Controller) Adjust(mode equipment.Mode, delta int) (int, bool) {
	switch mode {
	case equipment.ModeHeatPool:
		c.pool = clamp(c.pool+delta, c.limits.Min, c.limits.MaxPool)
		return c.pool, true
	case equipment.ModeHeatSpa:
		c.spa = clamp(c.spa+delta, c.limits.Min, c.limits.MaxSpa)
		return c.spa, true
	}
	c.log.Infow("setpoint_adjust_ignored", "mode", mode.String(), "delta", delta)
	return 0, false
}

// Target returns the setpoint for mode, zero outside a heat mode.
func (c *Controller) Target(mode equipment.Mode) int {
	switch mode {
	case equipment.ModeHeatPool:
		return c.pool
	case equipment.ModeHeatSpa:
		return c.spa
	}
	return 0
}

func (c *Controller) Pool() int { return c.pool }
func (c *Controller) Spa() int  { return c.spa }

// Update feeds one reading and returns the heater demand. A sensor error,
// NaN or out-of-range value forces demand off and returns ErrSensorFault;
// the fault is logged once per episode.
func (c *Controller) Update(mode equipment.Mode, reading float64, sensorErr error) (bool, error) {
	if err := c.plausible(reading, sensorErr); err != nil {
		if !c.faulted {
			c.log.Errorw("sensor_fault", "err", err, "reading", reading)
		}
		c.faulted = true
		c.demand = false
		c.reading = math.NaN()
		return false, err
	}
	if c.faulted {
		c.log.Infow("sensor_recovered", "reading", reading)
		c.faulted = false
	}
	c.reading = reading

	target := c.Target(mode)
	if target == 0 {
		c.demand = false
		return false, nil
	}
	sp := float64(target)
	switch {
	case reading <= sp-c.limits.Band:
		c.demand = true
	case reading >= sp+c.limits.Band:
		c.demand = false
	}
	return c.demand, nil
}

func (c *Controller) plausible(reading float64, sensorErr error) error {
	if sensorErr != nil {
		return fmt.Errorf("%w: %v", ErrSensorFault, sensorErr)
	}
	if math.IsNaN(reading) || reading < c.limits.SensorLo || reading > c.limits.SensorHi {
		return fmt.Errorf("%w: reading %.1f outside %.0f..%.0f", ErrSensorFault, reading, c.limits.SensorLo, c.limits.SensorHi)
	}
	return nil
}

// Demand is the last decided heater demand.
func (c *Controller) Demand() bool { return c.demand }

// Faulted reports whether the sensor is in a fault episode.
func (c *Controller) Faulted() bool { return c.faulted }

// Reading is the last plausible reading, NaN when none.
func (c *Controller) Reading() float64 { return c.reading }

// Limits returns the configured bounds.
func (c *Controller) Limits() Limits { return c.limits }
