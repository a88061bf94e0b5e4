package hardware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"controlling_poolspa/internal/logger"
)

var (
	ErrNoReading    = errors.New("no temperature reading yet")
	ErrStaleReading = errors.New("temperature reading is stale")
)

// powerOnReset is what a DS18B20 reports before its first conversion.
const powerOnReset = 85000

type reading struct {
	tempF float64
	at    time.Time
	err   error
}

// Sensor polls a DS18B20 through the kernel w1-therm driver in its own
// goroutine. A conversion takes most of a second, so the control loop only
// ever sees the cached value.
type Sensor struct {
	path   string
	period time.Duration
	log    *logger.Logger
	read   func(string) ([]byte, error)
	now    func() time.Time

	last atomic.Pointer[reading]
}

func NewSensor(path string, period time.Duration, log *logger.Logger) *Sensor {
	if period <= 0 {
		period = 2 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sensor{path: path, period: period, log: log, read: os.ReadFile, now: time.Now}
}

// Run polls until ctx is done.
func (s *Sensor) Run(ctx context.Context) {
	s.poll()
	t := time.NewTicker(s.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.poll()
		}
	}
}

func (s *Sensor) poll() {
	r := &reading{at: s.now()}
	data, err := s.read(s.path)
	if err == nil {
		var c float64
		c, err = parseW1(data)
		r.tempF = c*9/5 + 32
	}
	if err != nil {
		prev := s.last.Load()
		if prev == nil || prev.err == nil {
			s.log.Warnw("sensor_read_failed", "path", s.path, "err", err)
		}
		r.err = err
	}
	s.last.Store(r)
}

// ReadTemp returns the cached reading in °F. A reading older than three
// poll periods counts as a fault.
func (s *Sensor) ReadTemp() (float64, error) {
	r := s.last.Load()
	if r == nil {
		return 0, ErrNoReading
	}
	if r.err != nil {
		return 0, r.err
	}
	if age := s.now().Sub(r.at); age > 3*s.period {
		return 0, fmt.Errorf("%w: %s old", ErrStaleReading, age.Round(time.Second))
	}
	return r.tempF, nil
}

// parseW1 decodes a w1_slave file and returns degrees Celsius.
func parseW1(data []byte) (float64, error) {
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) < 2 {
		return 0, fmt.Errorf("w1: short read (%d lines)", len(lines))
	}
	if !bytes.HasSuffix(bytes.TrimSpace(lines[0]), []byte("YES")) {
		return 0, errors.New("w1: crc check failed")
	}
	i := bytes.LastIndex(lines[1], []byte("t="))
	if i < 0 {
		return 0, errors.New("w1: no temperature field")
	}
	milli, err := strconv.Atoi(string(bytes.TrimSpace(lines[1][i+2:])))
	if err != nil {
		return 0, fmt.Errorf("w1: bad temperature field: %w", err)
	}
	if milli == powerOnReset {
		return 0, errors.New("w1: power-on reset value")
	}
	return float64(milli) / 1000, nil
}
