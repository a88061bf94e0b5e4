package service

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/status"
)

// Simulation constants.
const (
	DefaultAmbientF     = 70.0
	DefaultHeatFPerHour = 20.0
	// AmbientLossPerHour is the fraction of the gap to ambient lost per hour.
	AmbientLossPerHour = 0.05
	// Water only reaches the sensor while the pump runs; otherwise the
	// reading drifts at this fraction of the normal loss.
	stagnantFactor = 0.5
)

// SimulatorService stands in for the water sensor when no hardware is
// attached. It follows the published snapshot: the water warms while the
// heater fires and relaxes toward ambient otherwise.
type SimulatorService struct {
	store      *status.Store
	ambientF   float64
	heatPerSec float64
	waterF     atomic.Uint64 // math.Float64bits
	now        func() time.Time
	last       time.Time
}

// NewSimulatorService returns a simulator starting at startF.
func NewSimulatorService(store *status.Store, startF, ambientF, heatFPerHour float64) *SimulatorService {
	if ambientF == 0 {
		ambientF = DefaultAmbientF
	}
	if heatFPerHour <= 0 {
		heatFPerHour = DefaultHeatFPerHour
	}
	if startF == 0 {
		startF = ambientF
	}
	s := &SimulatorService{
		store:      store,
		ambientF:   ambientF,
		heatPerSec: heatFPerHour / 3600,
		now:        time.Now,
	}
	s.waterF.Store(math.Float64bits(startF))
	return s
}

// ReadTemp implements control.TempSensor.
func (s *SimulatorService) ReadTemp() (float64, error) {
	return math.Float64frombits(s.waterF.Load()), nil
}

// Run advances the model at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	s.last = s.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.step(s.now())
		}
	}
}

func (s *SimulatorService) step(now time.Time) {
	elapsed := now.Sub(s.last).Seconds()
	if elapsed <= 0 {
		return
	}
	s.last = now
	st := s.store.Load()
	next := advanceWater(math.Float64frombits(s.waterF.Load()), s.ambientF, s.heatPerSec, elapsed, *st)
	s.waterF.Store(math.Float64bits(next))
}

// advanceWater returns the water temperature after elapsed seconds.
func advanceWater(waterF, ambientF, heatPerSec, elapsed float64, st models.PoolState) float64 {
	if st.HeaterOn {
		waterF += heatPerSec * elapsed
	}
	loss := AmbientLossPerHour / 3600 * elapsed
	if st.Pump == "NONE" || st.Pump == "" {
		loss *= stagnantFactor
	}
	if loss > 1 {
		loss = 1
	}
	return waterF + (ambientF-waterF)*loss
}
