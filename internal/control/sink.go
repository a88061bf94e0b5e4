package control

import "controlling_poolspa/internal/models"

// Sink receives what leaves the control loop. Implementations must never
// block: a full buffer drops the record.
type Sink interface {
	Event(models.PoolEvent)
	Sample(models.TempSample)
	Settings(models.Settings)
}

// ButtonReader returns the raw front-panel levels, one bit per button, set
// when the button is held.
type ButtonReader interface {
	ReadButtons() (uint8, error)
}

// LEDWriter drives the eleven panel LEDs.
type LEDWriter interface {
	WriteLEDs(mask uint16) error
}

// TempSensor returns the latest water temperature in °F. It must answer
// from a cache; slow bus reads happen elsewhere.
type TempSensor interface {
	ReadTemp() (float64, error)
}

type nopSink struct{}

func (nopSink) Event(models.PoolEvent)   {}
func (nopSink) Sample(models.TempSample) {}
func (nopSink) Settings(models.Settings) {}
