package hardware

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"controlling_poolspa/internal/config"
	"controlling_poolspa/internal/input"
	"controlling_poolspa/internal/logger"
)

const consumer = "poolspa"

// Board is the GPIO side of the controller: relays, buttons, encoder, LED
// shift registers and the water temperature probe.
type Board struct {
	Relays  *Relays
	Buttons *Buttons
	LEDs    *LEDs
	Sensor  *Sensor

	chip    *gpiocdev.Chip
	closers []interface{ Close() error }
}

// Open requests every line on the configured chip. The relays start
// de-energized. Encoder edges feed enc from the gpiocdev event goroutine.
func Open(cfg config.HardwareConfig, enc *input.Encoder, log *logger.Logger) (*Board, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w", cfg.Chip, err)
	}
	b := &Board{chip: chip}

	relays, err := chip.RequestLines(cfg.RelayPins, gpiocdev.AsOutput(offLevels(cfg.RelayOnLevel)...))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request relay lines %v: %w", cfg.RelayPins, err)
	}
	b.closers = append(b.closers, relays)
	b.Relays = newRelays(relays, cfg.RelayOnLevel)

	buttons, err := chip.RequestLines(cfg.ButtonPins, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request button lines %v: %w", cfg.ButtonPins, err)
	}
	b.closers = append(b.closers, buttons)
	b.Buttons = newButtons(buttons, cfg.ButtonActive)

	if enc != nil {
		q := newQuadrature(enc)
		ab, err := chip.RequestLines([]int{cfg.EncoderA, cfg.EncoderB},
			gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(q.handle(cfg.EncoderA, cfg.EncoderB)))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request encoder lines %d/%d: %w", cfg.EncoderA, cfg.EncoderB, err)
		}
		b.closers = append(b.closers, ab)
		vals := make([]int, 2)
		if err := ab.Values(vals); err == nil {
			q.reset(vals[0], vals[1])
		}
	}

	var pins [3]*gpiocdev.Line
	for i, offset := range []int{cfg.LEDData, cfg.LEDClock, cfg.LEDLatch} {
		l, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request led line %d: %w", offset, err)
		}
		b.closers = append(b.closers, l)
		pins[i] = l
	}
	b.LEDs = newLEDs(pins[0], pins[1], pins[2])

	b.Sensor = NewSensor(cfg.SensorPath, cfg.SensorPeriod, log)

	log.Infow("hardware_opened", "chip", cfg.Chip, "relay_pins", cfg.RelayPins, "button_pins", cfg.ButtonPins)
	return b, nil
}

// Close releases every requested line and the chip.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}
	return errors.Join(errs...)
}
