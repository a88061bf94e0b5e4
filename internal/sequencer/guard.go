package sequencer

import (
	"fmt"
	"time"

	"controlling_poolspa/internal/equipment"
)

// checkInterlocks refuses a relay transition that would move a valve under
// flow or next to a hot heater, start a pump against moving valves, or fire
// a heater without established flow.
func (s *Sequencer) checkInterlocks(now time.Time, next equipment.RelaySet) error {
	changed := s.relays.Changed(next)
	turningOn := changed & next

	if changed&equipment.ValveRelays != 0 {
		if s.relays&equipment.PumpRelays != 0 || next&equipment.PumpRelays != 0 {
			return fmt.Errorf("%w: valve move with pump running", ErrTimingViolation)
		}
		if end := s.pumpOffEnd(); now.Before(end) {
			return fmt.Errorf("%w: valve move %s after pump off, need %s",
				ErrTimingViolation, now.Sub(s.pumpOffAt), s.timings.PumpOffSettle)
		}
		if s.relays&equipment.HeaterRelays != 0 || next&equipment.HeaterRelays != 0 {
			return fmt.Errorf("%w: valve move with heater on", ErrTimingViolation)
		}
		if end := s.cooldownEnd(); now.Before(end) {
			return fmt.Errorf("%w: valve move %s after heater off, need %s",
				ErrTimingViolation, now.Sub(s.heaterOffAt), s.timings.HeaterCooldown)
		}
	}

	if turningOn&equipment.PumpRelays != 0 {
		if err := s.valvesSettled(now, "pump start"); err != nil {
			return err
		}
	}

	if turningOn&equipment.HeaterRelays != 0 {
		if err := s.valvesSettled(now, "heater on"); err != nil {
			return err
		}
		if s.relays&equipment.PumpRelays == 0 || next&equipment.PumpRelays == 0 {
			return fmt.Errorf("%w: heater on without pump", ErrTimingViolation)
		}
		if end := s.pumpOnEnd(); now.Before(end) {
			return fmt.Errorf("%w: heater on %s after pump start, need %s",
				ErrTimingViolation, now.Sub(s.pumpOnAt), s.timings.PumpOnSettle)
		}
	}
	return nil
}

func (s *Sequencer) valvesSettled(now time.Time, op string) error {
	if s.valves == equipment.ValvesUndefined {
		return fmt.Errorf("%w: %s with valve position unknown", ErrTimingViolation, op)
	}
	if end := s.valveSettleEnd(); now.Before(end) {
		return fmt.Errorf("%w: %s %s after valve move, need %s",
			ErrTimingViolation, op, now.Sub(s.valveMovedAt), s.timings.ValveSettle)
	}
	return nil
}
