package equipment

import "fmt"

// Button identifies one of the eight front-panel pushbuttons. The value is
// also the button's bit position in a raw sample and its LED bit.
type Button uint8

const (
	ButtonHeatSpa Button = iota
	ButtonHeatPool
	ButtonSpaJets
	ButtonPoolLight
	ButtonFilterSpa
	ButtonFilterPool
	ButtonSpaWaterLevel
	ButtonMenu

	NumButtons = int(ButtonMenu) + 1
)

var buttonNames = [NumButtons]string{
	"HEAT_SPA", "HEAT_POOL", "SPA_JETS", "POOL_LIGHT",
	"FILTER_SPA", "FILTER_POOL", "SPA_WATER_LEVEL", "MENU",
}

func (b Button) String() string {
	if int(b) >= NumButtons {
		return fmt.Sprintf("BUTTON_%d", int(b))
	}
	return buttonNames[b]
}

func (b Button) Valid() bool { return int(b) < NumButtons }

// LED bits: one per button plus the RGB temperature-control indicator.
const (
	LEDBlue  uint16 = 0x0100
	LEDGreen uint16 = 0x0200
	LEDRed   uint16 = 0x0400

	NumLEDs = 11
)

// ButtonLED returns the LED bit for b.
func ButtonLED(b Button) uint16 { return 1 << b }
