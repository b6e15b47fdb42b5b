package gpio

import "github.com/pkg/errors"

// Onboard LEDs of the Orange Pi boards this library grew up on. Any name
// under class/leds works.
const (
	LEDRed   = "orangepi:red:status"
	LEDGreen = "orangepi:green:pwr"
)

// SetLED sets the brightness of a named onboard LED. This is a stateless
// pass-through to the control surface; LEDs are not tracked in the ledger.
func (g *GPIO) SetLED(name string, level int) error {
	return errors.WithMessagef(g.ctl.SetLED(name, level), "led %s", name)
}

// SetLEDs sets every listed LED to the same level, in order, failing fast.
func (g *GPIO) SetLEDs(names []string, level int) error {
	for _, name := range names {
		if err := g.SetLED(name, level); err != nil {
			return err
		}
	}
	return nil
}
