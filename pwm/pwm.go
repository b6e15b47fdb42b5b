// Package pwm controls one hardware PWM channel through the sysfs control
// surface. The kernel rejects any write that would leave the duty cycle
// longer than the period, so frequency changes order their two writes to
// keep that invariant at every intermediate step.
package pwm

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Willy030125/OPi.GPIO/sysfs"
)

// Sysfs is the slice of the control surface a channel needs.
type Sysfs interface {
	PWMExport(chip, pin int) error
	PWMUnexport(chip, pin int) error
	PWMPeriod(chip, pin int, period int64) error
	PWMDutyCycle(chip, pin int, duty int64) error
	PWMEnable(chip, pin int, enabled bool) error
	PWMPolarity(chip, pin int, inverted bool) error
}

var (
	// ErrOutOfRange means a duty cycle percentage outside [0, 100] or a
	// non-positive frequency.
	ErrOutOfRange = errors.New("pwm parameter out of range")
	// ErrClosed means the channel was used after Close.
	ErrClosed = errors.New("pwm channel is closed")
)

// Channel is one exported chip/pin pair. Instances are not safe for
// concurrent use; drive each channel from a single goroutine.
type Channel struct {
	fs          Sysfs
	chip        int
	pin         int
	frequency   float64
	dutyPercent float64
	inverted    bool
	closed      bool
}

// Option adjusts a channel before it is exported.
type Option func(*Channel)

// WithInvertedPolarity makes the duty cycle describe the inactive portion
// of the period.
func WithInvertedPolarity() Option {
	return func(c *Channel) { c.inverted = true }
}

// WithSysfs substitutes the control surface, for tests or alternate roots.
func WithSysfs(fs Sysfs) Option {
	return func(c *Channel) { c.fs = fs }
}

// Open exports the chip/pin pair and prepares it for signal generation:
// export (retrying once past a busy resource), polarity, enable, then the
// initial period. Call Start to begin driving the configured duty cycle.
func Open(chip, pin int, frequencyHz, dutyPercent float64, opts ...Option) (*Channel, error) {
	if frequencyHz <= 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "frequency %v Hz", frequencyHz)
	}
	if dutyPercent < 0 || dutyPercent > 100 {
		return nil, errors.Wrapf(ErrOutOfRange, "duty cycle %v%%", dutyPercent)
	}
	c := &Channel{
		fs:          sysfs.New(),
		chip:        chip,
		pin:         pin,
		frequency:   frequencyHz,
		dutyPercent: dutyPercent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.fs.PWMExport(chip, pin); err != nil {
		if !sysfs.IsBusy(err) {
			return nil, err
		}
		logrus.Warnf("pwm %d on chip %d is already in use, re-exporting", pin, chip)
		if err := c.fs.PWMUnexport(chip, pin); err != nil {
			return nil, err
		}
		if err := c.fs.PWMExport(chip, pin); err != nil {
			return nil, err
		}
	}
	if err := c.fs.PWMPolarity(chip, pin, c.inverted); err != nil {
		return nil, err
	}
	if err := c.fs.PWMEnable(chip, pin, true); err != nil {
		return nil, err
	}
	if err := c.fs.PWMPeriod(chip, pin, periodNs(frequencyHz)); err != nil {
		return nil, err
	}
	return c, nil
}

// Start writes the configured duty cycle, beginning signal generation.
func (c *Channel) Start() error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.fs.PWMDutyCycle(c.chip, c.pin, c.dutyNs(periodNs(c.frequency)))
}

// Stop writes a zero duty cycle. The channel stays enabled and exported.
func (c *Channel) Stop() error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.fs.PWMDutyCycle(c.chip, c.pin, 0)
}

// SetDutyCycle changes the active portion of the period, as a percentage.
func (c *Channel) SetDutyCycle(percent float64) error {
	if err := c.guard(); err != nil {
		return err
	}
	if percent < 0 || percent > 100 {
		return errors.Wrapf(ErrOutOfRange, "duty cycle %v%%", percent)
	}
	c.dutyPercent = percent
	return c.fs.PWMDutyCycle(c.chip, c.pin, c.dutyNs(periodNs(c.frequency)))
}

// ChangeFrequency moves the channel to a new frequency, keeping the duty
// cycle percentage. When the period grows it is written before the duty
// cycle; when it shrinks the duty cycle is written first. Either order
// keeps duty <= period at both intermediate states, which the control
// surface enforces on every write.
func (c *Channel) ChangeFrequency(frequencyHz float64) error {
	if err := c.guard(); err != nil {
		return err
	}
	if frequencyHz <= 0 {
		return errors.Wrapf(ErrOutOfRange, "frequency %v Hz", frequencyHz)
	}
	newPeriod := periodNs(frequencyHz)
	newDuty := c.dutyNs(newPeriod)
	oldPeriod := periodNs(c.frequency)

	if newPeriod > oldPeriod {
		if err := c.fs.PWMPeriod(c.chip, c.pin, newPeriod); err != nil {
			return err
		}
		if err := c.fs.PWMDutyCycle(c.chip, c.pin, newDuty); err != nil {
			return err
		}
	} else {
		if err := c.fs.PWMDutyCycle(c.chip, c.pin, newDuty); err != nil {
			return err
		}
		if err := c.fs.PWMPeriod(c.chip, c.pin, newPeriod); err != nil {
			return err
		}
	}
	c.frequency = frequencyHz
	return nil
}

// InvertPolarity flips the polarity. The control surface forbids changing
// polarity on an active channel, so it is disabled around the write.
func (c *Channel) InvertPolarity() error {
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.fs.PWMEnable(c.chip, c.pin, false); err != nil {
		return err
	}
	c.inverted = !c.inverted
	if err := c.fs.PWMPolarity(c.chip, c.pin, c.inverted); err != nil {
		return err
	}
	return c.fs.PWMEnable(c.chip, c.pin, true)
}

// Close unexports the chip/pin pair. The channel is unusable afterwards:
// every further call, including a second Close, fails with ErrClosed.
func (c *Channel) Close() error {
	if err := c.guard(); err != nil {
		return err
	}
	c.closed = true
	return c.fs.PWMUnexport(c.chip, c.pin)
}

// Frequency returns the configured frequency in Hz.
func (c *Channel) Frequency() float64 { return c.frequency }

// DutyCycle returns the configured duty cycle percentage.
func (c *Channel) DutyCycle() float64 { return c.dutyPercent }

func (c *Channel) guard() error {
	if c.closed {
		return errors.Wrapf(ErrClosed, "pwm %d on chip %d", c.pin, c.chip)
	}
	return nil
}

func periodNs(frequencyHz float64) int64 {
	return int64(math.Round(1e9 / frequencyHz))
}

func (c *Channel) dutyNs(period int64) int64 {
	return int64(math.Round(float64(period) * c.dutyPercent / 100))
}
