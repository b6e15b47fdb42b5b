package sysfs

import (
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// PWM attributes live under class/pwm/pwmchipC/pwmP. Period and duty cycle
// are nanosecond decimals; the kernel rejects any write that would leave
// duty_cycle greater than period.

func (fs *FS) pwmChipPath(chip int, elem ...string) string {
	return filepath.Join(append([]string{fs.root, "class", "pwm", "pwmchip" + strconv.Itoa(chip)}, elem...)...)
}

func (fs *FS) pwmPath(chip, pin int, attr string) string {
	return fs.pwmChipPath(chip, "pwm"+strconv.Itoa(pin), attr)
}

// PWMExport creates the pwmP attribute directory under chip.
func (fs *FS) PWMExport(chip, pin int) error {
	err := writeFile(fs.pwmChipPath(chip, "export"), strconv.Itoa(pin))
	return errors.WithMessagef(err, "export pwm %d on chip %d", pin, chip)
}

// PWMUnexport removes the pwmP attribute directory.
func (fs *FS) PWMUnexport(chip, pin int) error {
	err := writeFile(fs.pwmChipPath(chip, "unexport"), strconv.Itoa(pin))
	return errors.WithMessagef(err, "unexport pwm %d on chip %d", pin, chip)
}

// PWMPeriod sets the cycle length in nanoseconds.
func (fs *FS) PWMPeriod(chip, pin int, period int64) error {
	err := writeFile(fs.pwmPath(chip, pin, "period"), strconv.FormatInt(period, 10))
	return errors.WithMessagef(err, "set period of pwm %d on chip %d", pin, chip)
}

// PWMDutyCycle sets the active portion of the cycle in nanoseconds.
func (fs *FS) PWMDutyCycle(chip, pin int, duty int64) error {
	err := writeFile(fs.pwmPath(chip, pin, "duty_cycle"), strconv.FormatInt(duty, 10))
	return errors.WithMessagef(err, "set duty cycle of pwm %d on chip %d", pin, chip)
}

// PWMEnable starts or stops signal generation.
func (fs *FS) PWMEnable(chip, pin int, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	err := writeFile(fs.pwmPath(chip, pin, "enable"), v)
	return errors.WithMessagef(err, "enable pwm %d on chip %d", pin, chip)
}

// PWMPolarity selects normal or inverted output. The channel must be
// disabled while the polarity changes.
func (fs *FS) PWMPolarity(chip, pin int, inverted bool) error {
	v := "normal"
	if inverted {
		v = "inversed"
	}
	err := writeFile(fs.pwmPath(chip, pin, "polarity"), v)
	return errors.WithMessagef(err, "set polarity of pwm %d on chip %d", pin, chip)
}
