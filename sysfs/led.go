package sysfs

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// SetLED writes the brightness attribute of a named onboard LED. Any
// non-zero value turns the LED on.
func (fs *FS) SetLED(name string, value int) error {
	v := "0"
	if value != 0 {
		v = "1"
	}
	path := filepath.Join(fs.root, "class", "leds", name, "brightness")
	return errors.WithMessagef(writeFile(path, v), "set led %s", name)
}
