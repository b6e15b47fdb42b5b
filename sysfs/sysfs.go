// Package sysfs drives the filesystem-attribute control surface for GPIO,
// PWM and LED resources. Every operation is a read or write of a small
// newline-terminated decimal or token file under /sys.
package sysfs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultRoot is where the kernel mounts the control tree.
const DefaultRoot = "/sys"

// Direction is the content of a gpio direction attribute.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Edge selects which transitions on an input raise a notification.
type Edge string

const (
	EdgeNone    Edge = "none"
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
)

// FS accesses one control tree. The root is configurable so tests can run
// against a scratch directory.
type FS struct {
	root string
}

// New returns an FS rooted at /sys.
func New() *FS { return NewAt(DefaultRoot) }

// NewAt returns an FS rooted at the given directory.
func NewAt(root string) *FS { return &FS{root: root} }

func (fs *FS) gpioPath(elem ...string) string {
	return filepath.Join(append([]string{fs.root, "class", "gpio"}, elem...)...)
}

func (fs *FS) pinPath(pin int, attr string) string {
	return fs.gpioPath("gpio"+strconv.Itoa(pin), attr)
}

// Export makes pin available as a gpioN attribute directory. Exporting a
// pin that is already claimed fails with a busy error, see IsBusy.
func (fs *FS) Export(pin int) error {
	err := writeFile(fs.gpioPath("export"), strconv.Itoa(pin))
	return errors.WithMessagef(err, "export gpio %d", pin)
}

// Unexport removes the gpioN attribute directory.
func (fs *FS) Unexport(pin int) error {
	err := writeFile(fs.gpioPath("unexport"), strconv.Itoa(pin))
	return errors.WithMessagef(err, "unexport gpio %d", pin)
}

// SetDirection configures pin as input or output.
func (fs *FS) SetDirection(pin int, d Direction) error {
	err := writeFile(fs.pinPath(pin, "direction"), string(d))
	return errors.WithMessagef(err, "set direction of gpio %d", pin)
}

// ReadValue returns the current level of pin, 0 or 1.
func (fs *FS) ReadValue(pin int) (int, error) {
	s, err := readFile(fs.pinPath(pin, "value"))
	if err != nil {
		return 0, errors.WithMessagef(err, "read gpio %d", pin)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected value %q on gpio %d", s, pin)
	}
	return v, nil
}

// WriteValue sets the level of pin. Any non-zero value drives the pin high.
func (fs *FS) WriteValue(pin int, value int) error {
	level := "0"
	if value != 0 {
		level = "1"
	}
	err := writeFile(fs.pinPath(pin, "value"), level)
	return errors.WithMessagef(err, "write gpio %d", pin)
}

// SetEdge arms or disarms edge notification on pin's value attribute.
func (fs *FS) SetEdge(pin int, e Edge) error {
	err := writeFile(fs.pinPath(pin, "edge"), string(e))
	return errors.WithMessagef(err, "set edge of gpio %d", pin)
}

func writeFile(path, value string) error {
	// O_TRUNC so a short token never leaves stale bytes from a longer
	// previous write. Real sysfs attributes ignore truncation.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	_, err = f.WriteString(value + "\n")
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func readFile(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(buf)), nil
}
