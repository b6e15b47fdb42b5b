// Package pinmap translates logical channel numbers into the kernel GPIO
// numbers used by the sysfs control surface. Three numbering schemes are
// built in; callers can supply their own mapping for boards that are not
// covered.
package pinmap

import (
	"strings"

	"github.com/pkg/errors"
)

// Scheme selects how channel numbers are interpreted.
type Scheme int

const (
	// Board numbers channels by their physical position on the header.
	Board Scheme = iota + 1
	// BCM numbers channels like the Broadcom SoC pin names.
	BCM
	// Sunxi numbers channels by the Allwinner bank encoding, see SunxiPin.
	Sunxi
	// Custom marks a caller-supplied mapping set through a Resolver.
	Custom
)

func (s Scheme) String() string {
	switch s {
	case Board:
		return "BOARD"
	case BCM:
		return "BCM"
	case Sunxi:
		return "SUNXI"
	case Custom:
		return "CUSTOM"
	}
	return "UNSET"
}

// Resolver maps a logical channel to a kernel GPIO number.
type Resolver interface {
	Resolve(channel int) (int, error)
}

// Table is a fixed channel-to-pin mapping. It implements Resolver and is
// the usual way to provide a custom scheme.
type Table map[int]int

func (t Table) Resolve(channel int) (int, error) {
	pin, ok := t[channel]
	if !ok {
		return 0, errors.Errorf("no pin mapping for channel %d", channel)
	}
	return pin, nil
}

// Orange Pi Zero expansion header. Physical pin -> kernel GPIO number.
var boardTable = Table{
	3: 12, 5: 11, 7: 6, 8: 198, 10: 199, 11: 1, 12: 7, 13: 0,
	15: 3, 16: 19, 18: 18, 19: 15, 21: 16, 22: 2, 23: 14, 24: 13, 26: 10,
}

// BCM-compatible channel numbers for the same header, so sketches written
// against a Raspberry Pi keep working.
var bcmTable = Table{
	2: 12, 3: 11, 4: 6, 14: 198, 15: 199, 17: 1, 18: 7, 27: 0,
	22: 3, 23: 19, 24: 18, 10: 15, 9: 16, 25: 2, 11: 14, 8: 13, 7: 10,
}

// identity passes channels through unchanged. Under the SUNXI scheme the
// encoded bank number is already the kernel GPIO number.
type identity struct{}

func (identity) Resolve(channel int) (int, error) {
	if channel < 0 {
		return 0, errors.Errorf("invalid channel %d", channel)
	}
	return channel, nil
}

// ForScheme returns the built-in resolver for s. Custom has no built-in
// resolver; the caller provides one instead.
func ForScheme(s Scheme) (Resolver, error) {
	switch s {
	case Board:
		return boardTable, nil
	case BCM:
		return bcmTable, nil
	case Sunxi:
		return identity{}, nil
	}
	return nil, errors.Errorf("no built-in resolver for scheme %v", s)
}

// SunxiPin encodes an Allwinner pin name such as "PA6" or "PG07" into the
// channel number used under the Sunxi scheme (bank*32 + index).
func SunxiPin(name string) (int, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if len(n) < 3 || n[0] != 'P' || n[1] < 'A' || n[1] > 'Z' {
		return 0, errors.Errorf("invalid sunxi pin name %q", name)
	}
	index := 0
	for _, c := range n[2:] {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("invalid sunxi pin name %q", name)
		}
		index = index*10 + int(c-'0')
	}
	if index > 31 {
		return 0, errors.Errorf("sunxi pin index out of range in %q", name)
	}
	return int(n[1]-'A')*32 + index, nil
}
