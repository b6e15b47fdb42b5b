// Package gpio provides pin control for single-board computers over the
// filesystem control surface: numbered GPIO channels with lifecycle
// management, level I/O, edge detection with threaded callbacks, and LED
// pass-through. PWM lives in the pwm subpackage.
package gpio

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/thoas/go-funk"

	"github.com/Willy030125/OPi.GPIO/event"
	"github.com/Willy030125/OPi.GPIO/pinmap"
	"github.com/Willy030125/OPi.GPIO/sysfs"
)

// Levels of a digital channel.
const (
	Low  = 0
	High = 1
)

// Direction of a configured channel.
type Direction int

const (
	In Direction = iota + 1
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "input"
	case Out:
		return "output"
	}
	return "unknown"
}

// Pull is the requested pull resistor configuration. The sysfs surface
// cannot program pull resistors; the value is validated and acknowledged
// with an advisory warning only.
type Pull int

const (
	PullOff Pull = iota
	PullUp
	PullDown
)

// Control is the filesystem capability the ledger drives. *sysfs.FS
// provides it against the real tree via the sysfsControl adapter; tests
// inject fakes.
type Control interface {
	Export(pin int) error
	Unexport(pin int) error
	SetDirection(pin int, d sysfs.Direction) error
	ReadValue(pin int) (int, error)
	WriteValue(pin int, value int) error
	SetLED(name string, value int) error
	Watch(pin int, e sysfs.Edge) (event.Watch, error)
}

type sysfsControl struct {
	*sysfs.FS
}

func (c sysfsControl) Watch(pin int, e sysfs.Edge) (event.Watch, error) {
	return c.FS.Watch(pin, e)
}

type record struct {
	pin       int
	direction Direction
}

// GPIO owns everything that was process-global in older pin libraries: the
// active numbering scheme, the exported-channel ledger, the warnings toggle
// and the edge engine. Independent instances do not share state.
type GPIO struct {
	mu       sync.Mutex
	ctl      Control
	scheme   pinmap.Scheme
	resolver pinmap.Resolver
	exports  map[int]record
	warn     bool
	log      *logrus.Logger

	engine *event.Engine
}

// New returns a GPIO context over /sys, or over whatever the options
// select.
func New(opts ...Option) *GPIO {
	g := &GPIO{
		ctl:     sysfsControl{sysfs.New()},
		exports: make(map[int]record),
		warn:    true,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.engine = event.NewEngine(edgeSource{g.ctl})
	return g
}

// SetMode chooses one of the built-in numbering schemes. It must be called
// before any channel is configured and at most once until a full Cleanup
// clears it.
func (g *GPIO) SetMode(s pinmap.Scheme) error {
	r, err := pinmap.ForScheme(s)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.scheme != 0 {
		return errors.Wrapf(ErrModeAlreadySet, "cannot switch to %v", s)
	}
	g.scheme, g.resolver = s, r
	return nil
}

// SetCustomMapping installs a caller-supplied channel mapping and sets the
// scheme to Custom. Same once-only rule as SetMode.
func (g *GPIO) SetCustomMapping(r pinmap.Resolver) error {
	if r == nil {
		return errors.New("nil resolver")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.scheme != 0 {
		return errors.Wrap(ErrModeAlreadySet, "cannot switch to CUSTOM")
	}
	g.scheme, g.resolver = pinmap.Custom, r
	return nil
}

// Mode returns the active numbering scheme, zero when unset.
func (g *GPIO) Mode() pinmap.Scheme {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scheme
}

// SetWarnings toggles advisory warnings for non-fatal conditions: the
// busy-resource retry and the unimplemented pull/debounce features. It does
// not affect correctness.
func (g *GPIO) SetWarnings(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.warn = enabled
}

// Setup configures a channel as input or output, exporting the underlying
// pin. A busy pin is unexported and exported again once, with an advisory
// warning. Output channels may get an initial level via WithInitial.
func (g *GPIO) Setup(channel int, direction Direction, opts ...SetupOption) error {
	if direction != In && direction != Out {
		return errors.Errorf("invalid direction %d for channel %d", direction, channel)
	}
	var cfg setupConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.pull != nil && !funk.Contains([]Pull{PullOff, PullUp, PullDown}, *cfg.pull) {
		return errors.Errorf("invalid pull value %d for channel %d", *cfg.pull, channel)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if cfg.pull != nil {
		g.warnf("pull up/down is not supported on the sysfs interface, ignoring for channel %d", channel)
	}
	if _, ok := g.exports[channel]; ok {
		return errors.Wrapf(ErrAlreadyConfigured, "channel %d", channel)
	}
	pin, err := g.resolveLocked(channel)
	if err != nil {
		return err
	}
	if err := g.ctl.Export(pin); err != nil {
		if !sysfs.IsBusy(err) {
			return errors.WithMessagef(err, "setup channel %d", channel)
		}
		g.warnf("channel %d is already in use, re-exporting", channel)
		if err := g.ctl.Unexport(pin); err != nil {
			return errors.WithMessagef(err, "setup channel %d", channel)
		}
		if err := g.ctl.Export(pin); err != nil {
			return errors.WithMessagef(err, "setup channel %d", channel)
		}
	}
	if err := g.ctl.SetDirection(pin, sysfsDirection(direction)); err != nil {
		return errors.WithMessagef(err, "setup channel %d", channel)
	}
	g.exports[channel] = record{pin: pin, direction: direction}
	if direction == Out && cfg.initial != nil {
		if err := g.ctl.WriteValue(pin, *cfg.initial); err != nil {
			return errors.WithMessagef(err, "initial value of channel %d", channel)
		}
	}
	return nil
}

// SetupAll configures each channel in order with the same direction and
// options. The first failure aborts the batch; earlier channels keep their
// new state.
func (g *GPIO) SetupAll(channels []int, direction Direction, opts ...SetupOption) error {
	for _, ch := range channels {
		if err := g.Setup(ch, direction, opts...); err != nil {
			return err
		}
	}
	return nil
}

// Input reads the current level of a configured channel. Reading an output
// channel is allowed.
func (g *GPIO) Input(channel int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, err := g.requireLocked(channel, 0)
	if err != nil {
		return 0, err
	}
	v, err := g.ctl.ReadValue(rec.pin)
	return v, errors.WithMessagef(err, "input channel %d", channel)
}

// Output drives a channel configured as output to the given level.
func (g *GPIO) Output(channel, level int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, err := g.requireLocked(channel, Out)
	if err != nil {
		return err
	}
	return errors.WithMessagef(g.ctl.WriteValue(rec.pin, level), "output channel %d", channel)
}

// OutputAll drives every listed channel to the same level, in order,
// failing fast.
func (g *GPIO) OutputAll(channels []int, level int) error {
	for _, ch := range channels {
		if err := g.Output(ch, level); err != nil {
			return err
		}
	}
	return nil
}

// OutputEach drives channels[i] to levels[i]. The two slices must be the
// same length; arity is never inferred from argument shape.
func (g *GPIO) OutputEach(channels []int, levels []int) error {
	if len(channels) != len(levels) {
		return errors.Errorf("got %d channels but %d levels", len(channels), len(levels))
	}
	for i, ch := range channels {
		if err := g.Output(ch, levels[i]); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup releases the listed channels in order, failing fast. With no
// arguments it releases every configured channel best-effort, clears the
// numbering scheme and re-enables warnings, returning the first error met.
func (g *GPIO) Cleanup(channels ...int) error {
	if len(channels) == 0 {
		return g.cleanupAll()
	}
	for _, ch := range channels {
		if err := g.cleanupOne(ch); err != nil {
			return err
		}
	}
	return nil
}

func (g *GPIO) cleanupOne(channel int) error {
	g.mu.Lock()
	rec, err := g.requireLocked(channel, 0)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	delete(g.exports, channel)
	g.mu.Unlock()

	// The watcher is joined before the pin goes away; Remove is a no-op
	// for pins that never had edge detection.
	if err := g.engine.Remove(rec.pin); err != nil {
		return errors.WithMessagef(err, "cleanup channel %d", channel)
	}
	return errors.WithMessagef(g.ctl.Unexport(rec.pin), "cleanup channel %d", channel)
}

func (g *GPIO) cleanupAll() error {
	g.mu.Lock()
	channels := make([]int, 0, len(g.exports))
	for ch := range g.exports {
		channels = append(channels, ch)
	}
	g.mu.Unlock()
	sort.Ints(channels)

	var first error
	for _, ch := range channels {
		if err := g.cleanupOne(ch); err != nil && first == nil {
			first = err
		}
	}

	g.mu.Lock()
	g.scheme, g.resolver = 0, nil
	g.warn = true
	g.mu.Unlock()
	return first
}

// requireLocked guards every operation on a channel: present in the
// ledger, and matching the expected direction when one is given.
func (g *GPIO) requireLocked(channel int, direction Direction) (record, error) {
	rec, ok := g.exports[channel]
	if !ok {
		return record{}, errors.Wrapf(ErrNotConfigured, "channel %d", channel)
	}
	if direction != 0 && rec.direction != direction {
		return record{}, errors.Wrapf(ErrWrongDirection, "channel %d is configured for %s", channel, rec.direction)
	}
	return rec, nil
}

func (g *GPIO) resolveLocked(channel int) (int, error) {
	if g.resolver == nil {
		return 0, errors.Wrapf(ErrModeNotSet, "channel %d", channel)
	}
	pin, err := g.resolver.Resolve(channel)
	return pin, errors.WithMessagef(err, "scheme %v", g.scheme)
}

// warnf emits an advisory warning unless suppressed. Callers hold g.mu.
func (g *GPIO) warnf(format string, args ...interface{}) {
	if g.warn {
		g.log.Warnf(format, args...)
	}
}

func sysfsDirection(d Direction) sysfs.Direction {
	if d == In {
		return sysfs.In
	}
	return sysfs.Out
}
