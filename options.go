package gpio

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Willy030125/OPi.GPIO/sysfs"
)

// Option configures a GPIO context at construction.
type Option func(*GPIO)

// WithControl substitutes the filesystem capability, for tests.
func WithControl(ctl Control) Option {
	return func(g *GPIO) { g.ctl = ctl }
}

// WithSysfsRoot points the context at a control tree other than /sys.
func WithSysfsRoot(root string) Option {
	return func(g *GPIO) { g.ctl = sysfsControl{sysfs.NewAt(root)} }
}

// WithLogger routes advisory warnings to a specific logger.
func WithLogger(log *logrus.Logger) Option {
	return func(g *GPIO) { g.log = log }
}

type setupConfig struct {
	initial *int
	pull    *Pull
}

// SetupOption adjusts a single Setup call.
type SetupOption func(*setupConfig)

// WithInitial sets the level an output channel is driven to before Setup
// returns. Ignored for inputs.
func WithInitial(level int) SetupOption {
	return func(c *setupConfig) { c.initial = &level }
}

// WithPull requests a pull resistor configuration. Accepted for
// compatibility; see Pull.
func WithPull(p Pull) SetupOption {
	return func(c *setupConfig) { c.pull = &p }
}

type eventConfig struct {
	callback func(channel int)
	bounce   *time.Duration
}

// EventOption adjusts AddEventDetect and AddEventCallback calls.
type EventOption func(*eventConfig)

// WithCallback registers a handler invoked on the dispatcher goroutine for
// every qualifying edge.
func WithCallback(cb func(channel int)) EventOption {
	return func(c *eventConfig) { c.callback = cb }
}

// WithBounceTime records a debounce interval. The interval is validated and
// stored but does not suppress duplicate edges yet; registering one raises
// an advisory warning.
func WithBounceTime(d time.Duration) EventOption {
	return func(c *eventConfig) { c.bounce = &d }
}
