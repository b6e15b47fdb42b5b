package gpio

import (
	"time"

	"github.com/Willy030125/OPi.GPIO/pinmap"
)

// std is the process-wide context backing the package-level functions, for
// programs that want the classic one-global-GPIO ergonomics. Libraries and
// tests should create their own context with New instead.
var std = New()

func SetMode(s pinmap.Scheme) error { return std.SetMode(s) }

func SetCustomMapping(r pinmap.Resolver) error { return std.SetCustomMapping(r) }

func Mode() pinmap.Scheme { return std.Mode() }

func SetWarnings(enabled bool) { std.SetWarnings(enabled) }

func Setup(ch int, d Direction, opts ...SetupOption) error { return std.Setup(ch, d, opts...) }

func SetupAll(chs []int, d Direction, opts ...SetupOption) error {
	return std.SetupAll(chs, d, opts...)
}

func Input(ch int) (int, error) { return std.Input(ch) }

func Output(ch, level int) error { return std.Output(ch, level) }

func OutputAll(chs []int, level int) error { return std.OutputAll(chs, level) }

func OutputEach(chs []int, levels []int) error { return std.OutputEach(chs, levels) }

func Cleanup(chs ...int) error { return std.Cleanup(chs...) }

func WaitForEdge(ch int, t Trigger, timeout time.Duration) (int, error) {
	return std.WaitForEdge(ch, t, timeout)
}

func AddEventDetect(ch int, t Trigger, opts ...EventOption) error {
	return std.AddEventDetect(ch, t, opts...)
}

func AddEventCallback(ch int, cb func(int), opts ...EventOption) error {
	return std.AddEventCallback(ch, cb, opts...)
}

func EventDetected(ch int) (bool, error) { return std.EventDetected(ch) }

func RemoveEventDetect(ch int) error { return std.RemoveEventDetect(ch) }

func SetLED(name string, level int) error { return std.SetLED(name, level) }

func SetLEDs(names []string, level int) error { return std.SetLEDs(names, level) }
