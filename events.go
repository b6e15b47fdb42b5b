package gpio

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Willy030125/OPi.GPIO/event"
	"github.com/Willy030125/OPi.GPIO/sysfs"
)

// Trigger selects which transitions count as an edge.
type Trigger = event.Trigger

const (
	Rising  = event.Rising
	Falling = event.Falling
	Both    = event.Both
)

// NoEdge is returned by WaitForEdge when the timeout elapsed first.
const NoEdge = -1

// edgeSource adapts the Control capability to the edge engine.
type edgeSource struct {
	ctl Control
}

func (s edgeSource) Watch(pin int, t event.Trigger) (event.Watch, error) {
	return s.ctl.Watch(pin, edgeFor(t))
}

func edgeFor(t Trigger) sysfs.Edge {
	switch t {
	case Rising:
		return sysfs.EdgeRising
	case Falling:
		return sysfs.EdgeFalling
	default:
		return sysfs.EdgeBoth
	}
}

// WaitForEdge blocks the calling goroutine until a matching edge occurs on
// an input channel or the timeout elapses. A negative timeout waits
// indefinitely; zero checks once. It returns the channel on success and
// NoEdge on timeout.
func (g *GPIO) WaitForEdge(channel int, t Trigger, timeout time.Duration) (int, error) {
	g.mu.Lock()
	rec, err := g.requireLocked(channel, In)
	g.mu.Unlock()
	if err != nil {
		return NoEdge, err
	}
	detected, err := g.engine.WaitForEdge(rec.pin, t, timeout)
	if err != nil {
		return NoEdge, errors.WithMessagef(err, "wait for edge on channel %d", channel)
	}
	if !detected {
		return NoEdge, nil
	}
	return channel, nil
}

// AddEventDetect starts background edge detection on an input channel. Use
// WithCallback to run a handler per edge and EventDetected to poll the
// latch. Adding detection to a channel that already has it fails.
func (g *GPIO) AddEventDetect(channel int, t Trigger, opts ...EventOption) error {
	var cfg eventConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	g.mu.Lock()
	rec, err := g.requireLocked(channel, In)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	bounce, err := g.bounceLocked(channel, cfg.bounce)
	g.mu.Unlock()
	if err != nil {
		return err
	}
	var cb event.Callback
	if cfg.callback != nil {
		user := cfg.callback
		cb = func(int) { user(channel) }
	}
	return g.engine.Add(rec.pin, t, cb, bounce)
}

// AddEventCallback appends a handler to a channel that already has edge
// detection added, possibly registered without an initial callback.
// Handlers run in registration order on every qualifying edge.
func (g *GPIO) AddEventCallback(channel int, callback func(channel int), opts ...EventOption) error {
	if callback == nil {
		return errors.New("nil callback")
	}
	var cfg eventConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	g.mu.Lock()
	rec, err := g.requireLocked(channel, In)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	bounce, err := g.bounceLocked(channel, cfg.bounce)
	g.mu.Unlock()
	if err != nil {
		return err
	}
	return g.engine.AddCallback(rec.pin, func(int) { callback(channel) }, bounce)
}

// EventDetected reports whether an edge occurred on the channel since the
// previous call, clearing the latch.
func (g *GPIO) EventDetected(channel int) (bool, error) {
	g.mu.Lock()
	rec, err := g.requireLocked(channel, In)
	g.mu.Unlock()
	if err != nil {
		return false, err
	}
	return g.engine.Detected(rec.pin), nil
}

// RemoveEventDetect stops and joins the channel's watcher. Removing
// detection that was never added is a no-op so cleanup paths can call it
// unconditionally.
func (g *GPIO) RemoveEventDetect(channel int) error {
	g.mu.Lock()
	rec, err := g.requireLocked(channel, In)
	g.mu.Unlock()
	if err != nil {
		return err
	}
	return g.engine.Remove(rec.pin)
}

// bounceLocked validates and acknowledges a debounce request. Debounce is
// recorded for forward compatibility but does not suppress edges.
func (g *GPIO) bounceLocked(channel int, d *time.Duration) (time.Duration, error) {
	if d == nil {
		return 0, nil
	}
	if *d < 0 {
		return 0, errors.Errorf("negative bounce time %v for channel %d", *d, channel)
	}
	g.warnf("bounce time is not supported yet, ignoring for channel %d", channel)
	return *d, nil
}
