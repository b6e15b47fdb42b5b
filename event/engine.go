// Package event implements edge detection over exported input pins: a
// blocking wait, one background watcher per watched pin, a read-clear
// latch, and a single ordered dispatcher for user callbacks.
package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Trigger selects which transitions count as an edge.
type Trigger int

const (
	Rising Trigger = iota + 1
	Falling
	Both
)

func (t Trigger) String() string {
	switch t {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case Both:
		return "both"
	}
	return "none"
}

// Callback receives the pin an edge was detected on. Callbacks run on the
// dispatcher goroutine, never on the watcher or the caller.
type Callback func(pin int)

// Watch is one armed edge subscription, as produced by a Source. Wait
// blocks until an edge (true), a timeout (false), or an error; Cancel
// unblocks a concurrent Wait.
type Watch interface {
	Wait(timeout time.Duration) (bool, error)
	Cancel()
	Close() error
}

// Source arms edge reporting on a pin. The sysfs tree implements this in
// production; tests inject fakes.
type Source interface {
	Watch(pin int, t Trigger) (Watch, error)
}

var (
	// ErrAlreadyWatching means Add was called twice for the same pin.
	ErrAlreadyWatching = errors.New("edge detection already added for pin")
	// ErrNotWatching means AddCallback was called before Add.
	ErrNotWatching = errors.New("no edge detection added for pin")
)

// Engine tracks the per-pin watchers and the shared dispatcher. The
// dispatcher goroutine exists only while at least one pin is watched.
type Engine struct {
	src Source

	mu       sync.Mutex
	watchers map[int]*watcher
	disp     *dispatcher
}

// NewEngine returns an engine reading edges from src.
func NewEngine(src Source) *Engine {
	return &Engine{src: src, watchers: make(map[int]*watcher)}
}

// WaitForEdge blocks the calling goroutine until a matching edge occurs on
// pin or the timeout elapses. Negative timeout blocks indefinitely; zero
// checks once. No background goroutine is involved.
func (e *Engine) WaitForEdge(pin int, t Trigger, timeout time.Duration) (bool, error) {
	w, err := e.src.Watch(pin, t)
	if err != nil {
		return false, err
	}
	defer w.Close()
	return w.Wait(timeout)
}

// Add transitions pin to watching: it arms the trigger and spawns the
// dedicated watcher goroutine. cb may be nil to enable latch-only polling.
func (e *Engine) Add(pin int, t Trigger, cb Callback, bounce time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.watchers[pin]; ok {
		return errors.Wrapf(ErrAlreadyWatching, "pin %d", pin)
	}
	wt, err := e.src.Watch(pin, t)
	if err != nil {
		return err
	}
	w := &watcher{
		pin:    pin,
		watch:  wt,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		bounce: bounce,
	}
	if cb != nil {
		w.callbacks = []Callback{cb}
	}
	if e.disp == nil {
		e.disp = newDispatcher()
	}
	e.watchers[pin] = w
	go w.run(e.disp)
	return nil
}

// AddCallback appends cb to an already watching pin. Callbacks run in
// registration order on every qualifying edge.
func (e *Engine) AddCallback(pin int, cb Callback, bounce time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.watchers[pin]
	if !ok {
		return errors.Wrapf(ErrNotWatching, "pin %d", pin)
	}
	w.cbMu.Lock()
	w.callbacks = append(w.callbacks, cb)
	if bounce > 0 {
		w.bounce = bounce
	}
	w.cbMu.Unlock()
	return nil
}

// Detected reports whether an edge occurred on pin since the previous call,
// clearing the latch. Pins that are not watching report false.
func (e *Engine) Detected(pin int) bool {
	e.mu.Lock()
	w, ok := e.watchers[pin]
	e.mu.Unlock()
	if !ok {
		return false
	}
	return w.latched.Swap(false)
}

// Remove stops the watcher for pin and joins it before returning, so no
// edge can be latched or dispatched afterwards. Removing a pin that is not
// watching is a no-op, which keeps cleanup paths unconditional.
func (e *Engine) Remove(pin int) error {
	e.mu.Lock()
	w, ok := e.watchers[pin]
	if ok {
		delete(e.watchers, pin)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}

	w.removed.Store(true)
	close(w.stop)
	w.watch.Cancel()
	<-w.done
	err := w.watch.Close()

	// The dispatcher only lives while pins are watched.
	e.mu.Lock()
	var d *dispatcher
	if len(e.watchers) == 0 && e.disp != nil {
		d, e.disp = e.disp, nil
	}
	e.mu.Unlock()
	if d != nil {
		d.close()
	}
	return err
}

// Watching reports whether pin currently has edge detection added.
func (e *Engine) Watching(pin int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.watchers[pin]
	return ok
}

type watcher struct {
	pin    int
	watch  Watch
	stop   chan struct{}
	done   chan struct{}
	bounce time.Duration // recorded only, debounce is not applied

	latched atomic.Bool
	removed atomic.Bool

	cbMu      sync.Mutex
	callbacks []Callback
}

func (w *watcher) run(d *dispatcher) {
	defer close(w.done)
	for {
		detected, err := w.watch.Wait(-1)
		if err != nil {
			select {
			case <-w.stop:
			default:
				logrus.WithError(err).Warnf("edge watcher for pin %d terminated", w.pin)
			}
			return
		}
		if !detected {
			continue
		}
		select {
		case <-w.stop:
			return
		default:
		}
		w.latched.Store(true)
		logrus.Debugf("edge detected on pin %d", w.pin)
		for _, cb := range w.snapshot() {
			if !d.enqueue(job{w: w, pin: w.pin, fn: cb}, w.stop) {
				return
			}
		}
	}
}

func (w *watcher) snapshot() []Callback {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	cbs := make([]Callback, len(w.callbacks))
	copy(cbs, w.callbacks)
	return cbs
}
