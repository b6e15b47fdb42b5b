package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/Willy030125/OPi.GPIO/event"
	"github.com/Willy030125/OPi.GPIO/sysfs"
)

// fakeControl emulates the sysfs control surface in memory, recording every
// operation so tests can assert write order.
type fakeControl struct {
	mu       sync.Mutex
	busyOnce map[int]bool
	exported map[int]bool
	dirs     map[int]sysfs.Direction
	values   map[int]int
	leds     map[string]int
	ops      []string

	created chan *fakeWatch
}

func newFakeControl() *fakeControl {
	return &fakeControl{
		busyOnce: make(map[int]bool),
		exported: make(map[int]bool),
		dirs:     make(map[int]sysfs.Direction),
		values:   make(map[int]int),
		leds:     make(map[string]int),
		created:  make(chan *fakeWatch, 8),
	}
}

func (f *fakeControl) record(format string, args ...interface{}) {
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *fakeControl) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.ops))
	copy(ops, f.ops)
	return ops
}

func (f *fakeControl) Export(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("export %d", pin)
	if f.busyOnce[pin] {
		delete(f.busyOnce, pin)
		return errors.Wrapf(unix.EBUSY, "export gpio %d", pin)
	}
	if f.exported[pin] {
		return errors.Wrapf(unix.EBUSY, "export gpio %d", pin)
	}
	f.exported[pin] = true
	return nil
}

func (f *fakeControl) Unexport(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unexport %d", pin)
	delete(f.exported, pin)
	return nil
}

func (f *fakeControl) SetDirection(pin int, d sysfs.Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exported[pin] {
		return errors.Wrapf(unix.ENOENT, "gpio %d", pin)
	}
	f.record("direction %d=%s", pin, d)
	f.dirs[pin] = d
	return nil
}

func (f *fakeControl) ReadValue(pin int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exported[pin] {
		return 0, errors.Wrapf(unix.ENOENT, "gpio %d", pin)
	}
	return f.values[pin], nil
}

func (f *fakeControl) WriteValue(pin int, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exported[pin] {
		return errors.Wrapf(unix.ENOENT, "gpio %d", pin)
	}
	f.record("write %d=%d", pin, value)
	f.values[pin] = value
	return nil
}

func (f *fakeControl) SetLED(name string, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("led %s=%d", name, value)
	f.leds[name] = value
	return nil
}

func (f *fakeControl) Watch(pin int, e sysfs.Edge) (event.Watch, error) {
	w := newFakeWatch()
	f.created <- w
	return w, nil
}

// fakeWatch hands edges to a waiting watcher; fire blocks until the edge is
// consumed, which keeps tests deterministic.
type fakeWatch struct {
	edges  chan struct{}
	cancel chan struct{}
	once   sync.Once
}

func newFakeWatch() *fakeWatch {
	return &fakeWatch{edges: make(chan struct{}), cancel: make(chan struct{})}
}

func (w *fakeWatch) Wait(timeout time.Duration) (bool, error) {
	if timeout < 0 {
		select {
		case <-w.edges:
			return true, nil
		case <-w.cancel:
			return false, errors.New("canceled")
		}
	}
	select {
	case <-w.edges:
		return true, nil
	case <-w.cancel:
		return false, errors.New("canceled")
	case <-time.After(timeout):
		return false, nil
	}
}

func (w *fakeWatch) Cancel() {
	w.once.Do(func() { close(w.cancel) })
}

func (w *fakeWatch) Close() error { return nil }

func (w *fakeWatch) fire() { w.edges <- struct{}{} }
