package sysfs

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrCanceled is returned by EdgeWatch.Wait when Cancel interrupted it.
var ErrCanceled = errors.New("edge wait canceled")

// EdgeWatch blocks on edge notifications for one exported input pin. It
// holds the value attribute open and owns a wake pipe so that a concurrent
// Cancel unblocks an in-flight Wait promptly.
type EdgeWatch struct {
	fs    *FS
	pin   int
	value *os.File
	wake  [2]int
}

// Watch arms edge reporting on pin and returns a watch ready for Wait.
// The value attribute is read once up front: the kernel reports a priority
// event for the initial level, which would otherwise show up as a phantom
// edge on the first Wait.
func (fs *FS) Watch(pin int, e Edge) (*EdgeWatch, error) {
	if err := fs.SetEdge(pin, e); err != nil {
		return nil, err
	}
	value, err := os.OpenFile(fs.pinPath(pin, "value"), os.O_RDONLY, 0o600)
	if err != nil {
		return nil, errors.WithMessagef(err, "open value of gpio %d", pin)
	}
	w := &EdgeWatch{fs: fs, pin: pin, value: value}
	if err := unix.Pipe2(w.wake[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		value.Close()
		return nil, errors.Wrap(err, "create wake pipe")
	}
	w.consume()
	return w, nil
}

// Wait blocks until an armed edge occurs, the timeout elapses, or Cancel is
// called. A negative timeout blocks indefinitely; zero checks once and
// returns. It reports true when an edge occurred, false on timeout, and
// ErrCanceled after a Cancel.
func (w *EdgeWatch) Wait(timeout time.Duration) (bool, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	fds := []unix.PollFd{
		{Fd: int32(w.value.Fd()), Events: unix.POLLPRI | unix.POLLERR},
		{Fd: int32(w.wake[0]), Events: unix.POLLIN},
	}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, errors.Wrapf(err, "poll gpio %d", w.pin)
		}
		if n == 0 {
			return false, nil
		}
		if fds[1].Revents != 0 {
			w.drainWake()
			return false, errors.WithStack(ErrCanceled)
		}
		if fds[0].Revents&(unix.POLLPRI|unix.POLLERR) != 0 {
			w.consume()
			return true, nil
		}
	}
}

// Cancel unblocks any Wait in flight. Safe to call more than once and from
// another goroutine.
func (w *EdgeWatch) Cancel() {
	var one = [1]byte{1}
	unix.Write(w.wake[1], one[:])
}

// Close disarms edge reporting and releases the file descriptors.
func (w *EdgeWatch) Close() error {
	unix.Close(w.wake[0])
	unix.Close(w.wake[1])
	err := w.value.Close()
	if derr := w.fs.SetEdge(w.pin, EdgeNone); err == nil {
		err = derr
	}
	return err
}

// consume rereads the value attribute, acknowledging the pending priority
// event so the next poll waits for a fresh transition.
func (w *EdgeWatch) consume() {
	var buf [8]byte
	w.value.Seek(0, io.SeekStart)
	w.value.Read(buf[:])
}

func (w *EdgeWatch) drainWake() {
	var buf [8]byte
	for {
		if n, _ := unix.Read(w.wake[0], buf[:]); n <= 0 {
			return
		}
	}
}
