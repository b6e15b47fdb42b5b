package pwm

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	. "github.com/onsi/gomega"
	perrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// fakeSysfs emulates the kernel PWM control surface, including the rule
// that no write may leave duty_cycle greater than period. Every accepted
// write is recorded so tests can assert ordering.
type fakeSysfs struct {
	mu       sync.Mutex
	busyOnce bool
	exported map[[2]int]bool
	period   map[[2]int]int64
	duty     map[[2]int]int64
	ops      []string
}

func newFakeSysfs() *fakeSysfs {
	return &fakeSysfs{
		exported: make(map[[2]int]bool),
		period:   make(map[[2]int]int64),
		duty:     make(map[[2]int]int64),
	}
}

func (f *fakeSysfs) record(format string, args ...interface{}) {
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *fakeSysfs) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.ops))
	copy(ops, f.ops)
	return ops
}

func (f *fakeSysfs) PWMExport(chip, pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("export")
	if f.busyOnce {
		f.busyOnce = false
		return perrors.Wrap(unix.EBUSY, "export pwm")
	}
	if f.exported[[2]int{chip, pin}] {
		return perrors.Wrap(unix.EBUSY, "export pwm")
	}
	f.exported[[2]int{chip, pin}] = true
	return nil
}

func (f *fakeSysfs) PWMUnexport(chip, pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unexport")
	delete(f.exported, [2]int{chip, pin})
	return nil
}

func (f *fakeSysfs) PWMPeriod(chip, pin int, period int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if period < f.duty[[2]int{chip, pin}] {
		return perrors.Errorf("period %d below duty cycle %d", period, f.duty[[2]int{chip, pin}])
	}
	f.record("period %d", period)
	f.period[[2]int{chip, pin}] = period
	return nil
}

func (f *fakeSysfs) PWMDutyCycle(chip, pin int, duty int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if duty > f.period[[2]int{chip, pin}] {
		return perrors.Errorf("duty cycle %d above period %d", duty, f.period[[2]int{chip, pin}])
	}
	f.record("duty %d", duty)
	f.duty[[2]int{chip, pin}] = duty
	return nil
}

func (f *fakeSysfs) PWMEnable(chip, pin int, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled {
		f.record("enable 1")
	} else {
		f.record("enable 0")
	}
	return nil
}

func (f *fakeSysfs) PWMPolarity(chip, pin int, inverted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inverted {
		f.record("polarity inversed")
	} else {
		f.record("polarity normal")
	}
	return nil
}

func mustOpen(t *testing.T, fs *fakeSysfs, hz, duty float64, opts ...Option) *Channel {
	t.Helper()
	c, err := Open(0, 0, hz, duty, append([]Option{WithSysfs(fs)}, opts...)...)
	if err != nil {
		t.Fatalf("open pwm: %v", err)
	}
	return c
}

func TestOpenWriteOrder(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	mustOpen(t, fs, 1000, 50)

	g.Expect(fs.opLog()).To(Equal([]string{
		"export", "polarity normal", "enable 1", "period 1000000",
	}))
}

func TestOpenInvertedPolarity(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	mustOpen(t, fs, 1000, 50, WithInvertedPolarity())

	g.Expect(fs.opLog()).To(ContainElement("polarity inversed"))
}

func TestOpenRetriesBusyExport(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	fs.busyOnce = true
	mustOpen(t, fs, 1000, 50)

	g.Expect(fs.opLog()[:3]).To(Equal([]string{"export", "unexport", "export"}))
}

func TestOpenRejectsBadParameters(t *testing.T) {
	g := NewWithT(t)

	_, err := Open(0, 0, 0, 50, WithSysfs(newFakeSysfs()))
	g.Expect(errors.Is(err, ErrOutOfRange)).To(BeTrue())

	_, err = Open(0, 0, 1000, 101, WithSysfs(newFakeSysfs()))
	g.Expect(errors.Is(err, ErrOutOfRange)).To(BeTrue())
}

func TestStartAndStop(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 1000, 50)

	g.Expect(c.Start()).To(Succeed())
	g.Expect(fs.opLog()).To(ContainElement("duty 500000"))

	g.Expect(c.Stop()).To(Succeed())
	ops := fs.opLog()
	g.Expect(ops[len(ops)-1]).To(Equal("duty 0"))
}

func TestSetDutyCycle(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 1000, 50)

	g.Expect(c.SetDutyCycle(25)).To(Succeed())
	ops := fs.opLog()
	g.Expect(ops[len(ops)-1]).To(Equal("duty 250000"))
	g.Expect(c.DutyCycle()).To(Equal(25.0))

	g.Expect(errors.Is(c.SetDutyCycle(-1), ErrOutOfRange)).To(BeTrue())
	g.Expect(errors.Is(c.SetDutyCycle(100.5), ErrOutOfRange)).To(BeTrue())
}

func TestChangeFrequencyDecreasingWritesPeriodFirst(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 1000, 50)
	g.Expect(c.Start()).To(Succeed())

	// 1000 Hz -> 500 Hz: the period grows, so it must be written before
	// the duty cycle to keep duty <= period at both steps.
	g.Expect(c.ChangeFrequency(500)).To(Succeed())
	ops := fs.opLog()
	g.Expect(ops[len(ops)-2:]).To(Equal([]string{"period 2000000", "duty 1000000"}))
	g.Expect(c.Frequency()).To(Equal(500.0))
}

func TestChangeFrequencyIncreasingWritesDutyFirst(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 1000, 50)
	g.Expect(c.Start()).To(Succeed())

	g.Expect(c.ChangeFrequency(2000)).To(Succeed())
	ops := fs.opLog()
	g.Expect(ops[len(ops)-2:]).To(Equal([]string{"duty 250000", "period 500000"}))
	g.Expect(c.Frequency()).To(Equal(2000.0))
}

func TestChangeFrequencyHalvingLongPeriod(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 4, 50)
	g.Expect(c.Start()).To(Succeed())

	g.Expect(c.ChangeFrequency(2)).To(Succeed())
	ops := fs.opLog()
	g.Expect(ops[len(ops)-2:]).To(Equal([]string{"period 500000000", "duty 250000000"}))
}

func TestChangeFrequencyRandomSequenceKeepsInvariant(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 1000, 75)
	g.Expect(c.Start()).To(Succeed())

	// The fake rejects any write that violates duty <= period, so a long
	// random walk over frequencies proves no intermediate state breaks
	// the rule and the write order matches the grow/shrink rule.
	rng := rand.New(rand.NewSource(1))
	old := c.Frequency()
	for i := 0; i < 200; i++ {
		next := float64(rng.Intn(100000) + 1)
		before := len(fs.opLog())
		g.Expect(c.ChangeFrequency(next)).To(Succeed())
		delta := fs.opLog()[before:]
		g.Expect(delta).To(HaveLen(2))
		if periodNs(next) > periodNs(old) {
			g.Expect(delta[0]).To(HavePrefix("period "))
		} else {
			g.Expect(delta[0]).To(HavePrefix("duty "))
		}
		old = next
	}
}

func TestChangeFrequencyRejectsNonPositive(t *testing.T) {
	g := NewWithT(t)
	c := mustOpen(t, newFakeSysfs(), 1000, 50)
	g.Expect(errors.Is(c.ChangeFrequency(0), ErrOutOfRange)).To(BeTrue())
}

func TestInvertPolarityDisablesAroundWrite(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 1000, 50)

	g.Expect(c.InvertPolarity()).To(Succeed())
	ops := fs.opLog()
	g.Expect(ops[len(ops)-3:]).To(Equal([]string{"enable 0", "polarity inversed", "enable 1"}))

	// The stored flag flips, so a second call restores normal polarity.
	g.Expect(c.InvertPolarity()).To(Succeed())
	ops = fs.opLog()
	g.Expect(ops[len(ops)-2]).To(Equal("polarity normal"))
}

func TestCloseMakesChannelUnusable(t *testing.T) {
	g := NewWithT(t)
	fs := newFakeSysfs()
	c := mustOpen(t, fs, 1000, 50)

	g.Expect(c.Close()).To(Succeed())
	ops := fs.opLog()
	g.Expect(ops[len(ops)-1]).To(Equal("unexport"))

	g.Expect(errors.Is(c.Start(), ErrClosed)).To(BeTrue())
	g.Expect(errors.Is(c.SetDutyCycle(10), ErrClosed)).To(BeTrue())
	g.Expect(errors.Is(c.ChangeFrequency(100), ErrClosed)).To(BeTrue())
	g.Expect(errors.Is(c.Close(), ErrClosed)).To(BeTrue())
}
