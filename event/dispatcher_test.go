package event

import (
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestDispatcherRunsJobsInArrivalOrder(t *testing.T) {
	g := NewWithT(t)
	d := newDispatcher()
	defer d.close()

	var mu sync.Mutex
	var got []int
	stop := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		ok := d.enqueue(job{pin: i, fn: func(int) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}}, stop)
		g.Expect(ok).To(BeTrue())
	}

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	g.Eventually(func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), got...)
	}).Should(Equal(want))
}

func TestSlowCallbackDelaysEveryPin(t *testing.T) {
	g := NewWithT(t)
	d := newDispatcher()
	defer d.close()

	var mu sync.Mutex
	var slowDone, fastStart time.Time
	stop := make(chan struct{})

	d.enqueue(job{pin: 1, fn: func(int) {
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		slowDone = time.Now()
		mu.Unlock()
	}}, stop)
	d.enqueue(job{pin: 2, fn: func(int) {
		mu.Lock()
		fastStart = time.Now()
		mu.Unlock()
	}}, stop)

	g.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !fastStart.IsZero()
	}).Should(BeTrue())

	// The pin 2 callback could not start before the slow pin 1 callback
	// finished: one worker serializes everything.
	mu.Lock()
	defer mu.Unlock()
	g.Expect(fastStart.Before(slowDone)).To(BeFalse())
}

func TestEnqueueGivesUpWhenStopping(t *testing.T) {
	g := NewWithT(t)
	d := newDispatcher()
	defer d.close()

	// Fill the queue behind a blocked worker.
	block := make(chan struct{})
	stop := make(chan struct{})
	d.enqueue(job{pin: 0, fn: func(int) { <-block }}, stop)
	for i := 0; i < cap(d.jobs); i++ {
		d.enqueue(job{pin: 0, fn: func(int) {}}, stop)
	}

	close(stop)
	g.Expect(d.enqueue(job{pin: 0, fn: func(int) {}}, stop)).To(BeFalse())
	close(block)
}
