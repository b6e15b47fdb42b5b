package event

// The dispatcher serializes every user callback across all pins on one
// goroutine. Jobs execute strictly in arrival order; a slow callback delays
// everything behind it. That trade keeps callbacks from ever running
// concurrently with themselves or interleaving across pins.

type job struct {
	w   *watcher
	pin int
	fn  Callback
}

type dispatcher struct {
	jobs chan job
	quit chan struct{}
	done chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			return
		case j := <-d.jobs:
			// Jobs queued before their pin was removed are dropped, so
			// removal is a hard cutoff for callbacks too.
			if j.w != nil && j.w.removed.Load() {
				continue
			}
			j.fn(j.pin)
		}
	}
}

// enqueue offers a job, giving up if the watcher is stopping or the
// dispatcher shut down. Reports whether the job was accepted.
func (d *dispatcher) enqueue(j job, stop <-chan struct{}) bool {
	select {
	case d.jobs <- j:
		return true
	case <-stop:
		return false
	case <-d.quit:
		return false
	}
}

func (d *dispatcher) close() {
	close(d.quit)
	<-d.done
}
