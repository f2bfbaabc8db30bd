package dgtest

import (
	"time"

	"github.com/birdayz/detektor"
)

// metronomeHandle marks the metronome slot in the deadline scan. User
// handles vended by TimeoutPublisherService are never negative.
const metronomeHandle detektor.TimeoutPublisherHandle = -1

// TimerDriver is a manual-time detektor.TimerDriver. Time only moves
// when the test says so: FireNextTimeout jumps to the next armed
// deadline, ForwardTimeAndEvaluate replays all deadlines within a
// window against a graph. The monotonic clock is the accumulated
// elapsed time; the wall clock adds an adjustable offset on top.
type TimerDriver struct {
	callbacks detektor.TimerCallbacks

	// deadlines maps armed handles to absolute elapsed-time deadlines.
	deadlines map[detektor.TimeoutPublisherHandle]time.Duration

	elapsed         time.Duration
	wallClockOffset time.Duration
	metronomePeriod time.Duration
}

// NewTimerDriver creates a driver at elapsed time zero.
func NewTimerDriver() *TimerDriver {
	return &TimerDriver{
		deadlines: make(map[detektor.TimeoutPublisherHandle]time.Duration),
	}
}

// Attach implements detektor.TimerDriver.
func (d *TimerDriver) Attach(cb detektor.TimerCallbacks) {
	d.callbacks = cb
}

// SetTimeout implements detektor.TimerDriver.
func (d *TimerDriver) SetTimeout(delay time.Duration, handle detektor.TimeoutPublisherHandle) {
	d.deadlines[handle] = d.elapsed + delay
}

// Start implements detektor.TimerDriver. Deadlines are armed by
// SetTimeout; nothing to do.
func (d *TimerDriver) Start(detektor.TimeoutPublisherHandle) {}

// Cancel implements detektor.TimerDriver.
func (d *TimerDriver) Cancel(handle detektor.TimeoutPublisherHandle) {
	delete(d.deadlines, handle)
}

// StartMetronome implements detektor.TimerDriver.
func (d *TimerDriver) StartMetronome(period time.Duration) {
	d.metronomePeriod = period
	d.deadlines[metronomeHandle] = d.elapsed + period
}

// CancelMetronome implements detektor.TimerDriver.
func (d *TimerDriver) CancelMetronome() {
	delete(d.deadlines, metronomeHandle)
}

// Now implements detektor.TimerDriver.
func (d *TimerDriver) Now() time.Time {
	return time.Unix(0, 0).Add(d.elapsed + d.wallClockOffset)
}

// MonotonicNow implements detektor.TimerDriver.
func (d *TimerDriver) MonotonicNow() time.Duration {
	return d.elapsed
}

// SetWallClockOffset skews Now relative to the monotonic clock,
// simulating time sync jumps.
func (d *TimerDriver) SetWallClockOffset(offset time.Duration) {
	d.wallClockOffset = offset
}

// MetronomePeriod returns the period the service started the metronome
// with (the GCD of all scheduled periodic publications).
func (d *TimerDriver) MetronomePeriod() time.Duration {
	return d.metronomePeriod
}

// FireNextTimeout jumps to the earliest armed deadline and fires it.
// Reports whether any timer was armed.
func (d *TimerDriver) FireNextTimeout() bool {
	handle, deadline, ok := d.nextTimeout()
	if !ok {
		return false
	}
	d.elapsed = deadline
	d.fire(handle)
	return true
}

// ForwardTimeAndEvaluate advances time by fwd, firing every deadline in
// the window in order and flushing the graph after each one. Reports
// whether at least one timer fired.
//
// When a deadline lands exactly on the target time, the graph is
// evaluated only once for it: the target is the "moment of interest"
// for a test, and exiting there lets the test inspect all outputs
// produced for that particular moment.
func (d *TimerDriver) ForwardTimeAndEvaluate(fwd time.Duration, g *detektor.Graph) (bool, error) {
	fired := false
	finalDeadline := d.elapsed + fwd

	if fwd > 0 {
		if err := Flush(g); err != nil {
			return fired, err
		}
	}

	for {
		handle, deadline, ok := d.nextTimeout()
		if !ok || deadline > finalDeadline {
			break
		}

		d.elapsed = deadline
		d.fire(handle)
		fired = true

		for g.HasDataPending() {
			if err := g.Evaluate(); err != nil {
				return fired, err
			}
			if deadline == finalDeadline {
				break
			}
		}
	}

	d.elapsed = finalDeadline
	return fired, nil
}

func (d *TimerDriver) fire(handle detektor.TimeoutPublisherHandle) {
	if handle == metronomeHandle {
		d.callbacks.MetronomeFired()
		d.deadlines[metronomeHandle] = d.elapsed + d.metronomePeriod
		return
	}
	delete(d.deadlines, handle)
	d.callbacks.TimeoutExpired(handle)
}

func (d *TimerDriver) nextTimeout() (detektor.TimeoutPublisherHandle, time.Duration, bool) {
	var (
		minHandle   detektor.TimeoutPublisherHandle
		minDeadline time.Duration
		found       bool
	)
	for handle, deadline := range d.deadlines {
		if !found || deadline < minDeadline || (deadline == minDeadline && handle < minHandle) {
			minHandle, minDeadline, found = handle, deadline, true
		}
	}
	return minHandle, minDeadline, found
}

var _ detektor.TimerDriver = (*TimerDriver)(nil)
