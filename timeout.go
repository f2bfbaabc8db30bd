package detektor

import (
	"slices"
	"time"

	"golang.org/x/exp/maps"
)

// TimeoutPublisherHandle identifies one timer within a
// TimeoutPublisherService.
type TimeoutPublisherHandle int

// InvalidTimeoutPublisherHandle is a "no handle" marker. UniqueTimerHandle
// never vends it: vended handles start at zero and count up.
const InvalidTimeoutPublisherHandle TimeoutPublisherHandle = -1

// TimerCallbacks is the surface a TimerDriver reports into: drivers call
// TimeoutExpired when an armed timer fires and MetronomeFired on each
// metronome tick. Both must be invoked on the goroutine driving the
// graph (see Runner.Do for drivers backed by real timers).
type TimerCallbacks interface {
	TimeoutExpired(TimeoutPublisherHandle)
	MetronomeFired()
}

// TimerDriver abstracts the actual timer mechanism behind a
// TimeoutPublisherService: wall-clock timers in production, manual time
// in tests (dgtest.TimerDriver).
type TimerDriver interface {
	// Attach hands the driver its callback surface before any timer is
	// armed.
	Attach(TimerCallbacks)

	// SetTimeout arms (or re-arms) the timer behind handle to fire after
	// d; Start starts it. Cancel stops it.
	SetTimeout(d time.Duration, handle TimeoutPublisherHandle)
	Start(handle TimeoutPublisherHandle)
	Cancel(handle TimeoutPublisherHandle)

	// StartMetronome begins periodic MetronomeFired callbacks at the
	// given period; CancelMetronome stops them.
	StartMetronome(period time.Duration)
	CancelMetronome()

	// Now returns wall time; it may jump on time sync. MonotonicNow
	// returns a strictly increasing offset from an unspecified origin,
	// stable for the driver's lifetime.
	Now() time.Time
	MonotonicNow() time.Duration
}

// timeoutDispatcher is the type-erased capsule holding a scheduled
// TopicState until its timer fires.
type timeoutDispatcher interface {
	dispatchInto(g *Graph) error
}

type timeoutCapsule[T any] struct {
	value T
}

func (c timeoutCapsule[T]) dispatchInto(g *Graph) error {
	return PushData(g, c.value)
}

// periodicSeries tracks one periodic publication against the shared
// metronome. The counter advances every metronome tick; the series fires
// whenever enough ticks accumulate to cover its own period.
type periodicSeries struct {
	period     time.Duration
	counter    int64
	dispatcher timeoutDispatcher
}

// TimeoutPublisherService adds the notion of timed publications to a
// graph. It is shared among the TimeoutPublisher capabilities of many
// detectors; expired timers push their TopicState through the ordinary
// input queue, so timed publications obey the same one-input-per-
// evaluation rhythm as external pushes.
//
// The service is driven by a TimerDriver and must only be touched from
// the graph's goroutine.
type TimeoutPublisherService struct {
	graph  *Graph
	driver TimerDriver

	nextHandle      TimeoutPublisherHandle
	scheduled       map[TimeoutPublisherHandle]timeoutDispatcher
	periodic        []periodicSeries
	metronomePeriod time.Duration
}

// NewTimeoutPublisherService creates a service publishing expired timers
// into graph, with timers supplied by driver.
func NewTimeoutPublisherService(graph *Graph, driver TimerDriver) *TimeoutPublisherService {
	s := &TimeoutPublisherService{
		graph:     graph,
		driver:    driver,
		scheduled: make(map[TimeoutPublisherHandle]timeoutDispatcher),
	}
	driver.Attach(s)
	return s
}

// UniqueTimerHandle vends a fresh handle. Each TimeoutPublisher acquires
// one for its default timer; detectors juggling several concurrent
// timers acquire more.
func (s *TimeoutPublisherService) UniqueTimerHandle() TimeoutPublisherHandle {
	h := s.nextHandle
	s.nextHandle++
	return h
}

// ScheduleTimeout arms handle to publish value after delay. Scheduling on
// a pending handle resets it, canceling the previous timeout.
func ScheduleTimeout[T any](s *TimeoutPublisherService, value T, delay time.Duration, handle TimeoutPublisherHandle) {
	s.CancelPublishOnTimeout(handle)
	s.graph.log.Debug("scheduling timeout", "topic", typeName(typeOf[T]()), "delay", delay)
	s.scheduled[handle] = timeoutCapsule[T]{value: value}
	s.driver.SetTimeout(delay, handle)
	s.driver.Start(handle)
}

// SchedulePeriodicPublishing registers a zero value of T for publishing
// every period. The shared metronome period is folded to the GCD of all
// requested periods; StartPeriodicPublishing starts the metronome.
func SchedulePeriodicPublishing[T any](s *TimeoutPublisherService, period time.Duration) {
	s.metronomePeriod = gcd(period, s.metronomePeriod)
	s.periodic = append(s.periodic, periodicSeries{
		period:     period,
		dispatcher: timeoutCapsule[T]{},
	})
}

// StartPeriodicPublishing starts the metronome serving all periodic
// publications registered so far.
func (s *TimeoutPublisherService) StartPeriodicPublishing() {
	if s.metronomePeriod > 0 {
		s.driver.StartMetronome(s.metronomePeriod)
	}
}

// CancelPublishOnTimeout cancels the timer behind handle and drops its
// stored TopicState. Canceling an idle handle is a no-op.
func (s *TimeoutPublisherService) CancelPublishOnTimeout(handle TimeoutPublisherHandle) {
	if _, ok := s.scheduled[handle]; !ok {
		return
	}
	s.driver.Cancel(handle)
	delete(s.scheduled, handle)
}

// HasTimeoutExpired reports whether handle has no pending publication:
// its timer has fired, was canceled, or never existed.
func (s *TimeoutPublisherService) HasTimeoutExpired(handle TimeoutPublisherHandle) bool {
	_, pending := s.scheduled[handle]
	return !pending
}

// TimeoutExpired dispatches the TopicState pending on handle. Called by
// TimerDrivers when their timer fires.
func (s *TimeoutPublisherService) TimeoutExpired(handle TimeoutPublisherHandle) {
	d, ok := s.scheduled[handle]
	if !ok {
		return
	}
	delete(s.scheduled, handle)
	if err := d.dispatchInto(s.graph); err != nil {
		s.graph.log.Error("timeout publish failed", "err", err)
	}
}

// MetronomeFired advances every periodic series by one metronome tick and
// dispatches those that completed their own period. Called by
// TimerDrivers.
func (s *TimeoutPublisherService) MetronomeFired() {
	for i := range s.periodic {
		p := &s.periodic[i]
		p.counter++
		if p.counter >= int64(p.period/s.metronomePeriod) {
			if err := p.dispatcher.dispatchInto(s.graph); err != nil {
				s.graph.log.Error("periodic publish failed", "err", err)
			}
			p.counter = 0
		}
	}
}

// Time returns the driver's wall clock; detectors use it to stamp
// TopicStates. It may jump back and forth on time sync.
func (s *TimeoutPublisherService) Time() time.Time {
	return s.driver.Now()
}

// MonotonicTime returns the driver's monotonic clock.
func (s *TimeoutPublisherService) MonotonicTime() time.Duration {
	return s.driver.MonotonicNow()
}

// PendingHandles returns the handles with armed timers, sorted. Intended
// for tests and diagnostics.
func (s *TimeoutPublisherService) PendingHandles() []TimeoutPublisherHandle {
	handles := maps.Keys(s.scheduled)
	slices.Sort(handles)
	return handles
}

var _ TimerCallbacks = (*TimeoutPublisherService)(nil)

func gcd(lhs, rhs time.Duration) time.Duration {
	for rhs != 0 {
		lhs, rhs = rhs, lhs%rhs
	}
	return lhs
}

// TimeoutPublisher is a detector's capability to schedule kind T for
// publishing in the future. Like FuturePublisher the published value
// takes the input-queue path, so sort constraints do not apply and a
// detector may publish to a topic it subscribes to.
type TimeoutPublisher[T any] struct {
	service       *TimeoutPublisherService
	defaultHandle TimeoutPublisherHandle
}

// NewTimeoutPublisher declares that detector n publishes kind T on
// timeouts served by service. A default timer handle is acquired for the
// single-timer convenience API.
func NewTimeoutPublisher[T any](n *DetectorNode, service *TimeoutPublisherService) (TimeoutPublisher[T], error) {
	topic, err := ResolveTopic[T](n.graph)
	if err != nil {
		return TimeoutPublisher[T]{}, err
	}
	n.graph.markFutureEdge(n, topic)
	return TimeoutPublisher[T]{
		service:       service,
		defaultHandle: service.UniqueTimerHandle(),
	}, nil
}

// MustNewTimeoutPublisher is NewTimeoutPublisher, panicking on error.
func MustNewTimeoutPublisher[T any](n *DetectorNode, service *TimeoutPublisherService) TimeoutPublisher[T] {
	p, err := NewTimeoutPublisher[T](n, service)
	if err != nil {
		panic(err)
	}
	return p
}

// PublishOnTimeout schedules value for publishing after delay on the
// default timer, resetting any pending timeout on it.
func (p TimeoutPublisher[T]) PublishOnTimeout(value T, delay time.Duration) {
	ScheduleTimeout(p.service, value, delay, p.defaultHandle)
}

// PublishOnTimeoutHandle is PublishOnTimeout on an explicit handle, for
// detectors controlling multiple concurrent timers.
func (p TimeoutPublisher[T]) PublishOnTimeoutHandle(value T, delay time.Duration, handle TimeoutPublisherHandle) {
	ScheduleTimeout(p.service, value, delay, handle)
}

// CancelPublishOnTimeout cancels the default timer's pending publication.
func (p TimeoutPublisher[T]) CancelPublishOnTimeout() {
	p.service.CancelPublishOnTimeout(p.defaultHandle)
}

// HasTimeoutExpired reports whether the default timer has no pending
// publication (it fired, was canceled, or was never scheduled).
func (p TimeoutPublisher[T]) HasTimeoutExpired() bool {
	return p.service.HasTimeoutExpired(p.defaultHandle)
}

// SetupPeriodicPublishing declares that detector n is fed kind T
// periodically: a zero value of T is published every period once the
// service's metronome runs.
func SetupPeriodicPublishing[T any](n *DetectorNode, service *TimeoutPublisherService, period time.Duration) error {
	topic, err := ResolveTopic[T](n.graph)
	if err != nil {
		return err
	}
	n.graph.markFutureEdge(n, topic)
	SchedulePeriodicPublishing[T](service, period)
	return nil
}

// MustSetupPeriodicPublishing is SetupPeriodicPublishing, panicking on
// error.
func MustSetupPeriodicPublishing[T any](n *DetectorNode, service *TimeoutPublisherService, period time.Duration) {
	if err := SetupPeriodicPublishing[T](n, service, period); err != nil {
		panic(err)
	}
}

// SystemTimerDriver is a TimerDriver backed by real time.Timer timers.
// Expirations are delivered through an Executor (normally a Runner) so
// the callbacks land on the graph's goroutine.
type SystemTimerDriver struct {
	exec      Executor
	callbacks TimerCallbacks

	timeouts  map[TimeoutPublisherHandle]*systemTimer
	metronome *time.Ticker
	metroDone chan struct{}
	origin    time.Time
}

type systemTimer struct {
	delay time.Duration
	timer *time.Timer
}

// Executor serializes a function onto the graph's goroutine. Runner
// implements it.
type Executor interface {
	Do(func() error) error
}

// NewSystemTimerDriver creates a wall-clock driver delivering expirations
// through exec.
func NewSystemTimerDriver(exec Executor) *SystemTimerDriver {
	return &SystemTimerDriver{
		exec:     exec,
		timeouts: make(map[TimeoutPublisherHandle]*systemTimer),
		origin:   time.Now(),
	}
}

// Attach implements TimerDriver.
func (d *SystemTimerDriver) Attach(cb TimerCallbacks) {
	d.callbacks = cb
}

// SetTimeout implements TimerDriver.
func (d *SystemTimerDriver) SetTimeout(delay time.Duration, handle TimeoutPublisherHandle) {
	d.Cancel(handle)
	d.timeouts[handle] = &systemTimer{delay: delay}
}

// Start implements TimerDriver.
func (d *SystemTimerDriver) Start(handle TimeoutPublisherHandle) {
	t, ok := d.timeouts[handle]
	if !ok || t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.delay, func() {
		// Ignore ErrRunnerClosed: a timer racing shutdown has nowhere to
		// deliver.
		_ = d.exec.Do(func() error {
			d.callbacks.TimeoutExpired(handle)
			return nil
		})
	})
}

// Cancel implements TimerDriver.
func (d *SystemTimerDriver) Cancel(handle TimeoutPublisherHandle) {
	if t, ok := d.timeouts[handle]; ok {
		if t.timer != nil {
			t.timer.Stop()
		}
		delete(d.timeouts, handle)
	}
}

// StartMetronome implements TimerDriver.
func (d *SystemTimerDriver) StartMetronome(period time.Duration) {
	d.CancelMetronome()
	d.metronome = time.NewTicker(period)
	d.metroDone = make(chan struct{})
	done := d.metroDone
	ticker := d.metronome
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = d.exec.Do(func() error {
					d.callbacks.MetronomeFired()
					return nil
				})
			}
		}
	}()
}

// CancelMetronome implements TimerDriver.
func (d *SystemTimerDriver) CancelMetronome() {
	if d.metronome != nil {
		d.metronome.Stop()
		close(d.metroDone)
		d.metronome = nil
		d.metroDone = nil
	}
}

// Close stops every armed timer and the metronome.
func (d *SystemTimerDriver) Close() {
	for h := range d.timeouts {
		d.Cancel(h)
	}
	d.CancelMetronome()
}

// Now implements TimerDriver.
func (d *SystemTimerDriver) Now() time.Time {
	return time.Now()
}

// MonotonicNow implements TimerDriver.
func (d *SystemTimerDriver) MonotonicNow() time.Duration {
	return time.Since(d.origin)
}

var _ TimerDriver = (*SystemTimerDriver)(nil)
