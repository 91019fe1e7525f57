package sim

import (
	"math"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/inference-sim/cloudlet-sim/sim/trace"
)

// SimulationConfig holds the run-wide parameters of a Simulation.
type SimulationConfig struct {
	TerminateAt float64          // horizon in seconds; <= 0 means no horizon
	Seed        int64            // master seed for PartitionedRNG
	TraceLevel  trace.TraceLevel // "" or "none" disables tracing
}

// Simulation owns the clock, the event queue and the listener registry of one
// run. It is NOT thread-safe: every mutation happens inside the dispatch of a
// single event on the caller's goroutine.
type Simulation struct {
	clock       float64
	terminateAt float64
	queue       *EventQueue
	listeners   *ListenerRegistry
	metrics     *Metrics
	trace       *trace.SimulationTrace
	rng         *PartitionedRNG
	dispatched  int
	hasRun      bool
	terminated  bool
}

// NewSimulation creates a simulation at clock 0. A nil scope disables metrics.
func NewSimulation(cfg SimulationConfig, scope tally.Scope) *Simulation {
	terminateAt := cfg.TerminateAt
	if terminateAt <= 0 || math.IsNaN(terminateAt) {
		terminateAt = math.Inf(1)
	}
	s := &Simulation{
		terminateAt: terminateAt,
		queue:       NewEventQueue(),
		listeners:   NewListenerRegistry(),
		metrics:     NewMetrics(scope),
		rng:         NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
	}
	if cfg.TraceLevel != "" && cfg.TraceLevel != trace.TraceLevelNone {
		s.trace = trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.TraceLevel})
	}
	return s
}

// Clock returns the current simulated time in seconds.
func (s *Simulation) Clock() float64 { return s.clock }

// TerminateAt returns the horizon, +Inf when unbounded.
func (s *Simulation) TerminateAt() float64 { return s.terminateAt }

// Listeners returns the registry for callback registration.
func (s *Simulation) Listeners() *ListenerRegistry { return s.listeners }

// Metrics returns the engine counters.
func (s *Simulation) Metrics() *Metrics { return s.metrics }

// Trace returns the recorded trace, or nil when tracing is off.
func (s *Simulation) Trace() *trace.SimulationTrace { return s.trace }

// RNG returns the partitioned RNG of this run.
func (s *Simulation) RNG() *PartitionedRNG { return s.rng }

// Pending returns the number of queued events.
func (s *Simulation) Pending() int { return s.queue.Len() }

// Dispatched returns the number of events dispatched so far.
func (s *Simulation) Dispatched() int { return s.dispatched }

// Terminated reports whether the SimulationTerminate event was dispatched.
func (s *Simulation) Terminated() bool { return s.terminated }

// Schedule queues ev. An event due before the clock is rejected with a
// CausalityViolation. An event due after the horizon, or scheduled once the
// run terminated, is dropped silently.
func (s *Simulation) Schedule(ev *Event) error {
	if ev == nil {
		panic("Simulation.Schedule: ev must not be nil")
	}
	if ev.index >= 0 || ev.dispatched {
		panic("Simulation.Schedule: event " + ev.String() + " already scheduled")
	}
	if ev.time < s.clock || math.IsNaN(ev.time) {
		entity := ev.entityID()
		if entity == "" {
			entity = ev.kind.String()
		}
		return newSimError(CausalityViolation, entity, s.clock, ErrCausality,
			"%s due at t=%.3f", ev.kind, ev.time)
	}
	if ev.time > s.terminateAt || s.terminated {
		s.metrics.EventsDropped.Inc(1)
		logrus.Debugf("[t=%8.3f] dropped %s beyond horizon %.3f", s.clock, ev, s.terminateAt)
		return nil
	}
	s.queue.Push(ev)
	s.metrics.EventsScheduled.Inc(1)
	return nil
}

// mustSchedule is Schedule for engine-internal events, which are never in the
// past unless the engine is broken.
func (s *Simulation) mustSchedule(ev *Event) {
	if err := s.Schedule(ev); err != nil {
		panic(err)
	}
}

// Cancel withdraws ev before dispatch. Returns false if ev is not queued.
func (s *Simulation) Cancel(ev *Event) bool {
	if !s.queue.Remove(ev) {
		return false
	}
	s.metrics.EventsCancelled.Inc(1)
	logrus.Debugf("[t=%8.3f] cancelled %s", s.clock, ev)
	return true
}

// Advance dispatches the earliest queued event. It returns false when the
// queue is empty or the dispatched event terminated the run.
func (s *Simulation) Advance() bool {
	if s.terminated {
		return false
	}
	ev := s.queue.PopNext()
	if ev == nil {
		return false
	}
	s.clock = ev.time
	ev.dispatched = true
	s.dispatched++
	s.metrics.EventsDispatched.Inc(1)
	s.metrics.Clock.Update(s.clock)
	if s.trace != nil {
		s.trace.RecordDispatch(trace.DispatchRecord{
			Seq:    ev.seq,
			Time:   ev.time,
			Kind:   ev.kind.String(),
			Entity: ev.entityID(),
		})
	}

	s.listeners.dispatch(ev)

	if ev.kind == SimulationTerminate {
		s.terminated = true
		return false
	}
	return true
}

// Run advances until the horizon is reached or no events remain. A fatal
// *SimError raised by a listener aborts the run and is returned.
// Panics if called more than once.
func (s *Simulation) Run() (err error) {
	if s.hasRun {
		panic("Simulation.Run() called more than once")
	}
	s.hasRun = true

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		se, ok := r.(*SimError)
		if !ok {
			panic(r)
		}
		if se.Time == 0 {
			se.Time = s.clock
		}
		logrus.Errorf("[t=%8.3f] run aborted: %v", s.clock, se)
		err = se
	}()

	if !math.IsInf(s.terminateAt, 1) {
		s.mustSchedule(NewEvent(s.terminateAt, SimulationTerminate))
	}
	for s.Advance() {
	}
	logrus.Infof("[t=%8.3f] simulation finished after %d events", s.clock, s.dispatched)
	return nil
}
