package sim

import (
	"github.com/uber-go/tally/v4"
)

// Metrics holds the engine counters of one run.
type Metrics struct {
	EventsScheduled  tally.Counter
	EventsDispatched tally.Counter
	EventsDropped    tally.Counter // beyond the horizon
	EventsCancelled  tally.Counter

	VmAllocations        tally.Counter
	VmAllocationFailures tally.Counter
	VmsDestroyed         tally.Counter

	CloudletsFinished   tally.Counter
	CloudletsFailed     tally.Counter
	KeepAlivesSubmitted tally.Counter
	PlacementRetries    tally.Counter

	Clock tally.Gauge
}

// NewMetrics returns a new Metrics struct. A nil scope reports nowhere.
func NewMetrics(scope tally.Scope) *Metrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	simScope := scope.SubScope("sim")
	eventScope := simScope.SubScope("events")
	vmScope := simScope.SubScope("vm")
	cloudletScope := simScope.SubScope("cloudlet")

	return &Metrics{
		EventsScheduled:  eventScope.Counter("scheduled"),
		EventsDispatched: eventScope.Counter("dispatched"),
		EventsDropped:    eventScope.Counter("dropped"),
		EventsCancelled:  eventScope.Counter("cancelled"),

		VmAllocations:        vmScope.Counter("allocations"),
		VmAllocationFailures: vmScope.Counter("allocation_failures"),
		VmsDestroyed:         vmScope.Counter("destroyed"),

		CloudletsFinished:   cloudletScope.Counter("finished"),
		CloudletsFailed:     cloudletScope.Counter("failed"),
		KeepAlivesSubmitted: cloudletScope.Counter("keep_alives_submitted"),
		PlacementRetries:    simScope.Counter("placement_retries"),

		Clock: simScope.Gauge("clock"),
	}
}
