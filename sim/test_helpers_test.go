package sim

import (
	"github.com/uber-go/tally/v4"
)

// testbed bundles a simulation with one datacenter and one broker.
type testbed struct {
	sim    *Simulation
	dc     *Datacenter
	broker *Broker
	scope  tally.TestScope
}

// newTestbed builds a run with the given hosts, a 1s tick, first-fit and
// round-robin placement. idleDelay < 0 disables idle reclamation.
func newTestbed(terminateAt float64, hosts []*Host, idleDelay float64) *testbed {
	scope := tally.NewTestScope("", map[string]string{})
	s := NewSimulation(SimulationConfig{TerminateAt: terminateAt}, scope)
	dc := NewDatacenter(s, hosts, 1, nil)
	b := NewBroker(s, dc, nil, idleDelay)
	return &testbed{sim: s, dc: dc, broker: b, scope: scope}
}

// counter reads a counter from the test scope, 0 when never incremented.
func (tb *testbed) counter(name string) int64 {
	if c, ok := tb.scope.Snapshot().Counters()[name+"+"]; ok {
		return c.Value()
	}
	return 0
}

// bigHost has 64 PEs of 1000 MIPS and effectively unlimited RAM/BW/storage.
func bigHost(id int) *Host {
	return NewHost(id, UniformPes(64, 1000), 1e15, 1e15, 1e15)
}

// smallVm is a 1 PE, 1000 MIPS Vm with 1024 MB RAM and 100 Mbps BW.
func smallVm(id int) *Vm {
	return NewVm(id, VmSpec{Pes: 1, Mips: 1000, Ram: 1024, Bw: 100, Storage: 10000})
}
