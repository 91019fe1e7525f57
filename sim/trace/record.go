// Package trace records what a simulation run did, for determinism checks and
// placement analysis. This package has no dependencies on sim/; it stores
// pure data types.
package trace

// DispatchRecord captures one dispatched event.
type DispatchRecord struct {
	Seq    uint64
	Time   float64
	Kind   string
	Entity string // e.g. "cloudlet-3", "vm-0"; empty for ticks
}

// PlacementRecord captures a single placement decision: a Vm onto a Host, or
// a Cloudlet onto a Vm.
type PlacementRecord struct {
	Time   float64
	Entity string // the Vm or Cloudlet being placed
	Target string // chosen Host or Vm; empty when placement failed
	Placed bool
	Reason string
}
