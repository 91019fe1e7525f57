// Package sim provides the discrete-event engine for the cloudlet testbed.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: Event kinds and the (timestamp, sequence) ordered queue
//   - simulation.go: the clock, the run loop and cancellation
//   - listener.go: the typed listener tables dispatched per event kind
//
// Then the resource model, leaf-first:
//   - ledger.go: single-dimension capacity accounting with overcommit rejection
//   - host.go, vm.go, cloudlet.go: the entities and their lifecycle states
//   - utilization.go: Full, Dynamic and Stochastic utilization models
//   - scheduler.go: the per-Vm time-shared cloudlet scheduler
//   - datacenter.go, broker.go: periodic processing and placement with retries
//   - keepalive.go: the isolated keep-alive cloudlet policy
//
// # Architecture
//
// The sim package holds the core only. Reporting, the dispatch trace and the
// configuration-driven composition live in sub-packages:
//   - sim/trace/: dispatch trace records (pure data)
//   - sim/report/: status logging, utilization summaries, cloudlet tables
//   - sim/testbed/: builds a full run from a Config
//
// # Key Interfaces
//
//   - UtilizationModel: elapsed time to a utilization fraction
//   - HostSelectionPolicy: pick a Host for a Vm
//   - VmSelectionPolicy: pick a Vm for a Cloudlet
//
// Nothing in this package is thread-safe. A Simulation and everything attached
// to it must be driven from a single goroutine.
package sim
