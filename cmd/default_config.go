package cmd

import (
	"math"

	"github.com/inference-sim/cloudlet-sim/sim"
)

// DefaultConfig returns the built-in testbed: 64 hosts of 64 PEs at
// 1000 MIPS with unbounded RAM, BW and storage, one small Vm and two 2-PE
// cloudlets, run to t=70 with keep-alive on.
func DefaultConfig() sim.Config {
	return sim.Config{
		Simulation: sim.SimulationSection{TerminateAt: 70, Seed: 42, Trace: "none"},
		Datacenter: sim.DatacenterConfig{SchedulingInterval: 1, HostSelection: "first-fit"},
		Host: sim.HostConfig{
			Num:     64,
			Pes:     64,
			Mips:    1000,
			Ram:     math.MaxInt64,
			Bw:      math.MaxInt64,
			Storage: math.MaxInt64,
		},
		Vm: sim.VmConfig{
			Num:           1,
			Pes:           1,
			Mips:          1000,
			Ram:           1024,
			Bw:            100,
			Storage:       10000,
			ShutdownDelay: 10,
		},
		Cloudlet: sim.CloudletConfig{
			Num:    2,
			Pes:    2,
			Length: 1000,
			Cpu:    sim.UtilizationSpec{Model: "dynamic", Value: 1},
			Ram:    sim.UtilizationSpec{Model: "dynamic", Value: 0.001},
			Bw:     sim.UtilizationSpec{Model: "dynamic", Value: 0.01},
		},
		Broker:    sim.BrokerConfig{VmSelection: "round-robin"},
		KeepAlive: sim.KeepAliveSection{Enabled: true, Length: 1},
	}
}
