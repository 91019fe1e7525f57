package report

import (
	"github.com/montanaflynn/stats"

	"github.com/inference-sim/cloudlet-sim/sim"
)

// Summary condenses a series of percentage samples.
type Summary struct {
	Mean float64
	P50  float64
	P95  float64
	Max  float64
}

// VmUtilization is the utilization history of one Vm, in percent.
type VmUtilization struct {
	VmID    int
	Samples int
	Cpu     Summary
	Ram     Summary
	Bw      Summary
}

type vmSeries struct {
	cpu, ram, bw []float64
}

// UtilizationSampler records CPU, RAM and BW utilization of a broker's Vms on
// every clock tick while they hold host resources.
type UtilizationSampler struct {
	broker *sim.Broker
	series map[int]*vmSeries
	order  []int
}

// NewUtilizationSampler creates a sampler for b.
func NewUtilizationSampler(b *sim.Broker) *UtilizationSampler {
	return &UtilizationSampler{broker: b, series: make(map[int]*vmSeries)}
}

// Install registers the sampler as a clock tick listener.
func (u *UtilizationSampler) Install(reg *sim.ListenerRegistry) {
	reg.OnClockTick(u.onTick)
}

func (u *UtilizationSampler) onTick(sim.ClockTickInfo) {
	for _, vm := range u.broker.VmsSubmitted() {
		if !vm.HoldsHostResources() {
			continue
		}
		s, ok := u.series[vm.ID()]
		if !ok {
			s = &vmSeries{}
			u.series[vm.ID()] = s
			u.order = append(u.order, vm.ID())
		}
		s.cpu = append(s.cpu, vm.CpuUtilization()*100)
		s.ram = append(s.ram, vm.Ram().Utilization()*100)
		s.bw = append(s.bw, vm.Bw().Utilization()*100)
	}
}

// Summaries returns one entry per sampled Vm, in first-sampled order.
func (u *UtilizationSampler) Summaries() []VmUtilization {
	out := make([]VmUtilization, 0, len(u.order))
	for _, id := range u.order {
		s := u.series[id]
		out = append(out, VmUtilization{
			VmID:    id,
			Samples: len(s.cpu),
			Cpu:     summarize(s.cpu),
			Ram:     summarize(s.ram),
			Bw:      summarize(s.bw),
		})
	}
	return out
}

// summarize returns the zero Summary for an empty series.
func summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	var s Summary
	s.Mean, _ = stats.Mean(data)
	s.P50, _ = stats.Percentile(data, 50)
	s.P95, _ = stats.Percentile(data, 95)
	s.Max, _ = stats.Max(data)
	return s
}
