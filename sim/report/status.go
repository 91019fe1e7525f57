// Package report turns a running testbed into operator output: a periodic
// Vm status log, per-Vm utilization summaries and end-of-run tables.
package report

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cloudlet-sim/sim"
)

// StatusLogger logs the status of every Vm a broker submitted, at most once
// per interval of simulated time.
type StatusLogger struct {
	logger   *logrus.Logger
	broker   *sim.Broker
	interval float64
	next     float64
	lines    int
}

// NewStatusLogger creates a logger for b. A nil logger uses the standard
// logrus logger. Panics if interval <= 0.
func NewStatusLogger(logger *logrus.Logger, b *sim.Broker, interval float64) *StatusLogger {
	if interval <= 0 {
		panic("NewStatusLogger: interval must be > 0")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StatusLogger{logger: logger, broker: b, interval: interval}
}

// Install registers the logger as a clock tick listener.
func (l *StatusLogger) Install(reg *sim.ListenerRegistry) {
	reg.OnClockTick(l.onTick)
}

// Lines returns the number of status lines logged so far.
func (l *StatusLogger) Lines() int { return l.lines }

func (l *StatusLogger) onTick(info sim.ClockTickInfo) {
	if info.Time < l.next {
		return
	}
	for l.next <= info.Time {
		l.next += l.interval
	}
	for _, vm := range l.broker.VmsSubmitted() {
		l.logVm(info.Time, vm)
	}
}

func (l *StatusLogger) logVm(now float64, vm *sim.Vm) {
	host := "-"
	if h := vm.Host(); h != nil && vm.HoldsHostResources() {
		host = h.Name()
	}
	ram, bw := vm.Ram(), vm.Bw()
	l.logger.WithFields(logrus.Fields{
		"time":          now,
		"vm":            vm.Name(),
		"state":         vm.State().String(),
		"host":          host,
		"cloudlets":     vm.ResidentCloudlets(),
		"cpu":           vm.CpuUtilization(),
		"ram":           ram.Utilization(),
		"ram_allocated": ram.Allocated,
		"ram_capacity":  ram.Capacity,
		"ram_available": ram.Available,
		"bw":            bw.Utilization(),
		"bw_allocated":  bw.Allocated,
		"bw_capacity":   bw.Capacity,
		"bw_available":  bw.Available,
	}).Info("vm status")
	l.lines++
}
