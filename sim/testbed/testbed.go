// Package testbed composes a complete run from a sim.Config: identical hosts
// in one datacenter, one broker with its Vms and cloudlets, the keep-alive
// policy and the reporting listeners.
package testbed

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/inference-sim/cloudlet-sim/sim"
	"github.com/inference-sim/cloudlet-sim/sim/report"
	"github.com/inference-sim/cloudlet-sim/sim/trace"
)

// Testbed holds every entity of one run. It is single-use.
type Testbed struct {
	config     sim.Config
	sim        *sim.Simulation
	datacenter *sim.Datacenter
	broker     *sim.Broker
	keepAlive  *sim.KeepAlivePolicy
	sampler    *report.UtilizationSampler
	status     *report.StatusLogger
	vms        []*sim.Vm
	cloudlets  []*sim.Cloudlet
	shutdown   bool
	hasRun     bool
}

// Result is the outcome of Testbed.Run.
type Result struct {
	sim.Result
	Dispatched          int
	KeepAlivesSubmitted int
	Utilization         []report.VmUtilization
	Trace               *trace.SimulationTrace // nil unless tracing was enabled
}

// New validates cfg and builds the run. A nil scope disables metrics; a nil
// logger sends status lines to the standard logrus logger.
func New(cfg sim.Config, scope tally.Scope, logger *logrus.Logger) (*Testbed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	s := sim.NewSimulation(cfg.SimulationConfig(), scope)

	hosts := make([]*sim.Host, cfg.Host.Num)
	for i := range hosts {
		hosts[i] = sim.NewHost(i, sim.UniformPes(cfg.Host.Pes, cfg.Host.Mips), cfg.Host.Ram, cfg.Host.Bw, cfg.Host.Storage)
	}
	dc := sim.NewDatacenter(s, hosts, cfg.Datacenter.SchedulingInterval,
		sim.NewHostSelectionPolicy(cfg.Datacenter.HostSelection))
	vmPolicy := sim.NewVmSelectionPolicy(cfg.Broker.VmSelection, s.RNG().ForSubsystem(sim.SubsystemPlacement))
	b := sim.NewBroker(s, dc, vmPolicy, cfg.Broker.IdleDestructionDelay)

	tb := &Testbed{
		config:     cfg,
		sim:        s,
		datacenter: dc,
		broker:     b,
		keepAlive:  sim.NewKeepAlivePolicy(b, sim.KeepAliveConfig{Enabled: cfg.KeepAlive.Enabled, Length: cfg.KeepAlive.Length}),
		sampler:    report.NewUtilizationSampler(b),
	}
	tb.keepAlive.Install(s.Listeners())
	tb.sampler.Install(s.Listeners())
	if cfg.Report.StatusInterval > 0 {
		tb.status = report.NewStatusLogger(logger, b, cfg.Report.StatusInterval)
		tb.status.Install(s.Listeners())
	}
	if cfg.Vm.ShutdownAt > 0 {
		s.Listeners().OnClockTick(tb.onTick)
	}

	tb.vms = make([]*sim.Vm, cfg.Vm.Num)
	for i := range tb.vms {
		tb.vms[i] = sim.NewVm(i, cfg.Vm.VmSpec())
	}

	seeds := s.RNG().ForSubsystem(sim.SubsystemUtilization)
	tb.cloudlets = make([]*sim.Cloudlet, cfg.Cloudlet.Num)
	for i := range tb.cloudlets {
		cpu := cfg.Cloudlet.Cpu.Build(seeds.Int63())
		ram := cfg.Cloudlet.Ram.Build(seeds.Int63())
		bw := cfg.Cloudlet.Bw.Build(seeds.Int63())
		tb.cloudlets[i] = sim.NewCloudlet(i, cfg.Cloudlet.Length, cfg.Cloudlet.Pes).SetUtilizationModels(cpu, ram, bw)
	}
	return tb, nil
}

// Simulation returns the underlying simulation.
func (tb *Testbed) Simulation() *sim.Simulation { return tb.sim }

// Datacenter returns the single datacenter.
func (tb *Testbed) Datacenter() *sim.Datacenter { return tb.datacenter }

// Broker returns the single broker.
func (tb *Testbed) Broker() *sim.Broker { return tb.broker }

// Vms returns the configured Vms in id order.
func (tb *Testbed) Vms() []*sim.Vm { return tb.vms }

// Cloudlets returns the configured cloudlets in id order, excluding
// keep-alives.
func (tb *Testbed) Cloudlets() []*sim.Cloudlet { return tb.cloudlets }

// Run submits every Vm and cloudlet at t=0 and runs to the horizon.
// Returns a *sim.SimError on a fatal engine error. Panics if called more
// than once.
func (tb *Testbed) Run() (Result, error) {
	if tb.hasRun {
		panic("Testbed.Run() called more than once")
	}
	tb.hasRun = true

	tb.broker.SubmitVmList(tb.vms)
	tb.broker.SubmitCloudletList(tb.cloudlets)
	if err := tb.sim.Run(); err != nil {
		return Result{}, err
	}

	res := Result{
		Result:              tb.broker.Result(),
		Dispatched:          tb.sim.Dispatched(),
		KeepAlivesSubmitted: tb.keepAlive.Submitted(),
		Utilization:         tb.sampler.Summaries(),
		Trace:               tb.sim.Trace(),
	}
	for _, e := range res.AllocationTimeouts() {
		logrus.Warnf("%v", e)
	}
	return res, nil
}

// onTick requests the configured explicit shutdown once.
func (tb *Testbed) onTick(info sim.ClockTickInfo) {
	if tb.shutdown || info.Time < tb.config.Vm.ShutdownAt {
		return
	}
	tb.shutdown = true
	logrus.Infof("[t=%8.3f] shutting down %d vms", info.Time, len(tb.vms))
	for _, vm := range tb.vms {
		if vm.State() != sim.VmShuttingDown && vm.State() != sim.VmDestroyed {
			tb.broker.ShutdownVm(vm)
		}
	}
}
