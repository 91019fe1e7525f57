package sim

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/inference-sim/cloudlet-sim/sim/trace"
)

// Config is the complete, immutable description of a testbed run. Units:
// seconds, MB (RAM, storage), Mbps (BW), MIPS (CPU) and MI (cloudlet length).
type Config struct {
	Simulation SimulationSection `yaml:"simulation"`
	Datacenter DatacenterConfig  `yaml:"datacenter"`
	Host       HostConfig        `yaml:"host"`
	Vm         VmConfig          `yaml:"vm"`
	Cloudlet   CloudletConfig    `yaml:"cloudlet"`
	Broker     BrokerConfig      `yaml:"broker"`
	KeepAlive  KeepAliveSection  `yaml:"keep_alive"`
	Report     ReportConfig      `yaml:"report"`
}

// SimulationSection configures the run itself.
type SimulationSection struct {
	TerminateAt float64 `yaml:"terminate_at"` // horizon, seconds
	Seed        int64   `yaml:"seed"`
	Trace       string  `yaml:"trace"` // "none", "placements" or "events"
}

// DatacenterConfig configures the scheduling tick and host selection.
type DatacenterConfig struct {
	SchedulingInterval float64 `yaml:"scheduling_interval"` // seconds
	HostSelection      string  `yaml:"host_selection"`
}

// HostConfig describes Num identical hosts.
type HostConfig struct {
	Num     int     `yaml:"num"`
	Pes     int     `yaml:"pes"`
	Mips    float64 `yaml:"mips"` // per PE
	Ram     float64 `yaml:"ram"`
	Bw      float64 `yaml:"bw"`
	Storage float64 `yaml:"storage"`
}

// VmConfig describes Num identical Vms.
type VmConfig struct {
	Num           int     `yaml:"num"`
	Pes           int     `yaml:"pes"`
	Mips          float64 `yaml:"mips"`
	Ram           float64 `yaml:"ram"`
	Bw            float64 `yaml:"bw"`
	Storage       float64 `yaml:"storage"`
	StartupDelay  float64 `yaml:"startup_delay"`
	ShutdownDelay float64 `yaml:"shutdown_delay"`
	// ShutdownAt requests an explicit shutdown of every Vm at that time.
	// Zero means never.
	ShutdownAt float64 `yaml:"shutdown_at"`
}

// CloudletConfig describes Num identical cloudlets.
type CloudletConfig struct {
	Num    int             `yaml:"num"`
	Pes    int             `yaml:"pes"`
	Length float64         `yaml:"length"` // MI per PE
	Cpu    UtilizationSpec `yaml:"cpu"`
	Ram    UtilizationSpec `yaml:"ram"`
	Bw     UtilizationSpec `yaml:"bw"`
}

// UtilizationSpec selects and parameterizes a UtilizationModel.
type UtilizationSpec struct {
	Model     string  `yaml:"model"` // "full", "dynamic" or "stochastic"
	Value     float64 `yaml:"value"` // dynamic initial fraction
	Increment float64 `yaml:"increment,omitempty"`
	Max       float64 `yaml:"max,omitempty"`  // dynamic cap; 0 means 1
	Slot      float64 `yaml:"slot,omitempty"` // stochastic slot length, seconds
}

// BrokerConfig configures cloudlet placement and idle reclamation.
type BrokerConfig struct {
	VmSelection string `yaml:"vm_selection"`
	// IdleDestructionDelay is how long a Running Vm may stay empty before it
	// is shut down. Negative disables reclamation.
	IdleDestructionDelay float64 `yaml:"idle_destruction_delay"`
}

// KeepAliveSection toggles the keep-alive policy.
type KeepAliveSection struct {
	Enabled bool    `yaml:"enabled"`
	Length  float64 `yaml:"length"`
}

// ReportConfig configures the reporting listeners.
type ReportConfig struct {
	// StatusInterval logs Vm status every N seconds of simulated time.
	// Zero disables the status log.
	StatusInterval float64 `yaml:"status_interval"`
}

// ValidUtilizationModels is the set of recognized utilization model names.
var ValidUtilizationModels = map[string]bool{"": true, "full": true, "dynamic": true, "stochastic": true}

// Build builds the UtilizationModel described by u. seed feeds stochastic
// models. Panics on an unrecognized model name.
func (u UtilizationSpec) Build(seed int64) UtilizationModel {
	switch u.Model {
	case "", "full":
		return Full{}
	case "dynamic":
		maxFraction := u.Max
		if maxFraction == 0 {
			maxFraction = 1
		}
		return NewDynamicGrowth(u.Value, u.Increment, maxFraction)
	case "stochastic":
		return NewStochastic(seed, u.Slot)
	default:
		panic(fmt.Sprintf("unknown utilization model %q", u.Model))
	}
}

// VmSpec converts the Vm section into a VmSpec.
func (v VmConfig) VmSpec() VmSpec {
	return VmSpec{
		Pes:           v.Pes,
		Mips:          v.Mips,
		Ram:           v.Ram,
		Bw:            v.Bw,
		Storage:       v.Storage,
		StartupDelay:  v.StartupDelay,
		ShutdownDelay: v.ShutdownDelay,
	}
}

// SimulationConfig converts the simulation section.
func (c Config) SimulationConfig() SimulationConfig {
	return SimulationConfig{
		TerminateAt: c.Simulation.TerminateAt,
		Seed:        c.Simulation.Seed,
		TraceLevel:  trace.TraceLevel(c.Simulation.Trace),
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, errors.Errorf(format, args...))
		}
	}

	tAt := c.Simulation.TerminateAt
	check(tAt > 0 && !math.IsInf(tAt, 0) && !math.IsNaN(tAt),
		"simulation.terminate_at must be a finite value > 0, got %v", tAt)
	check(trace.IsValidTraceLevel(c.Simulation.Trace),
		"simulation.trace: unknown level %q", c.Simulation.Trace)

	check(c.Datacenter.SchedulingInterval > 0,
		"datacenter.scheduling_interval must be > 0, got %v", c.Datacenter.SchedulingInterval)
	check(ValidHostSelectionPolicies[c.Datacenter.HostSelection],
		"datacenter.host_selection: unknown policy %q", c.Datacenter.HostSelection)

	check(c.Host.Num > 0, "host.num must be > 0, got %d", c.Host.Num)
	check(c.Host.Pes > 0, "host.pes must be > 0, got %d", c.Host.Pes)
	check(c.Host.Mips > 0, "host.mips must be > 0, got %v", c.Host.Mips)
	check(c.Host.Ram >= 0 && c.Host.Bw >= 0 && c.Host.Storage >= 0,
		"host.ram, host.bw and host.storage must be >= 0")

	check(c.Vm.Num >= 0, "vm.num must be >= 0, got %d", c.Vm.Num)
	check(c.Vm.Pes > 0, "vm.pes must be > 0, got %d", c.Vm.Pes)
	check(c.Vm.Mips > 0, "vm.mips must be > 0, got %v", c.Vm.Mips)
	check(c.Vm.Ram >= 0 && c.Vm.Bw >= 0 && c.Vm.Storage >= 0,
		"vm.ram, vm.bw and vm.storage must be >= 0")
	check(c.Vm.StartupDelay >= 0, "vm.startup_delay must be >= 0, got %v", c.Vm.StartupDelay)
	check(c.Vm.ShutdownDelay >= 0, "vm.shutdown_delay must be >= 0, got %v", c.Vm.ShutdownDelay)
	check(c.Vm.ShutdownAt >= 0, "vm.shutdown_at must be >= 0, got %v", c.Vm.ShutdownAt)

	check(c.Cloudlet.Num >= 0, "cloudlet.num must be >= 0, got %d", c.Cloudlet.Num)
	check(c.Cloudlet.Pes > 0, "cloudlet.pes must be > 0, got %d", c.Cloudlet.Pes)
	check(c.Cloudlet.Length > 0, "cloudlet.length must be > 0, got %v", c.Cloudlet.Length)
	for _, r := range []struct {
		name string
		u    UtilizationSpec
	}{{"cpu", c.Cloudlet.Cpu}, {"ram", c.Cloudlet.Ram}, {"bw", c.Cloudlet.Bw}} {
		name, u := r.name, r.u
		check(ValidUtilizationModels[u.Model], "cloudlet.%s.model: unknown model %q", name, u.Model)
		check(u.Value >= 0 && u.Value <= 1, "cloudlet.%s.value must be in [0,1], got %v", name, u.Value)
		check(u.Max >= 0 && u.Max <= 1, "cloudlet.%s.max must be in [0,1], got %v", name, u.Max)
		check(u.Slot >= 0, "cloudlet.%s.slot must be >= 0, got %v", name, u.Slot)
	}

	check(ValidVmSelectionPolicies[c.Broker.VmSelection],
		"broker.vm_selection: unknown policy %q", c.Broker.VmSelection)
	check(c.KeepAlive.Length >= 0, "keep_alive.length must be >= 0, got %v", c.KeepAlive.Length)
	check(c.Report.StatusInterval >= 0, "report.status_interval must be >= 0, got %v", c.Report.StatusInterval)

	return errs
}
