package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// KeepAliveConfig toggles the keep-alive policy.
type KeepAliveConfig struct {
	Enabled bool
	Length  float64 // MI per keep-alive cloudlet; <= 0 means 1
}

// KeepAlivePolicy keeps every Vm of a broker occupied between workloads.
//
// An engine that reclaims idle Vms would release a Vm's RAM and BW as soon as
// its last cloudlet finished, before any explicit shutdown. The policy works
// around that by submitting one minimal cloudlet (full CPU, no RAM or BW)
// whenever a Vm is allocated or one of its cloudlets finishes and the Vm has
// no other unfinished cloudlet. Each Vm thus carries at most one keep-alive
// chain and a Running Vm always has a resident cloudlet. Disable it when idle
// reclamation is off.
type KeepAlivePolicy struct {
	broker    *Broker
	cfg       KeepAliveConfig
	submitted int
}

// NewKeepAlivePolicy creates a policy for b. It does nothing until installed.
func NewKeepAlivePolicy(b *Broker, cfg KeepAliveConfig) *KeepAlivePolicy {
	if cfg.Length <= 0 {
		cfg.Length = 1
	}
	return &KeepAlivePolicy{broker: b, cfg: cfg}
}

// Enabled reports whether the policy is active.
func (p *KeepAlivePolicy) Enabled() bool { return p.cfg.Enabled }

// Submitted returns the number of keep-alive cloudlets submitted so far.
func (p *KeepAlivePolicy) Submitted() int { return p.submitted }

// Install registers the policy's listeners on reg. A disabled policy
// registers nothing.
func (p *KeepAlivePolicy) Install(reg *ListenerRegistry) {
	if !p.cfg.Enabled {
		return
	}
	reg.OnHostAllocation(func(info VmHostInfo) { p.keepAlive(info.Vm, info.Time) })
	reg.OnCloudletFinish(func(info CloudletVmInfo) { p.keepAlive(info.Vm, info.Time) })
}

func (p *KeepAlivePolicy) keepAlive(vm *Vm, now float64) {
	if vm == nil || vm.broker != p.broker || !vm.AcceptsCloudlets() {
		return
	}
	for _, c := range vm.scheduler.resident {
		if !c.IsDone() {
			return
		}
	}
	c := NewKeepAliveCloudlet(p.broker.NextCloudletID(), p.cfg.Length)
	if err := p.broker.BindCloudletToVm(c, vm); err != nil {
		panic(fmt.Sprintf("KeepAlivePolicy: binding %s to %s: %v", c.Name(), vm.Name(), err))
	}
	p.broker.SubmitCloudlet(c)
	p.submitted++
	logrus.Debugf("[t=%8.3f] keep-alive %s submitted to %s", now, c.Name(), vm.Name())
}
