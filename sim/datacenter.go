package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cloudlet-sim/sim/trace"
)

// Datacenter owns the host pool and drives the periodic ClockTick that
// advances every resident Vm's scheduler.
type Datacenter struct {
	sim      *Simulation
	hosts    []*Host
	interval float64
	policy   HostSelectionPolicy
	brokers  []*Broker

	tickEvent   *Event
	lastProcess float64
}

// NewDatacenter creates a datacenter and registers its core ClockTick and
// CloudletFinish handlers. Create it before registering user listeners so the
// core runs first. A nil policy means first-fit.
// Panics if interval is not positive.
func NewDatacenter(s *Simulation, hosts []*Host, interval float64, policy HostSelectionPolicy) *Datacenter {
	if interval <= 0 {
		panic(fmt.Sprintf("NewDatacenter: scheduling interval must be > 0, got %v", interval))
	}
	if policy == nil {
		policy = FirstFit{}
	}
	d := &Datacenter{
		sim:         s,
		hosts:       hosts,
		interval:    interval,
		policy:      policy,
		lastProcess: -1,
	}
	s.listeners.OnClockTick(d.onClockTick)
	s.listeners.OnCloudletFinish(d.onCloudletFinish)
	return d
}

// Hosts returns the host pool in id order.
func (d *Datacenter) Hosts() []*Host { return d.hosts }

// SchedulingInterval returns the tick size in seconds.
func (d *Datacenter) SchedulingInterval() float64 { return d.interval }

// Vms returns every Vm currently holding host resources, host by host.
func (d *Datacenter) Vms() []*Vm {
	var out []*Vm
	for _, h := range d.hosts {
		out = append(out, h.vms...)
	}
	return out
}

func (d *Datacenter) attach(b *Broker) {
	d.brokers = append(d.brokers, b)
}

// AllocateHostForVm places vm on the host chosen by the selection policy and
// schedules a VmHostAllocation event at the current time. When no host fits it
// returns an InsufficientCapacity *SimError and leaves vm untouched.
func (d *Datacenter) AllocateHostForVm(vm *Vm) error {
	now := d.sim.clock
	if vm.HoldsHostResources() || vm.state == VmDestroyed {
		panic(fmt.Sprintf("Datacenter.AllocateHostForVm: %s is %s", vm.Name(), vm.state))
	}
	host := d.policy.SelectHost(vm, d.hosts)
	if host == nil {
		d.sim.metrics.VmAllocationFailures.Inc(1)
		d.recordPlacement(vm.Name(), "", false, "no suitable host")
		return newSimError(InsufficientCapacity, vm.Name(), now, ErrNoSuitableHost,
			"%d PEs × %g MIPS, %g MB RAM, %g Mbps BW", vm.spec.Pes, vm.spec.Mips, vm.spec.Ram, vm.spec.Bw)
	}
	if err := host.allocate(vm); err != nil {
		d.sim.metrics.VmAllocationFailures.Inc(1)
		d.recordPlacement(vm.Name(), host.Name(), false, err.Error())
		return newSimError(InsufficientCapacity, vm.Name(), now, err, "allocating on %s", host.Name())
	}

	vm.state = VmAllocated
	vm.allocatedAt = now
	d.sim.metrics.VmAllocations.Inc(1)
	d.recordPlacement(vm.Name(), host.Name(), true, "")
	logrus.Infof("[t=%8.3f] %s allocated on %s", now, vm.Name(), host.Name())

	ev := NewEvent(now, VmHostAllocation)
	ev.Vm, ev.Host = vm, host
	d.sim.mustSchedule(ev)
	vm.allocationEvent = ev
	d.ensureTick()
	return nil
}

// destroyVm releases vm's host reservations.
func (d *Datacenter) destroyVm(vm *Vm, now float64) {
	vm.host.deallocate(vm)
	vm.state = VmDestroyed
	vm.destroyedAt = now
	d.sim.metrics.VmsDestroyed.Inc(1)
	logrus.Infof("[t=%8.3f] %s destroyed, released %g MB RAM on %s", now, vm.Name(), vm.spec.Ram, vm.host.Name())
}

// onClockTick is the core tick handler: advance schedulers, complete Vm
// boots and shutdowns, let brokers retry, then keep ticking while busy.
func (d *Datacenter) onClockTick(info ClockTickInfo) {
	now := info.Time
	if now > d.lastProcess {
		for _, vm := range d.Vms() {
			for _, c := range vm.scheduler.updateProcessing(now) {
				logrus.Infof("[t=%8.3f] %s finished on %s (completed at %.3f)", now, c.Name(), vm.Name(), c.completedAt)
				ev := NewEvent(now, CloudletFinish)
				ev.Cloudlet, ev.Vm = c, vm
				c.finishEvent = ev
				d.sim.mustSchedule(ev)
			}
		}
		d.lastProcess = now
	}

	for _, vm := range d.Vms() {
		if vm.state != VmShuttingDown || vm.scheduler.Len() > 0 {
			continue
		}
		if now+timeEpsilon >= vm.shutdownRequestedAt+vm.spec.ShutdownDelay {
			d.destroyVm(vm, now)
		}
	}

	for _, b := range d.brokers {
		b.onTick(now)
	}

	if d.busy() {
		d.ensureTick()
	}
}

// onCloudletFinish evicts the finished cloudlet from its Vm.
func (d *Datacenter) onCloudletFinish(info CloudletVmInfo) {
	if info.Vm == nil || info.Cloudlet == nil {
		return
	}
	info.Vm.scheduler.remove(info.Cloudlet, info.Time)
	d.sim.metrics.CloudletsFinished.Inc(1)
}

// busy reports whether another tick is needed: some Vm has cloudlets to run,
// is draining towards destruction or awaits idle reclamation.
func (d *Datacenter) busy() bool {
	for _, vm := range d.Vms() {
		if vm.scheduler.Len() > 0 || vm.state == VmShuttingDown || vm.reclaimPending() {
			return true
		}
	}
	// Nothing resident can free capacity, so retrying waiting work only makes
	// sense up to a finite horizon.
	if math.IsInf(d.sim.terminateAt, 1) {
		return false
	}
	for _, b := range d.brokers {
		if b.hasPendingWork() {
			return true
		}
	}
	return false
}

// ensureTick schedules the next ClockTick unless one is already queued. The
// tick lands on the current time unless that instant was already processed.
func (d *Datacenter) ensureTick() {
	if d.tickEvent != nil && d.tickEvent.Pending() {
		return
	}
	t := d.sim.clock
	if t <= d.lastProcess {
		t = d.lastProcess + d.interval
	}
	ev := NewEvent(t, ClockTick)
	d.sim.mustSchedule(ev)
	d.tickEvent = ev
}

func (d *Datacenter) recordPlacement(entity, target string, placed bool, reason string) {
	if d.sim.trace == nil {
		return
	}
	d.sim.trace.RecordPlacement(trace.PlacementRecord{
		Time: d.sim.clock, Entity: entity, Target: target, Placed: placed, Reason: reason,
	})
}
