package sim

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cloudlet-sim/sim/trace"
)

// Broker submits Vms and Cloudlets on behalf of a user. Work that cannot be
// placed waits and is retried on every ClockTick until the horizon, with no
// retry cap.
type Broker struct {
	sim       *Simulation
	dc        *Datacenter
	vmPolicy  VmSelectionPolicy
	idleDelay float64

	vmWaiting       WaitQueue[*Vm]
	cloudletWaiting WaitQueue[*Cloudlet]

	vmSubmitted       []*Vm
	vmCreated         []*Vm
	cloudletSubmitted []*Cloudlet
	cloudletFinished  []*Cloudlet

	nextCloudletID int
}

// NewBroker creates a broker attached to dc. A nil policy means round-robin.
// idleDelay is how long a Running Vm may sit with no cloudlets before the
// broker shuts it down; a negative value disables idle reclamation.
func NewBroker(s *Simulation, dc *Datacenter, vmPolicy VmSelectionPolicy, idleDelay float64) *Broker {
	if vmPolicy == nil {
		vmPolicy = &RoundRobin{}
	}
	b := &Broker{
		sim:       s,
		dc:        dc,
		vmPolicy:  vmPolicy,
		idleDelay: idleDelay,
	}
	dc.attach(b)
	s.listeners.OnHostAllocation(b.onHostAllocation)
	s.listeners.OnCloudletFinish(b.onCloudletFinish)
	return b
}

// IdleDestructionDelay returns the idle reclamation delay; negative when off.
func (b *Broker) IdleDestructionDelay() float64 { return b.idleDelay }

// NextCloudletID returns an id greater than every submitted cloudlet id.
func (b *Broker) NextCloudletID() int { return b.nextCloudletID }

// VmsSubmitted returns every submitted Vm in submission order.
func (b *Broker) VmsSubmitted() []*Vm { return append([]*Vm(nil), b.vmSubmitted...) }

// VmsCreated returns the Vms that were allocated a host, in allocation order.
func (b *Broker) VmsCreated() []*Vm { return append([]*Vm(nil), b.vmCreated...) }

// VmsWaiting returns the Vms waiting for a host.
func (b *Broker) VmsWaiting() []*Vm { return b.vmWaiting.Items() }

// CloudletsSubmitted returns every submitted cloudlet, keep-alives included.
func (b *Broker) CloudletsSubmitted() []*Cloudlet {
	return append([]*Cloudlet(nil), b.cloudletSubmitted...)
}

// CloudletsWaiting returns the cloudlets waiting for a Vm.
func (b *Broker) CloudletsWaiting() []*Cloudlet { return b.cloudletWaiting.Items() }

// CloudletsFinished returns finished cloudlets in finish order.
func (b *Broker) CloudletsFinished() []*Cloudlet {
	return append([]*Cloudlet(nil), b.cloudletFinished...)
}

// SubmitVmList submits vms in order.
func (b *Broker) SubmitVmList(vms []*Vm) {
	for _, vm := range vms {
		b.SubmitVm(vm)
	}
}

// SubmitVm accepts vm and tries to allocate it immediately. On failure the
// Vm waits for a host. Panics if vm was already submitted.
func (b *Broker) SubmitVm(vm *Vm) {
	if vm.state != VmCreated {
		panic(fmt.Sprintf("Broker.SubmitVm: %s already %s", vm.Name(), vm.state))
	}
	vm.broker = b
	vm.submitTime = b.sim.clock
	b.vmSubmitted = append(b.vmSubmitted, vm)
	if !b.placeVm(vm) {
		vm.state = VmWaitingForHost
		b.vmWaiting.Enqueue(vm)
	}
	b.dc.ensureTick()
}

// SubmitCloudletList submits cloudlets in order.
func (b *Broker) SubmitCloudletList(cloudlets []*Cloudlet) {
	for _, c := range cloudlets {
		b.SubmitCloudlet(c)
	}
}

// SubmitCloudlet accepts c and tries to bind it immediately, honouring an
// explicit BindCloudletToVm. Panics if c was already submitted.
func (b *Broker) SubmitCloudlet(c *Cloudlet) {
	if c.state != CloudletCreated {
		panic(fmt.Sprintf("Broker.SubmitCloudlet: %s already %s", c.Name(), c.state))
	}
	c.state = CloudletSubmitted
	c.submitTime = b.sim.clock
	b.cloudletSubmitted = append(b.cloudletSubmitted, c)
	if c.id >= b.nextCloudletID {
		b.nextCloudletID = c.id + 1
	}
	if c.keepAlive {
		b.sim.metrics.KeepAlivesSubmitted.Inc(1)
	}
	if !b.placeCloudlet(c) {
		b.cloudletWaiting.Enqueue(c)
	}
	b.dc.ensureTick()
}

// BindCloudletToVm pins c to vm, overriding the placement policy. It may be
// called before or after submission as long as c has not started executing.
// A submitted cloudlet is moved right away when vm accepts work.
func (b *Broker) BindCloudletToVm(c *Cloudlet, vm *Vm) error {
	if c.state == CloudletExecuting || c.IsDone() {
		return errors.Wrapf(ErrCloudletNotMovable, "%s is %s", c.Name(), c.state)
	}
	if vm == nil {
		return errors.Errorf("%s: vm must not be nil", c.Name())
	}
	if vm.state == VmShuttingDown || vm.state == VmDestroyed {
		return errors.Wrapf(ErrVmNotAccepting, "%s is %s", vm.Name(), vm.state)
	}
	c.target = vm

	switch c.state {
	case CloudletBound:
		if c.vm == vm {
			return nil
		}
		c.vm.scheduler.unbind(c, b.sim.clock)
		if !b.placeCloudlet(c) {
			b.cloudletWaiting.Enqueue(c)
		}
	case CloudletSubmitted:
		if b.placeCloudlet(c) {
			b.cloudletWaiting.Remove(c)
		}
	}
	return nil
}

// ShutdownVm issues the explicit shutdown signal. The Vm stops accepting
// cloudlets, drains its resident ones, waits its shutdown delay and is then
// destroyed, releasing its host reservations. A Vm that never reached a host
// is destroyed right away. Calling it again is a no-op.
func (b *Broker) ShutdownVm(vm *Vm) {
	now := b.sim.clock
	switch vm.state {
	case VmCreated, VmWaitingForHost:
		b.vmWaiting.Remove(vm)
		vm.state = VmDestroyed
		vm.destroyedAt = now
		b.failCloudletsTargeting(vm)
		logrus.Infof("[t=%8.3f] %s destroyed before allocation", now, vm.Name())
	case VmAllocated, VmRunning:
		if vm.allocationEvent != nil && vm.allocationEvent.Pending() {
			b.sim.Cancel(vm.allocationEvent)
		}
		vm.state = VmShuttingDown
		vm.shutdownRequestedAt = now
		b.failCloudletsTargeting(vm)
		logrus.Infof("[t=%8.3f] %s shutting down (%d resident cloudlets)", now, vm.Name(), vm.scheduler.Len())
		b.dc.ensureTick()
	}
}

// onHostAllocation binds waiting cloudlets once a new Vm is available.
func (b *Broker) onHostAllocation(info VmHostInfo) {
	if info.Vm == nil || info.Vm.broker != b {
		return
	}
	b.placeWaitingCloudlets()
}

// onCloudletFinish records finished cloudlets of this broker's Vms.
func (b *Broker) onCloudletFinish(info CloudletVmInfo) {
	if info.Vm == nil || info.Vm.broker != b {
		return
	}
	b.cloudletFinished = append(b.cloudletFinished, info.Cloudlet)
}

// onTick retries pending placements and reclaims idle Vms.
func (b *Broker) onTick(now float64) {
	if retries := b.vmWaiting.Len() + b.cloudletWaiting.Len(); retries > 0 {
		b.sim.metrics.PlacementRetries.Inc(int64(retries))
		b.vmWaiting.Drain(func(vm *Vm) bool { return !b.placeVm(vm) })
		b.placeWaitingCloudlets()
	}
	b.reclaimIdleVms(now)
}

func (b *Broker) hasPendingWork() bool {
	return b.vmWaiting.Len() > 0 || b.cloudletWaiting.Len() > 0
}

func (b *Broker) placeWaitingCloudlets() {
	b.cloudletWaiting.Drain(func(c *Cloudlet) bool { return !b.placeCloudlet(c) })
}

// placeVm asks the datacenter for a host. Returns false when vm must wait.
func (b *Broker) placeVm(vm *Vm) bool {
	if err := b.dc.AllocateHostForVm(vm); err != nil {
		logrus.Debugf("[t=%8.3f] %v", b.sim.clock, err)
		return false
	}
	b.vmCreated = append(b.vmCreated, vm)
	return true
}

// placeCloudlet binds c to its explicit target or to the policy's choice.
// Returns false when c must wait. A cloudlet whose target can no longer
// accept work is failed and reported as placed.
func (b *Broker) placeCloudlet(c *Cloudlet) bool {
	now := b.sim.clock
	vm := c.target
	if vm != nil {
		switch {
		case vm.state == VmShuttingDown || vm.state == VmDestroyed:
			b.fail(c, fmt.Sprintf("target %s is %s", vm.Name(), vm.state))
			return true
		case !vm.AcceptsCloudlets():
			b.recordPlacement(c.Name(), "", false, fmt.Sprintf("target %s is %s", vm.Name(), vm.state))
			return false
		}
	} else {
		vm = b.vmPolicy.SelectVm(c, b.acceptingVms())
		if vm == nil {
			b.recordPlacement(c.Name(), "", false, "no vm with a free PE slot")
			return false
		}
	}
	vm.scheduler.bind(c, now)
	b.recordPlacement(c.Name(), vm.Name(), true, "")
	logrus.Debugf("[t=%8.3f] %s bound to %s", now, c.Name(), vm.Name())
	return true
}

// acceptingVms returns this broker's Vms that accept cloudlets and have at
// least one PE slot left, by submission order.
func (b *Broker) acceptingVms() []*Vm {
	var out []*Vm
	for _, vm := range b.vmSubmitted {
		if vm.AcceptsCloudlets() && vm.scheduler.AvailableSlots() > 0 {
			out = append(out, vm)
		}
	}
	return out
}

func (b *Broker) fail(c *Cloudlet, reason string) {
	c.state = CloudletFailed
	b.sim.metrics.CloudletsFailed.Inc(1)
	b.recordPlacement(c.Name(), "", false, reason)
	logrus.Warnf("[t=%8.3f] %s failed: %s", b.sim.clock, c.Name(), reason)
}

// failCloudletsTargeting fails waiting cloudlets pinned to vm.
func (b *Broker) failCloudletsTargeting(vm *Vm) {
	b.cloudletWaiting.Drain(func(c *Cloudlet) bool {
		if c.target != vm {
			return true
		}
		b.fail(c, fmt.Sprintf("target %s is %s", vm.Name(), vm.state))
		return false
	})
}

// reclaimIdleVms shuts down Running Vms that have had no resident cloudlets
// for the idle delay.
func (b *Broker) reclaimIdleVms(now float64) {
	if b.idleDelay < 0 {
		return
	}
	for _, vm := range b.vmCreated {
		if vm.state != VmRunning || vm.scheduler.Len() > 0 || vm.idleSince < 0 {
			continue
		}
		if now+timeEpsilon < vm.idleSince+b.idleDelay {
			continue
		}
		logrus.Infof("[t=%8.3f] %s idle since %.3f, reclaiming", now, vm.Name(), vm.idleSince)
		b.ShutdownVm(vm)
	}
}

func (b *Broker) recordPlacement(entity, target string, placed bool, reason string) {
	if b.sim.trace == nil {
		return
	}
	b.sim.trace.RecordPlacement(trace.PlacementRecord{
		Time: b.sim.clock, Entity: entity, Target: target, Placed: placed, Reason: reason,
	})
}

// Result is the end-of-run view of a broker's work.
type Result struct {
	Clock               float64
	FinishedCloudlets   []*Cloudlet
	UnfinishedCloudlets []*Cloudlet // keep-alive cloudlets are not listed
	UnplacedVms         []*Vm
	// Complete is true when every Vm was placed and every submitted
	// non-keep-alive cloudlet finished.
	Complete bool
}

// Result snapshots the broker's outcome at the current clock.
func (b *Broker) Result() Result {
	r := Result{Clock: b.sim.clock, FinishedCloudlets: b.CloudletsFinished()}
	for _, c := range b.cloudletSubmitted {
		if c.state != CloudletFinished && !c.keepAlive {
			r.UnfinishedCloudlets = append(r.UnfinishedCloudlets, c)
		}
	}
	for _, vm := range b.vmSubmitted {
		if vm.allocatedAt < 0 {
			r.UnplacedVms = append(r.UnplacedVms, vm)
		}
	}
	r.Complete = len(r.UnplacedVms) == 0 && len(r.UnfinishedCloudlets) == 0
	return r
}

// AllocationTimeouts reports work that was never placed before the horizon.
// These are informational and never abort a run.
func (r Result) AllocationTimeouts() []*SimError {
	var out []*SimError
	for _, vm := range r.UnplacedVms {
		out = append(out, newSimError(AllocationTimeout, vm.Name(), r.Clock, ErrNoSuitableHost,
			"waiting since t=%.3f", vm.submitTime))
	}
	for _, c := range r.UnfinishedCloudlets {
		if c.state == CloudletSubmitted {
			out = append(out, newSimError(AllocationTimeout, c.Name(), r.Clock, ErrNotPlaced,
				"waiting since t=%.3f", c.submitTime))
		}
	}
	return out
}

// Makespan returns the latest finish time among non-keep-alive cloudlets, or
// NaN when none finished.
func (r Result) Makespan() float64 {
	m := math.NaN()
	for _, c := range r.FinishedCloudlets {
		if c.keepAlive {
			continue
		}
		if math.IsNaN(m) || c.finishTime > m {
			m = c.finishTime
		}
	}
	return m
}
