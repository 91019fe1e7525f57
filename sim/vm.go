package sim

import (
	"fmt"
)

// VmState is the lifecycle state of a Vm.
type VmState int

const (
	VmCreated VmState = iota
	VmWaitingForHost
	VmAllocated
	VmRunning
	VmShuttingDown
	VmDestroyed
)

func (s VmState) String() string {
	switch s {
	case VmCreated:
		return "Created"
	case VmWaitingForHost:
		return "WaitingForHost"
	case VmAllocated:
		return "Allocated"
	case VmRunning:
		return "Running"
	case VmShuttingDown:
		return "ShuttingDown"
	case VmDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("VmState(%d)", int(s))
	}
}

// VmSpec is the capacity a Vm requests from its host.
type VmSpec struct {
	Pes           int
	Mips          float64 // per PE
	Ram           float64 // MB
	Bw            float64 // Mbps
	Storage       float64 // MB
	StartupDelay  float64 // seconds between allocation and first execution
	ShutdownDelay float64 // seconds between shutdown request and destruction
}

// Vm is a virtual machine. Host reservations are held only while the state is
// Allocated, Running or ShuttingDown.
type Vm struct {
	id    int
	spec  VmSpec
	state VmState

	host      *Host // last host; kept after destruction for reporting
	hostPes   []int
	broker    *Broker
	scheduler *CloudletScheduler

	ram *ResourceLedger // cloudlet RAM usage inside the Vm
	bw  *ResourceLedger

	submitTime          float64
	allocatedAt         float64
	startedAt           float64
	shutdownRequestedAt float64
	destroyedAt         float64
	idleSince           float64

	allocationEvent *Event
}

// NewVm creates a Vm. Panics on a non-positive PE count or MIPS rating.
func NewVm(id int, spec VmSpec) *Vm {
	if spec.Pes <= 0 {
		panic(fmt.Sprintf("NewVm(%d): pes must be > 0, got %d", id, spec.Pes))
	}
	if spec.Mips <= 0 {
		panic(fmt.Sprintf("NewVm(%d): mips must be > 0, got %v", id, spec.Mips))
	}
	if spec.StartupDelay < 0 || spec.ShutdownDelay < 0 {
		panic(fmt.Sprintf("NewVm(%d): delays must be >= 0", id))
	}
	vm := &Vm{
		id:                  id,
		spec:                spec,
		submitTime:          -1,
		allocatedAt:         -1,
		startedAt:           -1,
		shutdownRequestedAt: -1,
		destroyedAt:         -1,
		idleSince:           -1,
	}
	name := vm.Name()
	vm.ram = NewResourceLedger(name+"/ram", spec.Ram)
	vm.bw = NewResourceLedger(name+"/bw", spec.Bw)
	vm.scheduler = newCloudletScheduler(vm)
	return vm
}

// ID returns the vm id.
func (v *Vm) ID() int { return v.id }

// Name returns "vm-<id>".
func (v *Vm) Name() string { return fmt.Sprintf("vm-%d", v.id) }

func (v *Vm) String() string { return v.Name() }

// Spec returns the requested capacity.
func (v *Vm) Spec() VmSpec { return v.spec }

// State returns the lifecycle state.
func (v *Vm) State() VmState { return v.state }

// Host returns the host the Vm was allocated on, or nil if never allocated.
func (v *Vm) Host() *Host { return v.host }

// Broker returns the owning broker, or nil before submission.
func (v *Vm) Broker() *Broker { return v.broker }

// Scheduler returns the Vm's cloudlet scheduler.
func (v *Vm) Scheduler() *CloudletScheduler { return v.scheduler }

// AcceptsCloudlets reports whether new cloudlets may be bound to the Vm.
func (v *Vm) AcceptsCloudlets() bool {
	return v.state == VmAllocated || v.state == VmRunning
}

// HoldsHostResources reports whether the Vm has reservations on its host.
func (v *Vm) HoldsHostResources() bool {
	return v.state == VmAllocated || v.state == VmRunning || v.state == VmShuttingDown
}

// ResidentCloudlets returns the number of cloudlets in the Vm's scheduler,
// including finished ones whose finish event is still pending.
func (v *Vm) ResidentCloudlets() int { return v.scheduler.Len() }

// readyAt is the earliest time cloudlets may execute.
func (v *Vm) readyAt() float64 {
	if v.allocatedAt < 0 {
		return -1
	}
	return v.allocatedAt + v.spec.StartupDelay
}

// reclaimPending reports whether the broker will reclaim v once its idle
// delay elapses.
func (v *Vm) reclaimPending() bool {
	return v.state == VmRunning && v.idleSince >= 0 && v.broker != nil && v.broker.idleDelay >= 0
}

// TotalMips returns Pes × Mips.
func (v *Vm) TotalMips() float64 { return float64(v.spec.Pes) * v.spec.Mips }

// CpuUtilization returns the fraction of the Vm's MIPS in use at the last
// scheduler update.
func (v *Vm) CpuUtilization() float64 {
	return clampFraction(v.scheduler.usedMips / v.TotalMips())
}

// Ram returns the cloudlets' RAM usage against the Vm's RAM (MB).
func (v *Vm) Ram() ResourceUsage { return v.ram.Snapshot() }

// Bw returns the cloudlets' BW usage against the Vm's BW (Mbps).
func (v *Vm) Bw() ResourceUsage { return v.bw.Snapshot() }

// SubmitTime returns when the broker accepted the Vm, or -1.
func (v *Vm) SubmitTime() float64 { return v.submitTime }

// AllocatedAt returns when the Vm was placed on a host, or -1.
func (v *Vm) AllocatedAt() float64 { return v.allocatedAt }

// StartedAt returns when the first cloudlet started executing, or -1.
func (v *Vm) StartedAt() float64 { return v.startedAt }

// ShutdownRequestedAt returns when shutdown was requested, or -1.
func (v *Vm) ShutdownRequestedAt() float64 { return v.shutdownRequestedAt }

// DestroyedAt returns when the Vm released its host, or -1.
func (v *Vm) DestroyedAt() float64 { return v.destroyedAt }
