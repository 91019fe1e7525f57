package sim

import (
	"fmt"
	"math"
)

// CloudletState is the lifecycle state of a Cloudlet.
type CloudletState int

const (
	CloudletCreated CloudletState = iota
	CloudletSubmitted
	CloudletBound
	CloudletExecuting
	CloudletFinished
	CloudletFailed
)

func (s CloudletState) String() string {
	switch s {
	case CloudletCreated:
		return "Created"
	case CloudletSubmitted:
		return "Submitted"
	case CloudletBound:
		return "Bound"
	case CloudletExecuting:
		return "Executing"
	case CloudletFinished:
		return "Finished"
	case CloudletFailed:
		return "Failed"
	default:
		return fmt.Sprintf("CloudletState(%d)", int(s))
	}
}

// Cloudlet is a unit of work of Length MI per requested PE.
type Cloudlet struct {
	id     int
	length float64
	pes    int

	cpuModel UtilizationModel
	ramModel UtilizationModel
	bwModel  UtilizationModel

	state     CloudletState
	keepAlive bool
	vm        *Vm
	target    *Vm // explicit binding requested via Broker.BindCloudletToVm

	executed     float64
	allocatedPes int
	ramUsed      float64
	bwUsed       float64
	lastCpu      float64
	lastRam      float64
	lastBw       float64
	clampWarned  bool

	submitTime    float64
	bindTime      float64
	execStartTime float64
	completedAt   float64 // exact instant length was reached
	finishTime    float64 // tick at which the finish event fires
	finishEvent   *Event
}

// NewCloudlet creates a cloudlet with Full CPU and zero RAM/BW utilization.
// Panics if length or pes is not positive.
func NewCloudlet(id int, length float64, pes int) *Cloudlet {
	if length <= 0 || math.IsNaN(length) {
		panic(fmt.Sprintf("NewCloudlet(%d): length must be > 0, got %v", id, length))
	}
	if pes <= 0 {
		panic(fmt.Sprintf("NewCloudlet(%d): pes must be > 0, got %d", id, pes))
	}
	return &Cloudlet{
		id:            id,
		length:        length,
		pes:           pes,
		cpuModel:      Full{},
		ramModel:      NewDynamic(0),
		bwModel:       NewDynamic(0),
		submitTime:    -1,
		bindTime:      -1,
		execStartTime: -1,
		completedAt:   -1,
		finishTime:    -1,
	}
}

// NewKeepAliveCloudlet creates the minimal workload used by KeepAlivePolicy:
// one PE at full CPU and no RAM or BW.
func NewKeepAliveCloudlet(id int, length float64) *Cloudlet {
	c := NewCloudlet(id, length, 1)
	c.SetUtilizationModels(NewDynamic(1), NewDynamic(0), NewDynamic(0))
	c.keepAlive = true
	return c
}

// SetUtilizationModels replaces the CPU, RAM and BW models. A nil model keeps
// the current one. Only allowed before the cloudlet is submitted.
func (c *Cloudlet) SetUtilizationModels(cpu, ram, bw UtilizationModel) *Cloudlet {
	if c.state != CloudletCreated {
		panic(fmt.Sprintf("Cloudlet.SetUtilizationModels: %s already %s", c.Name(), c.state))
	}
	if cpu != nil {
		c.cpuModel = cpu
	}
	if ram != nil {
		c.ramModel = ram
	}
	if bw != nil {
		c.bwModel = bw
	}
	return c
}

// ID returns the cloudlet id.
func (c *Cloudlet) ID() int { return c.id }

// Name returns "cloudlet-<id>".
func (c *Cloudlet) Name() string { return fmt.Sprintf("cloudlet-%d", c.id) }

func (c *Cloudlet) String() string { return c.Name() }

// Length returns the configured length in MI per PE.
func (c *Cloudlet) Length() float64 { return c.length }

// Pes returns the requested PE count.
func (c *Cloudlet) Pes() int { return c.pes }

// State returns the lifecycle state.
func (c *Cloudlet) State() CloudletState { return c.state }

// IsKeepAlive reports whether the cloudlet was created by KeepAlivePolicy.
func (c *Cloudlet) IsKeepAlive() bool { return c.keepAlive }

// Vm returns the Vm the cloudlet is bound to, or nil.
func (c *Cloudlet) Vm() *Vm { return c.vm }

// ExecutedLength returns the MI executed so far. Never exceeds Length.
func (c *Cloudlet) ExecutedLength() float64 { return c.executed }

// Remaining returns Length minus ExecutedLength.
func (c *Cloudlet) Remaining() float64 { return math.Max(0, c.length-c.executed) }

// AllocatedPes returns the PE slots the Vm scheduler currently grants.
func (c *Cloudlet) AllocatedPes() int { return c.allocatedPes }

// CpuModel returns the CPU utilization model.
func (c *Cloudlet) CpuModel() UtilizationModel { return c.cpuModel }

// RamModel returns the RAM utilization model.
func (c *Cloudlet) RamModel() UtilizationModel { return c.ramModel }

// BwModel returns the BW utilization model.
func (c *Cloudlet) BwModel() UtilizationModel { return c.bwModel }

// CpuUtilization returns the last CPU fraction applied by the scheduler.
func (c *Cloudlet) CpuUtilization() float64 { return c.lastCpu }

// RamUtilization returns the last RAM fraction requested from the Vm.
func (c *Cloudlet) RamUtilization() float64 { return c.lastRam }

// BwUtilization returns the last BW fraction requested from the Vm.
func (c *Cloudlet) BwUtilization() float64 { return c.lastBw }

// SubmitTime returns when the broker accepted the cloudlet, or -1.
func (c *Cloudlet) SubmitTime() float64 { return c.submitTime }

// BindTime returns when the cloudlet joined its Vm's scheduler, or -1.
func (c *Cloudlet) BindTime() float64 { return c.bindTime }

// ExecStartTime returns when the cloudlet first received a PE, or -1.
func (c *Cloudlet) ExecStartTime() float64 { return c.execStartTime }

// CompletedAt returns the exact instant the length was reached, or -1.
func (c *Cloudlet) CompletedAt() float64 { return c.completedAt }

// FinishTime returns the tick at which the cloudlet was reported finished, or -1.
func (c *Cloudlet) FinishTime() float64 { return c.finishTime }

// ActualCpuTime returns FinishTime minus ExecStartTime, or 0 if not finished.
func (c *Cloudlet) ActualCpuTime() float64 {
	if c.finishTime < 0 || c.execStartTime < 0 {
		return 0
	}
	return c.finishTime - c.execStartTime
}

// IsDone reports whether the cloudlet reached a terminal state.
func (c *Cloudlet) IsDone() bool {
	return c.state == CloudletFinished || c.state == CloudletFailed
}
