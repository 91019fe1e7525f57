package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// timeEpsilon absorbs floating-point error when comparing instants.
const timeEpsilon = 1e-9

// CloudletScheduler time-shares a Vm's PEs across its resident cloudlets.
//
// PE slots are granted in bind order: each cloudlet receives
// min(requested, free) slots. A cloudlet left with zero slots waits in the
// Bound state. A cloudlet granted m of its k requested PEs progresses at
// m/k of its full rate, so over-subscription lengthens completion instead of
// failing the cloudlet.
type CloudletScheduler struct {
	vm            *Vm
	resident      []*Cloudlet
	slots         *ResourceLedger
	lastProcessed float64
	usedMips      float64
}

func newCloudletScheduler(vm *Vm) *CloudletScheduler {
	return &CloudletScheduler{
		vm:            vm,
		slots:         NewResourceLedger(vm.Name()+"/pes", float64(vm.spec.Pes)),
		lastProcessed: -1,
	}
}

// Len returns the number of resident cloudlets.
func (s *CloudletScheduler) Len() int { return len(s.resident) }

// Cloudlets returns the resident cloudlets in bind order.
func (s *CloudletScheduler) Cloudlets() []*Cloudlet {
	out := make([]*Cloudlet, len(s.resident))
	copy(out, s.resident)
	return out
}

// Executing returns the resident cloudlets currently holding PE slots.
func (s *CloudletScheduler) Executing() []*Cloudlet {
	var out []*Cloudlet
	for _, c := range s.resident {
		if c.state == CloudletExecuting {
			out = append(out, c)
		}
	}
	return out
}

// FreePes returns the number of unassigned PE slots.
func (s *CloudletScheduler) FreePes() int {
	return int(math.Floor(s.slots.Available() + ledgerEpsilon))
}

// AvailableSlots returns the free PE slots not already promised to resident
// cloudlets still waiting for one. It is negative when the Vm is
// over-subscribed.
func (s *CloudletScheduler) AvailableSlots() int {
	n := s.FreePes()
	for _, c := range s.resident {
		if c.state == CloudletBound {
			n -= c.pes
		}
	}
	return n
}

// UsedMips returns the MIPS consumed at the last update.
func (s *CloudletScheduler) UsedMips() float64 { return s.usedMips }

// LastProcessed returns the time up to which execution was accounted, or -1.
func (s *CloudletScheduler) LastProcessed() float64 { return s.lastProcessed }

// bind makes c resident. It starts executing at the next update that finds a
// free slot.
func (s *CloudletScheduler) bind(c *Cloudlet, now float64) {
	c.vm = s.vm
	c.state = CloudletBound
	c.bindTime = now
	c.allocatedPes = 0
	s.resident = append(s.resident, c)
	s.vm.idleSince = -1
}

// unbind withdraws a cloudlet that has not started executing. Like remove, it
// starts an idle period when the Vm becomes empty.
func (s *CloudletScheduler) unbind(c *Cloudlet, now float64) bool {
	if c.state != CloudletBound || c.vm != s.vm {
		return false
	}
	if !s.drop(c) {
		return false
	}
	c.vm = nil
	c.bindTime = -1
	c.state = CloudletSubmitted
	if len(s.resident) == 0 {
		s.vm.idleSince = now
	}
	return true
}

// remove evicts a finished or failed cloudlet. now is recorded as the start
// of an idle period when the Vm becomes empty.
func (s *CloudletScheduler) remove(c *Cloudlet, now float64) bool {
	if !s.drop(c) {
		return false
	}
	s.releaseUsage(c)
	if len(s.resident) == 0 {
		s.vm.idleSince = now
	}
	return true
}

func (s *CloudletScheduler) drop(c *Cloudlet) bool {
	for i, r := range s.resident {
		if r == c {
			s.resident = append(s.resident[:i], s.resident[i+1:]...)
			return true
		}
	}
	return false
}

// updateProcessing accounts execution over [lastProcessed, now] and returns
// the cloudlets that reached their length. The interval is split at every
// completion and every bind time inside it, and PE shares are recomputed at
// each split, so the executed length is exact regardless of tick size.
func (s *CloudletScheduler) updateProcessing(now float64) []*Cloudlet {
	ready := s.vm.readyAt()
	if ready < 0 || now <= s.lastProcessed {
		return nil
	}
	t := math.Max(s.lastProcessed, ready)
	if now < t {
		s.lastProcessed = now
		return nil
	}

	var finished []*Cloudlet
	for {
		s.assign(t)
		s.refreshUsage(t)
		if t >= now-timeEpsilon {
			break
		}

		next := now
		for _, c := range s.resident {
			if c.state == CloudletBound && c.bindTime > t+timeEpsilon && c.bindTime < next {
				next = c.bindTime
			}
		}
		executing := s.Executing()
		rates := make([]float64, len(executing))
		for i, c := range executing {
			rates[i] = s.rate(c, t)
			if rates[i] > 0 {
				if tf := t + c.Remaining()/rates[i]; tf < next {
					next = tf
				}
			}
		}

		dt := next - t
		for i, c := range executing {
			if rates[i] <= 0 {
				continue
			}
			tf := t + c.Remaining()/rates[i]
			c.executed += rates[i] * dt
			if tf <= next+timeEpsilon || c.Remaining() <= ledgerEpsilon {
				s.complete(c, next, now)
				finished = append(finished, c)
			}
		}
		t = next
	}
	s.lastProcessed = now
	return finished
}

// assign grants free PE slots to bound cloudlets in bind order.
func (s *CloudletScheduler) assign(t float64) {
	for _, c := range s.resident {
		if c.state != CloudletBound || c.bindTime > t+timeEpsilon {
			continue
		}
		free := s.FreePes()
		if free == 0 {
			return
		}
		n := c.pes
		if n > free {
			n = free
		}
		if err := s.slots.Reserve(float64(n)); err != nil {
			panic(newSimError(InvariantViolation, s.vm.Name(), t, err, "granting %d PEs to %s", n, c.Name()))
		}
		c.allocatedPes = n
		c.state = CloudletExecuting
		c.execStartTime = t
		if n < c.pes {
			logrus.Debugf("[t=%8.3f] %s throttled to %d/%d PEs on %s", t, c.Name(), n, c.pes, s.vm.Name())
		}
		if s.vm.state == VmAllocated {
			s.vm.state = VmRunning
			s.vm.startedAt = t
			logrus.Infof("[t=%8.3f] %s running on %s", t, s.vm.Name(), s.vm.host.Name())
		}
	}
}

// rate returns the MI of length per second c progresses at from time t.
func (s *CloudletScheduler) rate(c *Cloudlet, t float64) float64 {
	cpu := clampFraction(c.cpuModel.Utilization(t - c.bindTime))
	c.lastCpu = cpu
	return cpu * s.vm.spec.Mips * float64(c.allocatedPes) / float64(c.pes)
}

func (s *CloudletScheduler) complete(c *Cloudlet, at, now float64) {
	c.executed = c.length
	c.state = CloudletFinished
	c.completedAt = at
	c.finishTime = now
	s.releaseUsage(c)
}

// releaseUsage returns c's PE slots and RAM/BW share to the Vm.
func (s *CloudletScheduler) releaseUsage(c *Cloudlet) {
	if c.allocatedPes > 0 {
		s.slots.Release(float64(c.allocatedPes))
		c.allocatedPes = 0
	}
	if c.ramUsed > 0 {
		s.vm.ram.Release(c.ramUsed)
		c.ramUsed = 0
	}
	if c.bwUsed > 0 {
		s.vm.bw.Release(c.bwUsed)
		c.bwUsed = 0
	}
}

// refreshUsage recomputes CPU, RAM and BW usage of executing cloudlets at t.
func (s *CloudletScheduler) refreshUsage(t float64) {
	s.usedMips = 0
	for _, c := range s.resident {
		if c.state != CloudletExecuting {
			continue
		}
		elapsed := t - c.bindTime
		cpu := clampFraction(c.cpuModel.Utilization(elapsed))
		c.lastCpu = cpu
		s.usedMips += cpu * s.vm.spec.Mips * float64(c.allocatedPes)

		c.lastRam = clampFraction(c.ramModel.Utilization(elapsed))
		c.ramUsed = s.resize(c, s.vm.ram, c.ramUsed, c.lastRam*s.vm.spec.Ram, t)
		c.lastBw = clampFraction(c.bwModel.Utilization(elapsed))
		c.bwUsed = s.resize(c, s.vm.bw, c.bwUsed, c.lastBw*s.vm.spec.Bw, t)
	}
}

// resize moves a cloudlet's reservation on ledger from held to want, clamping
// to what is available.
func (s *CloudletScheduler) resize(c *Cloudlet, ledger *ResourceLedger, held, want, t float64) float64 {
	if held > 0 {
		ledger.Release(held)
	}
	if avail := ledger.Available(); want > avail {
		if !c.clampWarned {
			logrus.Warnf("[t=%8.3f] %s wants %g on %s, only %g available; clamping",
				t, c.Name(), want, ledger.Name(), avail)
			c.clampWarned = true
		}
		want = avail
	}
	if want <= 0 {
		return 0
	}
	if err := ledger.Reserve(want); err != nil {
		panic(newSimError(InvariantViolation, ledger.Name(), t, err, "resizing %s", c.Name()))
	}
	return want
}
