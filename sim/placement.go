package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// ValidHostSelectionPolicies is the set of recognized host selection names.
// Shared by Config.Validate() and NewHostSelectionPolicy().
var ValidHostSelectionPolicies = map[string]bool{"": true, "first-fit": true, "best-fit": true}

// ValidVmSelectionPolicies is the set of recognized cloudlet placement names.
var ValidVmSelectionPolicies = map[string]bool{"": true, "round-robin": true, "least-loaded": true, "random": true}

// HostSelectionPolicy picks the host a Vm is allocated on.
type HostSelectionPolicy interface {
	// SelectHost returns a suitable host, or nil when none fits.
	SelectHost(vm *Vm, hosts []*Host) *Host
}

// FirstFit scans hosts in order and picks the first with enough headroom.
type FirstFit struct{}

func (FirstFit) SelectHost(vm *Vm, hosts []*Host) *Host {
	for _, h := range hosts {
		if h.Suitable(vm) {
			return h
		}
	}
	return nil
}

// BestFit picks the suitable host with the least free MIPS, packing Vms tightly.
// Ties keep host order.
type BestFit struct{}

func (BestFit) SelectHost(vm *Vm, hosts []*Host) *Host {
	var best *Host
	bestFree := 0.0
	for _, h := range hosts {
		if !h.Suitable(vm) {
			continue
		}
		free := h.Mips().Available
		if best == nil || free < bestFree {
			best, bestFree = h, free
		}
	}
	return best
}

// NewHostSelectionPolicy creates a host selection policy by name.
// An empty string defaults to first-fit. Panics on unrecognized names.
func NewHostSelectionPolicy(name string) HostSelectionPolicy {
	if !ValidHostSelectionPolicies[name] {
		panic(fmt.Sprintf("unknown host selection policy %q", name))
	}
	switch name {
	case "", "first-fit":
		return FirstFit{}
	case "best-fit":
		return BestFit{}
	default:
		panic(fmt.Sprintf("unhandled host selection policy %q", name))
	}
}

// VmSelectionPolicy picks the Vm a cloudlet without an explicit binding runs on.
// candidates only holds Vms that accept cloudlets and have a PE slot left, in
// submission order.
type VmSelectionPolicy interface {
	// SelectVm returns the chosen Vm, or nil to retry on the next tick.
	SelectVm(c *Cloudlet, candidates []*Vm) *Vm
}

// RoundRobin cycles through the candidate Vms by submission order. Vms leaving
// and rejoining the candidate set keep their place in the cycle.
type RoundRobin struct {
	order []*Vm // every Vm offered so far, in submission order
	last  *Vm
}

// SelectVm returns the first candidate after the previously chosen Vm,
// wrapping around.
func (rr *RoundRobin) SelectVm(_ *Cloudlet, candidates []*Vm) *Vm {
	if len(candidates) == 0 {
		return nil
	}
	rr.learn(candidates)
	chosen := candidates[0]
	if start := rr.position(rr.last); start >= 0 {
		offered := make(map[*Vm]bool, len(candidates))
		for _, vm := range candidates {
			offered[vm] = true
		}
		for i := 1; i <= len(rr.order); i++ {
			if vm := rr.order[(start+i)%len(rr.order)]; offered[vm] {
				chosen = vm
				break
			}
		}
	}
	rr.last = chosen
	return chosen
}

// learn inserts unseen candidates right after the candidate preceding them.
func (rr *RoundRobin) learn(candidates []*Vm) {
	for j, vm := range candidates {
		if rr.position(vm) >= 0 {
			continue
		}
		at := 0
		if j > 0 {
			at = rr.position(candidates[j-1]) + 1
		}
		rr.order = append(rr.order, nil)
		copy(rr.order[at+1:], rr.order[at:])
		rr.order[at] = vm
	}
}

func (rr *RoundRobin) position(vm *Vm) int {
	if vm == nil {
		return -1
	}
	for i, v := range rr.order {
		if v == vm {
			return i
		}
	}
	return -1
}

// LeastLoaded picks the Vm with the fewest resident cloudlets, ties broken by
// free PEs then submission order.
type LeastLoaded struct{}

func (LeastLoaded) SelectVm(_ *Cloudlet, candidates []*Vm) *Vm {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]*Vm, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].scheduler.Len(), sorted[j].scheduler.Len()
		if li != lj {
			return li < lj
		}
		return sorted[i].scheduler.FreePes() > sorted[j].scheduler.FreePes()
	})
	return sorted[0]
}

// RandomVm picks uniformly among candidates using a seeded RNG.
type RandomVm struct {
	rng *rand.Rand
}

func (r *RandomVm) SelectVm(_ *Cloudlet, candidates []*Vm) *Vm {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[r.rng.Intn(len(candidates))]
}

// NewVmSelectionPolicy creates a cloudlet placement policy by name.
// An empty string defaults to round-robin. rng is required for "random".
// Panics on unrecognized names.
func NewVmSelectionPolicy(name string, rng *rand.Rand) VmSelectionPolicy {
	if !ValidVmSelectionPolicies[name] {
		panic(fmt.Sprintf("unknown vm selection policy %q", name))
	}
	switch name {
	case "", "round-robin":
		return &RoundRobin{}
	case "least-loaded":
		return LeastLoaded{}
	case "random":
		if rng == nil {
			panic("NewVmSelectionPolicy: random requires an rng")
		}
		return &RandomVm{rng: rng}
	default:
		panic(fmt.Sprintf("unhandled vm selection policy %q", name))
	}
}
