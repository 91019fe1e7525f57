package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// Pe is one processing element of a Host. Its ledger holds the MIPS reserved
// by the Vms pinned to it.
type Pe struct {
	id   int
	mips *ResourceLedger
}

// ID returns the PE index within its host.
func (p *Pe) ID() int { return p.id }

// Mips returns the PE's MIPS usage.
func (p *Pe) Mips() ResourceUsage { return p.mips.Snapshot() }

// UniformPes returns n PEs of the same MIPS rating.
func UniformPes(n int, mips float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mips
	}
	return out
}

// Host is a physical machine: PEs plus RAM (MB), BW (Mbps) and storage (MB)
// ledgers, and the Vms it runs.
type Host struct {
	id      int
	pes     []*Pe
	ram     *ResourceLedger
	bw      *ResourceLedger
	storage *ResourceLedger
	vms     []*Vm
}

// NewHost creates a host with one PE per entry of peMips.
// Panics if no PEs are given.
func NewHost(id int, peMips []float64, ram, bw, storage float64) *Host {
	if len(peMips) == 0 {
		panic(fmt.Sprintf("NewHost(%d): at least one PE required", id))
	}
	h := &Host{id: id}
	name := h.Name()
	for i, mips := range peMips {
		h.pes = append(h.pes, &Pe{id: i, mips: NewResourceLedger(fmt.Sprintf("%s/pe-%d", name, i), mips)})
	}
	h.ram = NewResourceLedger(name+"/ram", ram)
	h.bw = NewResourceLedger(name+"/bw", bw)
	h.storage = NewResourceLedger(name+"/storage", storage)
	return h
}

// ID returns the host id.
func (h *Host) ID() int { return h.id }

// Name returns "host-<id>".
func (h *Host) Name() string { return fmt.Sprintf("host-%d", h.id) }

func (h *Host) String() string { return h.Name() }

// Pes returns the host PEs.
func (h *Host) Pes() []*Pe { return h.pes }

// Vms returns the resident Vms in allocation order.
func (h *Host) Vms() []*Vm {
	out := make([]*Vm, len(h.vms))
	copy(out, h.vms)
	return out
}

// Ram returns RAM usage in MB.
func (h *Host) Ram() ResourceUsage { return h.ram.Snapshot() }

// Bw returns BW usage in Mbps.
func (h *Host) Bw() ResourceUsage { return h.bw.Snapshot() }

// Storage returns storage usage in MB.
func (h *Host) Storage() ResourceUsage { return h.storage.Snapshot() }

// Mips returns the MIPS usage summed over all PEs.
func (h *Host) Mips() ResourceUsage {
	var u ResourceUsage
	for _, pe := range h.pes {
		s := pe.mips.Snapshot()
		u.Capacity += s.Capacity
		u.Allocated += s.Allocated
		u.Available += s.Available
	}
	return u
}

// freePesFor returns the indexes of PEs that can still host mips, in order.
func (h *Host) freePesFor(mips float64) []int {
	var idx []int
	for i, pe := range h.pes {
		if pe.mips.CanReserve(mips) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Suitable reports whether vm fits in the host's remaining headroom.
func (h *Host) Suitable(vm *Vm) bool {
	spec := vm.spec
	return len(h.freePesFor(spec.Mips)) >= spec.Pes &&
		h.ram.CanReserve(spec.Ram) &&
		h.bw.CanReserve(spec.Bw) &&
		h.storage.CanReserve(spec.Storage)
}

// allocate reserves vm's PEs, RAM, BW and storage. On any failure every
// reservation already made for vm is rolled back and an error wrapping
// ErrInsufficient is returned.
func (h *Host) allocate(vm *Vm) (err error) {
	spec := vm.spec
	var undo []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()

	free := h.freePesFor(spec.Mips)
	if len(free) < spec.Pes {
		return errors.Wrapf(ErrInsufficient, "%s: %d PEs of %g MIPS requested, %d free",
			h.Name(), spec.Pes, spec.Mips, len(free))
	}
	pinned := make([]int, 0, spec.Pes)
	for _, i := range free[:spec.Pes] {
		if err := h.pes[i].mips.Reserve(spec.Mips); err != nil {
			return err
		}
		ledger := h.pes[i].mips
		undo = append(undo, func() { ledger.Release(spec.Mips) })
		pinned = append(pinned, i)
	}
	for _, r := range []struct {
		ledger *ResourceLedger
		amount float64
	}{{h.ram, spec.Ram}, {h.bw, spec.Bw}, {h.storage, spec.Storage}} {
		if err := r.ledger.Reserve(r.amount); err != nil {
			return err
		}
		ledger, amount := r.ledger, r.amount
		undo = append(undo, func() { ledger.Release(amount) })
	}

	vm.host = h
	vm.hostPes = pinned
	h.vms = append(h.vms, vm)
	return nil
}

// deallocate releases everything vm reserved on the host.
func (h *Host) deallocate(vm *Vm) {
	idx := -1
	for i, v := range h.vms {
		if v == vm {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(newSimError(InvariantViolation, vm.Name(), 0, ErrOverRelease, "not resident on %s", h.Name()))
	}
	spec := vm.spec
	for _, i := range vm.hostPes {
		h.pes[i].mips.Release(spec.Mips)
	}
	h.ram.Release(spec.Ram)
	h.bw.Release(spec.Bw)
	h.storage.Release(spec.Storage)
	h.vms = append(h.vms[:idx], h.vms[idx+1:]...)
	vm.hostPes = nil
}
