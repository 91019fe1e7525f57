package sim

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// ledgerEpsilon is the tolerance for ledger comparisons. Capacities are MB,
// Mbps or MIPS, so anything below a millionth is rounding noise.
const ledgerEpsilon = 1e-6

func lessThanOrEqual(a, b float64) bool {
	return a <= b+ledgerEpsilon
}

func nearlyZero(v float64) bool {
	return math.Abs(v) < ledgerEpsilon
}

// ResourceUsage is a read-only snapshot of one ledger.
type ResourceUsage struct {
	Capacity  float64
	Allocated float64
	Available float64
}

// Utilization returns Allocated/Capacity in [0,1], or 0 for a zero capacity.
func (u ResourceUsage) Utilization() float64 {
	if u.Capacity <= 0 {
		return 0
	}
	return math.Min(1, u.Allocated/u.Capacity)
}

// ResourceLedger tracks one resource dimension (a PE's MIPS, RAM, BW,
// storage, or a Vm's PE slots). It rejects overcommit.
type ResourceLedger struct {
	name      string
	capacity  float64
	allocated float64
}

// NewResourceLedger creates a ledger with the given capacity.
// Panics on a negative or NaN capacity.
func NewResourceLedger(name string, capacity float64) *ResourceLedger {
	if capacity < 0 || math.IsNaN(capacity) {
		panic(fmt.Sprintf("NewResourceLedger(%s): capacity must be >= 0, got %v", name, capacity))
	}
	return &ResourceLedger{name: name, capacity: capacity}
}

// Name identifies the ledger in errors and logs, e.g. "host-0/ram".
func (l *ResourceLedger) Name() string { return l.name }

// Capacity returns the total capacity.
func (l *ResourceLedger) Capacity() float64 { return l.capacity }

// Allocated returns the reserved amount.
func (l *ResourceLedger) Allocated() float64 { return l.allocated }

// Available returns capacity minus allocated, never negative.
func (l *ResourceLedger) Available() float64 {
	return math.Max(0, l.capacity-l.allocated)
}

// Utilization returns the allocated fraction of capacity.
func (l *ResourceLedger) Utilization() float64 { return l.Snapshot().Utilization() }

// Snapshot returns the current usage.
func (l *ResourceLedger) Snapshot() ResourceUsage {
	return ResourceUsage{Capacity: l.capacity, Allocated: l.allocated, Available: l.Available()}
}

// CanReserve reports whether amount fits in the available capacity.
func (l *ResourceLedger) CanReserve(amount float64) bool {
	return amount >= 0 && lessThanOrEqual(amount, l.Available())
}

// Reserve takes amount from the available capacity. It fails, leaving the
// ledger untouched, when amount exceeds what is available.
func (l *ResourceLedger) Reserve(amount float64) error {
	if amount < 0 || math.IsNaN(amount) {
		return errors.Errorf("%s: cannot reserve %v", l.name, amount)
	}
	if !lessThanOrEqual(amount, l.Available()) {
		return errors.Wrapf(ErrInsufficient, "%s: requested %g, available %g", l.name, amount, l.Available())
	}
	l.allocated = math.Min(l.capacity, l.allocated+amount)
	return nil
}

// Release returns amount to the ledger. Releasing more than is reserved is an
// engine bug and panics with an InvariantViolation *SimError.
func (l *ResourceLedger) Release(amount float64) {
	if amount < 0 || math.IsNaN(amount) || !lessThanOrEqual(amount, l.allocated) {
		panic(newSimError(InvariantViolation, l.name, 0, ErrOverRelease,
			"release %g with %g allocated", amount, l.allocated))
	}
	l.allocated -= amount
	if nearlyZero(l.allocated) || l.allocated < 0 {
		l.allocated = 0
	}
}
