package sim

import (
	"fmt"
	"math"
)

// UtilizationModel maps the time elapsed since a cloudlet was bound to its Vm
// onto the fraction of the requested capacity actually consumed.
// Implementations must be pure and return values in [0,1].
type UtilizationModel interface {
	Utilization(elapsed float64) float64
}

// Full always consumes the whole requested capacity.
type Full struct{}

// Utilization returns 1.
func (Full) Utilization(float64) float64 { return 1 }

func (Full) String() string { return "full" }

// Dynamic consumes a fixed fraction that may grow linearly with elapsed time,
// capped at Max.
type Dynamic struct {
	Initial   float64
	Increment float64 // per second
	Max       float64
}

// NewDynamic returns a constant model. v is clamped to [0,1].
func NewDynamic(v float64) Dynamic {
	v = clampFraction(v)
	return Dynamic{Initial: v, Max: 1}
}

// NewDynamicGrowth returns a model starting at initial and growing by
// increment per second, never exceeding maxFraction.
func NewDynamicGrowth(initial, increment, maxFraction float64) Dynamic {
	return Dynamic{Initial: clampFraction(initial), Increment: increment, Max: clampFraction(maxFraction)}
}

// Utilization returns min(Max, Initial + Increment*elapsed) clamped to [0,1].
func (d Dynamic) Utilization(elapsed float64) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Min(clampFraction(d.Max), clampFraction(d.Initial+d.Increment*elapsed))
}

func (d Dynamic) String() string {
	if d.Increment == 0 {
		return fmt.Sprintf("dynamic(%g)", d.Initial)
	}
	return fmt.Sprintf("dynamic(%g%+g/s,max=%g)", d.Initial, d.Increment, d.Max)
}

// Stochastic draws a fresh uniform fraction for every time slot of Slot
// seconds. The draw is a hash of (Seed, slot index), so the same elapsed time
// always yields the same value and runs are reproducible.
type Stochastic struct {
	Seed int64
	Slot float64
}

// NewStochastic returns a stochastic model. A non-positive slot means 1s.
func NewStochastic(seed int64, slot float64) Stochastic {
	if slot <= 0 {
		slot = 1
	}
	return Stochastic{Seed: seed, Slot: slot}
}

// Utilization returns a deterministic pseudo-random fraction in [0,1).
func (s Stochastic) Utilization(elapsed float64) float64 {
	slot := s.Slot
	if slot <= 0 {
		slot = 1
	}
	if elapsed < 0 {
		elapsed = 0
	}
	idx := uint64(math.Floor(elapsed / slot))
	// splitmix64 finalizer
	z := uint64(s.Seed) + idx*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float64(z>>11) / float64(uint64(1)<<53)
}

func (s Stochastic) String() string {
	return fmt.Sprintf("stochastic(seed=%d,slot=%g)", s.Seed, s.Slot)
}

func clampFraction(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
