package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDispatches    int
	DispatchesByKind   map[string]int
	LastDispatchTime   float64
	PlacementAttempts  int
	PlacedCount        int
	FailedCount        int
	UniqueTargets      int
	TargetDistribution map[string]int // host or vm name → successful placements
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		DispatchesByKind:   make(map[string]int),
		TargetDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDispatches = len(st.Dispatches)
	for _, d := range st.Dispatches {
		summary.DispatchesByKind[d.Kind]++
		if d.Time > summary.LastDispatchTime {
			summary.LastDispatchTime = d.Time
		}
	}

	summary.PlacementAttempts = len(st.Placements)
	for _, p := range st.Placements {
		if p.Placed {
			summary.PlacedCount++
			summary.TargetDistribution[p.Target]++
		} else {
			summary.FailedCount++
		}
	}

	summary.UniqueTargets = len(summary.TargetDistribution)

	return summary
}
