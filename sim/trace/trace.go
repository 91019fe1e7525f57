package trace

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelPlacements captures placement decisions only.
	TraceLevelPlacements TraceLevel = "placements"
	// TraceLevelEvents captures placement decisions and every dispatched event.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:       true,
	TraceLevelPlacements: true,
	TraceLevelEvents:     true,
	"":                   true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records during a run.
type SimulationTrace struct {
	Config     TraceConfig
	Dispatches []DispatchRecord
	Placements []PlacementRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Dispatches: make([]DispatchRecord, 0),
		Placements: make([]PlacementRecord, 0),
	}
}

// RecordDispatch appends a dispatch record when the level is events.
func (st *SimulationTrace) RecordDispatch(record DispatchRecord) {
	if st.Config.Level != TraceLevelEvents {
		return
	}
	st.Dispatches = append(st.Dispatches, record)
}

// RecordPlacement appends a placement record unless tracing is off.
func (st *SimulationTrace) RecordPlacement(record PlacementRecord) {
	if st.Config.Level == TraceLevelNone || st.Config.Level == "" {
		return
	}
	st.Placements = append(st.Placements, record)
}
