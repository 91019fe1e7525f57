package sim

// ClockTickInfo is passed to clock-tick listeners.
type ClockTickInfo struct {
	Time float64
}

// VmHostInfo is passed to host-allocation listeners.
type VmHostInfo struct {
	Time float64
	Vm   *Vm
	Host *Host
}

// CloudletVmInfo is passed to cloudlet-finish listeners.
type CloudletVmInfo struct {
	Time     float64
	Cloudlet *Cloudlet
	Vm       *Vm
}

// TerminateInfo is passed to termination listeners.
type TerminateInfo struct {
	Time float64
}

// ListenerRegistry holds the callbacks of one run, one table per event kind.
// Callbacks run synchronously, in registration order, at dispatch time.
// Core components (Datacenter, Broker) register when constructed, so
// creating them before adding user listeners guarantees the core sees an
// event first.
type ListenerRegistry struct {
	clockTick      []func(ClockTickInfo)
	hostAllocation []func(VmHostInfo)
	cloudletFinish []func(CloudletVmInfo)
	terminate      []func(TerminateInfo)
}

// NewListenerRegistry creates an empty registry.
func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{}
}

// OnClockTick registers fn for ClockTick events.
func (r *ListenerRegistry) OnClockTick(fn func(ClockTickInfo)) {
	if fn == nil {
		panic("OnClockTick: fn must not be nil")
	}
	r.clockTick = append(r.clockTick, fn)
}

// OnHostAllocation registers fn for VmHostAllocation events.
func (r *ListenerRegistry) OnHostAllocation(fn func(VmHostInfo)) {
	if fn == nil {
		panic("OnHostAllocation: fn must not be nil")
	}
	r.hostAllocation = append(r.hostAllocation, fn)
}

// OnCloudletFinish registers fn for CloudletFinish events.
func (r *ListenerRegistry) OnCloudletFinish(fn func(CloudletVmInfo)) {
	if fn == nil {
		panic("OnCloudletFinish: fn must not be nil")
	}
	r.cloudletFinish = append(r.cloudletFinish, fn)
}

// OnTerminate registers fn for the SimulationTerminate event.
func (r *ListenerRegistry) OnTerminate(fn func(TerminateInfo)) {
	if fn == nil {
		panic("OnTerminate: fn must not be nil")
	}
	r.terminate = append(r.terminate, fn)
}

// Count returns the number of listeners registered for kind.
func (r *ListenerRegistry) Count(kind EventKind) int {
	switch kind {
	case ClockTick:
		return len(r.clockTick)
	case VmHostAllocation:
		return len(r.hostAllocation)
	case CloudletFinish:
		return len(r.cloudletFinish)
	case SimulationTerminate:
		return len(r.terminate)
	default:
		return 0
	}
}

// dispatch invokes every listener registered for ev's kind. Listeners added
// while dispatching are not invoked for the current event.
func (r *ListenerRegistry) dispatch(ev *Event) {
	switch ev.kind {
	case ClockTick:
		info := ClockTickInfo{Time: ev.time}
		for _, fn := range r.clockTick[:len(r.clockTick):len(r.clockTick)] {
			fn(info)
		}
	case VmHostAllocation:
		info := VmHostInfo{Time: ev.time, Vm: ev.Vm, Host: ev.Host}
		for _, fn := range r.hostAllocation[:len(r.hostAllocation):len(r.hostAllocation)] {
			fn(info)
		}
	case CloudletFinish:
		info := CloudletVmInfo{Time: ev.time, Cloudlet: ev.Cloudlet, Vm: ev.Vm}
		for _, fn := range r.cloudletFinish[:len(r.cloudletFinish):len(r.cloudletFinish)] {
			fn(info)
		}
	case SimulationTerminate:
		info := TerminateInfo{Time: ev.time}
		for _, fn := range r.terminate[:len(r.terminate):len(r.terminate)] {
			fn(info)
		}
	}
}
