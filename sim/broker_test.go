package sim

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_VmTooLargeForAnyHost_StaysWaitingUntilHorizon(t *testing.T) {
	// GIVEN a host with 512 MB RAM and a Vm asking for 1024 MB
	host := NewHost(0, UniformPes(64, 1000), 512, 1e6, 1e6)
	tb := newTestbed(10, []*Host{host}, 0)
	vm := smallVm(0)
	c := NewCloudlet(0, 1000, 1)

	// WHEN both are submitted and the run completes
	tb.broker.SubmitVm(vm)
	tb.broker.SubmitCloudlet(c)
	require.NoError(t, tb.sim.Run(), "unplaced work is not an engine error")

	// THEN the Vm is still waiting and reported as unplaced
	assert.Equal(t, VmWaitingForHost, vm.State())
	assert.Equal(t, []*Vm{vm}, tb.broker.VmsWaiting())
	res := tb.broker.Result()
	assert.False(t, res.Complete)
	assert.Equal(t, []*Vm{vm}, res.UnplacedVms)
	assert.Equal(t, []*Cloudlet{c}, res.UnfinishedCloudlets)

	timeouts := res.AllocationTimeouts()
	require.Len(t, timeouts, 2)
	for _, se := range timeouts {
		assert.Equal(t, AllocationTimeout, se.Kind)
		assert.Equal(t, 10.0, se.Time)
	}
	assert.Equal(t, "vm-0", timeouts[0].Entity)
	assert.True(t, errors.Is(timeouts[0], ErrNoSuitableHost))

	// AND placement was retried on every tick without a cap
	assert.GreaterOrEqual(t, tb.counter("sim.placement_retries"), int64(10))
	assert.Equal(t, 0.0, host.Ram().Allocated)
}

// twoPeVm is smallVm with a second PE.
func twoPeVm(id int) *Vm {
	return NewVm(id, VmSpec{Pes: 2, Mips: 1000, Ram: 1024, Bw: 100})
}

func TestBroker_RoundRobin_SpreadsCloudletsOverVms(t *testing.T) {
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vms := []*Vm{twoPeVm(0), twoPeVm(1), twoPeVm(2)}
	tb.broker.SubmitVmList(vms)

	var cloudlets []*Cloudlet
	for i := 0; i < 5; i++ {
		cloudlets = append(cloudlets, NewCloudlet(i, 1000, 1))
	}
	tb.broker.SubmitCloudletList(cloudlets)

	want := []int{0, 1, 2, 0, 1}
	for i, c := range cloudlets {
		require.NotNil(t, c.Vm(), c.Name())
		assert.Equal(t, want[i], c.Vm().ID(), c.Name())
		assert.Equal(t, CloudletBound, c.State())
	}
}

func TestBroker_RoundRobin_FollowsSubmissionOrder(t *testing.T) {
	// GIVEN Vms submitted with descending ids
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vm0, vm1 := twoPeVm(0), twoPeVm(1)
	tb.broker.SubmitVmList([]*Vm{vm1, vm0})

	// WHEN four cloudlets are submitted
	var cloudlets []*Cloudlet
	for i := 0; i < 4; i++ {
		cloudlets = append(cloudlets, NewCloudlet(i, 1000, 1))
	}
	tb.broker.SubmitCloudletList(cloudlets)

	// THEN they alternate in submission order
	var got []int
	for _, c := range cloudlets {
		require.NotNil(t, c.Vm(), c.Name())
		got = append(got, c.Vm().ID())
	}
	assert.Equal(t, []int{1, 0, 1, 0}, got)
}

func TestBroker_RoundRobin_SkipsVmsWithNoFreePe(t *testing.T) {
	// GIVEN two 1 PE Vms, vm0 busy with a 10s cloudlet
	tb := newTestbed(20, []*Host{bigHost(0)}, -1)
	vm0, vm1 := smallVm(0), smallVm(1)
	tb.broker.SubmitVmList([]*Vm{vm0, vm1})
	long := NewCloudlet(0, 10000, 1)
	require.NoError(t, tb.broker.BindCloudletToVm(long, vm0))
	tb.broker.SubmitCloudlet(long)

	// WHEN a 1s cloudlet is submitted at t=3
	late := NewCloudlet(1, 1000, 1)
	tb.sim.Listeners().OnClockTick(func(info ClockTickInfo) {
		if info.Time == 3 {
			tb.broker.SubmitCloudlet(late)
		}
	})
	require.NoError(t, tb.sim.Run())

	// THEN it ran on the idle vm1 instead of queueing behind vm0
	assert.Same(t, vm1, late.Vm())
	assert.Equal(t, CloudletFinished, late.State())
	assert.Equal(t, 4.0, late.FinishTime())
	assert.Equal(t, 10.0, long.FinishTime())
}

func TestBroker_RoundRobin_CloudletWaitsWhenEveryPeIsTaken(t *testing.T) {
	// GIVEN one 1 PE Vm already holding a cloudlet
	tb := newTestbed(20, []*Host{bigHost(0)}, -1)
	vm := smallVm(0)
	tb.broker.SubmitVm(vm)
	first, second := NewCloudlet(0, 2000, 1), NewCloudlet(1, 1000, 1)
	tb.broker.SubmitCloudlet(first)

	// WHEN another cloudlet is submitted
	tb.broker.SubmitCloudlet(second)

	// THEN it waits and is bound once the PE frees up
	assert.Equal(t, CloudletSubmitted, second.State())
	assert.Equal(t, []*Cloudlet{second}, tb.broker.CloudletsWaiting())
	require.NoError(t, tb.sim.Run())
	assert.Same(t, vm, second.Vm())
	assert.Equal(t, 2.0, first.FinishTime())
	assert.Equal(t, 3.0, second.FinishTime())
}

func TestBroker_CloudletsSubmittedBeforeVms_WaitForAllocation(t *testing.T) {
	// GIVEN cloudlets submitted while no Vm exists
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	c := NewCloudlet(0, 1000, 1)
	tb.broker.SubmitCloudlet(c)
	assert.Equal(t, CloudletSubmitted, c.State())
	assert.Equal(t, []*Cloudlet{c}, tb.broker.CloudletsWaiting())

	// WHEN a Vm is submitted and its allocation event is dispatched
	vm := smallVm(0)
	tb.broker.SubmitVm(vm)
	require.NoError(t, tb.sim.Run())

	// THEN the cloudlet was bound to it and finished
	assert.Same(t, vm, c.Vm())
	assert.Equal(t, CloudletFinished, c.State())
	assert.Empty(t, tb.broker.CloudletsWaiting())
	assert.True(t, tb.broker.Result().Complete)
}

func TestBroker_BindCloudletToVm_OverridesRoundRobin(t *testing.T) {
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vm0, vm1 := smallVm(0), smallVm(1)
	tb.broker.SubmitVmList([]*Vm{vm0, vm1})

	a, b := NewCloudlet(0, 1000, 1), NewCloudlet(1, 1000, 1)
	require.NoError(t, tb.broker.BindCloudletToVm(a, vm1))
	require.NoError(t, tb.broker.BindCloudletToVm(b, vm1))
	tb.broker.SubmitCloudletList([]*Cloudlet{a, b})

	assert.Same(t, vm1, a.Vm())
	assert.Same(t, vm1, b.Vm())
	assert.Equal(t, 0, vm0.ResidentCloudlets())
}

func TestBroker_BindCloudletToVm_MovesWaitingBoundCloudlet(t *testing.T) {
	// GIVEN a cloudlet bound to vm0 but not yet executing
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vm0, vm1 := smallVm(0), smallVm(1)
	tb.broker.SubmitVmList([]*Vm{vm0, vm1})
	c := NewCloudlet(0, 1000, 1)
	tb.broker.SubmitCloudlet(c)
	require.Same(t, vm0, c.Vm())

	// WHEN it is rebound to vm1
	require.NoError(t, tb.broker.BindCloudletToVm(c, vm1))

	// THEN it moved
	assert.Same(t, vm1, c.Vm())
	assert.Equal(t, 0, vm0.ResidentCloudlets())
	assert.Equal(t, 1, vm1.ResidentCloudlets())
}

func TestBroker_BindCloudletToVm_MovingLastCloudletMarksVmIdle(t *testing.T) {
	// GIVEN vm1 kept busy and, at t=2, a fresh cloudlet bound to vm0
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vm0, vm1 := smallVm(0), smallVm(1)
	tb.broker.SubmitVmList([]*Vm{vm0, vm1})
	keeper := NewCloudlet(0, 5000, 1)
	require.NoError(t, tb.broker.BindCloudletToVm(keeper, vm1))
	tb.broker.SubmitCloudlet(keeper)
	c := NewCloudlet(1, 1000, 1)
	var idleAfterMove float64
	tb.sim.Listeners().OnClockTick(func(info ClockTickInfo) {
		if info.Time != 2 {
			return
		}
		tb.broker.SubmitCloudlet(c)
		require.Same(t, vm0, c.Vm())
		require.Equal(t, -1.0, vm0.idleSince)

		// WHEN it is moved to vm1 before it starts
		require.NoError(t, tb.broker.BindCloudletToVm(c, vm1))
		idleAfterMove = vm0.idleSince
	})
	require.NoError(t, tb.sim.Run())

	// THEN vm0 counts as idle from the moment it emptied
	assert.Equal(t, 2.0, idleAfterMove)
	assert.Same(t, vm1, c.Vm())
}

func TestBroker_BindCloudletToVm_RejectsExecutingCloudlet(t *testing.T) {
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vm0, vm1 := smallVm(0), smallVm(1)
	tb.broker.SubmitVmList([]*Vm{vm0, vm1})
	c := NewCloudlet(0, 5000, 1)
	tb.broker.SubmitCloudlet(c)
	tb.sim.Listeners().OnClockTick(func(info ClockTickInfo) {
		if info.Time == 1 {
			err := tb.broker.BindCloudletToVm(c, vm1)
			assert.True(t, errors.Is(err, ErrCloudletNotMovable))
		}
	})
	require.NoError(t, tb.sim.Run())
	assert.Same(t, vm0, c.Vm())
}

func TestBroker_BindCloudletToVm_RejectsShuttingDownVm(t *testing.T) {
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vm := smallVm(0)
	tb.broker.SubmitVm(vm)
	tb.broker.ShutdownVm(vm)

	err := tb.broker.BindCloudletToVm(NewCloudlet(0, 1, 1), vm)
	assert.True(t, errors.Is(err, ErrVmNotAccepting))
}

func TestBroker_SubmitTwicePanics(t *testing.T) {
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	vm := smallVm(0)
	tb.broker.SubmitVm(vm)
	assert.PanicsWithValue(t, "Broker.SubmitVm: vm-0 already Allocated", func() { tb.broker.SubmitVm(vm) })

	c := NewCloudlet(0, 1, 1)
	tb.broker.SubmitCloudlet(c)
	assert.Panics(t, func() { tb.broker.SubmitCloudlet(c) })
}

func TestBroker_NextCloudletID_ContinuesAfterHighestSubmitted(t *testing.T) {
	tb := newTestbed(10, []*Host{bigHost(0)}, -1)
	assert.Equal(t, 0, tb.broker.NextCloudletID())
	tb.broker.SubmitCloudletList([]*Cloudlet{NewCloudlet(4, 1, 1), NewCloudlet(1, 1, 1)})
	assert.Equal(t, 5, tb.broker.NextCloudletID())
}

func TestBroker_ShutdownVm_BeforeAllocationDispatchCancelsEvent(t *testing.T) {
	// GIVEN a Vm whose allocation event is still queued
	tb := newTestbed(20, []*Host{bigHost(0)}, -1)
	allocations := 0
	tb.sim.Listeners().OnHostAllocation(func(VmHostInfo) { allocations++ })
	vm := smallVm(0)
	tb.broker.SubmitVm(vm)
	require.True(t, vm.allocationEvent.Pending())

	// WHEN it is shut down right away
	tb.broker.ShutdownVm(vm)
	require.NoError(t, tb.sim.Run())

	// THEN the allocation event never reached listeners and the Vm is gone
	assert.Zero(t, allocations)
	assert.Equal(t, VmDestroyed, vm.State())
	assert.Equal(t, int64(1), tb.counter("sim.events.cancelled"))
}

func TestBroker_ShutdownVm_DrainsThenWaitsShutdownDelay(t *testing.T) {
	// GIVEN a Vm running a 3s cloudlet with a 2s shutdown delay
	tb := newTestbed(30, []*Host{bigHost(0)}, -1)
	vm := NewVm(0, VmSpec{Pes: 1, Mips: 1000, Ram: 1024, Bw: 100, ShutdownDelay: 2})
	tb.broker.SubmitVm(vm)
	c := NewCloudlet(0, 3000, 1)
	tb.broker.SubmitCloudlet(c)
	tb.sim.Listeners().OnClockTick(func(info ClockTickInfo) {
		if info.Time == 1 {
			tb.broker.ShutdownVm(vm)
		}
	})

	// WHEN run
	require.NoError(t, tb.sim.Run())

	// THEN the cloudlet completed first and the Vm was destroyed on the first
	// tick after it drained, the delay having elapsed by then
	assert.Equal(t, CloudletFinished, c.State())
	assert.Equal(t, 3.0, c.FinishTime())
	assert.Equal(t, 1.0, vm.ShutdownRequestedAt())
	assert.Equal(t, VmDestroyed, vm.State())
	assert.Equal(t, 4.0, vm.DestroyedAt())
	assert.Equal(t, int64(1), tb.counter("sim.vm.destroyed"))
}

func TestBroker_ShutdownVm_FailsCloudletsWaitingForIt(t *testing.T) {
	// GIVEN a cloudlet pinned to a Vm that never gets a host
	host := NewHost(0, UniformPes(1, 1000), 10, 10, 10)
	tb := newTestbed(10, []*Host{host}, -1)
	vm := smallVm(0)
	tb.broker.SubmitVm(vm)
	c := NewCloudlet(0, 1000, 1)
	require.NoError(t, tb.broker.BindCloudletToVm(c, vm))
	tb.broker.SubmitCloudlet(c)
	require.Equal(t, CloudletSubmitted, c.State())

	// WHEN the Vm is shut down
	tb.broker.ShutdownVm(vm)

	// THEN the cloudlet fails and nothing is left waiting
	assert.Equal(t, CloudletFailed, c.State())
	assert.Empty(t, tb.broker.CloudletsWaiting())
	assert.Empty(t, tb.broker.VmsWaiting())
	assert.Equal(t, int64(1), tb.counter("sim.cloudlet.failed"))
}

func TestBroker_IdleReclamation_ReleasesVmWhenLastCloudletFinishes(t *testing.T) {
	// GIVEN idle reclamation after 0s and a 10s shutdown delay, no keep-alive
	host := bigHost(0)
	tb := newTestbed(70, []*Host{host}, 0)
	vm := NewVm(0, VmSpec{Pes: 1, Mips: 1000, Ram: 1024, Bw: 100, ShutdownDelay: 10})
	tb.broker.SubmitVm(vm)
	tb.broker.SubmitCloudlet(NewCloudlet(0, 1000, 1))

	// WHEN run
	require.NoError(t, tb.sim.Run())

	// THEN the Vm was reclaimed on the tick after going idle and its host
	// RAM released before the horizon
	assert.Equal(t, 2.0, vm.ShutdownRequestedAt())
	assert.Equal(t, VmDestroyed, vm.State())
	assert.Equal(t, 12.0, vm.DestroyedAt())
	assert.Equal(t, 0.0, host.Ram().Allocated)
}

func TestBroker_IdleReclamationDisabled_VmStaysRunning(t *testing.T) {
	host := bigHost(0)
	tb := newTestbed(70, []*Host{host}, -1)
	vm := smallVm(0)
	tb.broker.SubmitVm(vm)
	tb.broker.SubmitCloudlet(NewCloudlet(0, 1000, 1))

	require.NoError(t, tb.sim.Run())

	assert.Equal(t, VmRunning, vm.State())
	assert.Equal(t, 0, vm.ResidentCloudlets())
	assert.Equal(t, 1024.0, host.Ram().Allocated)
}

func TestBroker_LeastLoaded_PicksEmptiestVm(t *testing.T) {
	s := NewSimulation(SimulationConfig{TerminateAt: 10}, nil)
	dc := NewDatacenter(s, []*Host{bigHost(0)}, 1, nil)
	b := NewBroker(s, dc, NewVmSelectionPolicy("least-loaded", nil), -1)
	vm0, vm1 := smallVm(0), smallVm(1)
	b.SubmitVmList([]*Vm{vm0, vm1})
	pinned := NewCloudlet(0, 1, 1)
	require.NoError(t, b.BindCloudletToVm(pinned, vm0))
	b.SubmitCloudlet(pinned)

	c := NewCloudlet(10, 1, 1)
	b.SubmitCloudlet(c)
	assert.Same(t, vm1, c.Vm())
}
