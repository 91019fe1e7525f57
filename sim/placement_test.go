package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHostSelectionPolicy_ValidNames(t *testing.T) {
	tests := []struct {
		name string
		want HostSelectionPolicy
	}{
		{"", FirstFit{}},
		{"first-fit", FirstFit{}},
		{"best-fit", BestFit{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewHostSelectionPolicy(tt.name))
		})
	}
}

func TestNewHostSelectionPolicy_UnknownNamePanics(t *testing.T) {
	assert.PanicsWithValue(t, `unknown host selection policy "worst-fit"`, func() {
		NewHostSelectionPolicy("worst-fit")
	})
}

func TestBestFit_PicksTightestHost(t *testing.T) {
	// GIVEN a roomy host first and a nearly full host second
	roomy := NewHost(0, UniformPes(8, 1000), 1e6, 1e6, 1e6)
	tight := NewHost(1, UniformPes(2, 1000), 1e6, 1e6, 1e6)
	vm := NewVm(0, VmSpec{Pes: 1, Mips: 1000})

	// THEN first-fit takes the roomy one and best-fit the tight one
	assert.Same(t, roomy, FirstFit{}.SelectHost(vm, []*Host{roomy, tight}))
	assert.Same(t, tight, BestFit{}.SelectHost(vm, []*Host{roomy, tight}))
}

func TestHostSelection_NoSuitableHostReturnsNil(t *testing.T) {
	h := NewHost(0, UniformPes(1, 500), 1e6, 1e6, 1e6)
	vm := NewVm(0, VmSpec{Pes: 1, Mips: 1000})
	assert.Nil(t, FirstFit{}.SelectHost(vm, []*Host{h}))
	assert.Nil(t, BestFit{}.SelectHost(vm, []*Host{h}))
}

func TestNewVmSelectionPolicy_ValidNames(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for name := range ValidVmSelectionPolicies {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, NewVmSelectionPolicy(name, rng))
		})
	}
}

func TestNewVmSelectionPolicy_RandomWithoutRngPanics(t *testing.T) {
	assert.PanicsWithValue(t, "NewVmSelectionPolicy: random requires an rng", func() {
		NewVmSelectionPolicy("random", nil)
	})
}

func TestRoundRobin_SkipsVmsThatStoppedAccepting(t *testing.T) {
	rr := &RoundRobin{}
	vm0, vm1, vm2 := smallVm(0), smallVm(1), smallVm(2)

	assert.Same(t, vm0, rr.SelectVm(nil, []*Vm{vm0, vm1, vm2}))
	// vm1 left the candidate set
	assert.Same(t, vm2, rr.SelectVm(nil, []*Vm{vm0, vm2}))
	assert.Same(t, vm0, rr.SelectVm(nil, []*Vm{vm0, vm2}))
	assert.Nil(t, rr.SelectVm(nil, nil))
}

func TestRoundRobin_CyclesInCandidateOrderNotIdOrder(t *testing.T) {
	rr := &RoundRobin{}
	vm0, vm1, vm2 := smallVm(0), smallVm(1), smallVm(2)
	candidates := []*Vm{vm2, vm0, vm1}

	var got []int
	for i := 0; i < 6; i++ {
		got = append(got, rr.SelectVm(nil, candidates).ID())
	}
	assert.Equal(t, []int{2, 0, 1, 2, 0, 1}, got)

	// vm0 drops out and comes back in its old place
	assert.Same(t, vm2, rr.SelectVm(nil, []*Vm{vm2, vm1}))
	assert.Same(t, vm0, rr.SelectVm(nil, candidates))
}

func TestRandomVm_SameSeedSameChoices(t *testing.T) {
	candidates := []*Vm{smallVm(0), smallVm(1), smallVm(2), smallVm(3)}
	a := NewVmSelectionPolicy("random", rand.New(rand.NewSource(7)))
	b := NewVmSelectionPolicy("random", rand.New(rand.NewSource(7)))
	for i := 0; i < 20; i++ {
		assert.Same(t, a.SelectVm(nil, candidates), b.SelectVm(nil, candidates))
	}
}
