package sim

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSimError_ErrorNamesKindTimeAndEntity(t *testing.T) {
	err := newSimError(CausalityViolation, "cloudlet-4", 2.5, ErrCausality, "due at t=%.3f", 1.0)
	assert.Equal(t, "CausalityViolation at t=2.500 on cloudlet-4: due at t=1.000: event scheduled before current time", err.Error())
	assert.True(t, errors.Is(err, ErrCausality))
	assert.Equal(t, ErrCausality, errors.Cause(err.Err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(0), KindOf(nil))
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	wrapped := errors.Wrap(newSimError(InsufficientCapacity, "vm-0", 0, ErrNoSuitableHost, "x"), "outer")
	assert.Equal(t, InsufficientCapacity, KindOf(wrapped))
}

func TestErrorKind_Fatal(t *testing.T) {
	assert.True(t, CausalityViolation.Fatal())
	assert.True(t, InvariantViolation.Fatal())
	assert.False(t, InsufficientCapacity.Fatal())
	assert.False(t, AllocationTimeout.Fatal())
	assert.Equal(t, "ErrorKind(0)", ErrorKind(0).String())
}
