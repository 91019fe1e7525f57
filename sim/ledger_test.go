package sim

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceLedger_Reserve(t *testing.T) {
	tests := []struct {
		name      string
		capacity  float64
		reserved  float64
		request   float64
		wantErr   bool
		wantAvail float64
	}{
		{"fits", 100, 0, 40, false, 60},
		{"exactly available", 100, 60, 40, false, 0},
		{"within epsilon", 100, 0, 100 + 1e-9, false, 0},
		{"exceeds available", 100, 70, 40, true, 30},
		{"zero on full ledger", 100, 100, 0, false, 0},
		{"negative", 100, 0, -1, true, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewResourceLedger("host-0/ram", tt.capacity)
			require.NoError(t, l.Reserve(tt.reserved))

			err := l.Reserve(tt.request)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.InDelta(t, tt.wantAvail, l.Available(), 1e-6)
			assert.LessOrEqual(t, l.Allocated(), l.Capacity())
		})
	}
}

func TestResourceLedger_Reserve_FailureWrapsErrInsufficient(t *testing.T) {
	l := NewResourceLedger("host-0/bw", 10)
	err := l.Reserve(11)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficient))
	assert.Contains(t, err.Error(), "host-0/bw")
	assert.Equal(t, 0.0, l.Allocated(), "failed reservation must not change the ledger")
}

func TestResourceLedger_Release_RestoresCapacity(t *testing.T) {
	l := NewResourceLedger("vm-0/pes", 4)
	require.NoError(t, l.Reserve(3))
	l.Release(2)
	assert.Equal(t, 1.0, l.Allocated())
	assert.Equal(t, 3.0, l.Available())
	assert.Equal(t, ResourceUsage{Capacity: 4, Allocated: 1, Available: 3}, l.Snapshot())
	assert.InDelta(t, 0.25, l.Utilization(), 1e-12)
}

func TestResourceLedger_Release_MoreThanReservedPanicsWithInvariantViolation(t *testing.T) {
	// GIVEN a ledger with 5 reserved
	l := NewResourceLedger("host-0/storage", 10)
	require.NoError(t, l.Reserve(5))

	// WHEN 6 is released
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		se, ok := r.(*SimError)
		require.True(t, ok, "panic value must be *SimError, got %T", r)
		// THEN the panic names the ledger and the invariant
		assert.Equal(t, InvariantViolation, se.Kind)
		assert.Equal(t, "host-0/storage", se.Entity)
		assert.True(t, errors.Is(se, ErrOverRelease))
	}()
	l.Release(6)
}

func TestNewResourceLedger_NegativeCapacityPanics(t *testing.T) {
	assert.Panics(t, func() { NewResourceLedger("x", -1) })
}

func TestResourceUsage_Utilization_ZeroCapacity(t *testing.T) {
	assert.Equal(t, 0.0, ResourceUsage{}.Utilization())
}
