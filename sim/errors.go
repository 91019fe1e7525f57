package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies engine failures.
type ErrorKind int

const (
	// CausalityViolation: an event was scheduled before the current clock. Fatal.
	CausalityViolation ErrorKind = iota + 1
	// InsufficientCapacity: a ledger reservation failed. Recoverable; the broker retries.
	InsufficientCapacity
	// AllocationTimeout: a Vm or Cloudlet was never placed before the horizon.
	// Only reported in the end-of-run Result, never raised.
	AllocationTimeout
	// InvariantViolation: an engine bug such as releasing more than reserved. Fatal.
	InvariantViolation
)

func (k ErrorKind) String() string {
	switch k {
	case CausalityViolation:
		return "CausalityViolation"
	case InsufficientCapacity:
		return "InsufficientCapacity"
	case AllocationTimeout:
		return "AllocationTimeout"
	case InvariantViolation:
		return "InvariantViolation"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Fatal reports whether errors of this kind abort the run.
func (k ErrorKind) Fatal() bool {
	return k == CausalityViolation || k == InvariantViolation
}

// Sentinel causes. Match with errors.Is.
var (
	ErrCausality          = errors.New("event scheduled before current time")
	ErrInsufficient       = errors.New("insufficient capacity")
	ErrOverRelease        = errors.New("released more than reserved")
	ErrNoSuitableHost     = errors.New("no host with enough headroom")
	ErrVmNotAccepting     = errors.New("vm is not accepting cloudlets")
	ErrCloudletNotMovable = errors.New("cloudlet already executing")
	ErrNotPlaced          = errors.New("never placed before the horizon")
)

// SimError is the error type surfaced by the engine. Entity names the
// offending Vm, Host, Cloudlet or ledger; Time is the simulated time.
type SimError struct {
	Kind   ErrorKind
	Entity string
	Time   float64
	Err    error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("%s at t=%.3f on %s: %v", e.Kind, e.Time, e.Entity, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *SimError) Unwrap() error { return e.Err }

func newSimError(kind ErrorKind, entity string, now float64, cause error, format string, args ...any) *SimError {
	return &SimError{
		Kind:   kind,
		Entity: entity,
		Time:   now,
		Err:    errors.Wrapf(cause, format, args...),
	}
}

// KindOf returns the ErrorKind of err, or 0 if err is not a *SimError.
func KindOf(err error) ErrorKind {
	var se *SimError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
