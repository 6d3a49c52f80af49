package solver

import (
	"errors"
	"fmt"
)

// ErrNoValidSolution is returned when every multi-start trial was
// disqualified and no incumbent was ever recorded.
var ErrNoValidSolution = errors.New("no valid solution found")

// ConfigurationError marks an unsatisfiable instance: a single service demand
// already exceeds the vehicle capacity, so no feasible route can carry it.
type ConfigurationError struct {
	ServiceID int
	Demand    int
	Capacity  int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("service %d demand %d exceeds vehicle capacity %d", e.ServiceID, e.Demand, e.Capacity)
}

// FatalInvariantViolation reports a coverage divergence after a structural
// stage. It always signals a defect in the engine itself, never bad input,
// and aborts the whole run.
type FatalInvariantViolation struct {
	Stage      string
	Missing    []int
	Duplicated []int
}

func (e *FatalInvariantViolation) Error() string {
	return fmt.Sprintf("%s: coverage invariant violated (%d missing, %d duplicated)", e.Stage, len(e.Missing), len(e.Duplicated))
}
