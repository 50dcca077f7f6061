// Package agent is the decision core of the Crocomine player: a knowledge
// base over the partially revealed grid, a CNF encoding of what is known, a
// CDCL oracle to prove moves, and the policy that picks the next one.
package agent

import "errors"

// Error classes surfaced to the driver. Wrap with fmt.Errorf("%w: ...") and
// classify with errors.Is.
var (
	// ErrUsage flags malformed input: out-of-range coordinates, unknown
	// species, negative counts. Not recoverable.
	ErrUsage = errors.New("usage error")

	// ErrInconsistent flags an observation that contradicts prior knowledge
	// (conflicting terrain, more animals counted than neighbors, more marks
	// than declared animals). The clause set is not solved without
	// assumptions, so a formula that is unsatisfiable on its own is not
	// reported. The driver abandons the grid.
	ErrInconsistent = errors.New("inconsistent knowledge")

	// ErrOracle flags a hard failure of the underlying SAT solver.
	ErrOracle = errors.New("oracle failure")
)
