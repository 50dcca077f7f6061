package agent

import (
	"fmt"

	"github.com/crillab/gophersat/solver"
)

// Oracle abstracts the incremental CDCL solver behind the knowledge base.
// Clauses are permanent once added; Solve answers satisfiability of the
// asserted set under single-literal assumptions and returns a complete model
// on SAT.
type Oracle interface {
	AddClauses(clauses [][]int)
	Solve(assumptions []int) (sat bool, model []bool, err error)
}

// GophersatOracle backs the Oracle contract with the in-process gophersat
// CDCL solver. The solver is rebuilt from the accumulated clause slice on
// every Solve call; assumptions ride along as unit clauses. Rebuilding keeps
// the assumption semantics trivially correct and is still much cheaper than
// the per-call subprocess spawn of a DIMACS pipeline.
type GophersatOracle struct {
	numVars int
	clauses [][]int
}

func NewGophersatOracle(numVars int) *GophersatOracle {
	return &GophersatOracle{numVars: numVars}
}

func (o *GophersatOracle) AddClauses(clauses [][]int) {
	for _, c := range clauses {
		clause := make([]int, len(c))
		copy(clause, c)
		o.clauses = append(o.clauses, clause)
	}
}

// NumClauses reports the size of the asserted clause set.
func (o *GophersatOracle) NumClauses() int {
	return len(o.clauses)
}

func (o *GophersatOracle) Solve(assumptions []int) (bool, []bool, error) {
	cnf := make([][]int, 0, len(o.clauses)+len(assumptions)+1)
	cnf = append(cnf, o.clauses...)
	for _, a := range assumptions {
		if a == 0 {
			return false, nil, fmt.Errorf("%w: zero literal assumption", ErrUsage)
		}
		cnf = append(cnf, []int{a})
	}
	// Tautology on the top variable pins the variable count so models always
	// cover the whole grid, even before every variable occurs in a clause.
	if o.numVars > 0 {
		cnf = append(cnf, []int{o.numVars, -o.numVars})
	}

	pb := solver.ParseSlice(cnf)
	s := solver.New(pb)
	switch s.Solve() {
	case solver.Sat:
		return true, s.Model(), nil
	case solver.Unsat:
		return false, nil, nil
	default:
		return false, nil, fmt.Errorf("%w: solver returned indeterminate status", ErrOracle)
	}
}

// CountingOracle wraps an Oracle and counts Solve calls. The decision engine
// promises chord turns on large boards cost zero solver calls; tests hold it
// to that through this wrapper.
type CountingOracle struct {
	Inner      Oracle
	SolveCalls int
}

func (c *CountingOracle) AddClauses(clauses [][]int) {
	c.Inner.AddClauses(clauses)
}

func (c *CountingOracle) Solve(assumptions []int) (bool, []bool, error) {
	c.SolveCalls++
	return c.Inner.Solve(assumptions)
}
