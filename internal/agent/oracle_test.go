package agent

import "testing"

func TestGophersatOracleSolve(t *testing.T) {
	oracle := NewGophersatOracle(3)
	oracle.AddClauses([][]int{{1, 2}, {-1}})

	sat, model, err := oracle.Solve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !sat {
		t.Fatal("expected SAT")
	}
	if len(model) != 3 {
		t.Fatalf("model length = %d, want 3", len(model))
	}
	if model[0] || !model[1] {
		t.Errorf("expected ¬1 ∧ 2, got model %v", model)
	}
}

func TestGophersatOracleAssumptions(t *testing.T) {
	oracle := NewGophersatOracle(2)
	oracle.AddClauses([][]int{{1, 2}})

	sat, _, err := oracle.Solve([]int{-1})
	if err != nil {
		t.Fatal(err)
	}
	if !sat {
		t.Fatal("¬1 alone should still be satisfiable")
	}

	oracle.AddClauses([][]int{{-2}})
	sat, _, err = oracle.Solve([]int{-1})
	if err != nil {
		t.Fatal(err)
	}
	if sat {
		t.Fatal("¬1 with ¬2 asserted contradicts the disjunction")
	}

	// Assumptions do not stick: the clause set itself stays satisfiable.
	sat, _, err = oracle.Solve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !sat {
		t.Fatal("asserted clauses alone should be satisfiable")
	}
}

func TestCountingOracleCounts(t *testing.T) {
	counting := &CountingOracle{Inner: NewGophersatOracle(1)}
	counting.AddClauses([][]int{{1}})
	if _, _, err := counting.Solve(nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := counting.Solve([]int{-1}); err != nil {
		t.Fatal(err)
	}
	if counting.SolveCalls != 2 {
		t.Errorf("SolveCalls = %d, want 2", counting.SolveCalls)
	}
}
