package agent

import (
	"errors"
	"testing"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

func prox(t, s, c int) *[3]int {
	p := [3]int{t, s, c}
	return &p
}

func newTestKB(t *testing.T, h, w, tigers, sharks, crocos, land, sea int) (*KB, *GophersatOracle) {
	t.Helper()
	oracle := NewGophersatOracle(NewCodec(h, w).NumVars())
	kb, err := NewKB(h, w, tigers, sharks, crocos, land, sea, oracle)
	if err != nil {
		t.Fatalf("NewKB: %v", err)
	}
	return kb, oracle
}

func TestKBNeighborPrecomputation(t *testing.T) {
	kb, _ := newTestKB(t, 3, 3, 0, 0, 0, 9, 0)

	tests := []struct {
		row, col  int
		neighbors int
	}{
		{0, 0, 3},
		{0, 1, 5},
		{1, 1, 8},
		{2, 2, 3},
	}
	for _, tt := range tests {
		cell := kb.Cells[kb.index(tt.row, tt.col)]
		if len(cell.Neighbors) != tt.neighbors {
			t.Errorf("(%d,%d): expected %d neighbors, got %d", tt.row, tt.col, tt.neighbors, len(cell.Neighbors))
		}
	}
}

func TestKBFreeRevealUpdatesState(t *testing.T) {
	kb, _ := newTestKB(t, 3, 3, 1, 0, 0, 8, 0)

	err := kb.AddObservation(models.Observation{Pos: [2]int{1, 1}, Field: models.FieldLand, ProxCount: prox(1, 0, 0)})
	if err != nil {
		t.Fatalf("AddObservation: %v", err)
	}

	center := kb.Cells[kb.index(1, 1)]
	if center.Type != CellFree || center.Field != TerrainLand || !center.HasProx {
		t.Fatalf("center not recorded as revealed land free cell: %+v", center)
	}
	if kb.Found[0] != 1 {
		t.Errorf("land found count = %d, want 1", kb.Found[0])
	}

	// Every neighbor now knows one adjacent free cell.
	for _, n := range center.Neighbors {
		if kb.Cells[n].Known[LabelFree] != 1 {
			t.Errorf("neighbor %d Known[Free] = %d, want 1", n, kb.Cells[n].Known[LabelFree])
		}
	}

	// The reveal appends itself; touched neighbors prepend. The last
	// prepended neighbor is the row-major last one, (2,2).
	visited := kb.Visited()
	if len(visited) != 9 {
		t.Fatalf("visited size = %d, want 9", len(visited))
	}
	if visited[len(visited)-1] != kb.index(1, 1) {
		t.Errorf("revealed cell should sit at the end of the visited list")
	}
	if visited[0] != kb.index(2, 2) {
		t.Errorf("visited head = %d, want %d", visited[0], kb.index(2, 2))
	}
}

func TestKBGuessUpdatesCounters(t *testing.T) {
	kb, _ := newTestKB(t, 2, 2, 1, 0, 0, 3, 1)

	err := kb.AddObservation(models.Observation{Pos: [2]int{0, 0}, Field: models.FieldLand, Animal: models.SpeciesTiger})
	if err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	if kb.Marked[speciesTiger] != 1 {
		t.Errorf("Marked[T] = %d, want 1", kb.Marked[speciesTiger])
	}
	if kb.Cells[kb.index(0, 0)].Type != CellTiger {
		t.Errorf("cell type not set by guess")
	}
	for _, n := range kb.Cells[kb.index(0, 0)].Neighbors {
		if kb.Cells[n].Known[LabelTiger] != 1 {
			t.Errorf("neighbor %d Known[T] = %d, want 1", n, kb.Cells[n].Known[LabelTiger])
		}
	}
}

func TestKBTerrainExclusionIsUnitPropagated(t *testing.T) {
	kb, oracle := newTestKB(t, 1, 2, 1, 1, 0, 1, 1)

	if err := kb.AddObservation(models.Observation{Pos: [2]int{0, 0}, Field: models.FieldSea}); err != nil {
		t.Fatal(err)
	}

	// A tiger at the sea cell must be impossible outright.
	sat, _, err := oracle.Solve([]int{kb.Codec.Encode(0, 0, LabelTiger)})
	if err != nil {
		t.Fatal(err)
	}
	if sat {
		t.Errorf("tiger at a sea cell should be unsatisfiable")
	}
}

func TestKBClauseSetStaysSatisfiable(t *testing.T) {
	kb, oracle := newTestKB(t, 2, 2, 1, 0, 0, 3, 1)

	obs := []models.Observation{
		{Pos: [2]int{0, 0}, Field: models.FieldLand, ProxCount: prox(1, 0, 0)},
		{Pos: [2]int{0, 1}, Field: models.FieldLand, ProxCount: prox(1, 0, 0)},
		{Pos: [2]int{1, 0}, Field: models.FieldLand, ProxCount: prox(1, 0, 0)},
	}
	for _, o := range obs {
		if err := kb.AddObservation(o); err != nil {
			t.Fatalf("AddObservation(%v): %v", o.Pos, err)
		}
		sat, _, err := oracle.Solve(nil)
		if err != nil {
			t.Fatal(err)
		}
		if !sat {
			t.Fatalf("clause set unsatisfiable after observation at %v", o.Pos)
		}
	}

	// A revealed cell is provably free: its negated free literal is UNSAT.
	sat, _, err := oracle.Solve([]int{-kb.Codec.Encode(0, 0, LabelFree)})
	if err != nil {
		t.Fatal(err)
	}
	if sat {
		t.Errorf("revealed cell not proven free by the oracle")
	}

	// And the tiger position follows from the three safe reveals.
	sat, _, err = oracle.Solve([]int{-kb.Codec.Encode(1, 1, LabelTiger)})
	if err != nil {
		t.Fatal(err)
	}
	if sat {
		t.Errorf("remaining cell should be a forced tiger")
	}
}

func TestKBRejectsBadInput(t *testing.T) {
	kb, _ := newTestKB(t, 2, 2, 1, 0, 0, 3, 1)

	tests := []struct {
		name string
		obs  models.Observation
		want error
	}{
		{
			"out of range",
			models.Observation{Pos: [2]int{5, 5}, Field: models.FieldLand},
			ErrUsage,
		},
		{
			"unknown field",
			models.Observation{Pos: [2]int{0, 0}, Field: "lava"},
			ErrUsage,
		},
		{
			"unknown species",
			models.Observation{Pos: [2]int{0, 0}, Field: models.FieldLand, Animal: "X"},
			ErrUsage,
		},
		{
			"negative proximity",
			models.Observation{Pos: [2]int{0, 0}, Field: models.FieldLand, ProxCount: prox(-1, 0, 0)},
			ErrUsage,
		},
		{
			"count exceeds neighborhood",
			models.Observation{Pos: [2]int{0, 0}, Field: models.FieldLand, ProxCount: prox(4, 0, 0)},
			ErrInconsistent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := kb.AddObservation(tt.obs)
			if !errors.Is(err, tt.want) {
				t.Errorf("AddObservation() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestKBContradictoryTerrainIsFatal(t *testing.T) {
	kb, _ := newTestKB(t, 1, 2, 0, 0, 1, 1, 1)

	if err := kb.AddObservation(models.Observation{Pos: [2]int{0, 0}, Field: models.FieldSea}); err != nil {
		t.Fatal(err)
	}
	err := kb.AddObservation(models.Observation{Pos: [2]int{0, 0}, Field: models.FieldLand})
	if !errors.Is(err, ErrInconsistent) {
		t.Errorf("contradictory terrain should be ErrInconsistent, got %v", err)
	}
}

func TestKBDuplicateRevealIsIdempotent(t *testing.T) {
	kb, _ := newTestKB(t, 2, 2, 0, 0, 0, 4, 0)

	obs := models.Observation{Pos: [2]int{0, 0}, Field: models.FieldLand, ProxCount: prox(0, 0, 0)}
	if err := kb.AddObservation(obs); err != nil {
		t.Fatal(err)
	}
	clausesBefore := len(kb.Clauses())
	if err := kb.AddObservation(obs); err != nil {
		t.Fatalf("duplicate reveal should be ignored, got %v", err)
	}
	if len(kb.Clauses()) != clausesBefore {
		t.Errorf("duplicate reveal emitted clauses")
	}
	neighbor := kb.Cells[kb.index(1, 1)]
	if neighbor.Known[LabelFree] != 1 {
		t.Errorf("duplicate reveal double-counted Known[Free]: %d", neighbor.Known[LabelFree])
	}
}
