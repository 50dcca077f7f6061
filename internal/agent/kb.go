package agent

import (
	"fmt"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

// CellType is what the knowledge base currently knows a cell to be.
type CellType int

const (
	CellUnknown CellType = iota
	CellFree
	CellTiger
	CellShark
	CellCroco
)

// Terrain is the revealed terrain of a cell.
type Terrain int

const (
	TerrainUnknown Terrain = iota
	TerrainLand
	TerrainSea
)

// The three animals in the order proximity counts list them.
const (
	speciesTiger = iota
	speciesShark
	speciesCroco
	speciesCount
)

var speciesLabels = [speciesCount]Label{LabelTiger, LabelShark, LabelCroco}

var speciesWire = [speciesCount]models.Species{
	models.SpeciesTiger, models.SpeciesShark, models.SpeciesCrocodile,
}

// Cell is the per-position knowledge record. Neighbors are flat indices into
// the KB cell array, precomputed once in row-major order.
type Cell struct {
	Type    CellType
	Field   Terrain
	Prox    [speciesCount]int // valid iff HasProx
	HasProx bool
	Known   [labelCount]int // identified neighbors per label (Free, T, S, C)

	Neighbors []int
}

// KB is the knowledge base: grid state, aggregate counters, and the
// append-only clause set mirrored into the SAT oracle. AddObservation is the
// sole mutator.
type KB struct {
	Height int
	Width  int
	Codec  Codec

	Cells []Cell

	Totals      [speciesCount]int // declared animals per species
	Marked      [speciesCount]int // accepted guesses per species
	FieldTotals [2]int            // land, sea
	Found       [2]int            // free cells revealed per terrain

	oracle  Oracle
	clauses [][]int

	visited    []int // insertion-ordered flat indices
	visitedSet map[int]bool

	lastTouched    []int // cells touched since the engine last refreshed
	lastTouchedSet map[int]bool
	refreshGuess   bool

	exclusionEmitted []bool // terrain exclusion unit already asserted
}

// NewKB builds the knowledge base for a fresh grid and wires it to the given
// oracle. All counts must be non-negative.
func NewKB(height, width, tigers, sharks, crocos, land, sea int, oracle Oracle) (*KB, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrUsage, height, width)
	}
	for _, n := range []int{tigers, sharks, crocos, land, sea} {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count %d", ErrUsage, n)
		}
	}

	kb := &KB{
		Height:           height,
		Width:            width,
		Codec:            NewCodec(height, width),
		Cells:            make([]Cell, height*width),
		Totals:           [speciesCount]int{tigers, sharks, crocos},
		FieldTotals:      [2]int{land, sea},
		oracle:           oracle,
		visitedSet:       make(map[int]bool),
		lastTouchedSet:   make(map[int]bool),
		exclusionEmitted: make([]bool, height*width),
	}

	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			idx := kb.index(r, c)
			cell := &kb.Cells[idx]
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					nr, nc := r+dr, c+dc
					if nr < 0 || nr >= height || nc < 0 || nc >= width {
						continue
					}
					cell.Neighbors = append(cell.Neighbors, kb.index(nr, nc))
				}
			}
		}
	}
	return kb, nil
}

func (kb *KB) index(row, col int) int { return row*kb.Width + col }

func (kb *KB) position(idx int) (row, col int) { return idx / kb.Width, idx % kb.Width }

// Clauses exposes the asserted clause set (shared backing; callers must not
// mutate).
func (kb *KB) Clauses() [][]int { return kb.clauses }

// Visited exposes the insertion-ordered visited list.
func (kb *KB) Visited() []int { return kb.visited }

func (kb *KB) assert(clauses [][]int) {
	kb.clauses = append(kb.clauses, clauses...)
	kb.oracle.AddClauses(clauses)
}

func (kb *KB) assertUnit(lit int) {
	kb.assert([][]int{{lit}})
}

// AddObservation ingests one observation from the game server: terrain-only,
// free-with-counts, or an accepted guess.
func (kb *KB) AddObservation(obs models.Observation) error {
	row, col := obs.Pos[0], obs.Pos[1]
	if row < 0 || row >= kb.Height || col < 0 || col >= kb.Width {
		return fmt.Errorf("%w: position (%d,%d) outside %dx%d grid", ErrUsage, row, col, kb.Height, kb.Width)
	}
	terrain, err := terrainFromWire(obs.Field)
	if err != nil {
		return err
	}
	idx := kb.index(row, col)

	if err := kb.setTerrain(idx, terrain); err != nil {
		return err
	}

	if obs.Animal != "" {
		return kb.ingestGuess(idx, obs)
	}
	if obs.ProxCount != nil {
		return kb.ingestFree(idx, terrain, *obs.ProxCount)
	}

	// Terrain-only: the exclusion unit asserted by setTerrain is the whole
	// story, but the exclusion may combine with species cardinalities into a
	// forced guess, so the cell joins the probe set.
	kb.markTouched(idx)
	kb.refreshGuess = true
	return nil
}

// setTerrain records terrain and asserts the species exclusion unit: no tiger
// at sea, no shark on land.
func (kb *KB) setTerrain(idx int, terrain Terrain) error {
	cell := &kb.Cells[idx]
	if cell.Field != TerrainUnknown && cell.Field != terrain {
		row, col := kb.position(idx)
		return fmt.Errorf("%w: terrain of (%d,%d) reported both land and sea", ErrInconsistent, row, col)
	}
	cell.Field = terrain
	if kb.exclusionEmitted[idx] {
		return nil
	}
	kb.exclusionEmitted[idx] = true
	row, col := kb.position(idx)
	if terrain == TerrainSea {
		kb.assertUnit(-kb.Codec.Encode(row, col, LabelTiger))
	} else {
		kb.assertUnit(-kb.Codec.Encode(row, col, LabelShark))
	}
	return nil
}

func (kb *KB) ingestGuess(idx int, obs models.Observation) error {
	sp, err := speciesFromWire(obs.Animal)
	if err != nil {
		return err
	}
	cell := &kb.Cells[idx]
	want := cellTypeForSpecies(sp)
	if cell.Type != CellUnknown && cell.Type != want {
		row, col := kb.position(idx)
		return fmt.Errorf("%w: guess %s at already-known cell (%d,%d)", ErrInconsistent, obs.Animal, row, col)
	}
	if cell.Type == want {
		return nil // duplicate confirmation
	}
	cell.Type = want
	kb.Marked[sp]++
	if kb.Marked[sp] > kb.Totals[sp] {
		return fmt.Errorf("%w: %d %s marked but only %d declared", ErrInconsistent, kb.Marked[sp], obs.Animal, kb.Totals[sp])
	}
	label := speciesLabels[sp]
	for _, n := range cell.Neighbors {
		kb.Cells[n].Known[label]++
	}
	// No clause: the per-cell exactly-one and the proximity cardinalities
	// already pin a cell the engine was able to guess.
	return nil
}

func (kb *KB) ingestFree(idx int, terrain Terrain, prox [3]int) error {
	cell := &kb.Cells[idx]
	for _, n := range prox {
		if n < 0 {
			return fmt.Errorf("%w: negative proximity count %v", ErrUsage, prox)
		}
	}
	if cell.Type != CellUnknown && cell.Type != CellFree {
		row, col := kb.position(idx)
		return fmt.Errorf("%w: free reveal at (%d,%d) already marked as an animal", ErrInconsistent, row, col)
	}
	if cell.Type == CellFree && cell.HasProx {
		return nil // duplicate reveal, e.g. chord overlapping a discover
	}
	total := prox[0] + prox[1] + prox[2]
	if total > len(cell.Neighbors) {
		row, col := kb.position(idx)
		return fmt.Errorf("%w: %d animals counted around (%d,%d) which has %d neighbors",
			ErrInconsistent, total, row, col, len(cell.Neighbors))
	}

	row, col := kb.position(idx)
	cell.Type = CellFree
	cell.Prox = prox
	cell.HasProx = true
	kb.assertUnit(kb.Codec.Encode(row, col, LabelFree))
	kb.enterVisited(idx, false)
	kb.markTouched(idx)

	for _, n := range cell.Neighbors {
		kb.Cells[n].Known[LabelFree]++
		kb.enterVisited(n, true)
		kb.markTouched(n)
	}

	// Per-species neighborhood cardinality, then the free remainder. The
	// free clause is emitted even when every count is zero.
	for sp := 0; sp < speciesCount; sp++ {
		lits := kb.neighborLiterals(cell, speciesLabels[sp])
		clauses, err := Exactly(lits, prox[sp])
		if err != nil {
			return err
		}
		kb.assert(clauses)
	}
	freeLits := kb.neighborLiterals(cell, LabelFree)
	clauses, err := Exactly(freeLits, len(cell.Neighbors)-total)
	if err != nil {
		return err
	}
	kb.assert(clauses)

	if terrain == TerrainLand {
		kb.Found[0]++
	} else {
		kb.Found[1]++
	}
	kb.refreshGuess = true
	return nil
}

// enterVisited puts a cell under the exactly-one label constraint. Reveals
// append; their touched neighbors prepend, matching the insertion order the
// decision engine iterates.
func (kb *KB) enterVisited(idx int, prepend bool) {
	if kb.visitedSet[idx] {
		return
	}
	kb.visitedSet[idx] = true
	if prepend {
		kb.visited = append([]int{idx}, kb.visited...)
	} else {
		kb.visited = append(kb.visited, idx)
	}
	row, col := kb.position(idx)
	lits := make([]int, labelCount)
	for l := 0; l < labelCount; l++ {
		lits[l] = kb.Codec.Encode(row, col, Label(l))
	}
	clauses, _ := Exactly(lits, 1) // k=1 over 4 literals cannot fail
	kb.assert(clauses)
}

func (kb *KB) markTouched(idx int) {
	if kb.lastTouchedSet[idx] {
		return
	}
	kb.lastTouchedSet[idx] = true
	kb.lastTouched = append(kb.lastTouched, idx)
}

// consumeTouched hands the accumulated probe set to the engine and resets it.
func (kb *KB) consumeTouched() []int {
	touched := kb.lastTouched
	kb.lastTouched = nil
	kb.lastTouchedSet = make(map[int]bool)
	return touched
}

func (kb *KB) neighborLiterals(cell *Cell, label Label) []int {
	lits := make([]int, len(cell.Neighbors))
	for i, n := range cell.Neighbors {
		nr, nc := kb.position(n)
		lits[i] = kb.Codec.Encode(nr, nc, label)
	}
	return lits
}

// unknownCells lists row-major indices of cells not yet identified.
func (kb *KB) unknownCells() []int {
	var idxs []int
	for i := range kb.Cells {
		if kb.Cells[i].Type == CellUnknown {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func terrainFromWire(f models.Field) (Terrain, error) {
	switch f {
	case models.FieldLand:
		return TerrainLand, nil
	case models.FieldSea:
		return TerrainSea, nil
	}
	return TerrainUnknown, fmt.Errorf("%w: field %q", ErrUsage, string(f))
}

func speciesFromWire(s models.Species) (int, error) {
	switch s {
	case models.SpeciesTiger:
		return speciesTiger, nil
	case models.SpeciesShark:
		return speciesShark, nil
	case models.SpeciesCrocodile:
		return speciesCroco, nil
	}
	return 0, fmt.Errorf("%w: species %q", ErrUsage, string(s))
}

func cellTypeForSpecies(sp int) CellType {
	switch sp {
	case speciesTiger:
		return CellTiger
	case speciesShark:
		return CellShark
	default:
		return CellCroco
	}
}
