package agent

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

// Action is what the engine wants played next.
type Action string

const (
	ActionChord    Action = "chord"
	ActionGuess    Action = "guess"
	ActionDiscover Action = "discover"
	// ActionNone means every cell is accounted for; the driver should
	// terminate the grid gracefully.
	ActionNone Action = "none"
)

// Decision is one selected move. Species is set for guesses only.
type Decision struct {
	Action  Action
	Row     int
	Col     int
	Species models.Species
}

const (
	// Boards above this cell count run the free chord scan before any SAT
	// probing: chord costs no solver calls and shrinks the problem first.
	largeBoardThreshold = 5000

	// Whole-board species cardinalities are only emitted while the dominant
	// clause family (the (remaining+1)-combinations of the unknowns) stays
	// under this budget; past it the encoding explodes for no benefit.
	globalEmitBudget = 100_000
)

const riskEpsilon = 1e-9

type pendingGuess struct {
	idx     int
	species int
}

type globalEmitKey struct {
	remaining int
	unknowns  int
}

// Engine selects the next move from the knowledge base and UNSAT probes
// against the oracle. It is single-threaded; one Decide call runs to
// completion before the next observation lands.
type Engine struct {
	kb     *KB
	oracle Oracle
	rng    *rand.Rand

	pending    []pendingGuess
	pendingSet map[int]bool

	chorded map[int]bool

	lastGlobalEmit [speciesCount]globalEmitKey
}

// NewEngine wires a decision engine to a knowledge base and its oracle. The
// seeded rng drives every random tie-break, so a fixed seed pins outcomes.
func NewEngine(kb *KB, oracle Oracle, rng *rand.Rand) *Engine {
	return &Engine{
		kb:         kb,
		oracle:     oracle,
		rng:        rng,
		pendingSet: make(map[int]bool),
		chorded:    make(map[int]bool),
	}
}

// NewGame builds the full stack for one grid: oracle, knowledge base, engine.
func NewGame(height, width, tigers, sharks, crocos, land, sea int, seed int64) (*Engine, error) {
	oracle := NewGophersatOracle(NewCodec(height, width).NumVars())
	kb, err := NewKB(height, width, tigers, sharks, crocos, land, sea, oracle)
	if err != nil {
		return nil, err
	}
	return NewEngine(kb, oracle, rand.New(rand.NewSource(seed))), nil
}

// KB exposes the engine's knowledge base for observation ingestion.
func (e *Engine) KB() *KB { return e.kb }

// AddObservation forwards to the knowledge base.
func (e *Engine) AddObservation(obs models.Observation) error {
	return e.kb.AddObservation(obs)
}

// Decide picks exactly one move. Policy order: chord (free), forced guess,
// global cardinality boost + re-probe, forced discover, probabilistic
// discover. Large boards run the chord scan first; small boards prefer the
// information-bearing forced guess.
func (e *Engine) Decide() (Decision, error) {
	large := e.kb.Height*e.kb.Width > largeBoardThreshold

	if large {
		if d, ok := e.chordStep(); ok {
			return d, nil
		}
	}
	if d, ok, err := e.guessStep(nil); err != nil {
		return Decision{}, err
	} else if ok {
		return d, nil
	}
	if !large {
		if d, ok := e.chordStep(); ok {
			return d, nil
		}
	}

	boosted, err := e.emitGlobalCardinalities()
	if err != nil {
		return Decision{}, err
	}
	if boosted != nil {
		if d, ok, err := e.guessStep(boosted); err != nil {
			return Decision{}, err
		} else if ok {
			return d, nil
		}
	}

	if d, ok, err := e.forcedDiscoverStep(); err != nil {
		return Decision{}, err
	} else if ok {
		return d, nil
	}

	return e.probabilisticStep()
}

// ─── Step A: chord ──────────────────────────────────────────────────────────

// chordStep scans visited free cells for one whose counted animals are all
// identified among its neighbors. Counting alone decides candidacy; no solver
// call is made. Best candidate reveals the most unknown cells.
func (e *Engine) chordStep() (Decision, bool) {
	best, bestUnknown := -1, -1
	for _, idx := range e.kb.visited {
		cell := &e.kb.Cells[idx]
		if cell.Type != CellFree || !cell.HasProx || e.chorded[idx] {
			continue
		}
		counted := cell.Prox[0] + cell.Prox[1] + cell.Prox[2]
		identified := cell.Known[LabelTiger] + cell.Known[LabelShark] + cell.Known[LabelCroco]
		if identified != counted {
			continue
		}
		nonFree, unknown := 0, 0
		for _, n := range cell.Neighbors {
			switch e.kb.Cells[n].Type {
			case CellFree:
			case CellUnknown:
				unknown++
				nonFree++
			default:
				nonFree++
			}
		}
		if nonFree == 0 {
			continue // everything already revealed
		}
		if unknown > bestUnknown {
			best, bestUnknown = idx, unknown
		}
	}
	if best < 0 {
		return Decision{}, false
	}
	e.chorded[best] = true
	row, col := e.kb.position(best)
	return Decision{Action: ActionChord, Row: row, Col: col}, true
}

// ─── Step B: forced guesses ─────────────────────────────────────────────────

// guessStep pops the pending queue, refreshing it first from UNSAT probes
// when new information arrived. speciesFilter, when non-nil, restricts the
// probe to the listed species and widens the probe set to every unknown cell;
// a nil filter probes the last-touched set across all species.
func (e *Engine) guessStep(speciesFilter []int) (Decision, bool, error) {
	if speciesFilter != nil {
		if err := e.probeForced(e.kb.unknownCells(), speciesFilter); err != nil {
			return Decision{}, false, err
		}
	} else if len(e.pending) == 0 && e.kb.refreshGuess {
		e.kb.refreshGuess = false
		touched := e.kb.consumeTouched()
		if err := e.probeForced(touched, nil); err != nil {
			return Decision{}, false, err
		}
	}

	for len(e.pending) > 0 {
		g := e.pending[0]
		e.pending = e.pending[1:]
		delete(e.pendingSet, g.idx)
		if e.kb.Cells[g.idx].Type != CellUnknown {
			continue // resolved meanwhile, e.g. by a chord reveal
		}
		row, col := e.kb.position(g.idx)
		return Decision{Action: ActionGuess, Row: row, Col: col, Species: speciesWire[g.species]}, true, nil
	}
	return Decision{}, false, nil
}

// probeForced runs solve(¬v) for each candidate cell/species variable and
// enqueues the UNSAT ones: a variable whose negation is unsatisfiable is
// forced true in every model.
func (e *Engine) probeForced(cells []int, speciesFilter []int) error {
	species := speciesFilter
	if species == nil {
		species = []int{speciesTiger, speciesShark, speciesCroco}
	}
	for _, idx := range cells {
		cell := &e.kb.Cells[idx]
		if cell.Type != CellUnknown || e.pendingSet[idx] {
			continue
		}
		for _, sp := range species {
			// Terrain already rules the species out; its variable can only
			// be forced if the whole formula is broken.
			if cell.Field == TerrainSea && sp == speciesTiger {
				continue
			}
			if cell.Field == TerrainLand && sp == speciesShark {
				continue
			}
			row, col := e.kb.position(idx)
			v := e.kb.Codec.Encode(row, col, speciesLabels[sp])
			sat, _, err := e.oracle.Solve([]int{-v})
			if err != nil {
				return err
			}
			if !sat {
				e.pending = append(e.pending, pendingGuess{idx: idx, species: sp})
				e.pendingSet[idx] = true
				break
			}
		}
	}
	return nil
}

// ─── Step C: global species cardinalities ───────────────────────────────────

// emitGlobalCardinalities asserts "exactly remaining[s] of the unknown cells
// are species s" whenever the clause family fits the combinatorial budget.
// Returns the species worth re-probing, nil when nothing new was emitted.
func (e *Engine) emitGlobalCardinalities() ([]int, error) {
	unknowns := e.kb.unknownCells()
	changed := false
	for sp := 0; sp < speciesCount; sp++ {
		remaining := e.kb.Totals[sp] - e.kb.Marked[sp]
		if remaining < 0 {
			return nil, fmt.Errorf("%w: species %s over-marked", ErrInconsistent, speciesWire[sp])
		}
		if remaining > len(unknowns) {
			return nil, fmt.Errorf("%w: %d %s left but only %d unknown cells",
				ErrInconsistent, remaining, speciesWire[sp], len(unknowns))
		}
		if binomialCapped(len(unknowns), remaining+1, globalEmitBudget) >= globalEmitBudget {
			continue
		}
		key := globalEmitKey{remaining: remaining, unknowns: len(unknowns)}
		if e.lastGlobalEmit[sp] == key {
			continue // same constraint as last time, nothing new to learn
		}
		lits := make([]int, len(unknowns))
		for i, idx := range unknowns {
			row, col := e.kb.position(idx)
			lits[i] = e.kb.Codec.Encode(row, col, speciesLabels[sp])
		}
		clauses, err := Exactly(lits, remaining)
		if err != nil {
			return nil, err
		}
		e.kb.assert(clauses)
		e.lastGlobalEmit[sp] = key
		changed = true
	}
	if !changed {
		return nil, nil
	}
	// Any new constraint can force any species (a zero-remaining unit family
	// pins other labels through the per-cell exactly-one), so the re-probe
	// covers every species that still has animals left.
	var probe []int
	for sp := 0; sp < speciesCount; sp++ {
		if e.kb.Totals[sp]-e.kb.Marked[sp] > 0 {
			probe = append(probe, sp)
		}
	}
	return probe, nil
}

// ─── Step D: forced discovers ───────────────────────────────────────────────

// forcedDiscoverStep probes the frontier for a cell whose Free variable is
// forced.
func (e *Engine) forcedDiscoverStep() (Decision, bool, error) {
	for _, idx := range e.frontier() {
		row, col := e.kb.position(idx)
		v := e.kb.Codec.Encode(row, col, LabelFree)
		sat, _, err := e.oracle.Solve([]int{-v})
		if err != nil {
			return Decision{}, false, err
		}
		if !sat {
			return Decision{Action: ActionDiscover, Row: row, Col: col}, true, nil
		}
	}
	return Decision{}, false, nil
}

// frontier lists unknown cells adjacent to a visited free cell, first-seen
// order, no duplicates.
func (e *Engine) frontier() []int {
	seen := make(map[int]bool)
	var cells []int
	for _, idx := range e.kb.visited {
		cell := &e.kb.Cells[idx]
		if cell.Type != CellFree || !cell.HasProx {
			continue
		}
		for _, n := range cell.Neighbors {
			if e.kb.Cells[n].Type == CellUnknown && !seen[n] {
				seen[n] = true
				cells = append(cells, n)
			}
		}
	}
	return cells
}

// ─── Step E: probabilistic fallback ─────────────────────────────────────────

// probabilisticStep scores every frontier cell with its worst-case local
// animal probability, compares against the uniform risk of the unexplored
// interior, and discovers the safest cell — or, when nothing is worth
// discovering, guesses the most plentiful species at the chosen cell.
func (e *Engine) probabilisticStep() (Decision, error) {
	risks := e.frontierRisks()
	remaining := 0
	for sp := 0; sp < speciesCount; sp++ {
		remaining += e.kb.Totals[sp] - e.kb.Marked[sp]
	}

	var interior []int
	hiddenTerrain := 0
	for i := range e.kb.Cells {
		if e.kb.Cells[i].Type != CellUnknown || e.kb.Cells[i].Field != TerrainUnknown {
			continue
		}
		hiddenTerrain++
		if _, onFrontier := risks[i]; !onFrontier {
			interior = append(interior, i)
		}
	}
	pUnknown := 1.0
	if hiddenTerrain > 0 {
		pUnknown = float64(remaining) / float64(hiddenTerrain)
	}

	if len(risks) == 0 {
		unknowns := e.kb.unknownCells()
		if len(unknowns) == 0 {
			return Decision{Action: ActionNone}, nil
		}
		idx := unknowns[e.rng.Intn(len(unknowns))]
		if remaining == 0 {
			row, col := e.kb.position(idx)
			return Decision{Action: ActionDiscover, Row: row, Col: col}, nil
		}
		return e.fallbackGuess(idx), nil
	}

	minRisk := math.Inf(1)
	for _, r := range risks {
		if r < minRisk {
			minRisk = r
		}
	}
	ties := make([]int, 0, len(risks))
	for idx, r := range risks {
		if r <= minRisk+riskEpsilon {
			ties = append(ties, idx)
		}
	}
	sort.Ints(ties)

	switch {
	case minRisk < pUnknown-riskEpsilon:
		idx := ties[e.rng.Intn(len(ties))]
		row, col := e.kb.position(idx)
		return Decision{Action: ActionDiscover, Row: row, Col: col}, nil

	case math.Abs(minRisk-pUnknown) <= riskEpsilon && pUnknown < 1-riskEpsilon:
		pool := append(append([]int{}, ties...), interior...)
		idx := pool[e.rng.Intn(len(pool))]
		row, col := e.kb.position(idx)
		return Decision{Action: ActionDiscover, Row: row, Col: col}, nil

	case minRisk > pUnknown+riskEpsilon && len(interior) > 0:
		idx := interior[e.rng.Intn(len(interior))]
		row, col := e.kb.position(idx)
		return Decision{Action: ActionDiscover, Row: row, Col: col}, nil

	default:
		// Every reachable cell is as risky as blind terrain and there is no
		// interior left to fall back on: claim an animal instead of losing
		// to a reveal.
		idx := ties[e.rng.Intn(len(ties))]
		return e.fallbackGuess(idx), nil
	}
}

// frontierRisks computes, for each unknown neighbor of each revealed free
// cell, the worst-case probability that an animal sits there, treating each
// local neighborhood as an independent constraint.
func (e *Engine) frontierRisks() map[int]float64 {
	risks := make(map[int]float64)
	for _, idx := range e.kb.visited {
		cell := &e.kb.Cells[idx]
		if cell.Type != CellFree || !cell.HasProx {
			continue
		}
		var unknown []int
		uLand, uSea := 0, 0
		for _, n := range cell.Neighbors {
			if e.kb.Cells[n].Type != CellUnknown {
				continue
			}
			unknown = append(unknown, n)
			switch e.kb.Cells[n].Field {
			case TerrainLand:
				uLand++
			case TerrainSea:
				uSea++
			}
		}
		if len(unknown) == 0 {
			continue
		}
		t := float64(cell.Prox[speciesTiger] - cell.Known[LabelTiger])
		s := float64(cell.Prox[speciesShark] - cell.Known[LabelShark])
		k := float64(cell.Prox[speciesCroco] - cell.Known[LabelCroco])
		u := float64(len(unknown))

		for _, n := range unknown {
			var p float64
			switch e.kb.Cells[n].Field {
			case TerrainSea:
				p = k / u
				if uSea > 0 {
					p += s / float64(uSea)
				}
			case TerrainLand:
				p = k / u
				if uLand > 0 {
					p += t / float64(uLand)
				}
			default:
				p = (t + s + k) / u
			}
			if prev, ok := risks[n]; !ok || p > prev {
				risks[n] = p
			}
		}
	}
	return risks
}

// fallbackGuess claims the species with the most unmarked animals that the
// cell's terrain permits.
func (e *Engine) fallbackGuess(idx int) Decision {
	cell := &e.kb.Cells[idx]
	best, bestRemaining := -1, 0
	for sp := 0; sp < speciesCount; sp++ {
		if cell.Field == TerrainSea && sp == speciesTiger {
			continue
		}
		if cell.Field == TerrainLand && sp == speciesShark {
			continue
		}
		remaining := e.kb.Totals[sp] - e.kb.Marked[sp]
		if remaining > bestRemaining {
			best, bestRemaining = sp, remaining
		}
	}
	row, col := e.kb.position(idx)
	if best < 0 {
		// Nothing claimable remains; a discover is the only legal move.
		return Decision{Action: ActionDiscover, Row: row, Col: col}
	}
	return Decision{Action: ActionGuess, Row: row, Col: col, Species: speciesWire[best]}
}
