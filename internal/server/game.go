package server

import (
	"fmt"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

// Game tracks one session playing one grid: which cells are revealed, which
// animals are marked, and whether the session already ended.
type Game struct {
	grid     *Grid
	revealed [][]bool
	marked   [][]bool
	moves    int
	over     bool
}

func NewGame(grid *Grid) *Game {
	revealed := make([][]bool, grid.Height)
	marked := make([][]bool, grid.Height)
	for r := range revealed {
		revealed[r] = make([]bool, grid.Width)
		marked[r] = make([]bool, grid.Width)
	}
	return &Game{grid: grid, revealed: revealed, marked: marked}
}

// Moves reports how many moves the session has played.
func (g *Game) Moves() int { return g.moves }

func (g *Game) inBounds(row, col int) bool {
	return row >= 0 && row < g.grid.Height && col >= 0 && col < g.grid.Width
}

func (g *Game) neighbors(row, col int) [][2]int {
	var cells [][2]int
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if g.inBounds(row+dr, col+dc) {
				cells = append(cells, [2]int{row + dr, col + dc})
			}
		}
	}
	return cells
}

func (g *Game) proximity(row, col int) [3]int {
	var counts [3]int
	for _, n := range g.neighbors(row, col) {
		switch g.grid.Cells[n[0]][n[1]].Animal {
		case AnimalTiger:
			counts[0]++
		case AnimalShark:
			counts[1]++
		case AnimalCroco:
			counts[2]++
		}
	}
	return counts
}

func (g *Game) observationFor(row, col int) models.Observation {
	counts := g.proximity(row, col)
	return models.Observation{
		Pos:       [2]int{row, col},
		Field:     g.grid.Cells[row][col].Terrain,
		ProxCount: &counts,
	}
}

// reveal uncovers a free cell and floods through neighborhoods that count no
// animals at all, the classic minesweeper opening.
func (g *Game) reveal(row, col int, infos *[]models.Observation) {
	if g.revealed[row][col] {
		return
	}
	g.revealed[row][col] = true
	obs := g.observationFor(row, col)
	*infos = append(*infos, obs)
	if obs.ProxCount[0] == 0 && obs.ProxCount[1] == 0 && obs.ProxCount[2] == 0 {
		for _, n := range g.neighbors(row, col) {
			if !g.marked[n[0]][n[1]] {
				g.reveal(n[0], n[1], infos)
			}
		}
	}
}

func (g *Game) won() bool {
	for r := 0; r < g.grid.Height; r++ {
		for c := 0; c < g.grid.Width; c++ {
			if g.grid.Cells[r][c].Animal == AnimalNone {
				if !g.revealed[r][c] {
					return false
				}
			} else if !g.marked[r][c] {
				return false
			}
		}
	}
	return true
}

func (g *Game) finish(infos []models.Observation) (models.Status, string, []models.Observation) {
	if g.won() {
		g.over = true
		return models.StatusGG, "grid cleared", infos
	}
	return models.StatusOK, "", infos
}

// Discover reveals a supposedly free cell. Revealing an animal loses.
func (g *Game) Discover(row, col int) (models.Status, string, []models.Observation) {
	if status, msg, ok := g.checkMove(row, col); !ok {
		return status, msg, nil
	}
	if g.grid.Cells[row][col].Animal != AnimalNone {
		g.over = true
		return models.StatusKO, fmt.Sprintf("an animal was hiding at (%d,%d)", row, col), nil
	}
	var infos []models.Observation
	g.reveal(row, col, &infos)
	return g.finish(infos)
}

// Guess claims a species at a cell. A wrong species or a free cell loses.
func (g *Game) Guess(row, col int, species models.Species) (models.Status, string, []models.Observation) {
	if status, msg, ok := g.checkMove(row, col); !ok {
		return status, msg, nil
	}
	var want Animal
	switch species {
	case models.SpeciesTiger:
		want = AnimalTiger
	case models.SpeciesShark:
		want = AnimalShark
	case models.SpeciesCrocodile:
		want = AnimalCroco
	default:
		return models.StatusErr, fmt.Sprintf("unknown species %q", string(species)), nil
	}
	if g.grid.Cells[row][col].Animal != want {
		g.over = true
		return models.StatusKO, fmt.Sprintf("(%d,%d) is not a %s", row, col, string(species)), nil
	}
	g.marked[row][col] = true
	obs := models.Observation{
		Pos:    [2]int{row, col},
		Field:  g.grid.Cells[row][col].Terrain,
		Animal: species,
	}
	return g.finish([]models.Observation{obs})
}

// Chord reveals every unmarked neighbor of a revealed free cell whose counted
// animals are all marked. An unmarked animal neighbor loses, same as a bad
// discover.
func (g *Game) Chord(row, col int) (models.Status, string, []models.Observation) {
	if status, msg, ok := g.checkMove(row, col); !ok {
		return status, msg, nil
	}
	if !g.revealed[row][col] {
		return models.StatusErr, fmt.Sprintf("chord at unrevealed cell (%d,%d)", row, col), nil
	}
	for _, n := range g.neighbors(row, col) {
		if g.grid.Cells[n[0]][n[1]].Animal != AnimalNone && !g.marked[n[0]][n[1]] {
			g.over = true
			return models.StatusKO, fmt.Sprintf("chord at (%d,%d) hit an unmarked animal", row, col), nil
		}
	}
	var infos []models.Observation
	for _, n := range g.neighbors(row, col) {
		if !g.marked[n[0]][n[1]] {
			g.reveal(n[0], n[1], &infos)
		}
	}
	return g.finish(infos)
}

func (g *Game) checkMove(row, col int) (models.Status, string, bool) {
	if g.over {
		return models.StatusErr, "game already finished", false
	}
	if !g.inBounds(row, col) {
		return models.StatusErr, fmt.Sprintf("(%d,%d) outside the grid", row, col), false
	}
	g.moves++
	return models.StatusOK, "", true
}
