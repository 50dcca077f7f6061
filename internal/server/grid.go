// Package server hosts practice Crocomine grids behind the same HTTP
// protocol the tournament server speaks, so the agent can train locally.
package server

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

// Animal occupancy of a grid cell. AnimalNone marks a free cell.
type Animal int

const (
	AnimalNone Animal = iota
	AnimalTiger
	AnimalShark
	AnimalCroco
)

// GridCell is the ground truth for one position.
type GridCell struct {
	Terrain models.Field
	Animal  Animal
}

// Grid is a fully known practice map.
type Grid struct {
	Name   string
	Height int
	Width  int
	Start  [2]int
	Cells  [][]GridCell
}

// Counts tallies the grid composition for the new_grid announcement.
func (g *Grid) Counts() (tigers, sharks, crocos, land, sea int) {
	for _, row := range g.Cells {
		for _, cell := range row {
			switch cell.Animal {
			case AnimalTiger:
				tigers++
			case AnimalShark:
				sharks++
			case AnimalCroco:
				crocos++
			default:
				if cell.Terrain == models.FieldLand {
					land++
				} else {
					sea++
				}
			}
		}
	}
	return
}

// Info builds the wire announcement for this grid.
func (g *Grid) Info() models.GridInfo {
	tigers, sharks, crocos, land, sea := g.Counts()
	return models.GridInfo{
		Name:       g.Name,
		M:          g.Height,
		N:          g.Width,
		TigerCount: tigers,
		SharkCount: sharks,
		CrocoCount: crocos,
		LandCount:  land,
		SeaCount:   sea,
		Start:      g.Start,
	}
}

// ParseGrid reads one .croco map: a name line, "height width", the start
// position, then one symbol row per grid row. Symbols: '-' land, '~' sea,
// 'T' tiger, 'S' shark, 'C'/'c' crocodile on land/sea.
func ParseGrid(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	line := func() (string, error) {
		for scanner.Scan() {
			text := strings.TrimRight(scanner.Text(), "\r\n")
			if strings.TrimSpace(text) != "" {
				return text, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}

	name, err := line()
	if err != nil {
		return nil, fmt.Errorf("reading map name: %v", err)
	}
	grid := &Grid{Name: strings.TrimSpace(name)}

	dims, err := line()
	if err != nil {
		return nil, fmt.Errorf("reading dimensions: %v", err)
	}
	if _, err := fmt.Sscanf(dims, "%d %d", &grid.Height, &grid.Width); err != nil {
		return nil, fmt.Errorf("parsing dimensions %q: %v", dims, err)
	}
	if grid.Height <= 0 || grid.Width <= 0 {
		return nil, fmt.Errorf("degenerate grid %dx%d", grid.Height, grid.Width)
	}

	start, err := line()
	if err != nil {
		return nil, fmt.Errorf("reading start position: %v", err)
	}
	if _, err := fmt.Sscanf(start, "%d %d", &grid.Start[0], &grid.Start[1]); err != nil {
		return nil, fmt.Errorf("parsing start %q: %v", start, err)
	}
	if grid.Start[0] < 0 || grid.Start[0] >= grid.Height || grid.Start[1] < 0 || grid.Start[1] >= grid.Width {
		return nil, fmt.Errorf("start %v outside %dx%d grid", grid.Start, grid.Height, grid.Width)
	}

	grid.Cells = make([][]GridCell, grid.Height)
	for r := 0; r < grid.Height; r++ {
		row, err := line()
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %v", r, err)
		}
		symbols := strings.Fields(row)
		if len(symbols) != grid.Width {
			return nil, fmt.Errorf("row %d has %d symbols, want %d", r, len(symbols), grid.Width)
		}
		grid.Cells[r] = make([]GridCell, grid.Width)
		for c, sym := range symbols {
			cell, err := parseSymbol(sym)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %v", r, c, err)
			}
			grid.Cells[r][c] = cell
		}
	}

	if grid.Cells[grid.Start[0]][grid.Start[1]].Animal != AnimalNone {
		return nil, fmt.Errorf("start position %v sits on an animal", grid.Start)
	}
	return grid, nil
}

func parseSymbol(sym string) (GridCell, error) {
	switch sym {
	case "-":
		return GridCell{Terrain: models.FieldLand}, nil
	case "~":
		return GridCell{Terrain: models.FieldSea}, nil
	case "T":
		return GridCell{Terrain: models.FieldLand, Animal: AnimalTiger}, nil
	case "S":
		return GridCell{Terrain: models.FieldSea, Animal: AnimalShark}, nil
	case "C":
		return GridCell{Terrain: models.FieldLand, Animal: AnimalCroco}, nil
	case "c":
		return GridCell{Terrain: models.FieldSea, Animal: AnimalCroco}, nil
	}
	return GridCell{}, fmt.Errorf("unknown symbol %q", sym)
}

// LoadGridDir parses every .croco file under dir, sorted by filename so the
// serving order is stable across runs.
func LoadGridDir(dir string) ([]*Grid, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.croco"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var grids []*Grid
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		grid, err := ParseGrid(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
		grids = append(grids, grid)
	}
	log.Printf("Loaded %d practice grids from %s", len(grids), dir)
	return grids, nil
}
