package server

import (
	"strings"
	"testing"
)

const sampleMap = `practice map 0
2 3
0 0
- - T
~ S c
`

func TestParseGrid(t *testing.T) {
	grid, err := ParseGrid(strings.NewReader(sampleMap))
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}

	if grid.Name != "practice map 0" {
		t.Errorf("name = %q", grid.Name)
	}
	if grid.Height != 2 || grid.Width != 3 {
		t.Errorf("dimensions = %dx%d, want 2x3", grid.Height, grid.Width)
	}
	if grid.Start != [2]int{0, 0} {
		t.Errorf("start = %v", grid.Start)
	}

	tigers, sharks, crocos, land, sea := grid.Counts()
	if tigers != 1 || sharks != 1 || crocos != 1 {
		t.Errorf("animal counts = %d/%d/%d, want 1/1/1", tigers, sharks, crocos)
	}
	if land != 2 || sea != 1 {
		t.Errorf("terrain counts = %d land / %d sea, want 2/1", land, sea)
	}

	info := grid.Info()
	if info.M != 2 || info.N != 3 || info.TigerCount != 1 || info.LandCount != 2 {
		t.Errorf("unexpected grid info: %+v", info)
	}
}

func TestParseGridRejectsMalformedMaps(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown symbol", "m\n1 2\n0 0\n- X\n"},
		{"row too short", "m\n1 3\n0 0\n- -\n"},
		{"start outside grid", "m\n1 2\n0 5\n- -\n"},
		{"start on animal", "m\n1 2\n0 0\nT -\n"},
		{"truncated", "m\n2 2\n0 0\n- -\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGrid(strings.NewReader(tt.raw)); err == nil {
				t.Errorf("expected parse error")
			}
		})
	}
}
