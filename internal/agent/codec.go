package agent

import "fmt"

// Label is one of the four per-cell SAT labels. Every cell is eventually
// exactly one of these; terrain is knowledge-base state, not a label.
type Label int

const (
	LabelFree Label = iota
	LabelTiger
	LabelShark
	LabelCroco
)

const labelCount = 4

func (l Label) String() string {
	switch l {
	case LabelFree:
		return "F"
	case LabelTiger:
		return "T"
	case LabelShark:
		return "S"
	case LabelCroco:
		return "C"
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// Codec is the bijection between (row, col, label) triples and positive DIMACS
// variable IDs. IDs are dense in [1, 4*height*width].
type Codec struct {
	height int
	width  int
}

func NewCodec(height, width int) Codec {
	return Codec{height: height, width: width}
}

// Encode maps a cell/label pair to its variable ID. The +1 shift keeps IDs
// positive as DIMACS requires.
func (c Codec) Encode(row, col int, label Label) int {
	return row*c.width*labelCount + col*labelCount + int(label) + 1
}

// Decode inverts Encode.
func (c Codec) Decode(v int) (row, col int, label Label) {
	v--
	label = Label(v % labelCount)
	v /= labelCount
	col = v % c.width
	row = v / c.width
	return row, col, label
}

// NumVars is the total variable count for the grid.
func (c Codec) NumVars() int {
	return labelCount * c.height * c.width
}
