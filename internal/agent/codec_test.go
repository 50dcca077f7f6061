package agent

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec(7, 5)
	seen := make(map[int]bool)

	for row := 0; row < 7; row++ {
		for col := 0; col < 5; col++ {
			for l := 0; l < labelCount; l++ {
				v := codec.Encode(row, col, Label(l))
				if v < 1 || v > codec.NumVars() {
					t.Fatalf("Encode(%d,%d,%d) = %d outside [1,%d]", row, col, l, v, codec.NumVars())
				}
				if seen[v] {
					t.Fatalf("variable %d produced twice", v)
				}
				seen[v] = true

				r, c, lbl := codec.Decode(v)
				if r != row || c != col || lbl != Label(l) {
					t.Errorf("Decode(Encode(%d,%d,%d)) = (%d,%d,%d)", row, col, l, r, c, lbl)
				}
			}
		}
	}

	if len(seen) != codec.NumVars() {
		t.Errorf("Expected %d distinct variables, got %d", codec.NumVars(), len(seen))
	}
}

func TestCodecFirstAndLastVariables(t *testing.T) {
	codec := NewCodec(3, 4)
	if v := codec.Encode(0, 0, LabelFree); v != 1 {
		t.Errorf("first variable should be 1, got %d", v)
	}
	if v := codec.Encode(2, 3, LabelCroco); v != codec.NumVars() {
		t.Errorf("last variable should be %d, got %d", codec.NumVars(), v)
	}
}
