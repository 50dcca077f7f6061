package agent

import "fmt"

// Exactly returns CNF clauses forcing exactly k of lits to be true, using the
// naive pairwise encoding:
//
//   - at-least-k: every (n-k+1)-subset of lits must contain a true literal,
//     one clause per subset;
//   - at-most-k: every (k+1)-subset of lits must contain a false literal,
//     one clause of negations per subset.
//
// The clause count is exponential in min(k, n-k), which is fine for the two
// call sites: neighborhoods (n <= 8) and budget-gated whole-board species
// constraints. k == 0 and k == n degenerate into unit clauses. k > n means
// the observation that produced the call contradicts the board.
func Exactly(lits []int, k int) ([][]int, error) {
	n := len(lits)
	if k < 0 {
		return nil, fmt.Errorf("%w: negative cardinality %d", ErrUsage, k)
	}
	if k > n {
		return nil, fmt.Errorf("%w: exactly-%d over %d literals", ErrInconsistent, k, n)
	}

	var clauses [][]int

	// at-least-k
	combinations(n, n-k+1, func(idx []int) {
		clause := make([]int, len(idx))
		for i, j := range idx {
			clause[i] = lits[j]
		}
		clauses = append(clauses, clause)
	})

	// at-most-k
	combinations(n, k+1, func(idx []int) {
		clause := make([]int, len(idx))
		for i, j := range idx {
			clause[i] = -lits[j]
		}
		clauses = append(clauses, clause)
	})

	return clauses, nil
}

// combinations calls fn with every size-k index combination of [0, n).
// fn must copy idx if it retains it. No calls are made when k <= 0 or k > n.
func combinations(n, k int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		// Advance the rightmost index that still has room.
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// binomialCapped returns C(n, k), saturating at limit to avoid overflow. Used
// only to gate clause emission, so the exact value above the limit is
// irrelevant.
func binomialCapped(n, k int, limit int64) int64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := int64(1)
	for i := 1; i <= k; i++ {
		result = result * int64(n-k+i) / int64(i)
		if result >= limit {
			return limit
		}
	}
	return result
}
