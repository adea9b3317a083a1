// Package transition implements the Markov prefetcher's transition table:
// an N×N matrix of saturating counters summarising observed (prev → curr)
// address transitions, and the deterministic argmax query used to predict
// the next address.
//
// DESIGN PHILOSOPHY:
// ─────────────────
// 1. First-order Markov: only the immediately preceding address matters.
// 2. Saturating counters: a long run on one edge cannot overflow into
//    another row or wrap back to zero.
// 3. Lowest-index tie-break: the successor query is a total, deterministic
//    function of the row — no map iteration, no randomness.
//
// This mirrors the saturating-counter discipline in the teacher's TAGE
// predictor (TAGEEntry.Counter, updated via a clamped increment/decrement
// in TAGEPredictor.Update) generalised from one counter per entry to a
// full N×N matrix.
package transition

// Table is an N×N matrix of saturating counters, bounded to counterBits
// bits (default 8, saturating at 255). Entry [i*n+j] counts observed
// transitions from address i to address j.
type Table struct {
	n           int
	counterBits uint
	maxCounter  uint32
	counters    []uint32

	// saturations counts Observe calls that hit the counter ceiling.
	// Observability only; see the metrics package.
	saturations uint64
}

// New allocates a zeroed N×N transition table with counters saturating at
// 2^counterBits - 1.
func New(n int, counterBits uint) *Table {
	if n <= 0 {
		panic("transition: n must be positive")
	}
	if counterBits == 0 || counterBits > 32 {
		panic("transition: counterBits must be in [1, 32]")
	}
	return &Table{
		n:           n,
		counterBits: counterBits,
		maxCounter:  uint32(1)<<counterBits - 1,
		counters:    make([]uint32, n*n),
	}
}

// N returns the address-space size this table was constructed with.
func (t *Table) N() int { return t.n }

// MaxCounter returns the saturation ceiling (2^counterBits - 1).
func (t *Table) MaxCounter() uint32 { return t.maxCounter }

// Observe increments TT[prev][curr] with saturation. Callers are
// responsible for only calling this when prev is a valid, in-range
// address (the classifier never calls Observe with an invalid prev).
func (t *Table) Observe(prev, curr uint32) {
	i := int(prev)*t.n + int(curr)
	if t.counters[i] < t.maxCounter {
		t.counters[i]++
		if t.counters[i] == t.maxCounter {
			t.saturations++
		}
	}
}

// MostProbableSuccessor returns the column index maximising TT[a][*],
// breaking ties by lowest index (deterministic left-to-right scan). It
// returns ok=false iff the row is all-zero.
func (t *Table) MostProbableSuccessor(a uint32) (successor uint32, ok bool) {
	base := int(a) * t.n
	row := t.counters[base : base+t.n]

	var best uint32
	bestIdx := -1
	for j, c := range row {
		if c > best {
			best = c
			bestIdx = j
		}
	}
	if bestIdx < 0 {
		return 0, false
	}
	return uint32(bestIdx), true
}

// Count returns TT[i][j], for observability and tests.
func (t *Table) Count(i, j uint32) uint32 {
	return t.counters[int(i)*t.n+int(j)]
}

// Row returns a copy of TT[a][*], for observability.
func (t *Table) Row(a uint32) []uint32 {
	base := int(a) * t.n
	row := make([]uint32, t.n)
	copy(row, t.counters[base:base+t.n])
	return row
}

// Snapshot returns a copy of the full matrix, row-major, for
// observability. It never aliases the live counters.
func (t *Table) Snapshot() [][]uint32 {
	rows := make([][]uint32, t.n)
	for i := range rows {
		rows[i] = t.Row(uint32(i))
	}
	return rows
}

// Saturations reports how many Observe calls have hit the counter
// ceiling since construction or the last Reset. Observational only.
func (t *Table) Saturations() uint64 { return t.saturations }

// Reset clears every counter and the saturation count. The matrix
// remains the sole learned state; Reset leaves it exactly as New left it.
func (t *Table) Reset() {
	for i := range t.counters {
		t.counters[i] = 0
	}
	t.saturations = 0
}
