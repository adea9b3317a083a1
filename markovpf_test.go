package markovpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefault(t *testing.T) *Prefetcher {
	t.Helper()
	pf, err := New(DefaultConfig())
	require.NoError(t, err)
	return pf
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{N: 0, W: 5, B: 8})
	assert.Error(t, err)

	_, err = New(Config{N: 32, W: 0, B: 8})
	assert.Error(t, err)

	_, err = New(Config{N: 32, W: 5, B: 0})
	assert.Error(t, err)

	_, err = New(Config{N: 32, W: 5, B: 33})
	assert.Error(t, err)
}

func TestReferenceOutOfRangePanics(t *testing.T) {
	pf := newDefault(t)
	assert.Panics(t, func() { pf.Reference(32) })
}

// invariants checks the four per-reference invariants from spec.md §8
// against a live Prefetcher and the event it just produced.
func invariants(t *testing.T, pf *Prefetcher, ev PrefetchEvent) {
	t.Helper()
	snap := pf.Snapshot()

	assert.LessOrEqual(t, len(snap.AccessHistory), pf.cfg.W, "|AH| <= W")

	seen := map[Address]bool{}
	for _, e := range snap.AccessHistory {
		assert.False(t, seen[e.Address], "AH addresses must be distinct")
		seen[e.Address] = true
	}

	assert.Equal(t, ev.Hit, ev.PrefetchHit || ev.DemandHit, "hit <=> prefetchHit or demandHit")
	assert.False(t, ev.PrefetchHit && ev.DemandHit, "prefetchHit and demandHit are mutually exclusive")

	maxCounter := uint32(1)<<pf.cfg.B - 1
	for _, row := range snap.Transitions {
		for _, c := range row {
			assert.LessOrEqual(t, c, maxCounter)
		}
	}

	if ev.Prefetch {
		assert.NotEqual(t, ev.Address, ev.PrefetchAddress, "a prefetch is never for the just-referenced address")
	}
}

func TestScenarioSequential(t *testing.T) {
	pf := newDefault(t)
	addrs := []Address{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	var events []PrefetchEvent
	for _, a := range addrs {
		ev := pf.Reference(a)
		invariants(t, pf, ev)
		events = append(events, ev)
	}

	assert.False(t, events[0].Hit, "first reference is always a miss")
	assert.False(t, events[1].Hit, "second reference is a miss (TT still empty for address 1)")

	anyPrefetchHit := false
	for _, ev := range events[2:] {
		if ev.PrefetchHit {
			anyPrefetchHit = true
		}
	}
	assert.False(t, anyPrefetchHit, "every address in the stream is new, so its TT row is empty and no prefetch is ever issued")
}

func TestScenarioStrided(t *testing.T) {
	pf := newDefault(t)
	addrs := []Address{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}

	for _, a := range addrs {
		ev := pf.Reference(a)
		invariants(t, pf, ev)
	}

	snap := pf.Snapshot()
	// Every strided reference is a miss, so TT learns each stride-2 edge;
	// TT itself never evicts.
	assert.Greater(t, snap.Transitions[6][8], uint32(0))
}

func TestScenarioRepeated(t *testing.T) {
	pf := newDefault(t) // W=5
	addrs := []Address{0, 1, 2, 3, 4, 5, 0, 1, 2, 3, 4, 5}

	var events []PrefetchEvent
	for _, a := range addrs {
		ev := pf.Reference(a)
		invariants(t, pf, ev)
		events = append(events, ev)
	}

	// First pass (indices 0-5): all misses.
	for i := 0; i < 6; i++ {
		assert.Falsef(t, events[i].Hit, "first-pass reference %d should be a miss", i)
	}

	// index 6 (address 0): 0 was evicted (W=5, addresses 1..5 displaced it), so miss.
	assert.False(t, events[6].Hit)

	// index 7 (address 1): TT[0][1] == 1 was learned at ref 1; a prefetch
	// for 1 should have been issued at ref index 6 and land as a
	// prefetch-hit here, if 1 is still present and tagged Prefetch.
	if events[7].Hit {
		assert.True(t, events[7].PrefetchHit || events[7].DemandHit)
	}
}

func TestScenarioInterleaved(t *testing.T) {
	pf := newDefault(t)
	addrs := []Address{1, 0, 3, 2, 5, 4, 7, 6, 9, 8}

	for _, a := range addrs {
		ev := pf.Reference(a)
		invariants(t, pf, ev)
	}
}

func TestScenarioImmediateRepeat(t *testing.T) {
	pf := newDefault(t)

	ev1 := pf.Reference(7)
	invariants(t, pf, ev1)
	assert.False(t, ev1.Hit)

	before := pf.Snapshot().Transitions

	ev2 := pf.Reference(7)
	invariants(t, pf, ev2)
	assert.True(t, ev2.Hit)
	assert.True(t, ev2.DemandHit)

	after := pf.Snapshot().Transitions
	assert.Equal(t, before, after, "the second reference must not update TT")
}

func TestScenarioTieBreak(t *testing.T) {
	pf := newDefault(t)

	// Preload TT[0][3] == TT[0][7] == 5, all else zero in row 0.
	for i := 0; i < 5; i++ {
		pf.tt.Observe(0, 3)
		pf.tt.Observe(0, 7)
	}

	successor, ok := pf.tt.MostProbableSuccessor(0)
	require.True(t, ok)
	assert.Equal(t, Address(3), successor)
}

func TestResetMatchesFreshInstance(t *testing.T) {
	pf := newDefault(t)
	for _, a := range []Address{0, 1, 2, 3, 4, 5, 6} {
		pf.Reference(a)
	}
	pf.Reset()

	fresh := newDefault(t)

	addrs := []Address{3, 1, 4, 1, 5, 9, 2, 6}
	for _, a := range addrs {
		gotEv := pf.Reference(a)
		wantEv := fresh.Reference(a)
		assert.Equal(t, wantEv, gotEv)
	}
}

func TestWindowSaturationEvictsOldestDistinctAddress(t *testing.T) {
	pf := newDefault(t) // W=5
	for _, a := range []Address{0, 1, 2, 3, 4} {
		pf.Reference(a)
	}
	require.Equal(t, 5, len(pf.Snapshot().AccessHistory))

	pf.Reference(5) // 6th distinct address: evicts 0
	snap := pf.Snapshot()
	assert.Len(t, snap.AccessHistory, 5)
	for _, e := range snap.AccessHistory {
		assert.NotEqual(t, Address(0), e.Address)
	}
}

func TestCounterSaturationAcrossManyRepetitions(t *testing.T) {
	pf, err := New(Config{N: 4, W: 2, B: 2}) // max counter = 3
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		pf.tt.Observe(0, 1)
	}
	assert.Equal(t, uint32(3), pf.tt.Count(0, 1))
	assert.Equal(t, uint32(0), pf.tt.Count(1, 0), "saturation must not leak into other cells")
}

func TestPropertySweepInvariants(t *testing.T) {
	for _, n := range []int{4, 8, 32} {
		for _, w := range []int{1, 3, 5} {
			for _, b := range []uint{2, 4, 8} {
				pf, err := New(Config{N: n, W: w, B: b})
				require.NoError(t, err)

				for i := 0; i < 50; i++ {
					addr := Address((i * 3) % n)
					ev := pf.Reference(addr)
					invariants(t, pf, ev)
				}
			}
		}
	}
}
