// Package classifier implements the Markov prefetcher's decision logic:
// per-reference hit/miss classification, transition-table learning, and
// prefetch emission. This is the sequential reference model — the same
// algorithm the staged six-phase sequencer re-implements as an explicit
// state machine; the two must agree on every PrefetchEvent (see the
// conformance test at the module root).
//
// Grounded on the teacher's Predict/Update split: proto/tage.go keeps
// prediction (read-only) and training (mutating) as separate calls, and
// SupraX.go's BranchPredictor.Predict/Update is the teacher's simplest
// instance of "predict now, learn from the outcome next." Classify below
// folds both into one call because the spec's per-reference contract
// requires updating the table *before* predicting the next address's
// successor (so the prediction reflects the reference that just arrived).
package classifier

import (
	"fmt"

	"github.com/openhw-labs/markovpf/proto/history"
	"github.com/openhw-labs/markovpf/proto/transition"
)

// State carries the only state that persists across references beyond
// the transition table and the access history: the previous-address
// latch.
type State struct {
	Prev      uint32
	PrevValid bool
}

// Event is the externally observable outcome of one reference.
type Event struct {
	Address uint32

	Hit         bool
	PrefetchHit bool
	DemandHit   bool

	Prefetch        bool
	PrefetchAddress uint32

	AccessHistory []history.Entry
}

// String renders the event for logs, in the teacher's terse one-line
// style (see SupraX.go's Stats()).
func (e Event) String() string {
	switch {
	case e.Prefetch:
		return fmt.Sprintf("addr=%d hit=%v prefetchHit=%v demandHit=%v prefetch->%d",
			e.Address, e.Hit, e.PrefetchHit, e.DemandHit, e.PrefetchAddress)
	default:
		return fmt.Sprintf("addr=%d hit=%v prefetchHit=%v demandHit=%v",
			e.Address, e.Hit, e.PrefetchHit, e.DemandHit)
	}
}

// Classify processes one reference against tt/ah/state, mutating all
// three, and returns the resulting event. It implements, in order:
//
//  1. Hit detection (with in-place promotion on a prefetch-hit).
//  2. Miss-only learning: TT.Observe(prev, curr) iff this was a miss and
//     prev is valid.
//  3. Unconditional demand insert of curr into ah.
//  4. Prediction: query TT for curr's most probable successor; if it
//     exists and is not already in ah (post-step-3), insert it as a
//     Prefetch.
//  5. Latch prev <- curr.
func Classify(tt *transition.Table, ah *history.Window, state *State, curr uint32, ts uint64) Event {
	ev := Event{Address: curr}

	if tag, ok := ah.FindTag(curr); ok {
		ev.Hit = true
		if tag == history.Prefetch {
			ev.PrefetchHit = true
			ah.PromoteToDemand(curr)
		} else {
			ev.DemandHit = true
		}
	}

	if !ev.Hit && state.PrevValid {
		tt.Observe(state.Prev, curr)
	}

	ah.InsertDemand(curr, ts)

	if successor, ok := tt.MostProbableSuccessor(curr); ok && !ah.Contains(successor) {
		ah.InsertPrefetch(successor, ts)
		ev.Prefetch = true
		ev.PrefetchAddress = successor
	}

	state.Prev = curr
	state.PrevValid = true

	ev.AccessHistory = ah.Snapshot()
	return ev
}
