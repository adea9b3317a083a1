// Package sequencer implements the Markov prefetcher's staged hardware
// model: a six-phase state machine that processes one input address per
// full traversal, exposing per-phase introspection signals the way a
// synthesizable pipeline would.
//
// PIPELINE:
// ────────
//
//	Idle             (0): latch the presented address.
//	FindHit          (1): scan AH; record hit/prefetchHit/demandHit;
//	                      promote tag on a prefetch-hit.
//	UpdateHistory1   (2): miss-only TT learn; unconditional demand insert.
//	FindMostProbable (3): argmax over TT[curr][*], lowest-index tie-break.
//	UpdateHistory2   (4): predictive insert (if predicted not already
//	                      in AH); set prefetch outputs.
//	ReportResult     (5): outputs stable this cycle; latch prev <- curr;
//	                      return to Idle.
//
// A phase's action runs on the Step() that leaves it, so the reported
// event (Result) is only guaranteed valid once Step() has executed
// ReportResult and returned the machine to Idle; reading intermediate
// signals at any other point is for debugging only and is not part of the observable contract (spec equivalence
// requirement: the event stream sampled at ReportResult must equal the
// sequential model's event stream for the same input).
//
// Grounded on the teacher's two-cycle OoO pipeline
// (OoOScheduler.ScheduleCycle0 / ScheduleCycle1), generalised from 2
// phases to 6, and on SupraX.go's SUPRAXCore.Cycle(), the teacher's
// single top-level per-cycle driver method.
package sequencer

import (
	"fmt"

	"github.com/openhw-labs/markovpf/proto/classifier"
	"github.com/openhw-labs/markovpf/proto/history"
	"github.com/openhw-labs/markovpf/proto/transition"
)

// Phase is a state-machine phase index, 0..5.
type Phase int

const (
	Idle Phase = iota
	FindHit
	UpdateHistory1
	FindMostProbable
	UpdateHistory2
	ReportResult

	numPhases = 6
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case FindHit:
		return "FindHit"
	case UpdateHistory1:
		return "UpdateHistory1"
	case FindMostProbable:
		return "FindMostProbable"
	case UpdateHistory2:
		return "UpdateHistory2"
	case ReportResult:
		return "ReportResult"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Sequencer drives TT + AH through the six phases above.
type Sequencer struct {
	tt *transition.Table
	ah *history.Window

	prev      uint32
	prevValid bool
	cycle     uint64
	refClock  uint64 // per-reference AH timestamp; advances once per Idle->FindHit, unlike cycle
	phase     Phase

	pending  bool
	nextAddr uint32
	curr     uint32
	hit      bool

	prefetchHit bool
	demandHit   bool

	predicted      uint32
	predictedValid bool
	predictedInAH  bool

	prefetchIssued bool
	prefetchAddr   uint32

	lastEvent classifier.Event
	reported  bool
}

// New builds a sequencer over an already-constructed transition table and
// access history. The sequencer does not own their lifetimes; resetting
// tt/ah (Table.Reset, Window.Reset) does not clear the sequencer's own
// previous-address latch, cycle counter or timestamps.
func New(tt *transition.Table, ah *history.Window) *Sequencer {
	return &Sequencer{tt: tt, ah: ah, phase: Idle}
}

// Phase returns the current phase index (0..5).
func (s *Sequencer) Phase() Phase { return s.phase }

// Cycle returns the monotonic micro-step counter.
func (s *Sequencer) Cycle() uint64 { return s.cycle }

// CurrentAddress returns the address latched for the in-flight reference
// and whether one is in flight (false whenever the machine is Idle with
// no address presented, including after a completed traversal).
func (s *Sequencer) CurrentAddress() (uint32, bool) {
	return s.curr, s.phase != Idle || s.pending
}

// Previous returns the previous-address latch and its validity.
func (s *Sequencer) Previous() (uint32, bool) { return s.prev, s.prevValid }

// PredictedSuccessor returns the most-probable-successor computed for the
// in-flight reference (valid once the FindMostProbable step has run, i.e.
// from UpdateHistory2 onward) and whether a prediction exists.
func (s *Sequencer) PredictedSuccessor() (uint32, bool) { return s.predicted, s.predictedValid }

// PredictedInHistory reports whether the predicted successor was already
// present in AH (valid from UpdateHistory2 onward).
func (s *Sequencer) PredictedInHistory() bool { return s.predictedInAH }

// Present latches a new address for processing. It must only be called
// while the machine is Idle and no reference is pending; presenting a
// second address before the first traversal completes is a programming
// error.
func (s *Sequencer) Present(addr uint32) {
	if s.phase != Idle || s.pending {
		panic("sequencer: Present called while a reference is still in flight")
	}
	s.nextAddr = addr
	s.pending = true
}

// Step advances the machine by one micro-step (one phase) and increments
// the cycle counter. In Idle with no address presented the phase does not
// change, but the cycle counter still increments. It returns the phase
// the machine is now in.
func (s *Sequencer) Step() Phase {
	switch s.phase {
	case Idle:
		if !s.pending {
			// No address presented: the machine stalls in Idle, matching
			// hardware that holds state until an input arrives.
			break
		}
		s.curr = s.nextAddr
		s.pending = false
		s.refClock++
		s.hit, s.prefetchHit, s.demandHit = false, false, false
		s.predicted, s.predictedValid, s.predictedInAH = 0, false, false
		s.prefetchIssued, s.prefetchAddr = false, 0
		s.phase = FindHit

	case FindHit:
		if tag, ok := s.ah.FindTag(s.curr); ok {
			s.hit = true
			if tag == history.Prefetch {
				s.prefetchHit = true
				s.ah.PromoteToDemand(s.curr)
			} else {
				s.demandHit = true
			}
		}
		s.phase = UpdateHistory1

	case UpdateHistory1:
		if !s.hit && s.prevValid {
			s.tt.Observe(s.prev, s.curr)
		}
		s.ah.InsertDemand(s.curr, s.refClock)
		s.phase = FindMostProbable

	case FindMostProbable:
		s.predicted, s.predictedValid = s.tt.MostProbableSuccessor(s.curr)
		if s.predictedValid {
			s.predictedInAH = s.ah.Contains(s.predicted)
		}
		s.phase = UpdateHistory2

	case UpdateHistory2:
		if s.predictedValid && !s.predictedInAH {
			s.ah.InsertPrefetch(s.predicted, s.refClock)
			s.prefetchIssued = true
			s.prefetchAddr = s.predicted
		}
		s.phase = ReportResult

	case ReportResult:
		s.lastEvent = classifier.Event{
			Address:         s.curr,
			Hit:             s.hit,
			PrefetchHit:     s.prefetchHit,
			DemandHit:       s.demandHit,
			Prefetch:        s.prefetchIssued,
			PrefetchAddress: s.prefetchAddr,
			AccessHistory:   s.ah.Snapshot(),
		}
		s.reported = true
		s.prev = s.curr
		s.prevValid = true
		s.phase = Idle
	}

	s.cycle++
	return s.phase
}

// Result returns the event reported at the most recently completed
// ReportResult phase, and whether ReportResult has ever executed.
func (s *Sequencer) Result() (classifier.Event, bool) {
	if !s.reported {
		return classifier.Event{}, false
	}
	return s.lastEvent, true
}

// Reference drives Present followed by exactly six Step calls, returning
// the resulting event. This is the convenience entry point for callers
// that don't need per-phase introspection; it is not part of the
// hardware contract itself (spec.md's "staged model" contract is the
// Present/Step/Result sequence above).
func (s *Sequencer) Reference(addr uint32) classifier.Event {
	s.Present(addr)
	for i := 0; i < numPhases; i++ {
		s.Step()
	}
	ev, _ := s.Result()
	return ev
}
