// Package markovpf implements a Markov prefetcher: a hardware-style
// address predictor that observes a stream of memory-reference addresses
// and, after each reference, emits at most one speculative prefetch for
// the address it judges most likely to be referenced next.
//
// Prefetcher is the sequential reference model: one Reference(addr) call
// per input address. The staged, cycle-by-cycle hardware model lives in
// proto/sequencer; both implementations are built independently from the
// same contract and must agree on every PrefetchEvent (see
// conformance_test.go).
//
// Grounded on SupraX.go's SUPRAXCore, which likewise wraps several
// sibling hardware reference models (BranchPredictor, OutOfOrderScheduler,
// Memory) behind one top-level type with a single step/cycle entry point
// and read-only accessor methods.
package markovpf

import (
	"github.com/pkg/errors"

	"github.com/openhw-labs/markovpf/proto/classifier"
	"github.com/openhw-labs/markovpf/proto/history"
	"github.com/openhw-labs/markovpf/proto/transition"
)

// Address is the prefetcher's unit of reference: an unsigned integer
// drawn from the fixed universe [0, N).
type Address = uint32

// PrefetchEvent is the externally observable outcome of one reference.
type PrefetchEvent = classifier.Event

// Config parametrises a Prefetcher instance. The reference design uses
// N=32, W=5, B=8 (see DefaultConfig).
type Config struct {
	// N is the address-space size; addresses must lie in [0, N).
	N int
	// W is the Access History window size.
	W int
	// B is the Transition Table counter width in bits; counters
	// saturate at 2^B - 1.
	B uint
}

// DefaultConfig returns the spec's reference parameters.
func DefaultConfig() Config {
	return Config{N: 32, W: 5, B: 8}
}

// Validate checks the construction-time parameters. N<=0, W<=0 or
// B outside [1,32] are programming errors and are rejected here rather
// than at first use.
func (c Config) Validate() error {
	if c.N <= 0 {
		return errors.Errorf("markovpf: N must be positive, got %d", c.N)
	}
	if c.W <= 0 {
		return errors.Errorf("markovpf: W must be positive, got %d", c.W)
	}
	if c.B == 0 || c.B > 32 {
		return errors.Errorf("markovpf: B must be in [1, 32], got %d", c.B)
	}
	return nil
}

// Prefetcher is the sequential reference model of the Markov prefetcher.
type Prefetcher struct {
	cfg Config

	tt    *transition.Table
	ah    *history.Window
	state classifier.State

	clock uint64
}

// New constructs a Prefetcher. It returns an error — wrapped with a
// stack trace via github.com/pkg/errors — iff cfg fails Validate; this is
// the only point at which this package can fail, per spec.md's "fail
// fast at the boundary."
func New(cfg Config) (*Prefetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "markovpf: invalid configuration")
	}
	return &Prefetcher{
		cfg: cfg,
		tt:  transition.New(cfg.N, cfg.B),
		ah:  history.New(cfg.W),
	}, nil
}

// Config returns the parameters this instance was constructed with.
func (p *Prefetcher) Config() Config { return p.cfg }

// Reference processes one input address and returns the resulting
// PrefetchEvent. addr must lie in [0, N); an out-of-range address is a
// programming error and panics (spec.md §7: not a recoverable condition).
func (p *Prefetcher) Reference(addr Address) PrefetchEvent {
	if addr >= uint32(p.cfg.N) {
		panic(errors.Errorf("markovpf: address %d out of range [0, %d)", addr, p.cfg.N))
	}
	p.clock++
	return classifier.Classify(p.tt, p.ah, &p.state, addr, p.clock)
}

// Reset clears all learned state (transition table, access history,
// previous-address latch, clock) back to the state New would produce.
func (p *Prefetcher) Reset() {
	p.tt.Reset()
	p.ah.Reset()
	p.state = classifier.State{}
	p.clock = 0
}

// TransitionSaturations reports how many Observe calls have hit the
// counter ceiling since construction or the last Reset. Observational
// only (spec.md §7: saturation is not an error).
func (p *Prefetcher) TransitionSaturations() uint64 { return p.tt.Saturations() }

// Snapshot is a read-only observability view of a Prefetcher's full
// state. It never aliases mutable state visible to the classifier.
type Snapshot struct {
	Previous      Address
	PreviousValid bool
	Clock         uint64
	AccessHistory []history.Entry
	Transitions   [][]uint32
}

// Snapshot captures the current state for introspection (logging,
// tests, debugging tooling). Each call allocates fresh copies.
func (p *Prefetcher) Snapshot() Snapshot {
	return Snapshot{
		Previous:      p.state.Prev,
		PreviousValid: p.state.PrevValid,
		Clock:         p.clock,
		AccessHistory: p.ah.Snapshot(),
		Transitions:   p.tt.Snapshot(),
	}
}
