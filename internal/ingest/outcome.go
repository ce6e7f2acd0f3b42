package ingest

import (
	"math/rand"
	"sync"
)

// OutcomeSource decides whether a reprocess run may complete.
type OutcomeSource interface {
	Succeed(sourceID string) bool
}

// OutcomeFunc adapts a function to OutcomeSource.
type OutcomeFunc func(sourceID string) bool

// Succeed implements OutcomeSource.
func (f OutcomeFunc) Succeed(sourceID string) bool { return f(sourceID) }

var (
	// AlwaysSucceed lets every reprocess run complete.
	AlwaysSucceed OutcomeSource = OutcomeFunc(func(string) bool { return true })
	// AlwaysFail fails every reprocess run.
	AlwaysFail OutcomeSource = OutcomeFunc(func(string) bool { return false })
)

type randomOutcome struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// RandomOutcome succeeds with probability rate, drawing from rng.
func RandomOutcome(rate float64, rng *rand.Rand) OutcomeSource {
	return &randomOutcome{rate: rate, rng: rng}
}

func (r *randomOutcome) Succeed(string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < r.rate
}
