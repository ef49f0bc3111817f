package testutil

import "sync"

// SeqRand replays a fixed sequence of Float64 values, then repeats Fallback.
// IntN always returns 0, so jittered delays take their lower bound.
type SeqRand struct {
	mu       sync.Mutex
	values   []float64
	Fallback float64
	calls    int
}

// NewSeqRand creates a source returning values in order, then 0.99:
// with the default chances 0.99 means "no random action".
func NewSeqRand(values ...float64) *SeqRand {
	return &SeqRand{values: values, Fallback: 0.99}
}

func (r *SeqRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.values) == 0 {
		return r.Fallback
	}
	v := r.values[0]
	r.values = r.values[1:]
	return v
}

func (r *SeqRand) IntN(n int) int { return 0 }

// Push appends values to the sequence.
func (r *SeqRand) Push(values ...float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, values...)
}

// Calls returns how many Float64 values were drawn.
func (r *SeqRand) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
