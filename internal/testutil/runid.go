package testutil

import (
	"fmt"
	"sync"
)

// FixedRunID hands out the same run ID every time, so two plan runs over
// the same chains write byte-identical rows.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID returns a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate implements store.RunIDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}

// SequentialRunIDs hands out test-run-1, test-run-2, ... and can be reset
// between cases.
type SequentialRunIDs struct {
	mu  sync.Mutex
	seq int
}

// Generate implements store.RunIDGenerator.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("test-run-%d", g.seq)
}

// Reset restarts the sequence at 1.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
