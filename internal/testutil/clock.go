// Package testutil provides deterministic helpers and in-memory system
// doubles shared by tests across the module.
package testutil

import (
	"strconv"
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe wall clock that advances by a
// fixed step on every read.
//
// Injected into the World via world.WithClock, it makes observation and
// checkpoint timestamps reproducible so the same scenario produces
// byte-identical output across runs.
type DeterministicClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock starting at start, advancing by
// step on every Now call.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{now: start, step: step}
}

// Now returns the current time and advances the clock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// FixedIDGenerator returns sequential IDs with a fixed prefix
// ("cp-1", "cp-2", ...). Implements world.IDGenerator for deterministic
// checkpoint names in tests and golden comparison.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator with the given prefix. An empty
// prefix defaults to "id".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next sequential ID.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}
