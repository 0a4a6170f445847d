package flow

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator hands out node identifiers
type IDGenerator interface {
	NextID() string
}

// UUIDGenerator produces random v4 UUIDs
type UUIDGenerator struct{}

// NextID returns a new random UUID
func (UUIDGenerator) NextID() string {
	return uuid.NewString()
}

// SequenceGenerator produces monotonically increasing identifiers such as
// "node-1", "node-2". It is deterministic, which keeps tests and fixtures stable.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	next   uint64
}

// NewSequenceGenerator starts counting at start
func NewSequenceGenerator(prefix string, start uint64) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix, next: start}
}

// NextID returns the next identifier in the sequence
func (g *SequenceGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.prefix + strconv.FormatUint(g.next, 10)
	g.next++
	return id
}
