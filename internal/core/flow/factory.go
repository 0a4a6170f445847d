package flow

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// maxIDAttempts bounds the retries when a generator hands out an ID already in use.
const maxIDAttempts = 16

// Placer chooses the initial canvas position of a new node
type Placer interface {
	Place() Position
}

// ScatterPlacer drops nodes at random inside a square region.
type ScatterPlacer struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	origin Position
	span   float64
}

// NewScatterPlacer scatters within [100,500) on both axes
func NewScatterPlacer(seed uint64) *ScatterPlacer {
	return &ScatterPlacer{
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		origin: Position{X: 100, Y: 100},
		span:   400,
	}
}

// Place returns the next scattered position
func (p *ScatterPlacer) Place() Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Position{
		X: p.origin.X + p.rnd.Float64()*p.span,
		Y: p.origin.Y + p.rnd.Float64()*p.span,
	}
}

// Factory creates node records with unique IDs and default payloads
type Factory struct {
	ids    IDGenerator
	placer Placer
	now    func() time.Time
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithIDGenerator overrides the UUID default
func WithIDGenerator(ids IDGenerator) FactoryOption {
	return func(f *Factory) { f.ids = ids }
}

// WithPlacer overrides the scatter placement
func WithPlacer(p Placer) FactoryOption {
	return func(f *Factory) { f.placer = p }
}

// WithClock overrides time.Now for timestamps
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// NewFactory creates a node factory
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		ids:    UUIDGenerator{},
		placer: NewScatterPlacer(uint64(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateNode builds a node of type t at a placer-chosen position. The ID is
// guaranteed not to collide with any node already in g (g may be nil).
func (f *Factory) CreateNode(t NodeType, g *Graph) (*Node, error) {
	return f.CreateNodeAt(t, f.placer.Place(), g)
}

// CreateNodeAt builds a node of type t at pos
func (f *Factory) CreateNodeAt(t NodeType, pos Position, g *Graph) (*Node, error) {
	spec, ok := LookupType(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
	id, err := f.uniqueID(g)
	if err != nil {
		return nil, err
	}
	now := f.now()
	return &Node{
		ID:        id,
		Type:      t,
		Position:  pos,
		Data:      spec.DefaultData(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (f *Factory) uniqueID(g *Graph) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := f.ids.NextID()
		if id == "" {
			continue
		}
		if g == nil || !g.HasNode(id) {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}
