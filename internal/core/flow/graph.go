// Package flow provides the chatbot flow domain: nodes, edges, the graph store
// that owns them, and the components that mutate it.
package flow

import (
	"fmt"
	"time"
)

// Graph is the store for one flow. It owns its nodes and edges; callers get
// copies and mutate only through its methods. A Graph is not safe for
// concurrent use; the owner serializes access.
type Graph struct {
	ID        string
	Name      string
	UpdatedAt time.Time

	nodes map[string]*Node
	order []string
	edges []*Edge
	now   func() time.Time
}

// NewGraph creates an empty graph
func NewGraph(id, name string) *Graph {
	return &Graph{
		ID:    id,
		Name:  name,
		nodes: make(map[string]*Node),
		now:   time.Now,
	}
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.order)
}

// HasNode reports whether a node with the given ID exists
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given ID
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// Edges returns copies of all edges in insertion order
func (g *Graph) Edges() []*Edge {
	return cloneEdges(g.edges)
}

// AddNode adds a node to the graph
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	if err := node.Validate(); err != nil {
		return err
	}
	if _, exists := g.nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
	}
	n := node.Clone()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = g.now()
	}
	n.UpdatedAt = n.CreatedAt
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	g.touch()
	return nil
}

// UpdateNodeData shallow-merges partial into the node's payload. An unknown
// ID is a no-op and reports false.
func (g *Graph) UpdateNodeData(nodeID string, partial NodeData) bool {
	n, ok := g.nodes[nodeID]
	if !ok {
		return false
	}
	if n.Data == nil {
		n.Data = make(NodeData, len(partial))
	}
	n.Data.Merge(partial)
	n.UpdatedAt = g.now()
	g.touch()
	return true
}

// MoveNode sets the node's canvas position. An unknown ID is a no-op.
func (g *Graph) MoveNode(nodeID string, pos Position) bool {
	n, ok := g.nodes[nodeID]
	if !ok {
		return false
	}
	n.Position = pos
	n.UpdatedAt = g.now()
	g.touch()
	return true
}

// RemoveNode deletes the node and every edge touching it
func (g *Graph) RemoveNode(nodeID string) bool {
	if _, ok := g.nodes[nodeID]; !ok {
		return false
	}
	delete(g.nodes, nodeID)
	for i, id := range g.order {
		if id == nodeID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	kept := g.edges[:0]
	for _, e := range g.edges {
		if !e.Touches(nodeID) {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	g.touch()
	return true
}

// ReplaceEdges swaps the whole edge set
func (g *Graph) ReplaceEdges(edges []*Edge) {
	g.edges = cloneEdges(edges)
	g.touch()
}

// RemoveEdge deletes the edge with the given ID
func (g *Graph) RemoveEdge(edgeID string) bool {
	for i, e := range g.edges {
		if e.ID == edgeID {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.touch()
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the graph
func (g *Graph) Snapshot() *Snapshot {
	return &Snapshot{
		ID:        g.ID,
		Name:      g.Name,
		Nodes:     g.Nodes(),
		Edges:     g.Edges(),
		UpdatedAt: g.UpdatedAt,
	}
}

// Restore replaces the graph contents with the snapshot. The snapshot is
// checked first; on error the graph is left unchanged.
func (g *Graph) Restore(s *Snapshot) error {
	if s == nil {
		return ErrNilSnapshot
	}
	nodes := make(map[string]*Node, len(s.Nodes))
	order := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if n == nil {
			return ErrNilNode
		}
		if err := n.Validate(); err != nil {
			return err
		}
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		nodes[n.ID] = n.Clone()
		order = append(order, n.ID)
	}

	type sourceKey struct{ node, handle string }
	seen := make(map[sourceKey]struct{}, len(s.Edges))
	edgeIDs := make(map[string]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		if e == nil {
			return ErrNilEdge
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := edgeIDs[e.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID)
		}
		edgeIDs[e.ID] = struct{}{}
		if _, ok := nodes[e.Source]; !ok {
			return fmt.Errorf("%w: %s", ErrSourceNodeNotFound, e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			return fmt.Errorf("%w: %s", ErrTargetNodeNotFound, e.Target)
		}
		k := sourceKey{e.Source, e.SourceHandle}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateSourceEdge, e.Source, e.SourceHandle)
		}
		seen[k] = struct{}{}
	}

	if s.ID != "" {
		g.ID = s.ID
	}
	if s.Name != "" {
		g.Name = s.Name
	}
	g.nodes = nodes
	g.order = order
	g.edges = cloneEdges(s.Edges)
	g.touch()
	return nil
}

func (g *Graph) touch() {
	g.UpdatedAt = g.now()
}

func cloneEdges(edges []*Edge) []*Edge {
	out := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Clone())
	}
	return out
}
