package flow

import "time"

// Snapshot is the graph at a point in time: what the validator inspects and
// what persistence receives.
type Snapshot struct {
	ID        string    `json:"id" yaml:"id" msgpack:"id"`
	Name      string    `json:"name" yaml:"name" msgpack:"name"`
	Nodes     []*Node   `json:"nodes" yaml:"nodes" msgpack:"nodes"`
	Edges     []*Edge   `json:"edges" yaml:"edges" msgpack:"edges"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" msgpack:"updated_at"`
}

// Clone returns a deep copy
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Nodes = make([]*Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		c.Nodes = append(c.Nodes, n.Clone())
	}
	c.Edges = cloneEdges(s.Edges)
	return &c
}

// NodeIDs returns the node identifiers in order
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
