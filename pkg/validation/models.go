// Package validation provides model definitions with validation tags
package validation

import (
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

// FlowDocument is the interchange format for flows read from files or HTTP
// imports. It carries validation tags; ToSnapshot converts it into the
// domain type once it passes.
type FlowDocument struct {
	ID    string         `json:"id" yaml:"id" validate:"required,max=128"`
	Name  string         `json:"name" yaml:"name" validate:"max=200"`
	Nodes []NodeDocument `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []EdgeDocument `json:"edges" yaml:"edges" validate:"dive"`
}

// NodeDocument is one node of a FlowDocument
type NodeDocument struct {
	ID       string                 `json:"id" yaml:"id" validate:"required,node_id"`
	Type     string                 `json:"type" yaml:"type" validate:"required,node_type"`
	Position flow.Position          `json:"position" yaml:"position"`
	Data     map[string]interface{} `json:"data" yaml:"data" validate:"required"`
}

// EdgeDocument is one edge of a FlowDocument
type EdgeDocument struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Source       string `json:"source" yaml:"source" validate:"required,node_id"`
	SourceHandle string `json:"source_handle,omitempty" yaml:"source_handle,omitempty" validate:"handle"`
	Target       string `json:"target" yaml:"target" validate:"required,node_id"`
	TargetHandle string `json:"target_handle,omitempty" yaml:"target_handle,omitempty" validate:"handle"`
}

// Validate implements custom validation for FlowDocument
func (d *FlowDocument) Validate() error {
	var errs ValidationErrors

	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if ids[n.ID] {
			errs = append(errs, ValidationError{Field: "nodes", Value: n.ID, Message: "duplicate node ID"})
		}
		ids[n.ID] = true
	}

	for _, e := range d.Edges {
		if !ids[e.Source] {
			errs = append(errs, ValidationError{Field: "edges.source", Value: e.Source, Message: "source node does not exist"})
		}
		if !ids[e.Target] {
			errs = append(errs, ValidationError{Field: "edges.target", Value: e.Target, Message: "target node does not exist"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToSnapshot converts the document. Missing handles fall back to the node
// type's defaults and missing edge IDs are derived from the endpoints.
func (d *FlowDocument) ToSnapshot() *flow.Snapshot {
	types := make(map[string]flow.NodeType, len(d.Nodes))
	s := &flow.Snapshot{ID: d.ID, Name: d.Name}
	for _, n := range d.Nodes {
		types[n.ID] = flow.NodeType(n.Type)
		s.Nodes = append(s.Nodes, &flow.Node{
			ID:       n.ID,
			Type:     flow.NodeType(n.Type),
			Position: n.Position,
			Data:     flow.NodeData(n.Data).Clone(),
		})
	}
	taken := make(map[string]struct{}, len(d.Edges))
	for _, e := range d.Edges {
		if e.ID != "" {
			taken[e.ID] = struct{}{}
		}
	}
	inUse := func(id string) bool {
		_, ok := taken[id]
		return ok
	}
	for _, e := range d.Edges {
		sh, th := e.SourceHandle, e.TargetHandle
		if spec, ok := flow.LookupType(types[e.Source]); ok && sh == "" {
			sh = spec.DefaultSourceHandle()
		}
		if spec, ok := flow.LookupType(types[e.Target]); ok && th == "" {
			th = spec.DefaultTargetHandle()
		}
		id := e.ID
		if id == "" {
			id = flow.UniqueEdgeID(flow.EdgeID(e.Source, sh, e.Target, th), inUse)
			taken[id] = struct{}{}
		}
		s.Edges = append(s.Edges, &flow.Edge{
			ID:           id,
			Source:       e.Source,
			SourceHandle: sh,
			Target:       e.Target,
			TargetHandle: th,
		})
	}
	return s
}

// DocumentFromSnapshot is the inverse of ToSnapshot
func DocumentFromSnapshot(s *flow.Snapshot) *FlowDocument {
	d := &FlowDocument{ID: s.ID, Name: s.Name}
	for _, n := range s.Nodes {
		d.Nodes = append(d.Nodes, NodeDocument{
			ID:       n.ID,
			Type:     string(n.Type),
			Position: n.Position,
			Data:     n.Data.Clone(),
		})
	}
	for _, e := range s.Edges {
		d.Edges = append(d.Edges, EdgeDocument{
			ID:           e.ID,
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
		})
	}
	return d
}

// ParseDocument validates d and converts it into a structurally sound snapshot
func ParseDocument(d *FlowDocument) (*flow.Snapshot, error) {
	if err := ValidateStruct(d); err != nil {
		return nil, err
	}
	s := d.ToSnapshot()
	if err := ValidateSnapshot(s); err != nil {
		return nil, err
	}
	return s, nil
}
