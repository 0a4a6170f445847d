// Package flow provides edge definitions
package flow

import "strconv"

// Edge represents a directed connection from a source handle to a target handle
type Edge struct {
	ID           string `json:"id" yaml:"id" msgpack:"id"`
	Source       string `json:"source" yaml:"source" msgpack:"source"`
	SourceHandle string `json:"source_handle,omitempty" yaml:"source_handle,omitempty" msgpack:"source_handle"`
	Target       string `json:"target" yaml:"target" msgpack:"target"`
	TargetHandle string `json:"target_handle,omitempty" yaml:"target_handle,omitempty" msgpack:"target_handle"`
}

// EdgeID derives the identifier of the edge joining the given endpoints.
func EdgeID(source, sourceHandle, target, targetHandle string) string {
	return "edge__" + source + sourceHandle + "-" + target + targetHandle
}

// UniqueEdgeID returns base, or base with the first free "~N" suffix when
// taken reports it is already in use. Node IDs may contain '-', so derived
// IDs of different edges can coincide.
func UniqueEdgeID(base string, taken func(id string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		id := base + "~" + strconv.Itoa(n)
		if !taken(id) {
			return id
		}
	}
}

// Validate ensures edge integrity
func (e *Edge) Validate() error {
	if e.Source == "" {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	return nil
}

// LeavesFrom reports whether the edge originates at the given source handle
func (e *Edge) LeavesFrom(source, sourceHandle string) bool {
	return e.Source == source && e.SourceHandle == sourceHandle
}

// Touches reports whether nodeID is either endpoint of the edge
func (e *Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Clone returns a copy of the edge
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
