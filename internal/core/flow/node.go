// Package flow provides node definitions
package flow

import (
	"fmt"
	"time"
)

// Position is a canvas coordinate. It has no meaning for validation.
type Position struct {
	X float64 `json:"x" yaml:"x" msgpack:"x"`
	Y float64 `json:"y" yaml:"y" msgpack:"y"`
}

// NodeData is the type-specific payload of a node
type NodeData map[string]interface{}

// Clone returns a shallow copy of the payload
func (d NodeData) Clone() NodeData {
	out := make(NodeData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge copies every key of partial into d, keeping keys partial does not name.
func (d NodeData) Merge(partial NodeData) {
	for k, v := range partial {
		d[k] = v
	}
}

// Text returns the text field of a message payload
func (d NodeData) Text() string {
	s, _ := d["text"].(string)
	return s
}

// Node represents a conversation step on the canvas
type Node struct {
	ID        string    `json:"id" yaml:"id" msgpack:"id"`
	Type      NodeType  `json:"type" yaml:"type" msgpack:"type"`
	Position  Position  `json:"position" yaml:"position" msgpack:"position"`
	Data      NodeData  `json:"data" yaml:"data" msgpack:"data"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" msgpack:"updated_at"`
}

// Validate ensures node integrity
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	spec, ok := LookupType(n.Type)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidNodeType, n.Type)
	}
	for _, field := range spec.RequiredFields() {
		if _, present := n.Data[field]; !present {
			return fmt.Errorf("%w: node %s has no %q", ErrMissingNodeData, n.ID, field)
		}
	}
	if err := spec.CheckData(n.Data); err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	return nil
}

// Clone returns a copy that shares nothing mutable with n
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Data = n.Data.Clone()
	return &c
}
