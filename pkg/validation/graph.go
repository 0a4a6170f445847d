package validation

import (
	"fmt"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

// ValidateSnapshot performs structural validation on a snapshot. It is
// intended for flows loaded from external sources (files, databases, HTTP
// imports) where the store's own guards were bypassed.
func ValidateSnapshot(s *flow.Snapshot) error {
	if s == nil {
		return flow.ErrNilSnapshot
	}

	nodes := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if n == nil {
			return flow.ErrNilNode
		}
		if err := n.Validate(); err != nil {
			return err
		}
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("%w: %s", flow.ErrDuplicateNode, n.ID)
		}
		nodes[n.ID] = struct{}{}
	}

	// One edge per (source, sourceHandle)
	type sourceKey struct{ node, handle string }
	seen := make(map[sourceKey]struct{}, len(s.Edges))
	edgeIDs := make(map[string]struct{}, len(s.Edges))

	for _, e := range s.Edges {
		if e == nil {
			return flow.ErrNilEdge
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := edgeIDs[e.ID]; dup {
			return fmt.Errorf("%w: %s", flow.ErrDuplicateEdge, e.ID)
		}
		edgeIDs[e.ID] = struct{}{}
		if _, ok := nodes[e.Source]; !ok {
			return fmt.Errorf("%w: %s", flow.ErrSourceNodeNotFound, e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			return fmt.Errorf("%w: %s", flow.ErrTargetNodeNotFound, e.Target)
		}
		k := sourceKey{e.Source, e.SourceHandle}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s/%s", flow.ErrDuplicateSourceEdge, e.Source, e.SourceHandle)
		}
		seen[k] = struct{}{}
	}

	return nil
}
