package validation

import (
	"fmt"
	"strings"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

// Verdict messages surfaced to the user.
const (
	MessageFlowValid      = "Flow is valid."
	MessageMultipleStarts = "Error: More than one node has no incoming connection. Please ensure all nodes except the starting node are connected."
	MessageNoStart        = "Error: Every node has an incoming connection, so the flow has no starting node."
	messageUnreachable    = "Error: Some nodes cannot be reached from the starting node: %s."
)

// FlowValidationOptions controls optional validation checks.
type FlowValidationOptions struct {
	// Strict additionally walks the flow from its single starting node and
	// rejects nodes the walk never reaches.
	Strict bool
}

// Verdict is the outcome of ValidateFlow
type Verdict struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
	// Unreached lists nodes that are not the target of any edge.
	Unreached []string `json:"unreached,omitempty"`
	// Unreachable lists nodes a strict walk could not reach.
	Unreachable []string `json:"unreachable,omitempty"`
}

// ValidateFlow decides whether the snapshot may be saved. A flow with zero or
// one node is always valid. Otherwise at most one node may lack an incoming
// edge. Cycles and disconnected clusters are not inspected unless opts.Strict
// is set.
func ValidateFlow(s *flow.Snapshot, opts ...FlowValidationOptions) Verdict {
	var cfg FlowValidationOptions
	if len(opts) > 0 {
		cfg = opts[0]
	}
	if s == nil {
		return Verdict{IsValid: true, Message: MessageFlowValid}
	}
	nodes, edges := presentNodes(s.Nodes), presentEdges(s.Edges)
	if len(nodes) <= 1 {
		return Verdict{IsValid: true, Message: MessageFlowValid}
	}

	targets := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		targets[e.Target] = struct{}{}
	}
	var unreached []string
	for _, n := range nodes {
		if _, ok := targets[n.ID]; !ok {
			unreached = append(unreached, n.ID)
		}
	}

	if len(unreached) > 1 {
		return Verdict{IsValid: false, Message: MessageMultipleStarts, Unreached: unreached}
	}
	if !cfg.Strict {
		return Verdict{IsValid: true, Message: MessageFlowValid, Unreached: unreached}
	}

	if len(unreached) == 0 {
		return Verdict{IsValid: false, Message: MessageNoStart}
	}
	unreachable := unreachableFrom(nodes, edges, unreached[0])
	if len(unreachable) > 0 {
		return Verdict{
			IsValid:     false,
			Message:     fmt.Sprintf(messageUnreachable, strings.Join(unreachable, ", ")),
			Unreached:   unreached,
			Unreachable: unreachable,
		}
	}
	return Verdict{IsValid: true, Message: MessageFlowValid, Unreached: unreached}
}

// unreachableFrom runs a BFS from root and returns the nodes it never visits,
// in snapshot order.
func unreachableFrom(nodes []*flow.Node, edges []*flow.Edge, root string) []string {
	adj := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	visited := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range adj[u] {
			if !visited[v] {
				visited[v] = true
				queue = append(queue, v)
			}
		}
	}
	var out []string
	for _, n := range nodes {
		if !visited[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// presentNodes drops nil entries of hand-built snapshots
func presentNodes(in []*flow.Node) []*flow.Node {
	out := make([]*flow.Node, 0, len(in))
	for _, n := range in {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func presentEdges(in []*flow.Edge) []*flow.Edge {
	out := make([]*flow.Edge, 0, len(in))
	for _, e := range in {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
