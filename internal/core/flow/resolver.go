package flow

import "fmt"

// ConnectionRequest is a proposed edge as emitted by the canvas
type ConnectionRequest struct {
	Source       string `json:"source"`
	SourceHandle string `json:"source_handle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Validate rejects requests missing either endpoint
func (r ConnectionRequest) Validate() error {
	if r.Source == "" || r.Target == "" {
		return ErrMalformedConnection
	}
	return nil
}

// ResolverOptions toggles checks beyond the base single-outgoing-edge rule.
type ResolverOptions struct {
	// RejectSelfLoops refuses connections whose source and target are the same node.
	RejectSelfLoops bool
}

// Connection is the outcome of a resolved request
type Connection struct {
	Edge     *Edge
	Replaced *Edge // edge removed to make room, nil if the handle was free
}

// Resolver applies the one-edge-per-source-handle rule to connection requests
type Resolver struct {
	opts ResolverOptions
}

// NewResolver creates a connection resolver
func NewResolver(opts ...ResolverOptions) *Resolver {
	r := &Resolver{}
	if len(opts) > 0 {
		r.opts = opts[0]
	}
	return r
}

// Connect inserts the requested edge, first removing any edge that already
// leaves the same source handle. Requests naming unknown nodes or handles
// return an error and leave g untouched.
func (r *Resolver) Connect(g *Graph, req ConnectionRequest) (*Connection, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	src, ok := g.nodes[req.Source]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrUnknownNode, req.Source)
	}
	dst, ok := g.nodes[req.Target]
	if !ok {
		return nil, fmt.Errorf("%w: target %s", ErrUnknownNode, req.Target)
	}
	if r.opts.RejectSelfLoops && req.Source == req.Target {
		return nil, ErrSelfLoop
	}

	sourceHandle, targetHandle, err := resolveHandles(src, dst, req)
	if err != nil {
		return nil, err
	}

	edge := &Edge{
		ID:           EdgeID(req.Source, sourceHandle, req.Target, targetHandle),
		Source:       req.Source,
		SourceHandle: sourceHandle,
		Target:       req.Target,
		TargetHandle: targetHandle,
	}

	var replaced *Edge
	next := make([]*Edge, 0, len(g.edges)+1)
	for _, e := range g.edges {
		if e.LeavesFrom(edge.Source, edge.SourceHandle) {
			replaced = e.Clone()
			continue
		}
		next = append(next, e)
	}
	ids := make(map[string]struct{}, len(next))
	for _, e := range next {
		ids[e.ID] = struct{}{}
	}
	edge.ID = UniqueEdgeID(edge.ID, func(id string) bool {
		_, ok := ids[id]
		return ok
	})
	next = append(next, edge)
	g.ReplaceEdges(next)

	return &Connection{Edge: edge.Clone(), Replaced: replaced}, nil
}

// Disconnect removes the edge with the given ID
func (r *Resolver) Disconnect(g *Graph, edgeID string) bool {
	return g.RemoveEdge(edgeID)
}

func resolveHandles(src, dst *Node, req ConnectionRequest) (string, string, error) {
	srcSpec, ok := LookupType(src.Type)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidNodeType, src.Type)
	}
	dstSpec, ok := LookupType(dst.Type)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidNodeType, dst.Type)
	}

	sourceHandle := req.SourceHandle
	if sourceHandle == "" {
		sourceHandle = srcSpec.DefaultSourceHandle()
	}
	if !srcSpec.HasSourceHandle(sourceHandle) {
		return "", "", fmt.Errorf("%w: source handle %q on %s", ErrUnknownHandle, sourceHandle, src.ID)
	}

	targetHandle := req.TargetHandle
	if targetHandle == "" {
		targetHandle = dstSpec.DefaultTargetHandle()
	}
	if !dstSpec.HasTargetHandle(targetHandle) {
		return "", "", fmt.Errorf("%w: target handle %q on %s", ErrUnknownHandle, targetHandle, dst.ID)
	}
	return sourceHandle, targetHandle, nil
}
