// Package flow defines domain-specific errors
package flow

import "errors"

// Domain errors - defined once, used everywhere
var (
	// Node errors
	ErrNilNode         = errors.New("node cannot be nil")
	ErrInvalidNodeID   = errors.New("invalid node ID")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrMissingNodeData = errors.New("node data is missing a required field")
	ErrInvalidNodeData = errors.New("node data field has an invalid value")
	ErrDuplicateNode   = errors.New("duplicate node ID")
	ErrNodeNotFound    = errors.New("node not found")
	ErrIDExhausted     = errors.New("could not allocate a unique node ID")

	// Edge errors
	ErrNilEdge             = errors.New("edge cannot be nil")
	ErrDuplicateEdge       = errors.New("duplicate edge ID")
	ErrInvalidSource       = errors.New("invalid source node")
	ErrInvalidTarget       = errors.New("invalid target node")
	ErrSourceNodeNotFound  = errors.New("source node not found")
	ErrTargetNodeNotFound  = errors.New("target node not found")
	ErrDuplicateSourceEdge = errors.New("more than one edge leaves the same source handle")

	// Connection errors
	ErrMalformedConnection = errors.New("connection request is missing a source or target")
	ErrUnknownNode         = errors.New("connection references an unknown node")
	ErrUnknownHandle       = errors.New("connection references an unknown handle")
	ErrSelfLoop            = errors.New("self-loops are not allowed")

	// Persistence errors
	ErrNilSnapshot   = errors.New("snapshot cannot be nil")
	ErrInvalidFlowID = errors.New("invalid flow ID")
	ErrFlowNotFound  = errors.New("flow not found")
	ErrInvalidLimit  = errors.New("limit cannot be negative")
	ErrInvalidOffset = errors.New("offset cannot be negative")
)
