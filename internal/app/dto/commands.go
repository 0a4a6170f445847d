package dto

import (
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

// CommandKind names a command in logs, metrics and API responses
type CommandKind string

const (
	KindAddNode        CommandKind = "add_node"
	KindUpdateNodeData CommandKind = "update_node_data"
	KindMoveNode       CommandKind = "move_node"
	KindConnect        CommandKind = "connect"
	KindDisconnect     CommandKind = "disconnect"
	KindRemoveNode     CommandKind = "remove_node"
	KindSelectNode     CommandKind = "select_node"
	KindClearSelection CommandKind = "clear_selection"
)

// Command is a single edit of the flow. Commands are plain values; the
// editor validates and applies them one at a time.
type Command interface {
	Kind() CommandKind
}

// AddNode places a new node of the given type. Without a position the node
// is scattered over the canvas.
type AddNode struct {
	Type     string         `json:"type" validate:"required,node_type"`
	Position *flow.Position `json:"position,omitempty"`
}

// UpdateNodeData merges Data into the node's payload
type UpdateNodeData struct {
	NodeID string                 `json:"node_id" validate:"required,node_id"`
	Data   map[string]interface{} `json:"data" validate:"required"`
}

// MoveNode sets a node's canvas position
type MoveNode struct {
	NodeID   string        `json:"node_id" validate:"required,node_id"`
	Position flow.Position `json:"position"`
}

// Connect asks for an edge between two handles. Empty handles use the node
// type's defaults.
type Connect struct {
	Source       string `json:"source" validate:"required,node_id"`
	SourceHandle string `json:"source_handle,omitempty" validate:"handle"`
	Target       string `json:"target" validate:"required,node_id"`
	TargetHandle string `json:"target_handle,omitempty" validate:"handle"`
}

// Disconnect removes an edge
type Disconnect struct {
	EdgeID string `json:"edge_id" validate:"required,max=300"`
}

// RemoveNode deletes a node and every edge touching it
type RemoveNode struct {
	NodeID string `json:"node_id" validate:"required,node_id"`
}

// SelectNode opens a node in the settings panel
type SelectNode struct {
	NodeID string `json:"node_id" validate:"required,node_id"`
}

// ClearSelection closes the settings panel
type ClearSelection struct{}

func (AddNode) Kind() CommandKind        { return KindAddNode }
func (UpdateNodeData) Kind() CommandKind { return KindUpdateNodeData }
func (MoveNode) Kind() CommandKind       { return KindMoveNode }
func (Connect) Kind() CommandKind        { return KindConnect }
func (Disconnect) Kind() CommandKind     { return KindDisconnect }
func (RemoveNode) Kind() CommandKind     { return KindRemoveNode }
func (SelectNode) Kind() CommandKind     { return KindSelectNode }
func (ClearSelection) Kind() CommandKind { return KindClearSelection }

// Request converts the command into a resolver request
func (c Connect) Request() flow.ConnectionRequest {
	return flow.ConnectionRequest{
		Source:       c.Source,
		SourceHandle: c.SourceHandle,
		Target:       c.Target,
		TargetHandle: c.TargetHandle,
	}
}

// CommandResult reports what a command did. Applied is false when the
// command was ignored: a stale node ID, an unknown edge, or a connection the
// resolver refused.
type CommandResult struct {
	Kind     CommandKind `json:"kind"`
	Applied  bool        `json:"applied"`
	Node     *flow.Node  `json:"node,omitempty"`
	Edge     *flow.Edge  `json:"edge,omitempty"`
	Replaced *flow.Edge  `json:"replaced,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}
