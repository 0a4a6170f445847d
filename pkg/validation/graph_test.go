package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

func TestValidateSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		snap    *flow.Snapshot
		wantErr error
	}{
		{
			name: "valid",
			snap: snapshot([]string{"a", "b"}, [2]string{"a", "b"}),
		},
		{
			name:    "nil snapshot",
			snap:    nil,
			wantErr: flow.ErrNilSnapshot,
		},
		{
			name:    "missing endpoint",
			snap:    snapshot([]string{"a"}, [2]string{"a", "missing"}),
			wantErr: flow.ErrTargetNodeNotFound,
		},
		{
			name:    "missing source",
			snap:    snapshot([]string{"b"}, [2]string{"missing", "b"}),
			wantErr: flow.ErrSourceNodeNotFound,
		},
		{
			name:    "duplicate node",
			snap:    snapshot([]string{"a", "a"}),
			wantErr: flow.ErrDuplicateNode,
		},
		{
			name:    "fan-out from one handle",
			snap:    snapshot([]string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"a", "c"}),
			wantErr: flow.ErrDuplicateSourceEdge,
		},
		{
			name: "unknown node type",
			snap: &flow.Snapshot{Nodes: []*flow.Node{
				{ID: "a", Type: "conditional", Data: flow.NodeData{}},
			}},
			wantErr: flow.ErrInvalidNodeType,
		},
		{
			name: "missing text payload",
			snap: &flow.Snapshot{Nodes: []*flow.Node{
				{ID: "a", Type: flow.NodeTypeTextMessage},
			}},
			wantErr: flow.ErrMissingNodeData,
		},
		{
			name: "non-string text payload",
			snap: &flow.Snapshot{Nodes: []*flow.Node{
				{ID: "a", Type: flow.NodeTypeTextMessage, Data: flow.NodeData{"text": 42.0}},
			}},
			wantErr: flow.ErrInvalidNodeData,
		},
		{
			name: "duplicate edge ID",
			snap: &flow.Snapshot{
				Nodes: snapshot([]string{"a", "b", "c"}).Nodes,
				Edges: []*flow.Edge{
					{ID: "e1", Source: "a", SourceHandle: flow.HandleSource, Target: "b"},
					{ID: "e1", Source: "b", SourceHandle: flow.HandleSource, Target: "c"},
				},
			},
			wantErr: flow.ErrDuplicateEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnapshot(tt.snap)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSnapshot_SelfLoopAllowed(t *testing.T) {
	assert.NoError(t, ValidateSnapshot(snapshot([]string{"a"}, [2]string{"a", "a"})))
}
