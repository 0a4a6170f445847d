package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

func snapshot(ids []string, edges ...[2]string) *flow.Snapshot {
	s := &flow.Snapshot{ID: "flow-1", Name: "Test"}
	for _, id := range ids {
		s.Nodes = append(s.Nodes, &flow.Node{ID: id, Type: flow.NodeTypeTextMessage, Data: flow.NodeData{"text": id}})
	}
	for _, e := range edges {
		s.Edges = append(s.Edges, &flow.Edge{
			ID:           flow.EdgeID(e[0], flow.HandleSource, e[1], flow.HandleTarget),
			Source:       e[0],
			SourceHandle: flow.HandleSource,
			Target:       e[1],
			TargetHandle: flow.HandleTarget,
		})
	}
	return s
}

func TestValidateFlow(t *testing.T) {
	tests := []struct {
		name          string
		snap          *flow.Snapshot
		wantValid     bool
		wantMessage   string
		wantUnreached []string
	}{
		{
			name:        "empty flow",
			snap:        snapshot(nil),
			wantValid:   true,
			wantMessage: MessageFlowValid,
		},
		{
			name:        "single node without edges",
			snap:        snapshot([]string{"a"}),
			wantValid:   true,
			wantMessage: MessageFlowValid,
		},
		{
			name:          "two unconnected nodes",
			snap:          snapshot([]string{"a", "b"}),
			wantValid:     false,
			wantMessage:   MessageMultipleStarts,
			wantUnreached: []string{"a", "b"},
		},
		{
			name:          "a to b",
			snap:          snapshot([]string{"a", "b"}, [2]string{"a", "b"}),
			wantValid:     true,
			wantMessage:   MessageFlowValid,
			wantUnreached: []string{"a"},
		},
		{
			name:          "a fans out to b and c",
			snap:          snapshot([]string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"a", "c"}),
			wantValid:     true,
			wantMessage:   MessageFlowValid,
			wantUnreached: []string{"a"},
		},
		{
			name:          "chain with a detached node",
			snap:          snapshot([]string{"a", "b", "c"}, [2]string{"a", "b"}),
			wantValid:     false,
			wantMessage:   MessageMultipleStarts,
			wantUnreached: []string{"a", "c"},
		},
		{
			name:        "cycle with no starting node is accepted",
			snap:        snapshot([]string{"a", "b"}, [2]string{"a", "b"}, [2]string{"b", "a"}),
			wantValid:   true,
			wantMessage: MessageFlowValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateFlow(tt.snap)
			assert.Equal(t, tt.wantValid, v.IsValid)
			assert.Equal(t, tt.wantMessage, v.Message)
			assert.Equal(t, tt.wantUnreached, v.Unreached)
		})
	}
}

func TestValidateFlow_NilSnapshot(t *testing.T) {
	assert.True(t, ValidateFlow(nil).IsValid)
}

func TestValidateFlow_SkipsNilEntries(t *testing.T) {
	s := snapshot([]string{"a", "b"}, [2]string{"a", "b"})
	s.Nodes = append(s.Nodes, nil)
	s.Edges = append(s.Edges, nil)

	v := ValidateFlow(s)
	assert.True(t, v.IsValid)
	assert.Equal(t, []string{"a"}, v.Unreached)

	strict := ValidateFlow(s, FlowValidationOptions{Strict: true})
	assert.True(t, strict.IsValid)

	one := &flow.Snapshot{Nodes: []*flow.Node{nil, {ID: "a", Type: flow.NodeTypeTextMessage}}}
	assert.True(t, ValidateFlow(one).IsValid)
}

func TestValidateFlow_InvalidMessageNamesCondition(t *testing.T) {
	v := ValidateFlow(snapshot([]string{"a", "b"}))
	assert.Contains(t, v.Message, "More than one node has no incoming connection")
}

func TestValidateFlow_Strict(t *testing.T) {
	strict := FlowValidationOptions{Strict: true}

	t.Run("connected chain passes", func(t *testing.T) {
		v := ValidateFlow(snapshot([]string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"b", "c"}), strict)
		assert.True(t, v.IsValid)
		assert.Empty(t, v.Unreachable)
	})

	t.Run("detached cycle is flagged", func(t *testing.T) {
		// a is the only unreached node; c <-> d loop is never visited from a.
		s := snapshot([]string{"a", "b", "c", "d"},
			[2]string{"a", "b"}, [2]string{"c", "d"}, [2]string{"d", "c"})
		assert.True(t, ValidateFlow(s).IsValid)

		v := ValidateFlow(s, strict)
		assert.False(t, v.IsValid)
		assert.Equal(t, []string{"c", "d"}, v.Unreachable)
		assert.Contains(t, v.Message, "c, d")
	})

	t.Run("no starting node", func(t *testing.T) {
		v := ValidateFlow(snapshot([]string{"a", "b"}, [2]string{"a", "b"}, [2]string{"b", "a"}), strict)
		assert.False(t, v.IsValid)
		assert.Equal(t, MessageNoStart, v.Message)
	})

	t.Run("single node stays valid", func(t *testing.T) {
		assert.True(t, ValidateFlow(snapshot([]string{"a"}), strict).IsValid)
	})
}
