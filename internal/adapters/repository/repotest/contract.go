// Package repotest holds the behaviour every flow.Repository implementation
// must share, run against each adapter from its own tests.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

// Factory builds an empty repository whose save timestamps come from now
type Factory func(t *testing.T, now func() time.Time) flow.Repository

// StepClock returns a clock that advances one second per call
func StepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// Snapshot builds a two-node flow a -> b
func Snapshot(id string) *flow.Snapshot {
	return &flow.Snapshot{
		ID:   id,
		Name: "Flow " + id,
		Nodes: []*flow.Node{
			{ID: "a", Type: flow.NodeTypeTextMessage, Position: flow.Position{X: 100, Y: 150}, Data: flow.NodeData{"text": "Hello"}},
			{ID: "b", Type: flow.NodeTypeTextMessage, Position: flow.Position{X: 300, Y: 150}, Data: flow.NodeData{"text": "Bye"}},
		},
		Edges: []*flow.Edge{{
			ID:           flow.EdgeID("a", flow.HandleSource, "b", flow.HandleTarget),
			Source:       "a",
			SourceHandle: flow.HandleSource,
			Target:       "b",
			TargetHandle: flow.HandleTarget,
		}},
	}
}

// Run exercises newRepo against the flow.Repository contract
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		repo := newRepo(t, StepClock())
		want := Snapshot("welcome")

		rec, err := repo.Save(ctx, want)
		require.NoError(t, err)
		assert.Equal(t, "welcome", rec.ID)
		assert.Equal(t, int64(1), rec.Version)
		assert.False(t, rec.SavedAt.IsZero())

		got, err := repo.Load(ctx, "welcome")
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, int64(1), got.Version)
		assert.True(t, rec.SavedAt.Equal(got.SavedAt))
		require.Len(t, got.Snapshot.Nodes, 2)
		assert.Equal(t, "Hello", got.Snapshot.Nodes[0].Data.Text())
		assert.Equal(t, want.Nodes[1].Position, got.Snapshot.Nodes[1].Position)
		assert.Equal(t, want.Edges, got.Snapshot.Edges)
	})

	t.Run("overwrite bumps version", func(t *testing.T) {
		repo := newRepo(t, StepClock())
		s := Snapshot("welcome")

		_, err := repo.Save(ctx, s)
		require.NoError(t, err)
		s.Name = "Renamed"
		rec, err := repo.Save(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Version)

		got, err := repo.Load(ctx, "welcome")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("saved snapshot is detached", func(t *testing.T) {
		repo := newRepo(t, StepClock())
		s := Snapshot("welcome")
		_, err := repo.Save(ctx, s)
		require.NoError(t, err)

		s.Nodes[0].Data["text"] = "changed"
		got, err := repo.Load(ctx, "welcome")
		require.NoError(t, err)
		assert.Equal(t, "Hello", got.Snapshot.Nodes[0].Data.Text())
	})

	t.Run("missing flow", func(t *testing.T) {
		repo := newRepo(t, StepClock())

		_, err := repo.Load(ctx, "missing")
		assert.ErrorIs(t, err, flow.ErrFlowNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "missing"), flow.ErrFlowNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		repo := newRepo(t, StepClock())

		_, err := repo.Save(ctx, nil)
		assert.ErrorIs(t, err, flow.ErrNilSnapshot)
		_, err = repo.Save(ctx, &flow.Snapshot{})
		assert.ErrorIs(t, err, flow.ErrInvalidFlowID)
		_, err = repo.Load(ctx, "")
		assert.ErrorIs(t, err, flow.ErrInvalidFlowID)
		assert.ErrorIs(t, repo.Delete(ctx, ""), flow.ErrInvalidFlowID)
		_, err = repo.List(ctx, flow.ListFilter{Limit: -1})
		assert.ErrorIs(t, err, flow.ErrInvalidLimit)
		_, err = repo.List(ctx, flow.ListFilter{Offset: -1})
		assert.ErrorIs(t, err, flow.ErrInvalidOffset)
	})

	t.Run("list newest first with paging", func(t *testing.T) {
		repo := newRepo(t, StepClock())
		for i := 1; i <= 4; i++ {
			_, err := repo.Save(ctx, Snapshot(fmt.Sprintf("flow-%d", i)))
			require.NoError(t, err)
		}

		ids := func(recs []*flow.Record) []string {
			out := make([]string, 0, len(recs))
			for _, r := range recs {
				out = append(out, r.ID)
			}
			return out
		}

		all, err := repo.List(ctx, flow.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"flow-4", "flow-3", "flow-2", "flow-1"}, ids(all))

		pageTwo, err := repo.List(ctx, flow.ListFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"flow-2", "flow-1"}, ids(pageTwo))

		tail, err := repo.List(ctx, flow.ListFilter{Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"flow-1"}, ids(tail))

		none, err := repo.List(ctx, flow.ListFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t, StepClock())
		_, err := repo.Save(ctx, Snapshot("welcome"))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "welcome"))
		_, err = repo.Load(ctx, "welcome")
		assert.ErrorIs(t, err, flow.ErrFlowNotFound)
	})
}
