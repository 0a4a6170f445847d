// Package memory provides an in-process flow repository
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

// Repository implements flow.Repository with a map. Records are deep-copied
// on the way in and out, so callers never share state with the store.
type Repository struct {
	mu      sync.RWMutex
	records map[string]*flow.Record
	now     func() time.Time
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		records: make(map[string]*flow.Record),
		now:     time.Now,
	}
}

// WithClock overrides the save timestamp source
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// Save stores the snapshot, bumping the version if the flow already exists
func (r *Repository) Save(ctx context.Context, s *flow.Snapshot) (*flow.Record, error) {
	if err := flow.CheckSnapshot(s); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	version := int64(1)
	if prev, ok := r.records[s.ID]; ok {
		version = prev.Version + 1
	}
	rec := &flow.Record{
		ID:       s.ID,
		Name:     s.Name,
		Version:  version,
		Snapshot: s.Clone(),
		SavedAt:  r.now(),
	}
	r.records[s.ID] = rec
	return cloneRecord(rec), nil
}

// Load retrieves a flow by ID
func (r *Repository) Load(ctx context.Context, id string) (*flow.Record, error) {
	if id == "" {
		return nil, flow.ErrInvalidFlowID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, flow.ErrFlowNotFound
	}
	return cloneRecord(rec), nil
}

// List returns stored flows, most recently saved first
func (r *Repository) List(ctx context.Context, filter flow.ListFilter) ([]*flow.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]*flow.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter), nil
}

// Delete removes a flow by ID
func (r *Repository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return flow.ErrInvalidFlowID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return flow.ErrFlowNotFound
	}
	delete(r.records, id)
	return nil
}

func cloneRecord(rec *flow.Record) *flow.Record {
	c := *rec
	c.Snapshot = rec.Snapshot.Clone()
	return &c
}

func page(records []*flow.Record, filter flow.ListFilter) []*flow.Record {
	if filter.Offset >= len(records) {
		return []*flow.Record{}
	}
	records = records[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(records) {
		records = records[:filter.Limit]
	}
	return records
}
