// Package flow provides flow persistence interfaces
package flow

import (
	"context"
	"time"
)

// Record is a persisted flow
type Record struct {
	ID       string    `json:"id" yaml:"id" msgpack:"id"`
	Name     string    `json:"name" yaml:"name" msgpack:"name"`
	Version  int64     `json:"version" yaml:"version" msgpack:"version"`
	Snapshot *Snapshot `json:"snapshot" yaml:"snapshot" msgpack:"snapshot"`
	SavedAt  time.Time `json:"saved_at" yaml:"saved_at" msgpack:"saved_at"`
}

// Repository persists validated snapshots. Implementations live under
// internal/adapters/repository.
type Repository interface {
	// Save stores the snapshot under its ID, bumping the version on overwrite
	Save(ctx context.Context, snapshot *Snapshot) (*Record, error)

	// Load retrieves a flow by ID
	Load(ctx context.Context, id string) (*Record, error)

	// List returns stored flows, most recently saved first
	List(ctx context.Context, filter ListFilter) ([]*Record, error)

	// Delete removes a flow by ID
	Delete(ctx context.Context, id string) error
}

// ListFilter pages through stored flows
type ListFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *ListFilter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	return nil
}

// CheckSnapshot is the shared precondition of Repository.Save
func CheckSnapshot(s *Snapshot) error {
	if s == nil {
		return ErrNilSnapshot
	}
	if s.ID == "" {
		return ErrInvalidFlowID
	}
	return nil
}
