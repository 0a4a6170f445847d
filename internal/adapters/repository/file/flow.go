// Package file stores each flow as one serialized file in a directory
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/serialization"
)

// Repository implements flow.Repository on the filesystem. Files are named
// <id>.<extension>, where the extension comes from the serializer
// ("welcome.json", "welcome.msgpack.zstd").
type Repository struct {
	dir        string
	serializer *serialization.Serializer
	mu         sync.Mutex
	now        func() time.Time
}

// NewRepository creates dir if needed and returns a repository rooted there.
// A nil serializer writes indented JSON.
func NewRepository(dir string, serializer *serialization.Serializer) (*Repository, error) {
	if dir == "" {
		return nil, errors.New("flow directory is required")
	}
	if serializer == nil {
		serializer = serialization.NewSerializer(serialization.SerializationConfig{
			Codec: &serialization.JSONCodec{Indent: true},
		})
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create flow directory: %w", err)
	}
	return &Repository{dir: dir, serializer: serializer, now: time.Now}, nil
}

// WithClock overrides the save timestamp source
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// validFileID accepts IDs that are safe as a single path element
func validFileID(id string) bool {
	if id == "" || len(id) > 200 || strings.HasPrefix(id, ".") {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' || c == '.' {
			continue
		}
		return false
	}
	return true
}

func (r *Repository) path(id string) string {
	return filepath.Join(r.dir, id+"."+r.serializer.Extension())
}

// Save writes the snapshot, replacing the file atomically
func (r *Repository) Save(ctx context.Context, s *flow.Snapshot) (*flow.Record, error) {
	if err := flow.CheckSnapshot(s); err != nil {
		return nil, err
	}
	if !validFileID(s.ID) {
		return nil, fmt.Errorf("%w: %q is not usable as a file name", flow.ErrInvalidFlowID, s.ID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	version := int64(1)
	if prev, err := r.read(r.path(s.ID)); err == nil {
		version = prev.Version + 1
	} else if !errors.Is(err, flow.ErrFlowNotFound) {
		return nil, err
	}

	rec := &flow.Record{
		ID:       s.ID,
		Name:     s.Name,
		Version:  version,
		Snapshot: s.Clone(),
		SavedAt:  r.now().UTC(),
	}
	data, err := r.serializer.Serialize(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize flow: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".flow-*")
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path(s.ID)); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}
	return rec, nil
}

// Load retrieves a flow by ID
func (r *Repository) Load(ctx context.Context, id string) (*flow.Record, error) {
	if !validFileID(id) {
		return nil, flow.ErrInvalidFlowID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(r.path(id))
}

// List returns stored flows, most recently saved first. Files that do not
// decode are skipped.
func (r *Repository) List(ctx context.Context, filter flow.ListFilter) ([]*flow.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	suffix := "." + r.serializer.Extension()
	records := make([]*flow.Record, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			r.mu.Unlock()
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		rec, err := r.read(filepath.Join(r.dir, name))
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	r.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].SavedAt.Equal(records[j].SavedAt) {
			return records[i].SavedAt.After(records[j].SavedAt)
		}
		return records[i].ID < records[j].ID
	})

	if filter.Offset >= len(records) {
		return []*flow.Record{}, nil
	}
	records = records[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(records) {
		records = records[:filter.Limit]
	}
	return records, nil
}

// Delete removes a flow by ID
func (r *Repository) Delete(ctx context.Context, id string) error {
	if !validFileID(id) {
		return flow.ErrInvalidFlowID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return flow.ErrFlowNotFound
		}
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}

func (r *Repository) read(path string) (*flow.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, flow.ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to read flow: %w", err)
	}
	var rec flow.Record
	if err := r.serializer.Deserialize(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize flow: %w", err)
	}
	return &rec, nil
}
