package chatflow

import (
	"context"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/adapters/repository/memory"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/services"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/usecases"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

// Re-export flow types for convenience
type (
	Snapshot   = flow.Snapshot
	Node       = flow.Node
	Edge       = flow.Edge
	NodeType   = flow.NodeType
	NodeData   = flow.NodeData
	Position   = flow.Position
	Record     = flow.Record
	Repository = flow.Repository
	Verdict    = validation.Verdict
)

// Re-export commands and results
type (
	Command        = dto.Command
	CommandResult  = dto.CommandResult
	SaveResult     = dto.SaveResult
	Notification   = dto.Notification
	AddNode        = dto.AddNode
	UpdateNodeData = dto.UpdateNodeData
	MoveNode       = dto.MoveNode
	Connect        = dto.Connect
	Disconnect     = dto.Disconnect
	RemoveNode     = dto.RemoveNode
	SelectNode     = dto.SelectNode
	ClearSelection = dto.ClearSelection
)

// NodeTypeTextMessage is the message node of the palette
const NodeTypeTextMessage = flow.NodeTypeTextMessage

type options struct {
	repo   flow.Repository
	id     string
	name   string
	strict bool
}

// Option configures a Runtime
type Option func(*options)

// WithRepository stores saved flows in repo instead of memory
func WithRepository(repo Repository) Option {
	return func(o *options) { o.repo = repo }
}

// WithFlow sets the ID and name of the flow being edited
func WithFlow(id, name string) Option {
	return func(o *options) { o.id, o.name = id, name }
}

// WithStrictValidation also rejects saves with nodes unreachable from the start
func WithStrictValidation(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// Runtime edits one flow and keeps the notifications its saves produce.
type Runtime struct {
	editor *usecases.Editor
	notes  *services.MemoryNotifier
}

// NewRuntime constructs a runtime backed by an in-memory repository unless
// WithRepository is given.
func NewRuntime(opts ...Option) *Runtime {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.repo == nil {
		o.repo = memory.NewRepository()
	}

	notes := services.NewMemoryNotifier(0)
	editorOpts := []usecases.EditorOption{
		usecases.WithRepository(o.repo),
		usecases.WithNotifier(notes),
		usecases.WithStrictValidation(o.strict),
	}
	if o.id != "" {
		editorOpts = append(editorOpts, usecases.WithGraph(flow.NewGraph(o.id, o.name)))
	}

	return &Runtime{editor: usecases.NewEditor(editorOpts...), notes: notes}
}

// Apply runs one edit command
func (rt *Runtime) Apply(ctx context.Context, cmd Command) (*CommandResult, error) {
	return rt.editor.Apply(ctx, cmd)
}

// Validate reports whether the flow may be saved
func (rt *Runtime) Validate() Verdict {
	return rt.editor.Validate()
}

// Save validates and persists the flow
func (rt *Runtime) Save(ctx context.Context) (*SaveResult, error) {
	return rt.editor.Save(ctx)
}

// Load replaces the flow with a saved one
func (rt *Runtime) Load(ctx context.Context, id string) (*Record, error) {
	return rt.editor.Load(ctx, id)
}

// Snapshot returns a copy of the flow
func (rt *Runtime) Snapshot() *Snapshot {
	return rt.editor.Snapshot()
}

// Notifications returns up to limit notifications, newest first
func (rt *Runtime) Notifications(limit int) []Notification {
	return rt.notes.Recent(limit)
}

// ValidateFlow runs the save-time validation on any snapshot
func ValidateFlow(s *Snapshot) Verdict {
	return validation.ValidateFlow(s)
}
