package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/metrics"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

// DefaultFlowName names flows created without one
const DefaultFlowName = "Untitled flow"

// Editor is the single owner of a flow graph. Commands are applied one at a
// time under its mutex; saves validate a snapshot and hand it to the
// repository without holding the lock.
type Editor struct {
	mu       sync.Mutex
	graph    *flow.Graph
	selected string

	factory  *flow.Factory
	resolver *flow.Resolver
	repo     FlowRepository
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Collector
	strict   bool
	initial  []*flow.Node
	now      func() time.Time
}

// EditorOption configures an Editor
type EditorOption func(*Editor)

// WithGraph starts the editor on an existing graph
func WithGraph(g *flow.Graph) EditorOption {
	return func(e *Editor) { e.graph = g }
}

func WithFactory(f *flow.Factory) EditorOption {
	return func(e *Editor) { e.factory = f }
}

func WithResolver(r *flow.Resolver) EditorOption {
	return func(e *Editor) { e.resolver = r }
}

func WithRepository(r FlowRepository) EditorOption {
	return func(e *Editor) { e.repo = r }
}

func WithNotifier(n Notifier) EditorOption {
	return func(e *Editor) { e.notifier = n }
}

func WithLogger(l *zap.Logger) EditorOption {
	return func(e *Editor) { e.logger = l }
}

func WithMetrics(m *metrics.Collector) EditorOption {
	return func(e *Editor) { e.metrics = m }
}

// WithStrictValidation enables the reachability walk on save
func WithStrictValidation(strict bool) EditorOption {
	return func(e *Editor) { e.strict = strict }
}

// WithInitialNodes seeds an empty graph with nodes when the editor is created
func WithInitialNodes(nodes ...*flow.Node) EditorOption {
	return func(e *Editor) { e.initial = append(e.initial, nodes...) }
}

// NewEditor creates an editor. Without options it edits a new empty flow,
// generates UUID node IDs and has no repository, so Save reports
// ErrNoRepository for valid flows.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.graph == nil {
		e.graph = flow.NewGraph(uuid.NewString(), DefaultFlowName)
	}
	if e.factory == nil {
		e.factory = flow.NewFactory()
	}
	if e.resolver == nil {
		e.resolver = flow.NewResolver()
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.graph.Len() == 0 {
		for _, n := range e.initial {
			if err := e.graph.AddNode(n); err != nil {
				e.logger.Warn("skipping initial node", zap.Error(err))
			}
		}
	}
	return e
}

// Apply validates and applies one command. Commands whose target no longer
// exists, and connections the resolver refuses, come back with
// Applied=false and no error. Payloads that fail validation return
// ErrInvalidCommand.
func (e *Editor) Apply(ctx context.Context, cmd dto.Command) (*dto.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: %w", dto.ErrInvalidCommand, dto.ErrNilCommand)
	}
	if err := validation.ValidateStruct(cmd); err != nil {
		e.metrics.CommandRejected(string(cmd.Kind()))
		return nil, fmt.Errorf("%w: %w", dto.ErrInvalidCommand, err)
	}

	e.mu.Lock()
	res, err := e.apply(cmd)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, dto.ErrInvalidCommand) {
			e.metrics.CommandRejected(string(cmd.Kind()))
		}
		return nil, err
	}

	e.metrics.CommandApplied(string(res.Kind), res.Applied)
	if !res.Applied {
		e.logger.Debug("command ignored",
			zap.String("kind", string(res.Kind)),
			zap.String("reason", res.Reason))
	}
	return res, nil
}

// apply runs with e.mu held
func (e *Editor) apply(cmd dto.Command) (*dto.CommandResult, error) {
	res := &dto.CommandResult{Kind: cmd.Kind()}

	switch c := cmd.(type) {
	case dto.AddNode:
		node, err := e.createNode(c)
		if err != nil {
			return nil, err
		}
		if err := e.graph.AddNode(node); err != nil {
			return nil, err
		}
		e.metrics.NodeCreated()
		res.Applied = true
		res.Node, _ = e.graph.Node(node.ID)

	case dto.UpdateNodeData:
		node, ok := e.graph.Node(c.NodeID)
		if !ok {
			res.Reason = "node not found"
			break
		}
		if spec, known := flow.LookupType(node.Type); known {
			if err := spec.CheckData(flow.NodeData(c.Data)); err != nil {
				return nil, fmt.Errorf("%w: %w", dto.ErrInvalidCommand, err)
			}
		}
		e.graph.UpdateNodeData(c.NodeID, flow.NodeData(c.Data))
		res.Applied = true
		res.Node, _ = e.graph.Node(c.NodeID)

	case dto.MoveNode:
		if !e.graph.MoveNode(c.NodeID, c.Position) {
			res.Reason = "node not found"
			break
		}
		res.Applied = true
		res.Node, _ = e.graph.Node(c.NodeID)

	case dto.Connect:
		conn, err := e.resolver.Connect(e.graph, c.Request())
		if err != nil {
			res.Reason = err.Error()
			break
		}
		e.metrics.Connected(conn.Replaced != nil)
		res.Applied = true
		res.Edge = conn.Edge
		res.Replaced = conn.Replaced

	case dto.Disconnect:
		if !e.resolver.Disconnect(e.graph, c.EdgeID) {
			res.Reason = "edge not found"
			break
		}
		res.Applied = true

	case dto.RemoveNode:
		if !e.graph.RemoveNode(c.NodeID) {
			res.Reason = "node not found"
			break
		}
		if e.selected == c.NodeID {
			e.selected = ""
		}
		e.metrics.NodeRemoved()
		res.Applied = true

	case dto.SelectNode:
		if !e.graph.HasNode(c.NodeID) {
			res.Reason = "node not found"
			break
		}
		e.selected = c.NodeID
		res.Applied = true
		res.Node, _ = e.graph.Node(c.NodeID)

	case dto.ClearSelection:
		e.selected = ""
		res.Applied = true

	default:
		return nil, fmt.Errorf("%w: %T", dto.ErrUnsupportedCommand, cmd)
	}

	return res, nil
}

func (e *Editor) createNode(c dto.AddNode) (*flow.Node, error) {
	t := flow.NodeType(c.Type)
	if c.Position != nil {
		return e.factory.CreateNodeAt(t, *c.Position, e.graph)
	}
	return e.factory.CreateNode(t, e.graph)
}

// Validate runs the flow validator against the current graph without
// notifying anyone.
func (e *Editor) Validate() validation.Verdict {
	return e.validate(e.Snapshot())
}

func (e *Editor) validate(s *flow.Snapshot) validation.Verdict {
	v := validation.ValidateFlow(s, validation.FlowValidationOptions{Strict: e.strict})
	e.metrics.Validated(v.IsValid)
	return v
}

// Save validates the current flow and, when it is valid, persists it. An
// invalid flow is not an error: the verdict is returned and the user is
// notified. A repository failure is notified and returned wrapped in
// ErrSaveFailed.
func (e *Editor) Save(ctx context.Context) (*dto.SaveResult, error) {
	snap := e.Snapshot()
	verdict := e.validate(snap)
	res := &dto.SaveResult{Verdict: verdict}

	if !verdict.IsValid {
		e.metrics.SaveOutcome(metrics.OutcomeInvalid)
		e.notify(ctx, dto.TitleValidationError, verdict.Message, dto.SeverityDestructive)
		return res, nil
	}

	rec, err := e.persist(ctx, snap)
	if err != nil {
		e.metrics.SaveOutcome(metrics.OutcomeFailed)
		e.logger.Error("flow save failed", zap.String("flow_id", snap.ID), zap.Error(err))
		e.notify(ctx, dto.TitleSaveFailed, err.Error(), dto.SeverityDestructive)
		err = fmt.Errorf("%w: %w", dto.ErrSaveFailed, err)
		res.Err = err
		res.Error = err.Error()
		return res, err
	}

	e.metrics.SaveOutcome(metrics.OutcomeSaved)
	e.logger.Info("flow saved",
		zap.String("flow_id", rec.ID),
		zap.Int64("version", rec.Version),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)))
	e.notify(ctx, dto.TitleSuccess, dto.MessageSaved, dto.SeverityDefault)
	res.Saved = true
	res.Record = rec
	return res, nil
}

func (e *Editor) persist(ctx context.Context, snap *flow.Snapshot) (*flow.Record, error) {
	if e.repo == nil {
		return nil, dto.ErrNoRepository
	}
	start := e.now()
	rec, err := e.repo.Save(ctx, snap)
	e.metrics.ObserveRepository("save", e.now().Sub(start))
	return rec, err
}

// SaveAsync runs Save in a goroutine. The channel yields exactly one result
// and is then closed.
func (e *Editor) SaveAsync(ctx context.Context) <-chan dto.SaveResult {
	out := make(chan dto.SaveResult, 1)
	go func() {
		defer close(out)
		res, err := e.Save(ctx)
		if res == nil {
			res = &dto.SaveResult{}
		}
		if err != nil {
			res.Err = err
			res.Error = err.Error()
		}
		out <- *res
	}()
	return out
}

func (e *Editor) notify(ctx context.Context, title, description string, severity dto.Severity) {
	e.notifier.Notify(ctx, dto.Notification{
		Title:       title,
		Description: description,
		Severity:    severity,
		CreatedAt:   e.now(),
	})
}

// Load replaces the graph with a stored flow and clears the selection
func (e *Editor) Load(ctx context.Context, id string) (*flow.Record, error) {
	if e.repo == nil {
		return nil, dto.ErrNoRepository
	}
	rec, err := e.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.Import(rec.Snapshot); err != nil {
		return nil, err
	}
	return rec, nil
}

// Import replaces the graph with the snapshot after a structural check
func (e *Editor) Import(s *flow.Snapshot) error {
	if err := validation.ValidateSnapshot(s); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.Restore(s); err != nil {
		return err
	}
	e.selected = ""
	return nil
}

// Snapshot returns a deep copy of the current flow
func (e *Editor) Snapshot() *flow.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Snapshot()
}

// View returns the flow together with the selected node
func (e *Editor) View() *dto.FlowView {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := &dto.FlowView{Flow: e.graph.Snapshot()}
	if e.selected != "" {
		v.Selected, _ = e.graph.Node(e.selected)
	}
	return v
}

// Selected returns a copy of the node open in the settings panel
func (e *Editor) Selected() (*flow.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == "" {
		return nil, false
	}
	return e.graph.Node(e.selected)
}

// NodeTypes lists the node palette
func (e *Editor) NodeTypes() []flow.TypeSpec {
	return flow.NodeTypes()
}
