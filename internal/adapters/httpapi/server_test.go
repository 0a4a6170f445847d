package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/adapters/repository/memory"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/services"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/usecases"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/metrics"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

type fixture struct {
	handler http.Handler
	repo    flow.Repository
	notes   *services.MemoryNotifier
}

func newFixture(t *testing.T, repo flow.Repository) *fixture {
	t.Helper()
	notes := services.NewMemoryNotifier(10)
	collector := metrics.NewCollector("chatflow")
	editor := usecases.NewEditor(
		usecases.WithGraph(flow.NewGraph("flow-1", "Test")),
		usecases.WithFactory(flow.NewFactory(flow.WithIDGenerator(flow.NewSequenceGenerator("node-", 1)))),
		usecases.WithRepository(repo),
		usecases.WithNotifier(notes),
		usecases.WithMetrics(collector),
	)
	srv := NewServer(Options{
		Editor:        editor,
		Repository:    repo,
		Notifications: notes,
		Metrics:       collector,
	})
	return &fixture{handler: srv.Routes(), repo: repo, notes: notes}
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	return f.do(t, method, path, "application/json", body)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, memory.NewRepository())

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNodeTypes(t *testing.T) {
	f := newFixture(t, memory.NewRepository())

	rec := f.do(t, http.MethodGet, "/api/v1/node-types", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(flow.NodeTypeTextMessage))
}

func TestEditingFlow(t *testing.T) {
	f := newFixture(t, memory.NewRepository())

	rec := f.doJSON(t, http.MethodPost, "/api/v1/nodes", `{"type":"textMessage","position":{"x":10,"y":20}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[dto.CommandResult](t, rec)
	require.NotNil(t, first.Node)
	assert.Equal(t, "node-1", first.Node.ID)
	assert.Equal(t, flow.Position{X: 10, Y: 20}, first.Node.Position)

	rec = f.doJSON(t, http.MethodPost, "/api/v1/nodes", `{"type":"textMessage"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.doJSON(t, http.MethodPost, "/api/v1/connections", `{"source":"node-1","target":"node-2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conn := decode[dto.CommandResult](t, rec)
	require.NotNil(t, conn.Edge)
	assert.Equal(t, flow.EdgeID("node-1", flow.HandleSource, "node-2", flow.HandleTarget), conn.Edge.ID)

	rec = f.doJSON(t, http.MethodPatch, "/api/v1/nodes/node-2/data", `{"data":{"text":"Thanks!"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Thanks!", decode[dto.CommandResult](t, rec).Node.Data.Text())

	rec = f.doJSON(t, http.MethodPut, "/api/v1/nodes/node-2/position", `{"x":5,"y":6}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/nodes/node-2/select", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/flow", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[dto.FlowView](t, rec)
	require.NotNil(t, view.Flow)
	assert.Len(t, view.Flow.Nodes, 2)
	assert.Len(t, view.Flow.Edges, 1)
	require.NotNil(t, view.Selected)
	assert.Equal(t, "node-2", view.Selected.ID)
	assert.Equal(t, flow.Position{X: 5, Y: 6}, view.Selected.Position)

	rec = f.do(t, http.MethodPost, "/api/v1/selection/clear", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/edges/"+conn.Edge.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.CommandResult](t, rec).Applied)

	rec = f.do(t, http.MethodDelete, "/api/v1/nodes/node-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view = decode[dto.FlowView](t, f.do(t, http.MethodGet, "/api/v1/flow", "", ""))
	assert.Len(t, view.Flow.Nodes, 1)
	assert.Empty(t, view.Flow.Edges)
	assert.Nil(t, view.Selected)
}

func TestCommandErrors(t *testing.T) {
	f := newFixture(t, memory.NewRepository())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		field  string
	}{
		{"unknown node type", http.MethodPost, "/api/v1/nodes", `{"type":"carousel"}`, http.StatusBadRequest, "type"},
		{"malformed body", http.MethodPost, "/api/v1/nodes", `{"type":`, http.StatusBadRequest, "request_body"},
		{"unknown field", http.MethodPost, "/api/v1/nodes", `{"type":"textMessage","colour":"red"}`, http.StatusBadRequest, "request_body"},
		{"connect without target", http.MethodPost, "/api/v1/connections", `{"source":"a"}`, http.StatusBadRequest, "target"},
		{"data missing", http.MethodPatch, "/api/v1/nodes/a/data", `{}`, http.StatusBadRequest, "data"},
		{"bad notification limit", http.MethodGet, "/api/v1/notifications?limit=x", "", http.StatusBadRequest, "limit"},
		{"bad list offset", http.MethodGet, "/api/v1/flows?offset=-1", "", http.StatusBadRequest, "offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.doJSON(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			errs, err := validation.UnmarshalValidationErrors(rec.Body.Bytes())
			require.NoError(t, err)
			assert.Contains(t, errs.Fields(), tt.field)
		})
	}
}

func TestUpdateNodeDataRejectsBadText(t *testing.T) {
	f := newFixture(t, memory.NewRepository())
	rec := f.doJSON(t, http.MethodPost, "/api/v1/nodes", `{"type":"textMessage"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, body := range []string{`{"data":{"text":null}}`, `{"data":{"text":42}}`} {
		t.Run(body, func(t *testing.T) {
			rec := f.doJSON(t, http.MethodPatch, "/api/v1/nodes/node-1/data", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	view := decode[dto.FlowView](t, f.do(t, http.MethodGet, "/api/v1/flow", "", ""))
	require.Len(t, view.Flow.Nodes, 1)
	assert.Equal(t, "New message", view.Flow.Nodes[0].Data.Text())
}

func TestStaleCommandsAreIgnored(t *testing.T) {
	f := newFixture(t, memory.NewRepository())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"update", http.MethodPatch, "/api/v1/nodes/ghost/data", `{"data":{"text":"x"}}`},
		{"move", http.MethodPut, "/api/v1/nodes/ghost/position", `{"x":1,"y":1}`},
		{"remove", http.MethodDelete, "/api/v1/nodes/ghost", ""},
		{"select", http.MethodPost, "/api/v1/nodes/ghost/select", ""},
		{"disconnect", http.MethodDelete, "/api/v1/edges/missing", ""},
		{"connect", http.MethodPost, "/api/v1/connections", `{"source":"ghost","target":"other"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.doJSON(t, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			res := decode[dto.CommandResult](t, rec)
			assert.False(t, res.Applied)
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestSave(t *testing.T) {
	t.Run("invalid flow", func(t *testing.T) {
		f := newFixture(t, memory.NewRepository())
		f.doJSON(t, http.MethodPost, "/api/v1/nodes", `{"type":"textMessage"}`)
		f.doJSON(t, http.MethodPost, "/api/v1/nodes", `{"type":"textMessage"}`)

		rec := f.do(t, http.MethodGet, "/api/v1/validate", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode[validation.Verdict](t, rec).IsValid)

		rec = f.do(t, http.MethodPost, "/api/v1/save", "", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		res := decode[dto.SaveResult](t, rec)
		assert.False(t, res.Saved)
		assert.Equal(t, validation.MessageMultipleStarts, res.Verdict.Message)

		notes := decode[[]dto.Notification](t, f.do(t, http.MethodGet, "/api/v1/notifications", "", ""))
		require.Len(t, notes, 1)
		assert.Equal(t, dto.TitleValidationError, notes[0].Title)
		assert.Equal(t, dto.SeverityDestructive, notes[0].Severity)

		_, err := f.repo.Load(context.Background(), "flow-1")
		assert.ErrorIs(t, err, flow.ErrFlowNotFound)
	})

	t.Run("valid flow", func(t *testing.T) {
		f := newFixture(t, memory.NewRepository())
		f.doJSON(t, http.MethodPost, "/api/v1/nodes", `{"type":"textMessage"}`)

		rec := f.do(t, http.MethodPost, "/api/v1/save", "", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[dto.SaveResult](t, rec)
		assert.True(t, res.Saved)
		require.NotNil(t, res.Record)
		assert.Equal(t, int64(1), res.Record.Version)

		notes := decode[[]dto.Notification](t, f.do(t, http.MethodGet, "/api/v1/notifications?limit=1", "", ""))
		require.Len(t, notes, 1)
		assert.Equal(t, dto.TitleSuccess, notes[0].Title)
		assert.Equal(t, dto.MessageSaved, notes[0].Description)

		rec = f.do(t, http.MethodGet, "/api/v1/flows", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		flows := decode[[]flowSummary](t, rec)
		require.Len(t, flows, 1)
		assert.Equal(t, "flow-1", flows[0].ID)
		assert.Equal(t, 1, flows[0].Nodes)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(t, failingRepo{})
		rec := f.do(t, http.MethodPost, "/api/v1/save", "", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		res := decode[dto.SaveResult](t, rec)
		assert.False(t, res.Saved)
		assert.Contains(t, res.Error, "disk full")

		notes := f.notes.Recent(1)
		require.Len(t, notes, 1)
		assert.Equal(t, dto.TitleSaveFailed, notes[0].Title)
	})

	t.Run("no repository", func(t *testing.T) {
		f := newFixture(t, nil)
		rec := f.do(t, http.MethodPost, "/api/v1/save", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/v1/flows", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

const importYAML = `
id: imported
name: Imported
nodes:
  - id: a
    type: textMessage
    position: {x: 0, y: 0}
    data: {text: hello}
  - id: b
    type: textMessage
    position: {x: 200, y: 0}
    data: {text: bye}
edges:
  - source: a
    target: b
`

func TestImportExport(t *testing.T) {
	f := newFixture(t, memory.NewRepository())

	rec := f.do(t, http.MethodPut, "/api/v1/flow", "application/yaml", importYAML)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[dto.FlowView](t, rec)
	assert.Equal(t, "imported", view.Flow.ID)
	assert.Len(t, view.Flow.Nodes, 2)
	require.Len(t, view.Flow.Edges, 1)
	assert.Equal(t, flow.EdgeID("a", flow.HandleSource, "b", flow.HandleTarget), view.Flow.Edges[0].ID)

	rec = f.do(t, http.MethodGet, "/api/v1/flow/export?format=yaml", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "id: imported")

	rec = f.do(t, http.MethodGet, "/api/v1/flow/export", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[validation.FlowDocument](t, rec)
	assert.Equal(t, "imported", doc.ID)
	assert.Len(t, doc.Nodes, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/flow/export?format=msgpack", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("json round trip", func(t *testing.T) {
		rec := f.doJSON(t, http.MethodPut, "/api/v1/flow", string(mustJSON(t, doc)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("dangling edge", func(t *testing.T) {
		body := `{"id":"x","nodes":[{"id":"a","type":"textMessage","data":{"text":"hi"}}],"edges":[{"source":"a","target":"zzz"}]}`
		rec := f.doJSON(t, http.MethodPut, "/api/v1/flow", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("fan-out", func(t *testing.T) {
		body := `{"id":"x","nodes":[
			{"id":"a","type":"textMessage","data":{"text":"1"}},
			{"id":"b","type":"textMessage","data":{"text":"2"}},
			{"id":"c","type":"textMessage","data":{"text":"3"}}],
			"edges":[{"source":"a","target":"b"},{"source":"a","target":"c"}]}`
		rec := f.doJSON(t, http.MethodPut, "/api/v1/flow", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("repeated edge ID", func(t *testing.T) {
		body := `{"id":"x","nodes":[
			{"id":"a","type":"textMessage","data":{"text":"1"}},
			{"id":"b","type":"textMessage","data":{"text":"2"}},
			{"id":"c","type":"textMessage","data":{"text":"3"}}],
			"edges":[{"id":"e1","source":"a","target":"b"},{"id":"e1","source":"b","target":"c"}]}`
		rec := f.doJSON(t, http.MethodPut, "/api/v1/flow", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("numeric text", func(t *testing.T) {
		body := `{"id":"x","nodes":[{"id":"a","type":"textMessage","data":{"text":7}}],"edges":[]}`
		rec := f.doJSON(t, http.MethodPut, "/api/v1/flow", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("broken yaml", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/api/v1/flow", "text/yaml", "nodes: [")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		errs, err := validation.UnmarshalValidationErrors(rec.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, []string{"request_body"}, errs.Fields())
	})
}

func TestLoadAndDeleteFlows(t *testing.T) {
	repo := memory.NewRepository()
	stored := &flow.Snapshot{ID: "welcome", Name: "Welcome", Nodes: []*flow.Node{{
		ID: "greet", Type: flow.NodeTypeTextMessage, Data: flow.NodeData{"text": "Hi"},
	}}}
	_, err := repo.Save(context.Background(), stored)
	require.NoError(t, err)

	f := newFixture(t, repo)

	rec := f.do(t, http.MethodPost, "/api/v1/flows/welcome/load", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[dto.FlowView](t, rec)
	assert.Equal(t, "welcome", view.Flow.ID)
	require.Len(t, view.Flow.Nodes, 1)
	assert.Equal(t, "greet", view.Flow.Nodes[0].ID)

	rec = f.do(t, http.MethodPost, "/api/v1/flows/missing/load", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/flows/welcome", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/flows/welcome", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, memory.NewRepository())
	f.doJSON(t, http.MethodPost, "/api/v1/nodes", `{"type":"textMessage"}`)

	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "chatflow_http_requests_total")
	assert.Contains(t, body, `route="/api/v1/nodes`)
	assert.Contains(t, body, "chatflow_nodes_created_total 1")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", dto.ErrInvalidCommand), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", flow.ErrDuplicateSourceEdge), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", flow.ErrDuplicateEdge), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", flow.ErrInvalidNodeData), http.StatusBadRequest},
		{flow.ErrFlowNotFound, http.StatusNotFound},
		{dto.ErrNoRepository, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

type failingRepo struct{}

func (failingRepo) Save(context.Context, *flow.Snapshot) (*flow.Record, error) {
	return nil, errors.New("disk full")
}

func (failingRepo) Load(context.Context, string) (*flow.Record, error) {
	return nil, flow.ErrFlowNotFound
}

func (failingRepo) List(context.Context, flow.ListFilter) ([]*flow.Record, error) {
	return nil, nil
}

func (failingRepo) Delete(context.Context, string) error { return nil }

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
