package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/serialization"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

const maxDocumentBytes = 4 << 20

type updateDataRequest struct {
	Data map[string]interface{} `json:"data" validate:"required"`
}

type flowSummary struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Version int64     `json:"version"`
	Nodes   int       `json:"nodes"`
	Edges   int       `json:"edges"`
	SavedAt time.Time `json:"saved_at"`
}

func (s *Server) nodeTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.NodeTypes())
}

func (s *Server) getFlow(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.View())
}

// apply runs a command and answers with its result. Ignored commands are
// still 200; the body carries applied=false and the reason.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, cmd dto.Command, created int) {
	res, err := s.editor.Apply(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Applied && created != 0 {
		status = created
	}
	writeJSON(w, status, res)
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	var cmd dto.AddNode
	if err := validation.DecodeJSON(r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.apply(w, r, cmd, http.StatusCreated)
}

func (s *Server) updateNodeData(w http.ResponseWriter, r *http.Request) {
	var req updateDataRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.apply(w, r, dto.UpdateNodeData{NodeID: chi.URLParam(r, "nodeID"), Data: req.Data}, 0)
}

func (s *Server) moveNode(w http.ResponseWriter, r *http.Request) {
	var pos flow.Position
	if err := validation.DecodeJSON(r, &pos); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.apply(w, r, dto.MoveNode{NodeID: chi.URLParam(r, "nodeID"), Position: pos}, 0)
}

func (s *Server) removeNode(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, dto.RemoveNode{NodeID: chi.URLParam(r, "nodeID")}, 0)
}

func (s *Server) selectNode(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, dto.SelectNode{NodeID: chi.URLParam(r, "nodeID")}, 0)
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, dto.ClearSelection{}, 0)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var cmd dto.Connect
	if err := validation.DecodeJSON(r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.apply(w, r, cmd, http.StatusCreated)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, dto.Disconnect{EdgeID: chi.URLParam(r, "edgeID")}, 0)
}

func (s *Server) validate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Validate())
}

// save answers 200 when stored, 422 when the flow failed validation and an
// error status when the repository did.
func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	res, err := s.editor.Save(r.Context())
	switch {
	case err != nil:
		status := statusFor(err)
		if res == nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, status, res)
	case !res.Saved:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	notes := []dto.Notification{}
	if s.notifications != nil {
		notes = append(notes, s.notifications.Recent(limit)...)
	}
	writeJSON(w, http.StatusOK, notes)
}

// importFlow replaces the editor's flow with a JSON or YAML document
func (s *Server) importFlow(w http.ResponseWriter, r *http.Request) {
	codec := codecForContentType(r.Header.Get("Content-Type"))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var doc validation.FlowDocument
	if err := codec.Decode(body, &doc); err != nil {
		s.writeError(w, r, validation.ValidationErrors{{
			Field:   "request_body",
			Message: fmt.Sprintf("invalid %s: %v", codec.Name(), err),
		}})
		return
	}

	snap, err := validation.ParseDocument(&doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.editor.Import(snap); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editor.View())
}

// exportFlow writes the current flow as a document, JSON unless
// ?format=yaml is given.
func (s *Server) exportFlow(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	codec, err := serialization.CodecByName(format)
	if err != nil || codec.Name() == "msgpack" {
		s.writeError(w, r, validation.ValidationErrors{{
			Field:   "format",
			Value:   format,
			Message: "format must be json or yaml",
		}})
		return
	}

	data, err := codec.Encode(validation.DocumentFromSnapshot(s.editor.Snapshot()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contentType := "application/json"
	if codec.Name() == "yaml" {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		s.writeError(w, r, dto.ErrNoRepository)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.repo.List(r.Context(), flow.ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]flowSummary, 0, len(records))
	for _, rec := range records {
		sum := flowSummary{ID: rec.ID, Name: rec.Name, Version: rec.Version, SavedAt: rec.SavedAt}
		if rec.Snapshot != nil {
			sum.Nodes = len(rec.Snapshot.Nodes)
			sum.Edges = len(rec.Snapshot.Edges)
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) loadFlow(w http.ResponseWriter, r *http.Request) {
	if _, err := s.editor.Load(r.Context(), chi.URLParam(r, "flowID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editor.View())
}

func (s *Server) deleteFlow(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		s.writeError(w, r, dto.ErrNoRepository)
		return
	}
	if err := s.repo.Delete(r.Context(), chi.URLParam(r, "flowID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, validation.ValidationErrors{{
			Field:   key,
			Value:   raw,
			Message: key + " must be a non-negative integer",
		}}
	}
	return v, nil
}

func codecForContentType(contentType string) serialization.Codec {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return serialization.NewJSONCodec()
	}
	if strings.HasSuffix(mediaType, "yaml") || strings.HasSuffix(mediaType, "yml") {
		return serialization.NewYAMLCodec()
	}
	return serialization.NewJSONCodec()
}
