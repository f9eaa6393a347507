package server

import (
	"net/http"
	"strconv"

	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/observability"
	"github.com/matzehuels/lanemap/pkg/pipeline"
	"github.com/matzehuels/lanemap/pkg/placement"
	"github.com/matzehuels/lanemap/pkg/process"
	"github.com/matzehuels/lanemap/pkg/store"
)

type workflowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := s.runner.Store.Workflows(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if wfs == nil {
		wfs = []process.Workflow{}
	}
	writeJSON(w, http.StatusOK, wfs)
}

func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	wf, err := s.runner.Store.CreateWorkflow(r.Context(), req.Name, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

type snapshotResponse struct {
	process.Snapshot
	Issues []string `json:"issues,omitempty"`
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, issues, err := s.runner.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := snapshotResponse{Snapshot: snap}
	for _, is := range issues {
		resp.Issues = append(resp.Issues, is.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createStep(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var rec process.StepRecord
	if err := decode(r, &rec); err != nil {
		s.writeError(w, err)
		return
	}
	st, issue := rec.ToStep()
	if issue != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, issue.Err, "invalid connections"))
		return
	}
	created, err := s.runner.Store.CreateStep(r.Context(), id, st)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// getDiagram serves one rendered format of a workflow's current diagram.
func (s *Server) getDiagram(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		opts := s.opts
		opts.Formats = []string{format}
		q := r.URL.Query()
		if v := q.Get("renderer"); v != "" {
			if err := pipeline.ValidateRenderer(v); err != nil {
				s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "renderer"))
				return
			}
			opts.Renderer = v
		}
		opts.Title = opts.Title || truthy(q.Get("title"))
		opts.Detailed = opts.Detailed || truthy(q.Get("detailed"))
		opts.Refresh = truthy(q.Get("refresh"))

		res, err := s.runner.Execute(r.Context(), id, opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("ETag", strconv.Quote(res.DiagramHash))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Artifacts[format])
	}
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

type dragRequest struct {
	StepID int64   `json:"stepId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type dropRequest struct {
	StepID   int64   `json:"stepId"`
	Swimlane string  `json:"swimlane"`
	X        float64 `json:"x"`
}

type commitResponse struct {
	Gesture string            `json:"gesture"`
	Request placement.Request `json:"request"`
	Applied bool              `json:"applied"`
	Address string            `json:"address,omitempty"`
	Diagram *diagram.Diagram  `json:"diagram,omitempty"`
}

func newCommitResponse(c *pipeline.Commit) commitResponse {
	resp := commitResponse{
		Gesture: c.Gesture,
		Request: c.Request,
		Applied: c.Applied,
		Address: c.Address,
	}
	if c.Result != nil {
		resp.Diagram = c.Result.Diagram
	}
	return resp
}

func (s *Server) drag(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req dragRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.runner.Drag(r.Context(), id, req.StepID, req.X, req.Y, s.commitOptions())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCommitResponse(c))
}

func (s *Server) drop(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req dropRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Swimlane == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "swimlane is required"))
		return
	}
	c, err := s.runner.Drop(r.Context(), id, req.StepID, req.Swimlane, req.X, s.commitOptions())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCommitResponse(c))
}

// commitOptions are the options for the refresh that follows a commit. Only
// the JSON diagram is needed.
func (s *Server) commitOptions() pipeline.Options {
	opts := s.opts
	opts.Formats = []string{pipeline.FormatJSON}
	return opts
}

func (s *Server) listSwimlanes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, _, err := s.runner.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rows := snap.Rows
	if rows == nil {
		rows = []process.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) saveSwimlane(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var rec process.RowRecord
	if err := decode(r, &rec); err != nil {
		s.writeError(w, err)
		return
	}
	row, err := s.runner.Store.SaveRow(r.Context(), id, rec.ToRow())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

type positionRequest struct {
	GridLocation string `json:"grid_location"`
}

type positionResponse struct {
	ID           int64  `json:"id"`
	GridLocation string `json:"grid_location"`
}

// updatePosition stores an address for a step outside any gesture, the way
// the step edit form does.
func (s *Server) updatePosition(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req positionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	hooks := observability.Pipeline()
	addr, err := s.runner.Store.UpdateStepAddress(r.Context(), id, req.GridLocation)
	if err != nil {
		outcome := observability.CommitFailed
		if errors.IsValidation(err) {
			outcome = observability.CommitRejected
		}
		hooks.OnCommit(r.Context(), pipeline.GestureEdit, outcome)
		s.writeError(w, err)
		return
	}
	hooks.OnCommit(r.Context(), pipeline.GestureEdit, observability.CommitApplied)
	writeJSON(w, http.StatusOK, positionResponse{ID: id, GridLocation: addr})
}

func (s *Server) deleteStep(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.runner.Store.DeleteStep(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stepAudit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	entries, err := s.runner.Store.Audit(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
