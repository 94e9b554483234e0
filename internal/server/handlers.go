package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/fasta"
	"github.com/poagraph/poagraph/pkg/msa"
	"github.com/poagraph/poagraph/pkg/pipeline"
	"github.com/poagraph/poagraph/pkg/poa"
	"github.com/poagraph/poagraph/pkg/store"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 32 << 20 // 32 MB

// cacheHeader reports whether a derived artifact came from the cache.
const cacheHeader = "X-Poagraph-Cache"

// ============================================================================
// Wire types
// ============================================================================

// GraphInfo describes one live graph session.
type GraphInfo struct {
	ID        string    `json:"id"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Sequences int       `json:"sequences"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddedSequence reports one sequence accepted into a graph. Score is
// meaningful only when Aligned is true; the first sequence threads
// directly and never aligns.
type AddedSequence struct {
	Name    string `json:"name"`
	Aligned bool   `json:"aligned"`
	Score   int    `json:"score"`
}

// CreateGraphRequest creates a graph, optionally seeded with sequences.
type CreateGraphRequest struct {
	Sequences []pipeline.Input `json:"sequences,omitempty"`
	Options   pipeline.Options `json:"options"`
}

// AddSequencesRequest appends sequences to an existing graph.
type AddSequencesRequest struct {
	Sequences []pipeline.Input `json:"sequences"`
	Options   pipeline.Options `json:"options"`
}

// SaveGraphRequest persists a session's graph under a name.
type SaveGraphRequest struct {
	Name string `json:"name"`
}

// GraphResponse is the session state after a create or add.
type GraphResponse struct {
	GraphInfo
	Added []AddedSequence `json:"added,omitempty"`
}

// ListGraphsResponse enumerates live sessions.
type ListGraphsResponse struct {
	Graphs []GraphInfo `json:"graphs"`
}

// ListStoredResponse enumerates persisted graphs.
type ListStoredResponse struct {
	Graphs []store.GraphInfo `json:"graphs"`
}

// HealthResponse is the healthz/readyz payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse carries a user-facing message and the error code.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ============================================================================
// Health
// ============================================================================

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Version: s.version})
}

// ============================================================================
// Graph sessions
// ============================================================================

func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var req CreateGraphRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.runner.Build(r.Context(), req.Sequences, req.Options)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess := s.registry.Create(result.Graph)
	resp := GraphResponse{GraphInfo: s.sessionInfo(sess)}
	for _, a := range result.Added {
		resp.Added = append(resp.Added, AddedSequence{
			Name:    a.Sequence.Name,
			Aligned: a.Aligned,
			Score:   a.Score,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()
	resp := ListGraphsResponse{Graphs: make([]GraphInfo, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Graphs = append(resp.Graphs, s.sessionInfo(sess))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionInfo(sess))
}

func (s *Server) DestroyGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Delete(id) {
		s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeNotFound, "graph %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSequences aligns and threads each sequence in order. Sequences are
// applied one at a time; when one fails, the ones before it stay in the
// graph and the response reports the failure.
func (s *Server) AddSequences(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req AddSequencesRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Sequences) == 0 {
		s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "no sequences provided"))
		return
	}

	var added []AddedSequence
	err := sess.Write(func(g *poa.Graph) error {
		for _, in := range req.Sequences {
			res, err := s.runner.AddSequence(r.Context(), g, in, req.Options)
			if err != nil {
				return err
			}
			added = append(added, AddedSequence{
				Name:    res.Sequence.Name,
				Aligned: res.Aligned,
				Score:   res.Score,
			})
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GraphResponse{
		GraphInfo: s.sessionInfo(sess),
		Added:     added,
	})
}

// ============================================================================
// Derived artifacts
// ============================================================================

// GetMSA returns the multiple sequence alignment as JSON, or as aligned
// FASTA when format=fasta is given.
func (s *Server) GetMSA(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "fasta" {
		s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "unknown msa format %q, want json or fasta", format))
		return
	}

	var (
		rows msa.Alignment
		hit  bool
	)
	err := sess.Read(func(g *poa.Graph) error {
		var err error
		rows, hit, err = s.runner.MSAWithCacheInfo(r.Context(), g)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set(cacheHeader, cacheState(hit))
	if format == "fasta" {
		records := make([]fasta.Record, len(rows.Rows))
		for i, row := range rows.Rows {
			records[i] = fasta.Record{Name: row.Name, Sequence: row.Aligned}
		}
		var buf bytes.Buffer
		if err := fasta.WriteFASTA(records, &buf); err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) GetGFA(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var (
		data []byte
		hit  bool
	)
	err := sess.Read(func(g *poa.Graph) error {
		var err error
		data, hit, err = s.runner.GFAWithCacheInfo(r.Context(), g)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set(cacheHeader, cacheState(hit))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// RenderGraph renders the graph in the format given by the format query
// parameter (dot, svg or png; svg by default). detailed=true labels
// nodes with ids and weights.
func (s *Server) RenderGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	opts := pipeline.Options{Format: r.URL.Query().Get("format")}
	if raw := r.URL.Query().Get("detailed"); raw != "" {
		detailed, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "invalid detailed flag %q", raw))
			return
		}
		opts.Detailed = detailed
	}
	if err := opts.ValidateForRender(); err != nil {
		s.writeError(w, err)
		return
	}

	var (
		data []byte
		hit  bool
	)
	err := sess.Read(func(g *poa.Graph) error {
		var err error
		data, hit, err = s.runner.RenderWithCacheInfo(r.Context(), g, opts)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set(cacheHeader, cacheState(hit))
	w.Header().Set("Content-Type", renderContentType(opts.Format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ============================================================================
// Persistence
// ============================================================================

func (s *Server) SaveGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req SaveGraphRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var info store.GraphInfo
	err := sess.Read(func(g *poa.Graph) error {
		var err error
		info, err = s.store.Save(r.Context(), req.Name, g)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) ListStored(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if infos == nil {
		infos = []store.GraphInfo{}
	}
	writeJSON(w, http.StatusOK, ListStoredResponse{Graphs: infos})
}

// OpenStored loads a persisted graph into a fresh session.
func (s *Server) OpenStored(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	g, err := s.store.Load(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess := s.registry.Create(g)
	writeJSON(w, http.StatusCreated, GraphResponse{GraphInfo: s.sessionInfo(sess)})
}

func (s *Server) DeleteStored(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Helpers
// ============================================================================

// lookup resolves the {id} route parameter to a live session, writing a
// not-found error if the handle is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.registry.Get(id)
	if !ok {
		s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeNotFound, "graph %q not found", id))
		return nil, false
	}
	return sess, true
}

// sessionInfo snapshots a session's counts under its read lock. Node
// counts exclude the two sentinels.
func (s *Server) sessionInfo(sess *Session) GraphInfo {
	var info GraphInfo
	sess.Read(func(g *poa.Graph) error {
		info = GraphInfo{
			ID:        sess.ID,
			Nodes:     g.NodeCount() - 2,
			Edges:     g.EdgeCount(),
			Sequences: g.SequenceCount(),
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.updatedAt,
		}
		return nil
	})
	return info
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty body means empty request
		}
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error's code onto an HTTP status and writes the
// JSON error body. Server-side failures are logged.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := pkgerrors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: pkgerrors.UserMessage(err), Code: string(code)})
}

func statusFor(code pkgerrors.Code) int {
	switch code {
	case pkgerrors.ErrCodeNotFound, pkgerrors.ErrCodeGraphNotFound, pkgerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case pkgerrors.ErrCodeInvalidInput, pkgerrors.ErrCodeInvalidSequence,
		pkgerrors.ErrCodeInvalidScoring, pkgerrors.ErrCodeInvalidFormat,
		pkgerrors.ErrCodeInvalidName, pkgerrors.ErrCodeInvalidPath,
		pkgerrors.ErrCodeUnsupported:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func cacheState(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func renderContentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	default:
		return "text/vnd.graphviz; charset=utf-8"
	}
}
