// Package chi exposes health, metrics, index administration and session
// queries over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	logpkg "github.com/kailas-cloud/factdex/internal/logger"
	healthuc "github.com/kailas-cloud/factdex/internal/usecase/health"
	"github.com/kailas-cloud/factdex/internal/usecase/session"
)

// Admin is the index administration surface.
type Admin interface {
	Indices(ctx context.Context) ([]db.IndexInfo, error)
	Mappings(ctx context.Context, index string) ([]string, error)
	OpenIndex(ctx context.Context, index string) error
	CloseIndex(ctx context.Context, index string) error
	DeleteIndex(ctx context.Context, index string) error
	UpdateMappingStructure(ctx context.Context, dataset domain.Dataset, field string, props map[string]any) (bool, error)
}

// SessionFactory opens a fresh session over datasets.
type SessionFactory func(datasets []domain.Dataset, logger *zap.Logger) *session.Session

// Server serves the HTTP API.
type Server struct {
	health   *healthuc.Service
	admin    Admin
	sessions SessionFactory
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(health *healthuc.Service, admin Admin, sessions SessionFactory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{health: health, admin: admin, sessions: sessions, logger: logger}
}

// Routes mounts all handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/indices", func(r chi.Router) {
		r.Get("/", s.ListIndices)
		r.Delete("/{index}", s.DeleteIndex)
		r.Post("/{index}/open", s.OpenIndex)
		r.Post("/{index}/close", s.CloseIndex)
		r.Get("/{index}/mappings", s.ListMappings)
		r.Put("/{index}/mappings/{mapping}/fields/{field}", s.AddField)
	})

	r.Get("/columns", s.Columns)
	r.Get("/fact-fields", s.FactFields)
	r.Post("/search", s.Search)
	r.Post("/count", s.Count)
	r.Post("/facts", s.Facts)
	r.Post("/delete", s.Delete)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// ListIndices handles GET /indices.
func (s *Server) ListIndices(w http.ResponseWriter, r *http.Request) {
	indices, err := s.admin.Indices(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": indices})
}

// ListMappings handles GET /indices/{index}/mappings.
func (s *Server) ListMappings(w http.ResponseWriter, r *http.Request) {
	names, err := s.admin.Mappings(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": names})
}

// OpenIndex handles POST /indices/{index}/open.
func (s *Server) OpenIndex(w http.ResponseWriter, r *http.Request) {
	s.indexAction(w, r, s.admin.OpenIndex)
}

// CloseIndex handles POST /indices/{index}/close.
func (s *Server) CloseIndex(w http.ResponseWriter, r *http.Request) {
	s.indexAction(w, r, s.admin.CloseIndex)
}

// DeleteIndex handles DELETE /indices/{index}.
func (s *Server) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	s.indexAction(w, r, s.admin.DeleteIndex)
}

func (s *Server) indexAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string) error) {
	if err := action(r.Context(), chi.URLParam(r, "index")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddField handles PUT /indices/{index}/mappings/{mapping}/fields/{field}.
// The body is the field definition, e.g. {"type":"text"}.
func (s *Server) AddField(w http.ResponseWriter, r *http.Request) {
	var props map[string]any
	if err := json.NewDecoder(r.Body).Decode(&props); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	dataset := domain.Dataset{Index: chi.URLParam(r, "index"), Mapping: chi.URLParam(r, "mapping")}
	changed, err := s.admin.UpdateMappingStructure(r.Context(), dataset, chi.URLParam(r, "field"), props)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

// Columns handles GET /columns?datasets=index[/mapping],...
func (s *Server) Columns(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromQuery(w, r)
	if !ok {
		return
	}
	names, err := sess.ColumnNames(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": names})
}

// FactFields handles GET /fact-fields?datasets=index[/mapping],...
func (s *Server) FactFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromQuery(w, r)
	if !ok {
		return
	}
	fields, err := sess.FieldsWithFacts(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// QueryRequest is the body of the session query endpoints.
type QueryRequest struct {
	Datasets []domain.Dataset `json:"datasets"`
	// Query is the combined query the session starts with.
	Query  json.RawMessage `json:"query,omitempty"`
	Size   *int            `json:"size,omitempty"`
	From   *int            `json:"from,omitempty"`
	DocIDs []string        `json:"doc_ids,omitempty"`
	// ScrollTTL applies to delete.
	ScrollTTL string `json:"scroll_ttl,omitempty"`
}

// SearchResponse is the body of POST /search.
type SearchResponse struct {
	Took int            `json:"took"`
	Hits domain.HitList `json:"hits"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.sessionFromBody(w, r)
	if !ok {
		return
	}
	resp, err := sess.Search(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if resp.Hits.Hits == nil {
		resp.Hits.Hits = []domain.Hit{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Took: resp.Took, Hits: resp.Hits})
}

// Count handles POST /count.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.sessionFromBody(w, r)
	if !ok {
		return
	}
	total, err := sess.TotalDocuments(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": total})
}

// Facts handles POST /facts.
func (s *Server) Facts(w http.ResponseWriter, r *http.Request) {
	sess, req, ok := s.sessionFromBody(w, r)
	if !ok {
		return
	}
	m, err := sess.FactsMap(r.Context(), req.DocIDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete handles POST /delete. An empty query deletes every document of
// the datasets, so a query is required.
func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	sess, req, ok := s.sessionFromBody(w, r)
	if !ok {
		return
	}
	if q := sess.Query(); q.Main.Bool.IsEmpty() {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "delete requires a non-empty main query")
		return
	}
	n, err := sess.Delete(r.Context(), req.ScrollTTL)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) sessionFromQuery(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	datasets, err := domain.ParseDatasets(r.URL.Query().Get("datasets"))
	if err != nil {
		s.handleDomainError(w, err)
		return nil, false
	}
	return s.sessions(datasets, logpkg.FromContext(r.Context())), true
}

func (s *Server) sessionFromBody(w http.ResponseWriter, r *http.Request) (*session.Session, QueryRequest, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return nil, req, false
	}
	if len(req.Datasets) == 0 {
		s.handleDomainError(w, domain.ErrNoDatasets)
		return nil, req, false
	}

	sess := s.sessions(req.Datasets, logpkg.FromContext(r.Context()))
	if len(req.Query) > 0 {
		q, err := query.Parse(req.Query)
		if err != nil {
			s.handleDomainError(w, err)
			return nil, req, false
		}
		sess.Load(q)
	}
	for key, v := range map[string]*int{"size": req.Size, "from": req.From} {
		if v == nil {
			continue
		}
		if err := sess.SetParam(key, *v); err != nil {
			s.handleDomainError(w, err)
			return nil, req, false
		}
	}
	return sess, req, true
}
