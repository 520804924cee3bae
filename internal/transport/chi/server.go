// Package chi exposes the engine over HTTP using the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	entryuc "github.com/strukt-cms/strukt/internal/usecase/entry"
	healthuc "github.com/strukt-cms/strukt/internal/usecase/health"
	queryuc "github.com/strukt-cms/strukt/internal/usecase/query"
	schemauc "github.com/strukt-cms/strukt/internal/usecase/schema"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// PageLimits bounds caller-supplied page sizes. Zero members defer to the
// engine defaults.
type PageLimits struct {
	Default int // page size when the caller gives none
	Max     int // hard cap on the page size
}

func (l PageLimits) clamp(limit int) int {
	if limit <= 0 {
		return l.Default
	}
	if l.Max > 0 && limit > l.Max {
		return l.Max
	}
	return limit
}

// Server exposes the schema, entry and query services.
type Server struct {
	schema        *schemauc.Service
	entries       *entryuc.Service
	query         *queryuc.Service
	health        *healthuc.Service
	limits        PageLimits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	schema *schemauc.Service,
	entries *entryuc.Service,
	query *queryuc.Service,
	health *healthuc.Service,
	limits PageLimits,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		schema:  schema,
		entries: entries,
		query:   query,
		health:  health,
		limits:  limits,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		uniqueViolationHandler,
		queryErrorHandler,
		sentinelHandler(domain.ErrDuplicateCollectionKey, http.StatusConflict, "collection_already_exists"),
		sentinelHandler(domain.ErrDuplicateFieldKey, http.StatusConflict, "duplicate_field_key"),
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, "collection_not_found"),
		sentinelHandler(domain.ErrEntryNotFound, http.StatusNotFound, "entry_not_found"),
		sentinelHandler(domain.ErrInvalidEntryID, http.StatusBadRequest, "invalid_entry_id"),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, "invalid_schema"),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"),
	}
	return s
}

// Routes mounts all API routes on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1/{tenant}", func(r chi.Router) {
		r.Route("/collections", func(r chi.Router) {
			r.Post("/", s.createCollection)
			r.Get("/", s.listCollections)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", s.getCollection)
				r.Put("/", s.updateCollection)
				r.Delete("/", s.deleteCollection)
				r.Route("/entries", func(r chi.Router) {
					r.Post("/", s.createEntry)
					r.Get("/", s.listEntries)
					r.Get("/{id}", s.getEntry)
					r.Patch("/{id}", s.updateEntry)
					r.Delete("/{id}", s.deleteEntry)
				})
				r.Get("/slug/{slug}", s.getEntryBySlug)
			})
		})
		r.Post("/query", s.runQuery)
	})

	return r
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Collection key is required")
		return
	}

	in := schemauc.CreateInput{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		Fields:      fieldSpecs(req.Fields),
	}
	if req.Settings != nil {
		in.Settings = domcol.Settings{
			SlugField:   req.Settings.SlugField,
			DefaultSort: req.Settings.DefaultSort,
			Versioned:   req.Settings.Versioned,
		}
	}

	col, err := s.schema.Create(r.Context(), tenant(r), in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, collectionToResponse(col))
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.schema.List(r.Context(), tenant(r), domcol.Status(r.URL.Query().Get("status")))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	out := make([]collectionResponse, len(cols))
	for i, c := range cols {
		out[i] = collectionToResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	col, err := s.schema.Get(r.Context(), tenant(r), chi.URLParam(r, "key"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToResponse(col))
}

func (s *Server) updateCollection(w http.ResponseWriter, r *http.Request) {
	var req updateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	in := schemauc.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Fields != nil {
		in.Fields = fieldSpecs(req.Fields)
	}
	if req.Settings != nil {
		in.Settings = domcol.SettingsPatch{
			SlugField:   req.Settings.SlugField,
			DefaultSort: req.Settings.DefaultSort,
			Versioned:   req.Settings.Versioned,
		}
	}
	if req.Status != nil {
		st := domcol.Status(*req.Status)
		in.Status = &st
	}

	col, err := s.schema.Update(r.Context(), tenant(r), chi.URLParam(r, "key"), in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToResponse(col))
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.schema.Delete(r.Context(), tenant(r), chi.URLParam(r, "key")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	e, err := s.entries.Create(r.Context(), tenant(r), chi.URLParam(r, "key"), entryuc.CreateInput{
		Data:      req.Data,
		Relations: relationsFromDTO(req.Relations),
		Status:    dome.Status(req.Status),
		Slug:      req.Slug,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e.Serialize())
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.Get(r.Context(), tenant(r), chi.URLParam(r, "key"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Serialize())
}

func (s *Server) getEntryBySlug(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.GetBySlug(r.Context(), tenant(r), chi.URLParam(r, "key"), chi.URLParam(r, "slug"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Serialize())
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	in := entryuc.UpdateInput{
		Data:      req.Data,
		Relations: relationsFromDTO(req.Relations),
		Slug:      req.Slug,
	}
	if req.Status != nil {
		st := dome.Status(*req.Status)
		in.Status = &st
	}

	e, err := s.entries.Update(r.Context(), tenant(r), chi.URLParam(r, "key"), chi.URLParam(r, "id"), in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Serialize())
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.entries.Delete(r.Context(), tenant(r), chi.URLParam(r, "key"), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	in := entryuc.ListInput{
		Page:   intParam(q.Get("page")),
		Limit:  s.limits.clamp(intParam(q.Get("limit"))),
		Status: dome.Status(q.Get("status")),
		Query:  q.Get("q"),
		Filter: filterParams(q),
	}
	if sort := q.Get("sort"); sort != "" {
		in.Sort = strings.Split(sort, ",")
	}

	page, err := s.entries.List(r.Context(), tenant(r), chi.URLParam(r, "key"), in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]map[string]any, len(page.Items))
	for i, e := range page.Items {
		items[i] = e.Serialize()
	}
	writeJSON(w, http.StatusOK, entryPageResponse{
		Items: items,
		Pagination: paginationDTO{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	})
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Collection == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Query collection is required")
		return
	}

	in, err := req.toUsecase()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	in.Limit = s.limits.clamp(in.Limit)

	result, err := s.query.Run(r.Context(), tenant(r), in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":     report.Status,
		"checks":     report.Checks,
		"latency_ms": report.Latency.Milliseconds(),
	})
}

func tenant(r *http.Request) string {
	return chi.URLParam(r, "tenant")
}

// filterParams collects filter[<field>]=<value> query parameters.
func filterParams(q url.Values) map[string]any {
	var filter map[string]any
	for name, values := range q {
		key, ok := strings.CutPrefix(name, "filter[")
		if !ok {
			continue
		}
		key, ok = strings.CutSuffix(key, "]")
		if !ok || key == "" || len(values) == 0 {
			continue
		}
		if filter == nil {
			filter = make(map[string]any)
		}
		filter[key] = values[0]
	}
	return filter
}

func intParam(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// validationHandler handles ValidationError with per-field detail.
func validationHandler(w http.ResponseWriter, err error) bool {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Code:    "validation_failed",
		Message: domain.ErrValidationFailed.Error(),
		Fields:  verr.Fields,
	})
	return true
}

// uniqueViolationHandler handles UniqueViolationError naming the offending field.
func uniqueViolationHandler(w http.ResponseWriter, err error) bool {
	var uv *domain.UniqueViolationError
	if !errors.As(err, &uv) {
		return false
	}
	writeJSON(w, http.StatusConflict, errorResponse{
		Code:    "unique_violation",
		Message: uv.Error(),
		Fields:  []domain.FieldError{{Field: uv.Field, Message: "Value is already taken"}},
	})
	return true
}

// queryErrorHandler handles QueryError with the offending clause and field.
func queryErrorHandler(w http.ResponseWriter, err error) bool {
	var qerr *domain.QueryError
	if !errors.As(err, &qerr) {
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid_query", qerr.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
