package entry

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
	"github.com/strukt-cms/strukt/internal/metrics"
)

// CreateInput carries the attributes of a new entry.
type CreateInput struct {
	Data      map[string]any
	Relations *dome.Relations
	Status    dome.Status // empty defaults to draft
	Slug      string      // explicit slug candidate, overrides the slug field value
}

// UpdateInput carries a partial entry update. Data is shallow-merged over the
// stored values; nil members keep the stored value; Relations replaces the
// relation set wholesale when non-nil.
type UpdateInput struct {
	Data      map[string]any
	Relations *dome.Relations
	Status    *dome.Status
	Slug      *string
}

// ListInput selects and pages entries of one collection.
type ListInput struct {
	Page   int
	Limit  int
	Status dome.Status    // empty matches all statuses
	Query  string         // substring match on the snapshot title or any string/text field
	Filter map[string]any // exact match per declared field
	Sort   []string       // symbolic keys, "-" prefix for descending
}

// Page is one page of entries plus pagination totals.
type Page struct {
	Items []dome.Entry
	Total int
	Page  int
	Limit int
	Pages int
}

// Service handles entry CRUD and listing.
type Service struct {
	repo   Repository
	schema SchemaReader
	events EventSink
	logger *zap.Logger
}

// New creates an entry service.
func New(repo Repository, schema SchemaReader, events EventSink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, schema: schema, events: events, logger: logger}
}

// Create validates, normalizes and stores a new entry.
func (s *Service) Create(ctx context.Context, tenantID, collectionKey string, in CreateInput) (dome.Entry, error) {
	col, err := s.writableCollection(ctx, tenantID, collectionKey)
	if err != nil {
		return dome.Entry{}, err
	}

	data, fieldErrs := dome.NormalizeData(col, in.Data, true)
	if len(fieldErrs) > 0 {
		return dome.Entry{}, domain.NewValidationError(fieldErrs)
	}

	status := in.Status
	if status == "" {
		status = dome.StatusDraft
	}

	e, err := dome.New(uuid.NewString(), tenantID, collectionKey, data, status)
	if err != nil {
		return dome.Entry{}, domain.NewValidationError([]domain.FieldError{{Field: "status", Message: err.Error()}})
	}

	if err := s.checkUnique(ctx, col, data, e.ID()); err != nil {
		return dome.Entry{}, err
	}

	if in.Relations != nil {
		e = e.WithRelations(dome.NormalizeRelations(*in.Relations))
	}

	slug, err := s.resolveSlug(ctx, col, slugCandidate(col, in.Slug, data), e.ID())
	if err != nil {
		return dome.Entry{}, err
	}
	e = e.WithSlug(slug)
	e = e.WithIndexed(dome.BuildSnapshot(col, data))

	if err := s.repo.Save(ctx, col, e); err != nil {
		return dome.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	metrics.EntryWritesTotal.WithLabelValues(collectionKey, "create").Inc()
	s.emit(ctx, tenantID, "entry.created", collectionKey, e.ID())
	return e, nil
}

// Get retrieves an entry by id.
func (s *Service) Get(ctx context.Context, tenantID, collectionKey, id string) (dome.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return dome.Entry{}, fmt.Errorf("%w: %s", domain.ErrInvalidEntryID, id)
	}
	e, err := s.repo.Get(ctx, tenantID, collectionKey, id)
	if err != nil {
		return dome.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// GetBySlug resolves an entry by its slug within one collection.
func (s *Service) GetBySlug(ctx context.Context, tenantID, collectionKey, slug string) (dome.Entry, error) {
	f := query.Filter{}.And(query.NewMatch(query.AttrSlug, query.KindTag, slug))
	entries, _, err := s.repo.Find(ctx, tenantID, collectionKey, f, nil, 0, 1)
	if err != nil {
		return dome.Entry{}, fmt.Errorf("resolve slug: %w", err)
	}
	if len(entries) == 0 {
		return dome.Entry{}, fmt.Errorf("%w: slug %s", domain.ErrEntryNotFound, slug)
	}
	return entries[0], nil
}

// Update applies a partial update to an entry. The data patch is shallow-merged
// and the merged document re-validated; the snapshot is rebuilt.
func (s *Service) Update(ctx context.Context, tenantID, collectionKey, id string, in UpdateInput) (dome.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return dome.Entry{}, fmt.Errorf("%w: %s", domain.ErrInvalidEntryID, id)
	}

	col, err := s.writableCollection(ctx, tenantID, collectionKey)
	if err != nil {
		return dome.Entry{}, err
	}

	e, err := s.repo.Get(ctx, tenantID, collectionKey, id)
	if err != nil {
		return dome.Entry{}, fmt.Errorf("get entry: %w", err)
	}

	data := e.Data()
	if in.Data != nil {
		merged := dome.MergeData(e.Data(), in.Data)
		normalized, fieldErrs := dome.NormalizeData(col, merged, false)
		if len(fieldErrs) > 0 {
			return dome.Entry{}, domain.NewValidationError(fieldErrs)
		}
		data = normalized
		e = e.WithData(data)
	}

	if err := s.checkUnique(ctx, col, data, id); err != nil {
		return dome.Entry{}, err
	}

	if in.Relations != nil {
		e = e.WithRelations(dome.NormalizeRelations(*in.Relations))
	}

	if slug := s.updatedSlugCandidate(col, in, e.Slug(), data); slug != "" {
		resolved, err := s.resolveSlug(ctx, col, slug, id)
		if err != nil {
			return dome.Entry{}, err
		}
		e = e.WithSlug(resolved)
	}

	if in.Status != nil {
		e, err = e.WithStatus(*in.Status)
		if err != nil {
			return dome.Entry{}, domain.NewValidationError([]domain.FieldError{{Field: "status", Message: err.Error()}})
		}
	}

	e = e.WithIndexed(dome.BuildSnapshot(col, data))

	if err := s.repo.Save(ctx, col, e); err != nil {
		return dome.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	metrics.EntryWritesTotal.WithLabelValues(collectionKey, "update").Inc()
	s.emit(ctx, tenantID, "entry.updated", collectionKey, id)
	return e, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, tenantID, collectionKey, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidEntryID, id)
	}
	if err := s.repo.Delete(ctx, tenantID, collectionKey, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	metrics.EntryWritesTotal.WithLabelValues(collectionKey, "delete").Inc()
	s.emit(ctx, tenantID, "entry.deleted", collectionKey, id)
	return nil
}

// List returns one page of a collection's entries.
func (s *Service) List(ctx context.Context, tenantID, collectionKey string, in ListInput) (Page, error) {
	col, err := s.schema.Get(ctx, tenantID, collectionKey)
	if err != nil {
		return Page{}, fmt.Errorf("get collection: %w", err)
	}

	var f query.Filter
	if in.Status != "" {
		if !in.Status.IsValid() {
			return Page{}, domain.NewQueryError("status", "status", fmt.Sprintf("unknown status %q", in.Status))
		}
		f = f.And(query.NewMatch(query.AttrStatus, query.KindTag, string(in.Status)))
	}
	if in.Query != "" {
		f = f.Or(freeTextConditions(col, in.Query)...)
	}
	f, err = applyExactFilters(col, f, in.Filter)
	if err != nil {
		return Page{}, err
	}

	sorts, err := resolveSorts(col, in.Sort)
	if err != nil {
		return Page{}, err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}

	items, total, err := s.repo.Find(ctx, tenantID, collectionKey, f, sorts, (page-1)*limit, limit)
	if err != nil {
		return Page{}, fmt.Errorf("list entries: %w", err)
	}

	return Page{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pageCount(total, limit),
	}, nil
}

// --- internals ---

func (s *Service) writableCollection(ctx context.Context, tenantID, collectionKey string) (domcol.Collection, error) {
	col, err := s.schema.Get(ctx, tenantID, collectionKey)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	if col.Status() == domcol.StatusArchived {
		return domcol.Collection{}, domain.NewValidationError([]domain.FieldError{
			{Field: "collection", Message: "Collection is archived"},
		})
	}
	return col, nil
}

// checkUnique probes every unique field value for another entry carrying it.
// Check-then-write, not transactional: a concurrent pair of writes can slip
// through; the stream consumer reconciles duplicates offline.
func (s *Service) checkUnique(ctx context.Context, col domcol.Collection, data map[string]any, selfID string) error {
	for _, fd := range col.Fields() {
		if !fd.Unique() {
			continue
		}
		v, ok := data[fd.Key()]
		if !ok || v == nil {
			continue
		}

		attr, err := query.AttrForField(fd)
		if err != nil {
			continue
		}
		coerced, err := query.CoerceValue(attr, v)
		if err != nil {
			continue
		}

		var cond query.Condition
		switch c := coerced.(type) {
		case float64:
			cond = query.NewRange(attr.Name, query.Exact(c))
		case string:
			cond = query.NewMatch(attr.Name, attr.Kind, c)
		default:
			continue
		}

		f := query.Filter{}.
			And(cond).
			And(query.NewMatch(query.AttrID, query.KindTag, selfID).Negated())

		n, err := s.repo.Count(ctx, col.TenantID(), col.Key(), f)
		if err != nil {
			return fmt.Errorf("unique check %s: %w", fd.Key(), err)
		}
		if n > 0 {
			return domain.NewUniqueViolation(fd.Key())
		}
	}
	return nil
}

// updatedSlugCandidate decides whether the update recomputes the slug: an
// explicit slug always wins, otherwise a data patch touching the slug field
// re-derives it. Empty result keeps the stored slug.
func (s *Service) updatedSlugCandidate(col domcol.Collection, in UpdateInput, current string, data map[string]any) string {
	if in.Slug != nil {
		return *in.Slug
	}
	sf := col.Settings().SlugField
	if sf == "" || in.Data == nil {
		return ""
	}
	if _, touched := in.Data[sf]; !touched {
		return ""
	}
	if v, ok := data[sf].(string); ok {
		return v
	}
	return ""
}

func (s *Service) emit(ctx context.Context, tenantID, event, collectionKey, entryID string) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, tenantID, event, collectionKey, entryID, nil); err != nil {
		metrics.EventEmitFailuresTotal.Inc()
		s.logger.Warn("Failed to emit event",
			zap.String("event", event),
			zap.String("collection", collectionKey),
			zap.String("entry", entryID),
			zap.Error(err))
	}
}

// freeTextConditions builds the disjunction a free-text search matches
// against: the snapshot title plus every declared string/text field.
func freeTextConditions(col domcol.Collection, q string) []query.Condition {
	conds := []query.Condition{query.NewSubstring(query.AttrIndexedTitle, query.KindText, q)}
	for _, fd := range col.Fields() {
		if fd.FieldType() != field.String && fd.FieldType() != field.Text {
			continue
		}
		attr, err := query.AttrForField(fd)
		if err != nil {
			continue
		}
		conds = append(conds, query.NewSubstring(attr.Name, attr.Kind, q))
	}
	return conds
}

// applyExactFilters adds one exact-match condition per filter key. Keys
// resolve like query fields; values coerce to the field's declared type.
func applyExactFilters(col domcol.Collection, f query.Filter, filter map[string]any) (query.Filter, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		attr, err := query.ResolveField(col, k)
		if err != nil {
			return query.Filter{}, domain.NewQueryError("filter", k, err.Error())
		}
		coerced, err := query.CoerceValue(attr, filter[k])
		if err != nil {
			return query.Filter{}, domain.NewQueryError("filter", k, err.Error())
		}
		switch v := coerced.(type) {
		case float64:
			f = f.And(query.NewRange(attr.Name, query.Exact(v)))
		case string:
			f = f.And(query.NewMatch(attr.Name, attr.Kind, v))
		default:
			return query.Filter{}, domain.NewQueryError("filter", k, "value is not filterable")
		}
	}
	return f, nil
}

func resolveSorts(col domcol.Collection, keys []string) ([]query.Sort, error) {
	if len(keys) == 0 {
		return []query.Sort{query.DefaultSort(col)}, nil
	}
	if len(keys) > domain.MaxOrderByKeys {
		return nil, domain.NewQueryError("orderBy", "", fmt.Sprintf("too many sort keys (max %d)", domain.MaxOrderByKeys))
	}
	sorts := make([]query.Sort, len(keys))
	for i, k := range keys {
		s, err := query.ResolveSortKey(col, k)
		if err != nil {
			return nil, domain.NewQueryError("orderBy", k, err.Error())
		}
		sorts[i] = s
	}
	return sorts, nil
}

func pageCount(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
