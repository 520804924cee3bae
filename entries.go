package strukt

import (
	"context"
	"fmt"
	"time"

	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	entryuc "github.com/strukt-cms/strukt/internal/usecase/entry"
)

// RefLink relates an entry to another entry with a named relation type.
type RefLink struct {
	Collection   string
	EntryID      string
	RelationType string
}

// Relations groups an entry's links to contents, media and other entries.
type Relations struct {
	Contents []string
	Media    []string
	Refs     []RefLink
}

// Entry is the public view of a collection entry.
type Entry struct {
	ID         string
	Collection string
	Slug       string
	Status     string
	Data       map[string]any
	Relations  Relations
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EntryPatch is a partial entry update. Data merges shallowly into the
// stored payload; nil members keep the stored value.
type EntryPatch struct {
	Data      map[string]any
	Relations *Relations
	Status    *string
	Slug      *string
}

// ListOptions filters and paginates an entry listing.
type ListOptions struct {
	Page   int
	Limit  int
	Status string
	Query  string         // substring match on the indexed title or any string/text field
	Filter map[string]any // exact match per declared field
	Sort   []string       // symbolic keys, "-" prefix for descending
}

// EntryPage is one page of entries plus pagination totals.
type EntryPage struct {
	Items []Entry
	Total int
	Page  int
	Limit int
	Pages int
}

// EntryOption configures entry creation.
type EntryOption func(*entryConfig)

type entryConfig struct {
	status    string
	slug      string
	relations *Relations
}

// WithStatus sets the initial lifecycle status (default draft).
func WithStatus(status string) EntryOption {
	return func(c *entryConfig) {
		c.status = status
	}
}

// WithSlug sets an explicit slug seed instead of the slug field value.
func WithSlug(slug string) EntryOption {
	return func(c *entryConfig) {
		c.slug = slug
	}
}

// WithRelations attaches relations at creation time.
func WithRelations(r Relations) EntryOption {
	return func(c *entryConfig) {
		c.relations = &r
	}
}

// EntryService manages the entries of a single tenant collection.
type EntryService struct {
	tenant     string
	collection string
	svc        *entryuc.Service
}

// Create validates and stores a new entry.
func (s *EntryService) Create(ctx context.Context, data map[string]any, opts ...EntryOption) (Entry, error) {
	var cfg entryConfig
	for _, o := range opts {
		o(&cfg)
	}

	e, err := s.svc.Create(ctx, s.tenant, s.collection, entryuc.CreateInput{
		Data:      data,
		Relations: toRelations(cfg.relations),
		Status:    dome.Status(cfg.status),
		Slug:      cfg.slug,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("create entry: %w", err)
	}
	return fromEntry(e), nil
}

// Get retrieves an entry by id.
func (s *EntryService) Get(ctx context.Context, id string) (Entry, error) {
	e, err := s.svc.Get(ctx, s.tenant, s.collection, id)
	if err != nil {
		return Entry{}, fmt.Errorf("get entry %q: %w", id, err)
	}
	return fromEntry(e), nil
}

// GetBySlug retrieves an entry by its slug.
func (s *EntryService) GetBySlug(ctx context.Context, slug string) (Entry, error) {
	e, err := s.svc.GetBySlug(ctx, s.tenant, s.collection, slug)
	if err != nil {
		return Entry{}, fmt.Errorf("get entry by slug %q: %w", slug, err)
	}
	return fromEntry(e), nil
}

// Update applies a partial update to an entry.
func (s *EntryService) Update(ctx context.Context, id string, patch EntryPatch) (Entry, error) {
	in := entryuc.UpdateInput{
		Data:      patch.Data,
		Relations: toRelations(patch.Relations),
		Slug:      patch.Slug,
	}
	if patch.Status != nil {
		st := dome.Status(*patch.Status)
		in.Status = &st
	}

	e, err := s.svc.Update(ctx, s.tenant, s.collection, id, in)
	if err != nil {
		return Entry{}, fmt.Errorf("update entry %q: %w", id, err)
	}
	return fromEntry(e), nil
}

// Delete removes an entry and its index document.
func (s *EntryService) Delete(ctx context.Context, id string) error {
	if err := s.svc.Delete(ctx, s.tenant, s.collection, id); err != nil {
		return fmt.Errorf("delete entry %q: %w", id, err)
	}
	return nil
}

// List returns a filtered, paginated entry listing.
func (s *EntryService) List(ctx context.Context, opts ListOptions) (EntryPage, error) {
	page, err := s.svc.List(ctx, s.tenant, s.collection, entryuc.ListInput{
		Page:   opts.Page,
		Limit:  opts.Limit,
		Status: dome.Status(opts.Status),
		Query:  opts.Query,
		Filter: opts.Filter,
		Sort:   opts.Sort,
	})
	if err != nil {
		return EntryPage{}, fmt.Errorf("list entries: %w", err)
	}

	items := make([]Entry, len(page.Items))
	for i, e := range page.Items {
		items[i] = fromEntry(e)
	}
	return EntryPage{
		Items: items,
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
		Pages: page.Pages,
	}, nil
}

func toRelations(r *Relations) *dome.Relations {
	if r == nil {
		return nil
	}
	refs := make([]dome.RefLink, len(r.Refs))
	for i, ref := range r.Refs {
		refs[i] = dome.RefLink{
			CollectionKey: ref.Collection,
			EntryID:       ref.EntryID,
			RelationType:  ref.RelationType,
		}
	}
	return &dome.Relations{
		Contents: r.Contents,
		Media:    r.Media,
		Refs:     refs,
	}
}

func fromEntry(e dome.Entry) Entry {
	rel := e.Relations()
	refs := make([]RefLink, len(rel.Refs))
	for i, ref := range rel.Refs {
		refs[i] = RefLink{
			Collection:   ref.CollectionKey,
			EntryID:      ref.EntryID,
			RelationType: ref.RelationType,
		}
	}
	return Entry{
		ID:         e.ID(),
		Collection: e.CollectionKey(),
		Slug:       e.Slug(),
		Status:     string(e.Status()),
		Data:       e.Data(),
		Relations: Relations{
			Contents: rel.Contents,
			Media:    rel.Media,
			Refs:     refs,
		},
		CreatedAt: time.UnixMilli(e.CreatedAt()).UTC(),
		UpdatedAt: time.UnixMilli(e.UpdatedAt()).UTC(),
	}
}
