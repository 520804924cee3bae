package entry

import (
	"fmt"
	"time"
)

// Status is the publication state of an entry.
type Status string

const (
	// StatusDraft is the default status for new entries.
	StatusDraft Status = "draft"
	// StatusPublished marks publicly visible entries.
	StatusPublished Status = "published"
	// StatusArchived marks retired entries.
	StatusArchived Status = "archived"
)

// IsValid checks if the status is supported.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

// RefLink addresses another entry by collection and id.
type RefLink struct {
	CollectionKey string `json:"collection_key"`
	EntryID       string `json:"entry_id"`
	RelationType  string `json:"relation_type,omitempty"`
}

// Relations groups the cross-entity identifiers attached to an entry.
type Relations struct {
	Contents []string  `json:"contents,omitempty"`
	Media    []string  `json:"media,omitempty"`
	Refs     []RefLink `json:"refs,omitempty"`
}

// Snapshot is the denormalized summary derived from entry data on every write.
type Snapshot struct {
	Title string         `json:"title,omitempty"`
	Date  string         `json:"date,omitempty"` // RFC3339
	Tags  []string       `json:"tags,omitempty"`
	Geo   map[string]any `json:"geo,omitempty"`
}

// Entry is the collection entry aggregate (immutable value object).
type Entry struct {
	id            string
	tenantID      string
	collectionKey string
	slug          string
	data          map[string]any
	relations     Relations
	indexed       Snapshot
	status        Status
	createdAt     int64
	updatedAt     int64
}

// New creates an Entry with already-normalized data. Status defaults to draft.
func New(id, tenantID, collectionKey string, data map[string]any, status Status) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("entry id is required")
	}
	if tenantID == "" {
		return Entry{}, fmt.Errorf("tenant id is required")
	}
	if collectionKey == "" {
		return Entry{}, fmt.Errorf("collection key is required")
	}
	if status == "" {
		status = StatusDraft
	}
	if !status.IsValid() {
		return Entry{}, fmt.Errorf("invalid entry status %q", status)
	}
	now := time.Now().UnixMilli()
	return Entry{
		id:            id,
		tenantID:      tenantID,
		collectionKey: collectionKey,
		data:          data,
		status:        status,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// Reconstruct creates an Entry without validation (storage hydration).
func Reconstruct(
	id, tenantID, collectionKey, slug string, data map[string]any,
	relations Relations, indexed Snapshot, status Status, createdAt, updatedAt int64,
) Entry {
	return Entry{
		id:            id,
		tenantID:      tenantID,
		collectionKey: collectionKey,
		slug:          slug,
		data:          data,
		relations:     relations,
		indexed:       indexed,
		status:        status,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the entry identifier.
func (e Entry) ID() string { return e.id }

// TenantID returns the owning tenant.
func (e Entry) TenantID() string { return e.tenantID }

// CollectionKey returns the owning collection.
func (e Entry) CollectionKey() string { return e.collectionKey }

// Slug returns the unique human-readable identifier, possibly empty.
func (e Entry) Slug() string { return e.slug }

// Data returns the normalized field data, including undeclared passthrough keys.
func (e Entry) Data() map[string]any { return e.data }

// Relations returns the attached cross-entity identifiers.
func (e Entry) Relations() Relations { return e.relations }

// Indexed returns the derived snapshot.
func (e Entry) Indexed() Snapshot { return e.indexed }

// Status returns the publication status.
func (e Entry) Status() Status { return e.status }

// CreatedAt returns the creation timestamp (unix millis).
func (e Entry) CreatedAt() int64 { return e.createdAt }

// UpdatedAt returns the last update timestamp (unix millis).
func (e Entry) UpdatedAt() int64 { return e.updatedAt }

// WithSlug returns a copy with the slug replaced.
func (e Entry) WithSlug(slug string) Entry {
	e.slug = slug
	return e
}

// WithData returns a copy with the data map replaced.
func (e Entry) WithData(data map[string]any) Entry {
	e.data = data
	return e.touched()
}

// WithRelations returns a copy with the relations replaced.
func (e Entry) WithRelations(r Relations) Entry {
	e.relations = r
	return e.touched()
}

// WithIndexed returns a copy with the snapshot replaced.
func (e Entry) WithIndexed(s Snapshot) Entry {
	e.indexed = s
	return e
}

// WithStatus returns a copy with the status replaced.
func (e Entry) WithStatus(s Status) (Entry, error) {
	if !s.IsValid() {
		return Entry{}, fmt.Errorf("invalid entry status %q", s)
	}
	e.status = s
	return e.touched(), nil
}

func (e Entry) touched() Entry {
	e.updatedAt = time.Now().UnixMilli()
	return e
}

// Serialize renders the entry as the flat document shape used by the
// transport layer and by relation dereferencing during projection.
func (e Entry) Serialize() map[string]any {
	rels := map[string]any{}
	if len(e.relations.Contents) > 0 {
		rels["contents"] = e.relations.Contents
	}
	if len(e.relations.Media) > 0 {
		rels["media"] = e.relations.Media
	}
	if len(e.relations.Refs) > 0 {
		refs := make([]map[string]any, len(e.relations.Refs))
		for i, r := range e.relations.Refs {
			refs[i] = map[string]any{
				"collectionKey": r.CollectionKey,
				"entryId":       r.EntryID,
				"relationType":  r.RelationType,
			}
		}
		rels["refs"] = refs
	}

	indexed := map[string]any{}
	if e.indexed.Title != "" {
		indexed["title"] = e.indexed.Title
	}
	if e.indexed.Date != "" {
		indexed["date"] = e.indexed.Date
	}
	if len(e.indexed.Tags) > 0 {
		indexed["tags"] = e.indexed.Tags
	}
	if e.indexed.Geo != nil {
		indexed["geo"] = e.indexed.Geo
	}

	return map[string]any{
		"id":            e.id,
		"collectionKey": e.collectionKey,
		"slug":          e.slug,
		"status":        string(e.status),
		"data":          e.data,
		"relations":     rels,
		"indexed":       indexed,
		"createdAt":     time.UnixMilli(e.createdAt).UTC().Format(time.RFC3339),
		"updatedAt":     time.UnixMilli(e.updatedAt).UTC().Format(time.RFC3339),
	}
}
