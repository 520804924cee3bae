package entry

import (
	"encoding/json"
	"fmt"
	"strings"

	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	"github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// refLink mirrors entry.RefLink in the stored document.
type refLink struct {
	CollectionKey string `json:"collectionKey"`
	EntryID       string `json:"entryId"`
	RelationType  string `json:"relationType,omitempty"`
}

// relations mirrors entry.Relations in the stored document.
type relations struct {
	Contents []string  `json:"contents,omitempty"`
	Media    []string  `json:"media,omitempty"`
	Refs     []refLink `json:"refs,omitempty"`
}

// snapshot mirrors entry.Snapshot in the stored document.
type snapshot struct {
	Title string         `json:"title,omitempty"`
	Date  string         `json:"date,omitempty"`
	Tags  []string       `json:"tags,omitempty"`
	Geo   map[string]any `json:"geo,omitempty"`
}

// entryDoc is the RedisJSON document shape for an entry. The shadow object
// mirrors date values as unix millis so the FT index can range over them;
// "__date" mirrors the snapshot date.
type entryDoc struct {
	ID            string             `json:"id"`
	TenantID      string             `json:"tenant_id"`
	CollectionKey string             `json:"collection_key"`
	Slug          string             `json:"slug,omitempty"`
	Status        string             `json:"status"`
	Data          map[string]any     `json:"data"`
	Relations     relations          `json:"relations"`
	Indexed       snapshot           `json:"indexed"`
	Shadow        map[string]float64 `json:"shadow,omitempty"`
	CreatedAt     int64              `json:"created_at"`
	UpdatedAt     int64              `json:"updated_at"`
}

// entryToDoc converts a domain Entry to its stored document, deriving the
// shadow mirrors from the collection's date fields.
func entryToDoc(col domcol.Collection, e entry.Entry) (*entryDoc, error) {
	rels := e.Relations()
	refs := make([]refLink, len(rels.Refs))
	for i, r := range rels.Refs {
		refs[i] = refLink{CollectionKey: r.CollectionKey, EntryID: r.EntryID, RelationType: r.RelationType}
	}

	idx := e.Indexed()
	doc := &entryDoc{
		ID:            e.ID(),
		TenantID:      e.TenantID(),
		CollectionKey: e.CollectionKey(),
		Slug:          e.Slug(),
		Status:        string(e.Status()),
		Data:          e.Data(),
		Relations:     relations{Contents: rels.Contents, Media: rels.Media, Refs: refs},
		Indexed:       snapshot{Title: idx.Title, Date: idx.Date, Tags: idx.Tags, Geo: idx.Geo},
		CreatedAt:     e.CreatedAt(),
		UpdatedAt:     e.UpdatedAt(),
	}

	shadow := map[string]float64{}
	for _, f := range col.Fields() {
		if f.FieldType() != field.Date && f.FieldType() != field.DateTime {
			continue
		}
		raw, ok := e.Data()[f.Key()]
		if !ok || raw == nil {
			continue
		}
		t, err := field.ParseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("shadow %s: %w", f.Key(), err)
		}
		shadow[f.Key()] = float64(t.UnixMilli())
	}
	if idx.Date != "" {
		if t, err := field.ParseTime(idx.Date); err == nil {
			shadow["__date"] = float64(t.UnixMilli())
		}
	}
	if len(shadow) > 0 {
		doc.Shadow = shadow
	}

	return doc, nil
}

// entryFromDoc parses a stored document. The driver returns JSONPath results
// as a one-element array when fetched with the "$" path.
func entryFromDoc(raw []byte) (*entryDoc, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var docs []entryDoc
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("empty entry document")
		}
		return &docs[0], nil
	}

	var doc entryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &doc, nil
}

// toDomain hydrates the domain aggregate.
func (d *entryDoc) toDomain() entry.Entry {
	refs := make([]entry.RefLink, len(d.Relations.Refs))
	for i, r := range d.Relations.Refs {
		refs[i] = entry.RefLink{CollectionKey: r.CollectionKey, EntryID: r.EntryID, RelationType: r.RelationType}
	}
	return entry.Reconstruct(
		d.ID, d.TenantID, d.CollectionKey, d.Slug, d.Data,
		entry.Relations{Contents: d.Relations.Contents, Media: d.Relations.Media, Refs: refs},
		entry.Snapshot{Title: d.Indexed.Title, Date: d.Indexed.Date, Tags: d.Indexed.Tags, Geo: d.Indexed.Geo},
		entry.Status(d.Status), d.CreatedAt, d.UpdatedAt,
	)
}

// sortValue extracts the comparable value of an index attribute from the
// document for client-side multi-key ordering. Numeric attributes compare as
// float64, everything else as lowercase strings.
func (d *entryDoc) sortValue(attr string) (float64, string, bool) {
	switch attr {
	case query.AttrCreatedAt:
		return float64(d.CreatedAt), "", true
	case query.AttrUpdatedAt:
		return float64(d.UpdatedAt), "", true
	case query.AttrID:
		return 0, d.ID, false
	case query.AttrSlug:
		return 0, strings.ToLower(d.Slug), false
	case query.AttrStatus:
		return 0, d.Status, false
	case query.AttrIndexedTitle:
		return 0, strings.ToLower(d.Indexed.Title), false
	case query.AttrIndexedDate:
		return d.Shadow["__date"], "", true
	}

	key := strings.TrimPrefix(attr, "data_")
	if v, ok := d.Shadow[key]; ok {
		return v, "", true
	}
	switch v := d.Data[key].(type) {
	case float64:
		return v, "", true
	case string:
		return 0, strings.ToLower(v), false
	case bool:
		if v {
			return 1, "", true
		}
		return 0, "", true
	default:
		return 0, "", false
	}
}
