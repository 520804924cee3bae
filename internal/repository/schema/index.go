package schema

import (
	"github.com/strukt-cms/strukt/internal/db"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// buildIndex derives the FT index definition for a collection's entry documents.
// Every declared field is indexed so the query engine can filter on it; the
// per-field `indexed` flag only drives the snapshot builder. Date fields are
// indexed over their unix-millis shadow mirror so range filters stay numeric.
func buildIndex(col domcol.Collection) (*db.IndexDefinition, error) {
	b := db.NewIndex(IndexName(col.TenantID(), col.Key())).
		Prefix(EntryPrefix(col.TenantID(), col.Key())).
		Tag("$.id", query.AttrID).
		Tag("$.slug", query.AttrSlug).
		Tag("$.status", query.AttrStatus).
		NumericSortable("$.created_at", query.AttrCreatedAt).
		NumericSortable("$.updated_at", query.AttrUpdatedAt).
		TextSortable("$.indexed.title", query.AttrIndexedTitle).
		NumericSortable("$.shadow.__date", query.AttrIndexedDate).
		Tag("$.indexed.tags[*]", query.AttrIndexedTags)

	for _, f := range col.Fields() {
		alias := query.DataAttr(f.Key())
		path := "$.data." + f.Key()

		switch f.FieldType() {
		case field.Number:
			b.NumericSortable(path, alias)
		case field.Date, field.DateTime:
			b.NumericSortable("$.shadow."+f.Key(), alias)
		case field.Text:
			b.Text(path, alias)
		case field.GeoJSON:
			// Not filterable, stored only.
		default:
			if f.Multiple() {
				b.Tag(path+"[*]", alias)
			} else {
				b.TagSortable(path, alias)
			}
		}
	}

	return b.Build()
}
