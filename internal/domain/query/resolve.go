package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
)

// Built-in index attribute names.
const (
	AttrID           = "id"
	AttrSlug         = "slug"
	AttrStatus       = "status"
	AttrCreatedAt    = "created_at"
	AttrUpdatedAt    = "updated_at"
	AttrIndexedTitle = "indexed_title"
	AttrIndexedDate  = "indexed_date"
	AttrIndexedTags  = "indexed_tags"
)

// DataAttr returns the index attribute name for a declared field key.
func DataAttr(key string) string { return "data_" + key }

// Attr describes a resolved filter/sort target.
type Attr struct {
	Name      string
	Kind      AttrKind
	FieldType field.Type // zero for built-ins
	Temporal  bool       // values coerce through date parsing to unix millis
}

// ResolveField maps a caller-facing field name to an index attribute.
// Accepted: _id, built-ins (slug/status/createdAt/updatedAt), indexed.* paths,
// title/date shorthands, and declared field keys (bare or data.-prefixed).
func ResolveField(col collection.Collection, name string) (Attr, error) {
	switch name {
	case "_id", "id":
		return Attr{Name: AttrID, Kind: KindTag}, nil
	case "slug":
		return Attr{Name: AttrSlug, Kind: KindTag}, nil
	case "status":
		return Attr{Name: AttrStatus, Kind: KindTag}, nil
	case "createdAt", "created_at":
		return Attr{Name: AttrCreatedAt, Kind: KindNumeric, Temporal: true}, nil
	case "updatedAt", "updated_at":
		return Attr{Name: AttrUpdatedAt, Kind: KindNumeric, Temporal: true}, nil
	case "title", "indexed.title":
		return Attr{Name: AttrIndexedTitle, Kind: KindText}, nil
	case "date", "indexed.date":
		return Attr{Name: AttrIndexedDate, Kind: KindNumeric, Temporal: true}, nil
	case "indexed.tags":
		return Attr{Name: AttrIndexedTags, Kind: KindTag}, nil
	}

	key := strings.TrimPrefix(name, "data.")
	f, ok := col.FieldByKey(key)
	if !ok {
		return Attr{}, fmt.Errorf("unknown field %q", name)
	}
	return AttrForField(f)
}

// AttrForField maps a declared field to its index attribute.
func AttrForField(f field.Field) (Attr, error) {
	a := Attr{Name: DataAttr(f.Key()), FieldType: f.FieldType()}
	switch f.FieldType() {
	case field.Number:
		a.Kind = KindNumeric
	case field.Date, field.DateTime:
		a.Kind = KindNumeric
		a.Temporal = true
	case field.Text:
		a.Kind = KindText
	case field.GeoJSON:
		return Attr{}, fmt.Errorf("field %q of type geojson cannot be filtered or sorted", f.Key())
	default:
		a.Kind = KindTag
	}
	return a, nil
}

// CoerceValue converts a raw query value to the attribute's comparable form:
// numeric attributes yield float64 (dates as unix millis), tag and text
// attributes yield the exact string to match.
func CoerceValue(a Attr, v any) (any, error) {
	if a.Kind == KindNumeric {
		if a.Temporal {
			t, err := field.ParseTime(v)
			if err != nil {
				return nil, err
			}
			return float64(t.UnixMilli()), nil
		}
		norm, err := field.Reconstruct(field.Spec{Key: "v", Type: field.Number}).Normalize(v)
		if err != nil {
			return nil, err
		}
		return norm, nil
	}

	switch a.FieldType {
	case field.Boolean:
		norm, err := field.Reconstruct(field.Spec{Key: "v", Type: field.Boolean}).Normalize(v)
		if err != nil {
			return nil, err
		}
		return strconv.FormatBool(norm.(bool)), nil
	default:
		norm, err := field.Reconstruct(field.Spec{Key: "v", Type: field.String}).Normalize(v)
		if err != nil {
			return nil, err
		}
		return norm, nil
	}
}

// ResolveSortKey maps a symbolic sort key to a compiled sort. A leading "-"
// means descending.
func ResolveSortKey(col collection.Collection, key string) (Sort, error) {
	desc := false
	if strings.HasPrefix(key, "-") {
		desc = true
		key = key[1:]
	}
	a, err := ResolveField(col, key)
	if err != nil {
		return Sort{}, err
	}
	return Sort{Attr: a.Name, Desc: desc}, nil
}

// DefaultSort resolves the collection's configured default sort, falling back
// to createdAt descending.
func DefaultSort(col collection.Collection) Sort {
	if ds := col.Settings().DefaultSort; ds != "" {
		if s, err := ResolveSortKey(col, ds); err == nil {
			return s
		}
	}
	return Sort{Attr: AttrCreatedAt, Desc: true}
}
