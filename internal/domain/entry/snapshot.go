package entry

import (
	"github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
)

// BuildSnapshot derives the indexed summary from normalized data.
// Recomputed fully on every create and update, never maintained incrementally.
func BuildSnapshot(col collection.Collection, data map[string]any) Snapshot {
	var s Snapshot

	for _, f := range col.Fields() {
		if !f.Indexed() {
			continue
		}
		v, ok := data[f.Key()]
		if !ok {
			continue
		}
		switch f.FieldType() {
		case field.String, field.Text:
			if s.Title == "" {
				if str, ok := v.(string); ok && str != "" {
					s.Title = str
				}
			}
		case field.Date, field.DateTime:
			if s.Date == "" {
				if str, ok := v.(string); ok && str != "" {
					s.Date = str
				}
			}
		case field.Enum:
			s.Tags = appendTags(s.Tags, v)
		case field.GeoJSON:
			if s.Geo == nil {
				if m, ok := v.(map[string]any); ok {
					s.Geo = m
				}
			}
		}
	}

	// Fall back to the configured slug field for the title.
	if s.Title == "" {
		if slugField := col.Settings().SlugField; slugField != "" {
			if str, ok := data[slugField].(string); ok {
				s.Title = str
			}
		}
	}

	return s
}

func appendTags(tags []string, v any) []string {
	add := func(s string) []string {
		if s == "" {
			return tags
		}
		for _, t := range tags {
			if t == s {
				return tags
			}
		}
		return append(tags, s)
	}
	switch vv := v.(type) {
	case string:
		tags = add(vv)
	case []string:
		for _, s := range vv {
			tags = add(s)
		}
	case []any:
		for _, item := range vv {
			if s, ok := item.(string); ok {
				tags = add(s)
			}
		}
	}
	return tags
}
