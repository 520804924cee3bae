package entry

import (
	"github.com/strukt-cms/strukt/internal/domain"
	"github.com/strukt-cms/strukt/internal/domain/collection"
)

// NormalizeData type-checks and coerces raw data against the collection schema.
// Declared fields are normalized per their type; undeclared keys pass through
// unchanged (schema evolution tolerance). When fillDefaults is set, a missing
// optional field with a declared default is filled with the normalized default.
// Returns the normalized map and every per-field failure found.
func NormalizeData(col collection.Collection, raw map[string]any, fillDefaults bool) (map[string]any, []domain.FieldError) {
	out := make(map[string]any, len(raw))
	var errs []domain.FieldError

	declared := make(map[string]bool, len(col.Fields()))
	for _, f := range col.Fields() {
		declared[f.Key()] = true

		v, present := raw[f.Key()]
		if !present || v == nil {
			if fillDefaults && f.DefaultValue() != nil {
				if norm, err := f.Normalize(f.DefaultValue()); err == nil {
					out[f.Key()] = norm
					continue
				}
			}
			if f.Required() {
				errs = append(errs, domain.FieldError{Field: f.Key(), Message: "Field is required"})
			}
			continue
		}

		norm, err := f.Normalize(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: f.Key(), Message: err.Error()})
			continue
		}
		out[f.Key()] = norm
	}

	for k, v := range raw {
		if !declared[k] {
			out[k] = v
		}
	}

	return out, errs
}

// MergeData shallow-merges patch over base, key by key, non-recursively.
func MergeData(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
