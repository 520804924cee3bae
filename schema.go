package strukt

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

const tagKey = "strukt"

// schemaMeta holds parsed struct tag metadata, cached per TypedCollection.
type schemaMeta struct {
	typ reflect.Type // struct type for reconstruction

	// Field index in the struct for each role, -1 if not present.
	idIdx   int
	slugIdx int

	// Schema fields for collection creation.
	fields []Field

	// Mapping from struct field index to data key.
	mappings []fieldMapping
}

type fieldMapping struct {
	structIdx int
	key       string
	ft        FieldType
}

// parseSchema reflects on T and extracts strukt struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("strukt: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1, slugIdx: -1}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f.Name, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("strukt: no field with `strukt:\",id\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's strukt tag.
// Grammar: `strukt:"<key>[,<type>][,flag...]"` where type is one of the
// FieldType names plus enum=a|b and ref=<collection>, and flags are
// required, unique, indexed, multiple.
func applyTag(meta *schemaMeta, idx int, fieldName, tag string) error {
	parts := strings.Split(tag, ",")
	key := parts[0]

	spec := Field{Key: key, Type: String}
	isData := true

	for _, mod := range parts[1:] {
		switch {
		case mod == "id":
			if meta.idIdx != -1 {
				return fmt.Errorf("strukt: duplicate id tag on field %s", fieldName)
			}
			meta.idIdx = idx
			isData = false
		case mod == "slug":
			if meta.slugIdx != -1 {
				return fmt.Errorf("strukt: duplicate slug tag on field %s", fieldName)
			}
			meta.slugIdx = idx
			isData = false
		case mod == "required":
			spec.Required = true
		case mod == "unique":
			spec.Unique = true
		case mod == "indexed":
			spec.Indexed = true
		case mod == "multiple":
			spec.Multiple = true
		case strings.HasPrefix(mod, "enum="):
			spec.Type = Enum
			spec.Options = strings.Split(strings.TrimPrefix(mod, "enum="), "|")
		case strings.HasPrefix(mod, "ref="):
			spec.Type = Ref
			spec.Ref = strings.TrimPrefix(mod, "ref=")
		case isFieldType(mod):
			spec.Type = FieldType(mod)
		default:
			return fmt.Errorf("strukt: unknown modifier %q on field %s", mod, fieldName)
		}
	}

	if !isData {
		return nil
	}
	if key == "" {
		return fmt.Errorf("strukt: missing data key on field %s", fieldName)
	}
	meta.fields = append(meta.fields, spec)
	meta.mappings = append(meta.mappings, fieldMapping{structIdx: idx, key: key, ft: spec.Type})
	return nil
}

func isFieldType(s string) bool {
	switch FieldType(s) {
	case String, Text, Number, Boolean, Date, DateTime, Media, GeoJSON:
		return true
	default:
		return false
	}
}

// collectionOptions returns creation options for the parsed schema.
func (m *schemaMeta) collectionOptions() []CollectionOption {
	opts := make([]CollectionOption, len(m.fields))
	for i, f := range m.fields {
		opts[i] = WithField(f)
	}
	return opts
}

// toData converts a typed item into an entry data payload. Zero-valued
// struct fields are omitted so defaults and required checks apply.
func (m *schemaMeta) toData(item any) map[string]any {
	rv := reflect.ValueOf(item)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	data := make(map[string]any, len(m.mappings))
	for _, fm := range m.mappings {
		fv := rv.Field(fm.structIdx)
		if fv.IsZero() {
			continue
		}
		data[fm.key] = fv.Interface()
	}
	return data
}

// fromParts reconstructs a typed item from a stored entry's id, slug and
// normalized data payload.
func (m *schemaMeta) fromParts(id, slug string, data map[string]any) any {
	rv := reflect.New(m.typ).Elem()

	if m.idIdx != -1 {
		rv.Field(m.idIdx).SetString(id)
	}
	if m.slugIdx != -1 {
		rv.Field(m.slugIdx).SetString(slug)
	}

	for _, fm := range m.mappings {
		raw, ok := data[fm.key]
		if !ok || raw == nil {
			continue
		}
		setField(rv.Field(fm.structIdx), raw)
	}
	return rv.Interface()
}

// setField assigns a normalized data value to a struct field, converting
// between the store's JSON-shaped types and the declared Go type.
func setField(fv reflect.Value, raw any) {
	switch fv.Kind() {
	case reflect.String:
		if s, ok := raw.(string); ok {
			fv.SetString(s)
		}
	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			fv.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, ok := raw.(float64); ok {
			fv.SetInt(int64(f))
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := raw.(float64); ok {
			fv.SetFloat(f)
		}
	case reflect.Slice:
		setSliceField(fv, raw)
	case reflect.Struct:
		if fv.Type() == reflect.TypeOf(time.Time{}) {
			if s, ok := raw.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					fv.Set(reflect.ValueOf(t))
				}
			}
		}
	case reflect.Map:
		if reflect.TypeOf(raw).AssignableTo(fv.Type()) {
			fv.Set(reflect.ValueOf(raw))
		}
	default:
	}
}

func setSliceField(fv reflect.Value, raw any) {
	if fv.Type().Elem().Kind() != reflect.String {
		return
	}
	switch vals := raw.(type) {
	case []string:
		fv.Set(reflect.ValueOf(vals))
	case []any:
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		fv.Set(reflect.ValueOf(out))
	}
}
