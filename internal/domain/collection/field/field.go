package field

import (
	"fmt"
	"regexp"
)

// Type is the declared value type of a field.
type Type string

// Field type constants.
const (
	String   Type = "string"
	Text     Type = "text"
	Number   Type = "number"
	Boolean  Type = "boolean"
	Date     Type = "date"
	DateTime Type = "datetime"
	Enum     Type = "enum"
	Ref      Type = "ref"
	Media    Type = "media"
	GeoJSON  Type = "geojson"
)

// IsValid checks if the field type is supported.
func (t Type) IsValid() bool {
	switch t {
	case String, Text, Number, Boolean, Date, DateTime, Enum, Ref, Media, GeoJSON:
		return true
	}
	return false
}

// SupportsMultiple reports whether the type may hold multiple values.
func (t Type) SupportsMultiple() bool {
	return t == Enum || t == Ref || t == Media
}

var keyRegex = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*$`)

// Built-in attribute names a field key must not shadow.
var reservedKeys = map[string]bool{
	"id": true, "slug": true, "status": true, "data": true,
	"relations": true, "indexed": true, "createdAt": true, "updatedAt": true,
}

// Option is a single allowed value of an enum field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// Field is an immutable value object describing one declared field of a collection type.
type Field struct {
	key          string
	fieldType    Type
	label        map[string]string
	description  map[string]string
	options      []Option
	ref          string // target collection key, set only for type=ref
	required     bool
	unique       bool
	indexed      bool
	multiple     bool
	defaultValue any
}

// Spec carries the raw attributes of a field definition into New.
type Spec struct {
	Key          string
	Type         Type
	Label        map[string]string
	Description  map[string]string
	Options      []Option
	Ref          string
	Required     bool
	Unique       bool
	Indexed      bool
	Multiple     bool
	DefaultValue any
}

// New validates and creates a Field.
// Key: ^[a-z][a-zA-Z0-9_]*$, max 64 chars, not a built-in attribute name.
// type=ref requires a target collection key; type=enum requires at least one option.
func New(s Spec) (Field, error) {
	if s.Key == "" {
		return Field{}, fmt.Errorf("field key is required")
	}
	if len(s.Key) > 64 {
		return Field{}, fmt.Errorf("field key %q too long (max 64)", s.Key)
	}
	if !keyRegex.MatchString(s.Key) {
		return Field{}, fmt.Errorf("field key %q must start with a lowercase letter and contain only letters, digits and underscores", s.Key)
	}
	if reservedKeys[s.Key] {
		return Field{}, fmt.Errorf("field key %q is reserved", s.Key)
	}
	if !s.Type.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", s.Type, s.Key)
	}
	if s.Type == Ref && s.Ref == "" {
		return Field{}, fmt.Errorf("field %q of type ref requires a target collection key", s.Key)
	}
	if s.Type == Enum && len(s.Options) == 0 {
		return Field{}, fmt.Errorf("field %q of type enum requires options", s.Key)
	}
	if s.Multiple && !s.Type.SupportsMultiple() {
		return Field{}, fmt.Errorf("field %q of type %s cannot be multi-valued", s.Key, s.Type)
	}
	f := Field{
		key:          s.Key,
		fieldType:    s.Type,
		label:        s.Label,
		description:  s.Description,
		options:      s.Options,
		ref:          s.Ref,
		required:     s.Required,
		unique:       s.Unique,
		indexed:      s.Indexed,
		multiple:     s.Multiple,
		defaultValue: s.DefaultValue,
	}
	if s.DefaultValue != nil {
		if _, err := f.Normalize(s.DefaultValue); err != nil {
			return Field{}, fmt.Errorf("field %q default value: %w", s.Key, err)
		}
	}
	return f, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(s Spec) Field {
	return Field{
		key:          s.Key,
		fieldType:    s.Type,
		label:        s.Label,
		description:  s.Description,
		options:      s.Options,
		ref:          s.Ref,
		required:     s.Required,
		unique:       s.Unique,
		indexed:      s.Indexed,
		multiple:     s.Multiple,
		defaultValue: s.DefaultValue,
	}
}

// Key returns the field key.
func (f Field) Key() string { return f.key }

// FieldType returns the declared value type.
func (f Field) FieldType() Type { return f.fieldType }

// Label returns the localized label map.
func (f Field) Label() map[string]string { return f.label }

// Description returns the localized description map.
func (f Field) Description() map[string]string { return f.description }

// Options returns the enum options.
func (f Field) Options() []Option { return f.options }

// Ref returns the target collection key for ref fields.
func (f Field) Ref() string { return f.ref }

// Required reports whether the field must be present after normalization.
func (f Field) Required() bool { return f.required }

// Unique reports whether values must be unique per tenant+collection.
func (f Field) Unique() bool { return f.unique }

// Indexed reports whether the field feeds the derived indexed snapshot.
func (f Field) Indexed() bool { return f.indexed }

// Multiple reports whether the field holds a list of values.
func (f Field) Multiple() bool { return f.multiple }

// DefaultValue returns the declared default, or nil.
func (f Field) DefaultValue() any { return f.defaultValue }

// ToSpec returns the raw attributes (storage serialization).
func (f Field) ToSpec() Spec {
	return Spec{
		Key:          f.key,
		Type:         f.fieldType,
		Label:        f.label,
		Description:  f.description,
		Options:      f.options,
		Ref:          f.ref,
		Required:     f.required,
		Unique:       f.unique,
		Indexed:      f.indexed,
		Multiple:     f.multiple,
		DefaultValue: f.defaultValue,
	}
}

// Serialize returns the caller-facing representation, empty attributes omitted.
func (f Field) Serialize() map[string]any {
	out := map[string]any{
		"key":  f.key,
		"type": string(f.fieldType),
	}
	if len(f.label) > 0 {
		out["label"] = f.label
	}
	if len(f.description) > 0 {
		out["description"] = f.description
	}
	if len(f.options) > 0 {
		opts := make([]map[string]any, len(f.options))
		for i, o := range f.options {
			opts[i] = map[string]any{"value": o.Value}
			if o.Label != "" {
				opts[i]["label"] = o.Label
			}
		}
		out["options"] = opts
	}
	if f.ref != "" {
		out["ref"] = f.ref
	}
	if f.required {
		out["required"] = true
	}
	if f.unique {
		out["unique"] = true
	}
	if f.indexed {
		out["indexed"] = true
	}
	if f.multiple {
		out["multiple"] = true
	}
	if f.defaultValue != nil {
		out["default"] = f.defaultValue
	}
	return out
}
