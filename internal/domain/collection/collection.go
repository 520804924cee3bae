package collection

import (
	"fmt"
	"regexp"
	"time"

	"github.com/strukt-cms/strukt/internal/domain"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
)

var keyRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Status is the lifecycle state of a collection type.
type Status string

const (
	// StatusActive accepts new entries.
	StatusActive Status = "active"
	// StatusArchived is read-only.
	StatusArchived Status = "archived"
)

// IsValid checks if the status is supported.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusArchived
}

// Settings holds per-collection behavior switches.
type Settings struct {
	SlugField   string `json:"slug_field,omitempty"`   // field key whose value seeds the slug
	DefaultSort string `json:"default_sort,omitempty"` // e.g. "-createdAt", "title"
	Versioned   bool   `json:"versioned,omitempty"`    // reserved flag, entries are never versioned
}

// SettingsPatch is a partial settings update; nil members keep the current value.
type SettingsPatch struct {
	SlugField   *string
	DefaultSort *string
	Versioned   *bool
}

// Collection is the tenant-defined schema aggregate (immutable value object).
type Collection struct {
	tenantID    string
	key         string
	name        map[string]string
	description map[string]string
	fields      []field.Field
	settings    Settings
	status      Status
	createdAt   int64
	updatedAt   int64
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("collection key is required")
	}
	if len(key) > 64 {
		return fmt.Errorf("collection key too long (max 64)")
	}
	if !keyRegex.MatchString(key) {
		return fmt.Errorf("collection key must start with a lowercase letter and contain only lowercase letters, digits, underscores and hyphens")
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) > domain.MaxFieldsPerCollection {
		return fmt.Errorf("too many fields (max %d)", domain.MaxFieldsPerCollection)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Key()] {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateFieldKey, f.Key())
		}
		seen[f.Key()] = true
	}
	return nil
}

// New validates and creates a Collection. Status defaults to active.
func New(tenantID, key string, name, description map[string]string, fields []field.Field, settings Settings) (Collection, error) {
	if tenantID == "" {
		return Collection{}, fmt.Errorf("tenant id is required")
	}
	if err := validateKey(key); err != nil {
		return Collection{}, err
	}
	if err := validateFields(fields); err != nil {
		return Collection{}, err
	}
	if settings.SlugField != "" && !hasFieldKey(fields, settings.SlugField) {
		return Collection{}, fmt.Errorf("slug field %q is not declared", settings.SlugField)
	}
	now := time.Now().UnixMilli()
	return Collection{
		tenantID:    tenantID,
		key:         key,
		name:        name,
		description: description,
		fields:      fields,
		settings:    settings,
		status:      StatusActive,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(
	tenantID, key string, name, description map[string]string,
	fields []field.Field, settings Settings, status Status, createdAt, updatedAt int64,
) Collection {
	if status == "" {
		status = StatusActive
	}
	return Collection{
		tenantID:    tenantID,
		key:         key,
		name:        name,
		description: description,
		fields:      fields,
		settings:    settings,
		status:      status,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// TenantID returns the owning tenant.
func (c Collection) TenantID() string { return c.tenantID }

// Key returns the collection key, unique per tenant.
func (c Collection) Key() string { return c.key }

// Name returns the localized name map.
func (c Collection) Name() map[string]string { return c.name }

// Description returns the localized description map.
func (c Collection) Description() map[string]string { return c.description }

// Fields returns the declared field definitions.
func (c Collection) Fields() []field.Field { return c.fields }

// Settings returns the collection settings.
func (c Collection) Settings() Settings { return c.settings }

// Status returns the lifecycle status.
func (c Collection) Status() Status { return c.status }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// UpdatedAt returns the last update timestamp (unix millis).
func (c Collection) UpdatedAt() int64 { return c.updatedAt }

// FieldByKey looks up a declared field.
func (c Collection) FieldByKey(key string) (field.Field, bool) {
	for _, f := range c.fields {
		if f.Key() == key {
			return f, true
		}
	}
	return field.Field{}, false
}

// WithName returns a copy with the name map replaced.
func (c Collection) WithName(name map[string]string) Collection {
	c.name = name
	return c.touched()
}

// WithDescription returns a copy with the description map replaced.
func (c Collection) WithDescription(description map[string]string) Collection {
	c.description = description
	return c.touched()
}

// WithFields returns a copy with the field set replaced wholesale,
// re-checking duplicate keys. Existing entries are not re-validated.
func (c Collection) WithFields(fields []field.Field) (Collection, error) {
	if err := validateFields(fields); err != nil {
		return Collection{}, err
	}
	c.fields = fields
	return c.touched(), nil
}

// WithSettings returns a copy with the patch shallow-merged over the current settings.
func (c Collection) WithSettings(p SettingsPatch) Collection {
	if p.SlugField != nil {
		c.settings.SlugField = *p.SlugField
	}
	if p.DefaultSort != nil {
		c.settings.DefaultSort = *p.DefaultSort
	}
	if p.Versioned != nil {
		c.settings.Versioned = *p.Versioned
	}
	return c.touched()
}

// WithStatus returns a copy with the status replaced.
func (c Collection) WithStatus(s Status) (Collection, error) {
	if !s.IsValid() {
		return Collection{}, fmt.Errorf("invalid collection status %q", s)
	}
	c.status = s
	return c.touched(), nil
}

// Serialize returns the caller-facing representation, timestamps as RFC3339.
func (c Collection) Serialize() map[string]any {
	fields := make([]map[string]any, len(c.fields))
	for i, f := range c.fields {
		fields[i] = f.Serialize()
	}

	settings := map[string]any{}
	if c.settings.SlugField != "" {
		settings["slugField"] = c.settings.SlugField
	}
	if c.settings.DefaultSort != "" {
		settings["defaultSort"] = c.settings.DefaultSort
	}
	if c.settings.Versioned {
		settings["versioned"] = true
	}

	out := map[string]any{
		"key":       c.key,
		"name":      c.name,
		"fields":    fields,
		"settings":  settings,
		"status":    string(c.status),
		"createdAt": time.UnixMilli(c.createdAt).UTC().Format(time.RFC3339),
		"updatedAt": time.UnixMilli(c.updatedAt).UTC().Format(time.RFC3339),
	}
	if len(c.description) > 0 {
		out["description"] = c.description
	}
	return out
}

func (c Collection) touched() Collection {
	c.updatedAt = time.Now().UnixMilli()
	return c
}

func hasFieldKey(fields []field.Field, key string) bool {
	for _, f := range fields {
		if f.Key() == key {
			return true
		}
	}
	return false
}
