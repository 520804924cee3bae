package strukt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	schemauc "github.com/strukt-cms/strukt/internal/usecase/schema"
)

// FieldType enumerates the supported field types.
type FieldType string

const (
	String   FieldType = "string"
	Text     FieldType = "text"
	Number   FieldType = "number"
	Boolean  FieldType = "boolean"
	Date     FieldType = "date"
	DateTime FieldType = "datetime"
	Enum     FieldType = "enum"
	Ref      FieldType = "ref"
	Media    FieldType = "media"
	GeoJSON  FieldType = "geojson"
)

// Field describes one field of a collection schema.
type Field struct {
	Key      string
	Type     FieldType
	Label    map[string]string
	Options  []string // enum members
	Ref      string   // target collection for ref fields
	Required bool
	Unique   bool
	Indexed  bool
	Multiple bool
	Default  any
}

// Settings holds per-collection behavior switches.
type Settings struct {
	SlugField   string
	DefaultSort string
	Versioned   bool
}

// Collection is the public view of a collection type.
type Collection struct {
	Key         string
	Name        map[string]string
	Description map[string]string
	Fields      []Field
	Settings    Settings
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CollectionPatch is a partial collection update. Nil members keep the
// stored value; Fields replaces the whole field set when non-nil.
type CollectionPatch struct {
	Name        map[string]string
	Description map[string]string
	Fields      []Field
	SlugField   *string
	DefaultSort *string
	Versioned   *bool
	Status      *string
}

// CollectionOption configures collection creation.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	name        map[string]string
	description map[string]string
	fields      []Field
	settings    Settings
}

// Named sets a localized display name.
func Named(locale, name string) CollectionOption {
	return func(c *collectionConfig) {
		if c.name == nil {
			c.name = map[string]string{}
		}
		c.name[locale] = name
	}
}

// Described sets a localized description.
func Described(locale, text string) CollectionOption {
	return func(c *collectionConfig) {
		if c.description == nil {
			c.description = map[string]string{}
		}
		c.description[locale] = text
	}
}

// WithField adds a field to the collection schema.
func WithField(f Field) CollectionOption {
	return func(c *collectionConfig) {
		c.fields = append(c.fields, f)
	}
}

// WithSlugField names the field whose value seeds entry slugs.
func WithSlugField(key string) CollectionOption {
	return func(c *collectionConfig) {
		c.settings.SlugField = key
	}
}

// WithDefaultSort sets the default ordering for queries without orderBy.
func WithDefaultSort(sort string) CollectionOption {
	return func(c *collectionConfig) {
		c.settings.DefaultSort = sort
	}
}

// CollectionService manages collection types of a single tenant.
type CollectionService struct {
	tenant string
	svc    *schemauc.Service
}

// Create registers a new collection type.
func (s *CollectionService) Create(ctx context.Context, key string, opts ...CollectionOption) (Collection, error) {
	var cfg collectionConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.name == nil {
		cfg.name = map[string]string{"en": key}
	}

	col, err := s.svc.Create(ctx, s.tenant, schemauc.CreateInput{
		Key:         key,
		Name:        cfg.name,
		Description: cfg.description,
		Fields:      toFieldSpecs(cfg.fields),
		Settings: domcol.Settings{
			SlugField:   cfg.settings.SlugField,
			DefaultSort: cfg.settings.DefaultSort,
			Versioned:   cfg.settings.Versioned,
		},
	})
	if err != nil {
		return Collection{}, fmt.Errorf("create collection %q: %w", key, err)
	}
	return fromCollection(col), nil
}

// Ensure creates the collection if it does not exist (idempotent).
func (s *CollectionService) Ensure(ctx context.Context, key string, opts ...CollectionOption) (Collection, error) {
	col, err := s.svc.Get(ctx, s.tenant, key)
	if err == nil {
		return fromCollection(col), nil
	}
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		return Collection{}, fmt.Errorf("ensure collection %q: %w", key, err)
	}
	return s.Create(ctx, key, opts...)
}

// Get retrieves a collection type by key.
func (s *CollectionService) Get(ctx context.Context, key string) (Collection, error) {
	col, err := s.svc.Get(ctx, s.tenant, key)
	if err != nil {
		return Collection{}, fmt.Errorf("get collection %q: %w", key, err)
	}
	return fromCollection(col), nil
}

// List returns the tenant's collection types, optionally filtered by status
// ("active" or "archived"; empty returns all).
func (s *CollectionService) List(ctx context.Context, status string) ([]Collection, error) {
	cols, err := s.svc.List(ctx, s.tenant, domcol.Status(status))
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]Collection, len(cols))
	for i, c := range cols {
		out[i] = fromCollection(c)
	}
	return out, nil
}

// Update applies a partial update to a collection type.
func (s *CollectionService) Update(ctx context.Context, key string, patch CollectionPatch) (Collection, error) {
	in := schemauc.UpdateInput{
		Name:        patch.Name,
		Description: patch.Description,
		Settings: domcol.SettingsPatch{
			SlugField:   patch.SlugField,
			DefaultSort: patch.DefaultSort,
			Versioned:   patch.Versioned,
		},
	}
	if patch.Fields != nil {
		in.Fields = toFieldSpecs(patch.Fields)
	}
	if patch.Status != nil {
		st := domcol.Status(*patch.Status)
		in.Status = &st
	}

	col, err := s.svc.Update(ctx, s.tenant, key, in)
	if err != nil {
		return Collection{}, fmt.Errorf("update collection %q: %w", key, err)
	}
	return fromCollection(col), nil
}

// Delete removes a collection type. Entries are not cascaded.
func (s *CollectionService) Delete(ctx context.Context, key string) error {
	if err := s.svc.Delete(ctx, s.tenant, key); err != nil {
		return fmt.Errorf("delete collection %q: %w", key, err)
	}
	return nil
}

func toFieldSpecs(fields []Field) []field.Spec {
	specs := make([]field.Spec, len(fields))
	for i, f := range fields {
		opts := make([]field.Option, len(f.Options))
		for j, v := range f.Options {
			opts[j] = field.Option{Value: v}
		}
		specs[i] = field.Spec{
			Key:          f.Key,
			Type:         field.Type(f.Type),
			Label:        f.Label,
			Options:      opts,
			Ref:          f.Ref,
			Required:     f.Required,
			Unique:       f.Unique,
			Indexed:      f.Indexed,
			Multiple:     f.Multiple,
			DefaultValue: f.Default,
		}
	}
	return specs
}

func fromCollection(col domcol.Collection) Collection {
	fields := make([]Field, len(col.Fields()))
	for i, f := range col.Fields() {
		var opts []string
		for _, o := range f.Options() {
			opts = append(opts, o.Value)
		}
		fields[i] = Field{
			Key:      f.Key(),
			Type:     FieldType(f.FieldType()),
			Label:    f.Label(),
			Options:  opts,
			Ref:      f.Ref(),
			Required: f.Required(),
			Unique:   f.Unique(),
			Indexed:  f.Indexed(),
			Multiple: f.Multiple(),
			Default:  f.DefaultValue(),
		}
	}
	return Collection{
		Key:         col.Key(),
		Name:        col.Name(),
		Description: col.Description(),
		Fields:      fields,
		Settings: Settings{
			SlugField:   col.Settings().SlugField,
			DefaultSort: col.Settings().DefaultSort,
			Versioned:   col.Settings().Versioned,
		},
		Status:    string(col.Status()),
		CreatedAt: time.UnixMilli(col.CreatedAt()).UTC(),
		UpdatedAt: time.UnixMilli(col.UpdatedAt()).UTC(),
	}
}
