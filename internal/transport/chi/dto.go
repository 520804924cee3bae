package chi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	queryuc "github.com/strukt-cms/strukt/internal/usecase/query"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

type optionDTO struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

type fieldDTO struct {
	Key         string            `json:"key"`
	Type        string            `json:"type"`
	Label       map[string]string `json:"label,omitempty"`
	Description map[string]string `json:"description,omitempty"`
	Options     []optionDTO       `json:"options,omitempty"`
	Ref         string            `json:"ref,omitempty"`
	Required    bool              `json:"required,omitempty"`
	Unique      bool              `json:"unique,omitempty"`
	Indexed     bool              `json:"indexed,omitempty"`
	Multiple    bool              `json:"multiple,omitempty"`
	Default     any               `json:"default,omitempty"`
}

type settingsDTO struct {
	SlugField   string `json:"slugField,omitempty"`
	DefaultSort string `json:"defaultSort,omitempty"`
	Versioned   bool   `json:"versioned,omitempty"`
}

type createCollectionRequest struct {
	Key         string            `json:"key"`
	Name        map[string]string `json:"name"`
	Description map[string]string `json:"description,omitempty"`
	Fields      []fieldDTO        `json:"fields"`
	Settings    *settingsDTO      `json:"settings,omitempty"`
}

type updateCollectionRequest struct {
	Name        map[string]string `json:"name,omitempty"`
	Description map[string]string `json:"description,omitempty"`
	Fields      []fieldDTO        `json:"fields,omitempty"`
	Settings    *settingsPatchDTO `json:"settings,omitempty"`
	Status      *string           `json:"status,omitempty"`
}

type settingsPatchDTO struct {
	SlugField   *string `json:"slugField,omitempty"`
	DefaultSort *string `json:"defaultSort,omitempty"`
	Versioned   *bool   `json:"versioned,omitempty"`
}

type collectionResponse struct {
	Key         string            `json:"key"`
	Name        map[string]string `json:"name"`
	Description map[string]string `json:"description,omitempty"`
	Fields      []fieldDTO        `json:"fields"`
	Settings    settingsDTO       `json:"settings"`
	Status      string            `json:"status"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

type refDTO struct {
	CollectionKey string `json:"collectionKey"`
	EntryID       string `json:"entryId"`
	RelationType  string `json:"relationType,omitempty"`
}

type relationsDTO struct {
	Contents []string `json:"contents,omitempty"`
	Media    []string `json:"media,omitempty"`
	Refs     []refDTO `json:"refs,omitempty"`
}

type createEntryRequest struct {
	Data      map[string]any `json:"data"`
	Relations *relationsDTO  `json:"relations,omitempty"`
	Status    string         `json:"status,omitempty"`
	Slug      string         `json:"slug,omitempty"`
}

type updateEntryRequest struct {
	Data      map[string]any `json:"data,omitempty"`
	Relations *relationsDTO  `json:"relations,omitempty"`
	Status    *string        `json:"status,omitempty"`
	Slug      *string        `json:"slug,omitempty"`
}

type entryPageResponse struct {
	Items      []map[string]any `json:"items"`
	Pagination paginationDTO    `json:"pagination"`
}

type paginationDTO struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// queryRequest decodes the query DSL body. Where triples and orderBy pairs
// arrive as positional JSON arrays.
type queryRequest struct {
	Collection string            `json:"collection"`
	Select     []string          `json:"select,omitempty"`
	Where      []json.RawMessage `json:"where,omitempty"`
	OrderBy    []json.RawMessage `json:"orderBy,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     *int              `json:"offset,omitempty"`
	Page       int               `json:"page,omitempty"`
}

func (q queryRequest) toUsecase() (queryuc.Request, error) {
	out := queryuc.Request{
		Collection: q.Collection,
		Select:     q.Select,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Page:       q.Page,
	}

	for _, raw := range q.Where {
		var triple []any
		if err := json.Unmarshal(raw, &triple); err != nil || len(triple) != 3 {
			return queryuc.Request{}, fmt.Errorf("where clauses must be [field, operator, value] triples")
		}
		f, fok := triple[0].(string)
		op, opok := triple[1].(string)
		if !fok || !opok {
			return queryuc.Request{}, fmt.Errorf("where field and operator must be strings")
		}
		out.Where = append(out.Where, queryuc.Where{Field: f, Op: op, Value: triple[2]})
	}

	for _, raw := range q.OrderBy {
		var pair []string
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) == 0 || len(pair) > 2 {
			return queryuc.Request{}, fmt.Errorf("orderBy entries must be [field, direction] pairs")
		}
		o := queryuc.Order{Field: pair[0]}
		if len(pair) == 2 {
			o.Direction = pair[1]
		}
		out.OrderBy = append(out.OrderBy, o)
	}

	return out, nil
}

func fieldSpecs(dtos []fieldDTO) []field.Spec {
	specs := make([]field.Spec, len(dtos))
	for i, d := range dtos {
		opts := make([]field.Option, len(d.Options))
		for j, o := range d.Options {
			opts[j] = field.Option{Value: o.Value, Label: o.Label}
		}
		specs[i] = field.Spec{
			Key:          d.Key,
			Type:         field.Type(d.Type),
			Label:        d.Label,
			Description:  d.Description,
			Options:      opts,
			Ref:          d.Ref,
			Required:     d.Required,
			Unique:       d.Unique,
			Indexed:      d.Indexed,
			Multiple:     d.Multiple,
			DefaultValue: d.Default,
		}
	}
	return specs
}

func fieldToDTO(f field.Field) fieldDTO {
	opts := make([]optionDTO, len(f.Options()))
	for i, o := range f.Options() {
		opts[i] = optionDTO{Value: o.Value, Label: o.Label}
	}
	if len(opts) == 0 {
		opts = nil
	}
	return fieldDTO{
		Key:         f.Key(),
		Type:        string(f.FieldType()),
		Label:       f.Label(),
		Description: f.Description(),
		Options:     opts,
		Ref:         f.Ref(),
		Required:    f.Required(),
		Unique:      f.Unique(),
		Indexed:     f.Indexed(),
		Multiple:    f.Multiple(),
		Default:     f.DefaultValue(),
	}
}

func collectionToResponse(c domcol.Collection) collectionResponse {
	fields := make([]fieldDTO, len(c.Fields()))
	for i, f := range c.Fields() {
		fields[i] = fieldToDTO(f)
	}
	return collectionResponse{
		Key:         c.Key(),
		Name:        c.Name(),
		Description: c.Description(),
		Fields:      fields,
		Settings: settingsDTO{
			SlugField:   c.Settings().SlugField,
			DefaultSort: c.Settings().DefaultSort,
			Versioned:   c.Settings().Versioned,
		},
		Status:    string(c.Status()),
		CreatedAt: time.UnixMilli(c.CreatedAt()).UTC().Format(time.RFC3339),
		UpdatedAt: time.UnixMilli(c.UpdatedAt()).UTC().Format(time.RFC3339),
	}
}

func relationsFromDTO(d *relationsDTO) *dome.Relations {
	if d == nil {
		return nil
	}
	r := &dome.Relations{
		Contents: d.Contents,
		Media:    d.Media,
	}
	for _, ref := range d.Refs {
		r.Refs = append(r.Refs, dome.RefLink{
			CollectionKey: ref.CollectionKey,
			EntryID:       ref.EntryID,
			RelationType:  ref.RelationType,
		})
	}
	return r
}
