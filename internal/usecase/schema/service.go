package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	"github.com/strukt-cms/strukt/internal/metrics"
)

// CreateInput carries the attributes of a new collection type.
type CreateInput struct {
	Key         string
	Name        map[string]string
	Description map[string]string
	Fields      []field.Spec
	Settings    domcol.Settings
}

// UpdateInput carries a partial collection type update. Nil members keep the
// stored value; Fields replaces the field set wholesale when non-nil.
type UpdateInput struct {
	Name        map[string]string
	Description map[string]string
	Fields      []field.Spec
	Settings    domcol.SettingsPatch
	Status      *domcol.Status
}

// Service handles collection type management.
type Service struct {
	repo   Repository
	events EventSink
	logger *zap.Logger
}

// New creates a schema service.
func New(repo Repository, events EventSink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, events: events, logger: logger}
}

// Create validates and stores a new collection type, then provisions its
// entry index.
func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (domcol.Collection, error) {
	fields, err := buildFields(in.Fields)
	if err != nil {
		return domcol.Collection{}, err
	}

	col, err := domcol.New(tenantID, in.Key, in.Name, in.Description, fields, in.Settings)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}

	if err := s.repo.Create(ctx, col); err != nil {
		return domcol.Collection{}, fmt.Errorf("create collection: %w", err)
	}

	s.emit(ctx, tenantID, "collection.created", in.Key, &col)
	return col, nil
}

// Update applies a partial update to a collection type. Replacing the field
// set triggers an entry index rebuild in the repository.
func (s *Service) Update(ctx context.Context, tenantID, key string, in UpdateInput) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, tenantID, key)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}

	if in.Name != nil {
		col = col.WithName(in.Name)
	}
	if in.Description != nil {
		col = col.WithDescription(in.Description)
	}
	if in.Fields != nil {
		fields, err := buildFields(in.Fields)
		if err != nil {
			return domcol.Collection{}, err
		}
		col, err = col.WithFields(fields)
		if err != nil {
			return domcol.Collection{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
		}
	}
	col = col.WithSettings(in.Settings)
	if in.Status != nil {
		col, err = col.WithStatus(*in.Status)
		if err != nil {
			return domcol.Collection{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
		}
	}

	if slug := col.Settings().SlugField; slug != "" {
		if _, ok := col.FieldByKey(slug); !ok {
			return domcol.Collection{}, fmt.Errorf("%w: slug field %q is not declared", domain.ErrInvalidSchema, slug)
		}
	}

	if err := s.repo.Update(ctx, col); err != nil {
		return domcol.Collection{}, fmt.Errorf("update collection: %w", err)
	}

	s.emit(ctx, tenantID, "collection.updated", key, &col)
	return col, nil
}

// Get retrieves a collection type by key.
func (s *Service) Get(ctx context.Context, tenantID, key string) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, tenantID, key)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// List returns the collection types of a tenant, every status when the
// filter is empty.
func (s *Service) List(ctx context.Context, tenantID string, status domcol.Status) ([]domcol.Collection, error) {
	if status != "" && !status.IsValid() {
		return nil, domain.NewQueryError("status", "status", fmt.Sprintf("unknown status %q", status))
	}
	cols, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	if status == "" {
		return cols, nil
	}
	filtered := cols[:0]
	for _, c := range cols {
		if c.Status() == status {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Delete removes a collection type and its entry index. Entry documents are
// kept and become unreachable through the query engine.
func (s *Service) Delete(ctx context.Context, tenantID, key string) error {
	if err := s.repo.Delete(ctx, tenantID, key); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.emit(ctx, tenantID, "collection.deleted", key, nil)
	return nil
}

// emit publishes a lifecycle event carrying the serialized collection type,
// nil on deletion.
func (s *Service) emit(ctx context.Context, tenantID, event, key string, col *domcol.Collection) {
	if s.events == nil {
		return
	}
	var payload []byte
	if col != nil {
		payload, _ = json.Marshal(col.Serialize())
	}
	if err := s.events.Emit(ctx, tenantID, event, key, "", payload); err != nil {
		metrics.EventEmitFailuresTotal.Inc()
		s.logger.Warn("Failed to emit event",
			zap.String("event", event),
			zap.String("collection", key),
			zap.Error(err))
	}
}

func buildFields(specs []field.Spec) ([]field.Field, error) {
	fields := make([]field.Field, len(specs))
	for i, spec := range specs {
		f, err := field.New(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
		}
		fields[i] = f
	}
	return fields, nil
}
