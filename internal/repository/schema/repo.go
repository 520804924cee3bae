package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/strukt-cms/strukt/internal/db"
	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/metrics"
)

// store is the consumer interface for collection types (ISP).
//
//nolint:interfacebloat // schema repo needs hash + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements usecase/schema.Repository.
type Repo struct {
	store store
}

// New creates a collection type repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a collection type: HSET metadata then FT.CREATE the entry index.
// On FT.CREATE failure, rolls back the HSET via DEL.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	metaKey := metaKey(col.TenantID(), col.Key())
	exists, err := r.store.Exists(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCollectionKey, col.Key())
	}

	// Prepare index definition and hash data before writes
	indexDef, err := buildIndex(col)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	hashData, err := collectionToHash(col)
	if err != nil {
		return err
	}

	if err := r.store.HSet(ctx, metaKey, hashData); err != nil {
		return fmt.Errorf("hset collection %s: %w", col.Key(), err)
	}

	// FT.CREATE, rollback HSET on error
	if err := r.store.CreateIndex(ctx, indexDef); err != nil {
		cleanupErr := r.store.Del(ctx, metaKey)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Update replaces collection type metadata. When the field set changed in a
// way that alters the index schema, the entry index is dropped and recreated;
// entry documents are kept and re-indexed by the server in the background.
func (r *Repo) Update(ctx context.Context, col domcol.Collection) error {
	metaKey := metaKey(col.TenantID(), col.Key())

	backup, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", col.Key(), err)
	}
	if len(backup) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, col.Key())
	}

	prev, err := collectionFromHash(backup)
	if err != nil {
		return fmt.Errorf("parse collection %s: %w", col.Key(), err)
	}

	hashData, err := collectionToHash(col)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, metaKey, hashData); err != nil {
		return fmt.Errorf("hset collection %s: %w", col.Key(), err)
	}

	prevIdx, err := buildIndex(prev)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	nextIdx, err := buildIndex(col)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if prevIdx.String() == nextIdx.String() {
		return nil
	}

	// Schema changed: rebuild the index. Rollback metadata on failure.
	if err := r.store.DropIndex(ctx, prevIdx.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		cleanupErr := r.store.HSet(ctx, metaKey, backup)
		return errors.Join(err, cleanupErr)
	}
	if err := r.store.CreateIndex(ctx, nextIdx); err != nil {
		cleanupErr := r.store.HSet(ctx, metaKey, backup)
		return errors.Join(err, cleanupErr)
	}
	metrics.IndexRebuildsTotal.Inc()

	return nil
}

// Get retrieves a collection type by tenant and key.
func (r *Repo) Get(ctx context.Context, tenantID, key string) (domcol.Collection, error) {
	m, err := r.store.HGetAll(ctx, metaKey(tenantID, key))
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("hgetall collection %s: %w", key, err)
	}
	if len(m) == 0 {
		return domcol.Collection{}, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, key)
	}

	return collectionFromHash(m)
}

// List returns all collection types of a tenant sorted by CreatedAt.
func (r *Repo) List(ctx context.Context, tenantID string) ([]domcol.Collection, error) {
	keys, err := r.store.Scan(ctx, metaKey(tenantID, "*"))
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	if len(keys) == 0 {
		return []domcol.Collection{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi collections: %w", err)
	}

	collections := make([]domcol.Collection, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		col, err := collectionFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", keys[i], err)
		}
		collections = append(collections, col)
	}

	sort.Slice(collections, func(i, j int) bool {
		return collections[i].CreatedAt() < collections[j].CreatedAt()
	})

	return collections, nil
}

// Delete removes a collection type: backup metadata, DEL hash, FT.DROPINDEX
// (rollback HSET on error). Entry documents are kept.
func (r *Repo) Delete(ctx context.Context, tenantID, key string) error {
	metaKey := metaKey(tenantID, key)

	backup, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", key, err)
	}
	if len(backup) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, key)
	}

	if err := r.store.Del(ctx, metaKey); err != nil {
		return fmt.Errorf("del collection %s: %w", key, err)
	}

	if err := r.store.DropIndex(ctx, IndexName(tenantID, key)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		cleanupErr := r.store.HSet(ctx, metaKey, backup)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Redis key patterns: strukt:collection:{tenant}:{key}, strukt:idx:{tenant}:{key},
// strukt:e:{tenant}:{key}:{id}

func metaKey(tenantID, key string) string {
	return fmt.Sprintf("%scollection:%s:%s", domain.KeyPrefix, tenantID, key)
}

// IndexName returns the FT index name for a tenant's collection.
func IndexName(tenantID, key string) string {
	return fmt.Sprintf("%sidx:%s:%s", domain.KeyPrefix, tenantID, key)
}

// EntryPrefix returns the key prefix shared by all entry documents of a
// tenant's collection.
func EntryPrefix(tenantID, key string) string {
	return fmt.Sprintf("%se:%s:%s:", domain.KeyPrefix, tenantID, key)
}
