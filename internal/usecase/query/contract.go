package query

import (
	"context"

	"github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// EntryFinder runs compiled filters against the entry store and resolves
// referenced entries in bulk.
type EntryFinder interface {
	Find(ctx context.Context, tenantID, collectionKey string,
		f query.Filter, sorts []query.Sort, offset, limit int) ([]entry.Entry, int, error)
	FindByIDs(ctx context.Context, tenantID, collectionKey string, ids []string) ([]entry.Entry, error)
}

// SchemaReader loads the collection type a query targets.
type SchemaReader interface {
	Get(ctx context.Context, tenantID, key string) (collection.Collection, error)
}

// AssetResolver bulk-resolves media identifiers to asset documents.
type AssetResolver interface {
	Resolve(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error)
}

// ContentResolver bulk-resolves external content identifiers to documents.
type ContentResolver interface {
	Resolve(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error)
}
