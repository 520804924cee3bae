package entry

import (
	"context"

	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// Repository defines the storage contract for entries.
type Repository interface {
	Save(ctx context.Context, col domcol.Collection, e dome.Entry) error
	Get(ctx context.Context, tenantID, collectionKey, id string) (dome.Entry, error)
	Delete(ctx context.Context, tenantID, collectionKey, id string) error
	Find(ctx context.Context, tenantID, collectionKey string,
		f query.Filter, sorts []query.Sort, offset, limit int) ([]dome.Entry, int, error)
	Count(ctx context.Context, tenantID, collectionKey string, f query.Filter) (int, error)
}

// SchemaReader resolves collection types for validation and index mapping.
type SchemaReader interface {
	Get(ctx context.Context, tenantID, key string) (domcol.Collection, error)
}

// EventSink publishes lifecycle events. Emission is best-effort: failures are
// logged and never fail the operation.
type EventSink interface {
	Emit(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error
}
