package schema

import (
	"context"

	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
)

// Repository defines the storage contract for collection types.
type Repository interface {
	Create(ctx context.Context, col domcol.Collection) error
	Update(ctx context.Context, col domcol.Collection) error
	Get(ctx context.Context, tenantID, key string) (domcol.Collection, error)
	List(ctx context.Context, tenantID string) ([]domcol.Collection, error)
	Delete(ctx context.Context, tenantID, key string) error
}

// EventSink publishes lifecycle events. Emission is best-effort: failures are
// logged and never fail the operation.
type EventSink interface {
	Emit(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error
}
