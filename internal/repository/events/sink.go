package events

import (
	"context"
	"fmt"

	"github.com/strukt-cms/strukt/internal/domain"
)

// Stream is the Redis stream receiving lifecycle events.
const Stream = domain.KeyPrefix + "events"

// store is the consumer interface for the event stream (ISP).
type store interface {
	XAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
}

// Sink appends lifecycle events to a Redis stream. Consumers (webhooks,
// cache invalidation) read the stream independently.
type Sink struct {
	store store
}

// New creates an event sink.
func New(s store) *Sink {
	return &Sink{store: s}
}

// Emit appends one event. The entry id is empty for collection-level events;
// payload carries the serialized subject snapshot, nil for deletions.
func (s *Sink) Emit(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error {
	fields := map[string]string{
		"event":      event,
		"tenant":     tenantID,
		"collection": collectionKey,
	}
	if entryID != "" {
		fields["entry"] = entryID
	}
	if len(payload) > 0 {
		fields["payload"] = string(payload)
	}
	if _, err := s.store.XAdd(ctx, Stream, fields); err != nil {
		return fmt.Errorf("xadd %s: %w", event, err)
	}
	return nil
}
