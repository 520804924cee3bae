package strukt

import (
	"context"
	"fmt"
)

// DocumentService ingests and resolves the opaque documents relation
// dereferencing reads: media assets and external content records. Documents
// are schema-less; queries project into them by subpath.
type DocumentService struct {
	tenant string
	kind   string
	store  documentStore
}

// Put stores one document under the given id, replacing any previous version.
func (s *DocumentService) Put(ctx context.Context, id string, doc map[string]any) error {
	if err := s.store.Put(ctx, s.tenant, id, doc); err != nil {
		return fmt.Errorf("put %s %q: %w", s.kind, id, err)
	}
	return nil
}

// Get retrieves one document by id, nil when absent.
func (s *DocumentService) Get(ctx context.Context, id string) (map[string]any, error) {
	docs, err := s.store.Resolve(ctx, s.tenant, []string{id})
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", s.kind, id, err)
	}
	return docs[id], nil
}
