package content

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/strukt-cms/strukt/internal/domain"
)

// store is the consumer interface for shared content documents (ISP).
type store interface {
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	JSONSet(ctx context.Context, key, path string, data []byte) error
}

// Repo resolves shared content block documents for relation dereferencing.
type Repo struct {
	store store
}

// New creates a content block repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Resolve bulk-fetches content documents by id in one round-trip. Ids that do
// not resolve are absent from the result map.
func (r *Repo) Resolve(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error) {
	if len(ids) == 0 {
		return map[string]map[string]any{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = contentKey(tenantID, id)
	}

	docs, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("json.get multi contents: %w", err)
	}

	out := make(map[string]map[string]any, len(ids))
	for i, raw := range docs {
		if raw == nil {
			continue
		}
		m, err := unwrapDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("parse content %s: %w", ids[i], err)
		}
		if m != nil {
			out[ids[i]] = m
		}
	}
	return out, nil
}

// Put stores a content document, replacing any previous version.
func (r *Repo) Put(ctx context.Context, tenantID, id string, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal content %s: %w", id, err)
	}
	if err := r.store.JSONSet(ctx, contentKey(tenantID, id), "$", data); err != nil {
		return fmt.Errorf("json.set content %s: %w", id, err)
	}
	return nil
}

func unwrapDoc(raw []byte) (map[string]any, error) {
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return nil, nil
		}
		return arr[0], nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Redis key pattern: strukt:content:{tenant}:{id}

func contentKey(tenantID, id string) string {
	return fmt.Sprintf("%scontent:%s:%s", domain.KeyPrefix, tenantID, id)
}
