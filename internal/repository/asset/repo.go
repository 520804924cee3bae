package asset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/strukt-cms/strukt/internal/domain"
)

// store is the consumer interface for media asset documents (ISP).
type store interface {
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	JSONSet(ctx context.Context, key, path string, data []byte) error
}

// Repo resolves media asset documents for relation dereferencing.
type Repo struct {
	store store
}

// New creates a media asset repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Resolve bulk-fetches asset documents by id in one round-trip. Ids that do
// not resolve are absent from the result map.
func (r *Repo) Resolve(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error) {
	if len(ids) == 0 {
		return map[string]map[string]any{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = assetKey(tenantID, id)
	}

	docs, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("json.get multi assets: %w", err)
	}

	out := make(map[string]map[string]any, len(ids))
	for i, raw := range docs {
		if raw == nil {
			continue
		}
		m, err := unwrapDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("parse asset %s: %w", ids[i], err)
		}
		if m != nil {
			out[ids[i]] = m
		}
	}
	return out, nil
}

// Put stores an asset document, replacing any previous version.
func (r *Repo) Put(ctx context.Context, tenantID, id string, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal asset %s: %w", id, err)
	}
	if err := r.store.JSONSet(ctx, assetKey(tenantID, id), "$", data); err != nil {
		return fmt.Errorf("json.set asset %s: %w", id, err)
	}
	return nil
}

// unwrapDoc parses a JSON.GET result, unwrapping the one-element array form
// returned for the "$" path.
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

// Redis key pattern: strukt:asset:{tenant}:{id}

func assetKey(tenantID, id string) string {
	return fmt.Sprintf("%sasset:%s:%s", domain.KeyPrefix, tenantID, id)
}
