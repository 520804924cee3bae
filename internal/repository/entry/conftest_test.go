package entry

import (
	"context"
	"testing"

	"github.com/strukt-cms/strukt/internal/db"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn      func(ctx context.Context, key, path string, data []byte) error
	jsonGetFn      func(ctx context.Context, key string, paths ...string) ([]byte, error)
	jsonGetMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	delFn          func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	findFn         func(ctx context.Context, q *db.FindQuery) (*db.FindResult, error)
	countFn        func(ctx context.Context, index string, f query.Filter) (int, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.jsonGetMultiFn != nil {
		return m.jsonGetMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error) {
	if m.findFn != nil {
		return m.findFn(ctx, q)
	}
	return &db.FindResult{}, nil
}

func (m *mockStore) Count(ctx context.Context, index string, f query.Filter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, index, f)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	return domcol.Reconstruct(
		"t1", "posts", nil, nil,
		[]field.Field{
			field.Reconstruct(field.Spec{Key: "title", Type: field.String, Indexed: true}),
			field.Reconstruct(field.Spec{Key: "published_on", Type: field.Date}),
		},
		domcol.Settings{SlugField: "title"},
		domcol.StatusActive,
		1700000000000, 1700000000000,
	)
}

func testEntry(t *testing.T, id string, data map[string]any) dome.Entry {
	t.Helper()
	return dome.Reconstruct(
		id, "t1", "posts", "hello-world", data,
		dome.Relations{}, dome.Snapshot{Title: "Hello"},
		dome.StatusPublished, 1700000000000, 1700000000000,
	)
}
