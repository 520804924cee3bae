package query

import (
	"context"
	"testing"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// mockFinder implements EntryFinder for tests.
type mockFinder struct {
	findFn func(ctx context.Context, tenantID, collectionKey string,
		f query.Filter, sorts []query.Sort, offset, limit int) ([]dome.Entry, int, error)
	findByIDsFn func(ctx context.Context, tenantID, collectionKey string, ids []string) ([]dome.Entry, error)

	findCalls      int
	findByIDsCalls int
}

func (m *mockFinder) Find(ctx context.Context, tenantID, collectionKey string,
	f query.Filter, sorts []query.Sort, offset, limit int,
) ([]dome.Entry, int, error) {
	m.findCalls++
	if m.findFn != nil {
		return m.findFn(ctx, tenantID, collectionKey, f, sorts, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockFinder) FindByIDs(ctx context.Context, tenantID, collectionKey string, ids []string) ([]dome.Entry, error) {
	m.findByIDsCalls++
	if m.findByIDsFn != nil {
		return m.findByIDsFn(ctx, tenantID, collectionKey, ids)
	}
	return nil, nil
}

// mockSchema implements SchemaReader for tests.
type mockSchema struct {
	getFn func(ctx context.Context, tenantID, key string) (domcol.Collection, error)
}

func (m *mockSchema) Get(ctx context.Context, tenantID, key string) (domcol.Collection, error) {
	if m.getFn != nil {
		return m.getFn(ctx, tenantID, key)
	}
	return domcol.Collection{}, domain.ErrCollectionNotFound
}

// mockResolver implements AssetResolver and ContentResolver for tests.
type mockResolver struct {
	resolveFn func(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error)
	calls     int
	lastIDs   []string
}

func (m *mockResolver) Resolve(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error) {
	m.calls++
	m.lastIDs = ids
	if m.resolveFn != nil {
		return m.resolveFn(ctx, tenantID, ids)
	}
	return map[string]map[string]any{}, nil
}

func newTestService(t *testing.T) (*Service, *mockFinder, *mockSchema, *mockResolver, *mockResolver) {
	t.Helper()
	finder := &mockFinder{}
	schema := &mockSchema{}
	assets := &mockResolver{}
	contents := &mockResolver{}
	svc := New(finder, schema, assets, contents, nil)
	schema.getFn = func(_ context.Context, _, _ string) (domcol.Collection, error) {
		return testCollection(t), nil
	}
	return svc, finder, schema, assets, contents
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	return domcol.Reconstruct(
		"t1", "posts", map[string]string{"en": "Posts"}, nil,
		[]field.Field{
			field.Reconstruct(field.Spec{Key: "title", Type: field.String, Indexed: true}),
			field.Reconstruct(field.Spec{Key: "price", Type: field.Number}),
			field.Reconstruct(field.Spec{Key: "published_on", Type: field.Date, Indexed: true}),
			field.Reconstruct(field.Spec{Key: "author", Type: field.Ref, Ref: "authors"}),
			field.Reconstruct(field.Spec{Key: "cover", Type: field.Media}),
			field.Reconstruct(field.Spec{Key: "location", Type: field.GeoJSON}),
			field.Reconstruct(field.Spec{
				Key: "category", Type: field.Enum, Multiple: true,
				Options: []field.Option{{Value: "news"}, {Value: "tech"}},
			}),
		},
		domcol.Settings{SlugField: "title"},
		domcol.StatusActive, 1700000000000, 1700000000000,
	)
}

func pageEntry(t *testing.T, id string, data map[string]any, rels dome.Relations) dome.Entry {
	t.Helper()
	if data == nil {
		data = map[string]any{}
	}
	return dome.Reconstruct(
		id, "t1", "posts", "slug-"+id, data, rels,
		dome.Snapshot{Title: "Entry " + id},
		dome.StatusPublished, 1700000000000, 1700000000000,
	)
}
