package entry

import (
	"context"
	"testing"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// mockRepo implements Repository for tests.
type mockRepo struct {
	saveFn   func(ctx context.Context, col domcol.Collection, e dome.Entry) error
	getFn    func(ctx context.Context, tenantID, collectionKey, id string) (dome.Entry, error)
	deleteFn func(ctx context.Context, tenantID, collectionKey, id string) error
	findFn   func(ctx context.Context, tenantID, collectionKey string,
		f query.Filter, sorts []query.Sort, offset, limit int) ([]dome.Entry, int, error)
	countFn func(ctx context.Context, tenantID, collectionKey string, f query.Filter) (int, error)

	saved []dome.Entry
}

func (m *mockRepo) Save(ctx context.Context, col domcol.Collection, e dome.Entry) error {
	m.saved = append(m.saved, e)
	if m.saveFn != nil {
		return m.saveFn(ctx, col, e)
	}
	return nil
}

func (m *mockRepo) Get(ctx context.Context, tenantID, collectionKey, id string) (dome.Entry, error) {
	if m.getFn != nil {
		return m.getFn(ctx, tenantID, collectionKey, id)
	}
	return dome.Entry{}, domain.ErrEntryNotFound
}

func (m *mockRepo) Delete(ctx context.Context, tenantID, collectionKey, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tenantID, collectionKey, id)
	}
	return nil
}

func (m *mockRepo) Find(ctx context.Context, tenantID, collectionKey string,
	f query.Filter, sorts []query.Sort, offset, limit int,
) ([]dome.Entry, int, error) {
	if m.findFn != nil {
		return m.findFn(ctx, tenantID, collectionKey, f, sorts, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockRepo) Count(ctx context.Context, tenantID, collectionKey string, f query.Filter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, tenantID, collectionKey, f)
	}
	return 0, nil
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

// mockSink implements EventSink for tests.
type mockSink struct {
	emitFn func(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error
	events []string
}

func (m *mockSink) Emit(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error {
	m.events = append(m.events, event)
	if m.emitFn != nil {
		return m.emitFn(ctx, tenantID, event, collectionKey, entryID, payload)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockSchema, *mockSink) {
	t.Helper()
	repo := &mockRepo{}
	schema := &mockSchema{}
	sink := &mockSink{}
	svc := New(repo, schema, sink, nil)
	schema.getFn = func(_ context.Context, _, _ string) (domcol.Collection, error) {
		return testCollection(t), nil
	}
	return svc, repo, schema, sink
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	return domcol.Reconstruct(
		"t1", "posts", map[string]string{"en": "Posts"}, nil,
		[]field.Field{
			field.Reconstruct(field.Spec{Key: "title", Type: field.String, Required: true, Indexed: true}),
			field.Reconstruct(field.Spec{Key: "email", Type: field.String, Unique: true}),
			field.Reconstruct(field.Spec{Key: "views", Type: field.Number, DefaultValue: float64(0)}),
			field.Reconstruct(field.Spec{Key: "published_on", Type: field.Date, Indexed: true}),
			field.Reconstruct(field.Spec{
				Key: "category", Type: field.Enum, Multiple: true, Indexed: true,
				Options: []field.Option{{Value: "news"}, {Value: "tech"}},
			}),
		},
		domcol.Settings{SlugField: "title"},
		domcol.StatusActive, 1700000000000, 1700000000000,
	)
}

func storedEntry(t *testing.T, id string) dome.Entry {
	t.Helper()
	return dome.Reconstruct(
		id, "t1", "posts", "hello-world",
		map[string]any{"title": "Hello World", "views": float64(3)},
		dome.Relations{}, dome.Snapshot{Title: "Hello World"},
		dome.StatusDraft, 1700000000000, 1700000000000,
	)
}
