package chi

import (
	"context"
	"testing"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
	entryuc "github.com/strukt-cms/strukt/internal/usecase/entry"
	healthuc "github.com/strukt-cms/strukt/internal/usecase/health"
	queryuc "github.com/strukt-cms/strukt/internal/usecase/query"
	schemauc "github.com/strukt-cms/strukt/internal/usecase/schema"
)

// mockSchemaRepo implements the schema repository for tests.
type mockSchemaRepo struct {
	createFn func(ctx context.Context, col domcol.Collection) error
	updateFn func(ctx context.Context, col domcol.Collection) error
	getFn    func(ctx context.Context, tenantID, key string) (domcol.Collection, error)
	listFn   func(ctx context.Context, tenantID string) ([]domcol.Collection, error)
	deleteFn func(ctx context.Context, tenantID, key string) error
}

func (m *mockSchemaRepo) Create(ctx context.Context, col domcol.Collection) error {
	if m.createFn != nil {
		return m.createFn(ctx, col)
	}
	return nil
}

func (m *mockSchemaRepo) Update(ctx context.Context, col domcol.Collection) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, col)
	}
	return nil
}

func (m *mockSchemaRepo) Get(ctx context.Context, tenantID, key string) (domcol.Collection, error) {
	if m.getFn != nil {
		return m.getFn(ctx, tenantID, key)
	}
	return domcol.Collection{}, domain.ErrCollectionNotFound
}

func (m *mockSchemaRepo) List(ctx context.Context, tenantID string) ([]domcol.Collection, error) {
	if m.listFn != nil {
		return m.listFn(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockSchemaRepo) Delete(ctx context.Context, tenantID, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tenantID, key)
	}
	return nil
}

// mockEntryRepo implements the entry repository and query finder for tests.
type mockEntryRepo struct {
	saveFn   func(ctx context.Context, col domcol.Collection, e dome.Entry) error
	getFn    func(ctx context.Context, tenantID, collectionKey, id string) (dome.Entry, error)
	deleteFn func(ctx context.Context, tenantID, collectionKey, id string) error
	findFn   func(ctx context.Context, tenantID, collectionKey string,
		f query.Filter, sorts []query.Sort, offset, limit int) ([]dome.Entry, int, error)
	countFn     func(ctx context.Context, tenantID, collectionKey string, f query.Filter) (int, error)
	findByIDsFn func(ctx context.Context, tenantID, collectionKey string, ids []string) ([]dome.Entry, error)

	saved []dome.Entry
}

func (m *mockEntryRepo) Save(ctx context.Context, col domcol.Collection, e dome.Entry) error {
	m.saved = append(m.saved, e)
	if m.saveFn != nil {
		return m.saveFn(ctx, col, e)
	}
	return nil
}

func (m *mockEntryRepo) Get(ctx context.Context, tenantID, collectionKey, id string) (dome.Entry, error) {
	if m.getFn != nil {
		return m.getFn(ctx, tenantID, collectionKey, id)
	}
	return dome.Entry{}, domain.ErrEntryNotFound
}

func (m *mockEntryRepo) Delete(ctx context.Context, tenantID, collectionKey, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tenantID, collectionKey, id)
	}
	return nil
}

func (m *mockEntryRepo) Find(ctx context.Context, tenantID, collectionKey string,
	f query.Filter, sorts []query.Sort, offset, limit int,
) ([]dome.Entry, int, error) {
	if m.findFn != nil {
		return m.findFn(ctx, tenantID, collectionKey, f, sorts, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockEntryRepo) Count(ctx context.Context, tenantID, collectionKey string, f query.Filter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, tenantID, collectionKey, f)
	}
	return 0, nil
}

func (m *mockEntryRepo) FindByIDs(ctx context.Context, tenantID, collectionKey string, ids []string) ([]dome.Entry, error) {
	if m.findByIDsFn != nil {
		return m.findByIDsFn(ctx, tenantID, collectionKey, ids)
	}
	return nil, nil
}

// mockSink implements EventSink for tests.
type mockSink struct {
	events []string
}

func (m *mockSink) Emit(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error {
	m.events = append(m.events, event)
	return nil
}

// mockResolver implements AssetResolver and ContentResolver for tests.
type mockResolver struct {
	resolveFn func(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error)
}

func (m *mockResolver) Resolve(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, tenantID, ids)
	}
	return map[string]map[string]any{}, nil
}

// mockPinger implements DBPinger for tests.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// testEnv bundles the server and the mocks its services run against.
type testEnv struct {
	server     *Server
	schemaRepo *mockSchemaRepo
	entryRepo  *mockEntryRepo
	sink       *mockSink
	pinger     *mockPinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	schemaRepo := &mockSchemaRepo{}
	entryRepo := &mockEntryRepo{}
	sink := &mockSink{}
	pinger := &mockPinger{}

	schemaRepo.getFn = func(_ context.Context, _, _ string) (domcol.Collection, error) {
		return testCollection(t), nil
	}

	schemaSvc := schemauc.New(schemaRepo, sink, nil)
	entrySvc := entryuc.New(entryRepo, schemaSvc, sink, nil)
	querySvc := queryuc.New(entryRepo, schemaSvc, &mockResolver{}, &mockResolver{}, nil)
	healthSvc := healthuc.New(pinger)

	return &testEnv{
		server:     NewServer(schemaSvc, entrySvc, querySvc, healthSvc, PageLimits{Default: 50, Max: 200}, nil),
		schemaRepo: schemaRepo,
		entryRepo:  entryRepo,
		sink:       sink,
		pinger:     pinger,
	}
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	return domcol.Reconstruct(
		"t1", "posts", map[string]string{"en": "Posts"}, nil,
		[]field.Field{
			field.Reconstruct(field.Spec{Key: "title", Type: field.String, Required: true, Indexed: true}),
			field.Reconstruct(field.Spec{Key: "views", Type: field.Number}),
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
		dome.StatusPublished, 1700000000000, 1700000000000,
	)
}
