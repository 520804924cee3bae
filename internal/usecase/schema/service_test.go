package schema

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
)

// mockRepo implements Repository for tests.
type mockRepo struct {
	createFn func(ctx context.Context, col domcol.Collection) error
	updateFn func(ctx context.Context, col domcol.Collection) error
	getFn    func(ctx context.Context, tenantID, key string) (domcol.Collection, error)
	listFn   func(ctx context.Context, tenantID string) ([]domcol.Collection, error)
	deleteFn func(ctx context.Context, tenantID, key string) error
}

func (m *mockRepo) Create(ctx context.Context, col domcol.Collection) error {
	if m.createFn != nil {
		return m.createFn(ctx, col)
	}
	return nil
}

func (m *mockRepo) Update(ctx context.Context, col domcol.Collection) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, col)
	}
	return nil
}

func (m *mockRepo) Get(ctx context.Context, tenantID, key string) (domcol.Collection, error) {
	if m.getFn != nil {
		return m.getFn(ctx, tenantID, key)
	}
	return domcol.Collection{}, domain.ErrCollectionNotFound
}

func (m *mockRepo) List(ctx context.Context, tenantID string) ([]domcol.Collection, error) {
	if m.listFn != nil {
		return m.listFn(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockRepo) Delete(ctx context.Context, tenantID, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tenantID, key)
	}
	return nil
}

// mockSink implements EventSink for tests.
type mockSink struct {
	emitFn   func(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error
	events   []string
	payloads [][]byte
}

func (m *mockSink) Emit(ctx context.Context, tenantID, event, collectionKey, entryID string, payload []byte) error {
	m.events = append(m.events, event)
	m.payloads = append(m.payloads, payload)
	if m.emitFn != nil {
		return m.emitFn(ctx, tenantID, event, collectionKey, entryID, payload)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockSink) {
	t.Helper()
	repo := &mockRepo{}
	sink := &mockSink{}
	return New(repo, sink, nil), repo, sink
}

func postsInput() CreateInput {
	return CreateInput{
		Key:  "posts",
		Name: map[string]string{"en": "Posts"},
		Fields: []field.Spec{
			{Key: "title", Type: field.String, Required: true, Indexed: true},
			{Key: "body", Type: field.Text},
		},
		Settings: domcol.Settings{SlugField: "title"},
	}
}

func storedCollection(t *testing.T) domcol.Collection {
	t.Helper()
	return domcol.Reconstruct(
		"t1", "posts", map[string]string{"en": "Posts"}, nil,
		[]field.Field{
			field.Reconstruct(field.Spec{Key: "title", Type: field.String, Required: true, Indexed: true}),
			field.Reconstruct(field.Spec{Key: "body", Type: field.Text}),
		},
		domcol.Settings{SlugField: "title"},
		domcol.StatusActive, 1700000000000, 1700000000000,
	)
}

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	svc, repo, sink := newTestService(t)
	ctx := context.Background()

	var stored domcol.Collection
	repo.createFn = func(_ context.Context, col domcol.Collection) error {
		stored = col
		return nil
	}

	col, err := svc.Create(ctx, "t1", postsInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Key() != "posts" || col.TenantID() != "t1" {
		t.Errorf("unexpected collection: %s/%s", col.TenantID(), col.Key())
	}
	if col.Status() != domcol.StatusActive {
		t.Errorf("expected active status, got %s", col.Status())
	}
	if stored.Key() != "posts" {
		t.Error("expected repo.Create to receive the collection")
	}
	if len(sink.events) != 1 || sink.events[0] != "collection.created" {
		t.Errorf("unexpected events: %v", sink.events)
	}
}

func TestCreate_EventCarriesSnapshot(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "t1", postsInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(sink.payloads))
	}
	var snap map[string]any
	if err := json.Unmarshal(sink.payloads[0], &snap); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if snap["key"] != "posts" || snap["status"] != "active" {
		t.Errorf("unexpected snapshot: %v", snap)
	}
	if fields, ok := snap["fields"].([]any); !ok || len(fields) == 0 {
		t.Errorf("snapshot is missing field definitions: %v", snap["fields"])
	}
}

func TestDelete_EventWithoutPayload(t *testing.T) {
	svc, _, sink := newTestService(t)

	if err := svc.Delete(context.Background(), "t1", "posts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.payloads) != 1 || sink.payloads[0] != nil {
		t.Errorf("deletion events must not carry a payload: %v", sink.payloads)
	}
}

func TestCreate_InvalidFieldSpec(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := postsInput()
	in.Fields = append(in.Fields, field.Spec{Key: "tags", Type: field.Enum}) // enum without options

	_, err := svc.Create(ctx, "t1", in)
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestCreate_DuplicateFieldKeys(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := postsInput()
	in.Fields = append(in.Fields, field.Spec{Key: "title", Type: field.String})

	_, err := svc.Create(ctx, "t1", in)
	if !errors.Is(err, domain.ErrDuplicateFieldKey) {
		t.Fatalf("expected ErrDuplicateFieldKey, got %v", err)
	}
}

func TestCreate_UndeclaredSlugField(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := postsInput()
	in.Settings.SlugField = "missing"

	_, err := svc.Create(ctx, "t1", in)
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestCreate_RepoDuplicate(t *testing.T) {
	svc, repo, sink := newTestService(t)
	ctx := context.Background()

	repo.createFn = func(_ context.Context, _ domcol.Collection) error {
		return domain.ErrDuplicateCollectionKey
	}

	_, err := svc.Create(ctx, "t1", postsInput())
	if !errors.Is(err, domain.ErrDuplicateCollectionKey) {
		t.Fatalf("expected ErrDuplicateCollectionKey, got %v", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("no events expected on failure, got %v", sink.events)
	}
}

func TestCreate_EventFailureIgnored(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()

	sink.emitFn = func(_ context.Context, _, _, _, _ string, _ []byte) error {
		return errors.New("stream down")
	}

	if _, err := svc.Create(ctx, "t1", postsInput()); err != nil {
		t.Fatalf("event failure must not fail the operation: %v", err)
	}
}

// --- Update ---

func TestUpdate_PatchesNameAndSettings(t *testing.T) {
	svc, repo, sink := newTestService(t)
	ctx := context.Background()

	repo.getFn = func(_ context.Context, _, _ string) (domcol.Collection, error) {
		return storedCollection(t), nil
	}
	var updated domcol.Collection
	repo.updateFn = func(_ context.Context, col domcol.Collection) error {
		updated = col
		return nil
	}

	sortKey := "-createdAt"
	col, err := svc.Update(ctx, "t1", "posts", UpdateInput{
		Name:     map[string]string{"en": "Articles"},
		Settings: domcol.SettingsPatch{DefaultSort: &sortKey},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name()["en"] != "Articles" {
		t.Errorf("unexpected name: %v", col.Name())
	}
	if col.Settings().DefaultSort != "-createdAt" {
		t.Errorf("unexpected default sort: %s", col.Settings().DefaultSort)
	}
	// untouched settings survive the patch
	if col.Settings().SlugField != "title" {
		t.Errorf("slug field lost in patch: %+v", col.Settings())
	}
	if updated.Name()["en"] != "Articles" {
		t.Error("expected repo.Update to receive the patched collection")
	}
	if len(sink.events) != 1 || sink.events[0] != "collection.updated" {
		t.Errorf("unexpected events: %v", sink.events)
	}
}

func TestUpdate_ReplaceFields(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.getFn = func(_ context.Context, _, _ string) (domcol.Collection, error) {
		return storedCollection(t), nil
	}

	col, err := svc.Update(ctx, "t1", "posts", UpdateInput{
		Fields: []field.Spec{
			{Key: "title", Type: field.String, Required: true},
			{Key: "rating", Type: field.Number},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := col.FieldByKey("rating"); !ok {
		t.Error("expected rating field after replacement")
	}
	if _, ok := col.FieldByKey("body"); ok {
		t.Error("body field should be gone after wholesale replacement")
	}
}

func TestUpdate_FieldsDropSlugField(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.getFn = func(_ context.Context, _, _ string) (domcol.Collection, error) {
		return storedCollection(t), nil
	}

	_, err := svc.Update(ctx, "t1", "posts", UpdateInput{
		Fields: []field.Spec{{Key: "rating", Type: field.Number}},
	})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema when slug field vanishes, got %v", err)
	}
}

func TestUpdate_Archive(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.getFn = func(_ context.Context, _, _ string) (domcol.Collection, error) {
		return storedCollection(t), nil
	}

	archived := domcol.StatusArchived
	col, err := svc.Update(ctx, "t1", "posts", UpdateInput{Status: &archived})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Status() != domcol.StatusArchived {
		t.Errorf("expected archived, got %s", col.Status())
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, "t1", "missing", UpdateInput{})
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

// --- Get / List / Delete ---

func TestGet_Passthrough(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.getFn = func(_ context.Context, tenantID, key string) (domcol.Collection, error) {
		if tenantID != "t1" || key != "posts" {
			t.Errorf("unexpected args: %s/%s", tenantID, key)
		}
		return storedCollection(t), nil
	}

	col, err := svc.Get(ctx, "t1", "posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Key() != "posts" {
		t.Errorf("unexpected collection: %s", col.Key())
	}
}

func TestList_Passthrough(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.listFn = func(_ context.Context, _ string) ([]domcol.Collection, error) {
		return []domcol.Collection{storedCollection(t)}, nil
	}

	cols, err := svc.List(ctx, "t1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 1 {
		t.Errorf("expected 1 collection, got %d", len(cols))
	}
}

func TestList_StatusFilter(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	archived, err := storedCollection(t).WithStatus(domcol.StatusArchived)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.listFn = func(_ context.Context, _ string) ([]domcol.Collection, error) {
		return []domcol.Collection{storedCollection(t), archived}, nil
	}

	cols, err := svc.List(ctx, "t1", domcol.StatusArchived)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 1 || cols[0].Status() != domcol.StatusArchived {
		t.Errorf("unexpected listing: %+v", cols)
	}
}

func TestList_UnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.List(context.Background(), "t1", "stale")
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected query error, got %v", err)
	}
}

func TestDelete_EmitsEvent(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, "t1", "posts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.events) != 1 || sink.events[0] != "collection.deleted" {
		t.Errorf("unexpected events: %v", sink.events)
	}
}

func TestDelete_RepoError(t *testing.T) {
	svc, repo, sink := newTestService(t)
	ctx := context.Background()

	repo.deleteFn = func(_ context.Context, _, _ string) error {
		return domain.ErrCollectionNotFound
	}

	err := svc.Delete(ctx, "t1", "missing")
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("no events expected on failure, got %v", sink.events)
	}
}
