package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/strukt-cms/strukt/internal/db"
	"github.com/strukt-cms/strukt/internal/domain"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
)

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	ms.hsetFn = func(_ context.Context, key string, _ map[string]string) error {
		if key != "strukt:collection:t1:posts" {
			t.Errorf("unexpected key: %s", key)
		}
		return nil
	}
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		if def.Name != "strukt:idx:t1:posts" {
			t.Errorf("unexpected index name: %s", def.Name)
		}
		if def.Prefixes[0] != "strukt:e:t1:posts:" {
			t.Errorf("unexpected prefix: %s", def.Prefixes[0])
		}
		return nil
	}

	if err := repo.Create(ctx, col); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_DuplicateKey(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	err := repo.Create(ctx, testCollection(t))
	if !errors.Is(err, domain.ErrDuplicateCollectionKey) {
		t.Fatalf("expected ErrDuplicateCollectionKey, got %v", err)
	}
}

func TestCreate_HSetError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("connection lost")
	}

	if err := repo.Create(ctx, testCollection(t)); err == nil {
		t.Fatal("expected error on HSET failure")
	}
}

func TestCreate_IndexError_RollbackOK(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var delCalled bool
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("index limit reached")
	}
	ms.delFn = func(_ context.Context, key string) error {
		delCalled = true
		if key != "strukt:collection:t1:posts" {
			t.Errorf("unexpected DEL key: %s", key)
		}
		return nil
	}

	if err := repo.Create(ctx, testCollection(t)); err == nil {
		t.Fatal("expected error on FT.CREATE failure")
	}
	if !delCalled {
		t.Error("expected DEL to be called for rollback")
	}
}

// --- Index schema derivation ---

func TestCreate_IndexSchema(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var def *db.IndexDefinition
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.Create(ctx, testCollection(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byAlias := map[string]db.IndexField{}
	for _, f := range def.Fields {
		byAlias[f.Alias] = f
	}

	tests := []struct {
		alias string
		path  string
		typ   db.IndexFieldType
	}{
		{"id", "$.id", db.IndexFieldTag},
		{"slug", "$.slug", db.IndexFieldTag},
		{"status", "$.status", db.IndexFieldTag},
		{"created_at", "$.created_at", db.IndexFieldNumeric},
		{"indexed_title", "$.indexed.title", db.IndexFieldText},
		{"indexed_date", "$.shadow.__date", db.IndexFieldNumeric},
		{"indexed_tags", "$.indexed.tags[*]", db.IndexFieldTag},
		{"data_title", "$.data.title", db.IndexFieldTag},
		{"data_body", "$.data.body", db.IndexFieldText},
		{"data_views", "$.data.views", db.IndexFieldNumeric},
		{"data_published_on", "$.shadow.published_on", db.IndexFieldNumeric},
		{"data_category", "$.data.category[*]", db.IndexFieldTag},
	}
	for _, tc := range tests {
		f, ok := byAlias[tc.alias]
		if !ok {
			t.Errorf("missing attribute %s", tc.alias)
			continue
		}
		if f.Path != tc.path {
			t.Errorf("%s: expected path %s, got %s", tc.alias, tc.path, f.Path)
		}
		if f.Type != tc.typ {
			t.Errorf("%s: unexpected type %v", tc.alias, f.Type)
		}
	}

	// geojson fields are stored only, never indexed
	if _, ok := byAlias["data_location"]; ok {
		t.Error("geojson field must not be indexed")
	}
}

// --- Get ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "strukt:collection:t1:posts" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"tenant_id":     "t1",
			"key":           "posts",
			"name_json":     `{"en":"Posts"}`,
			"fields_json":   `[{"key":"title","type":"string","required":true,"indexed":true}]`,
			"settings_json": `{"slug_field":"title"}`,
			"status":        "active",
			"created_at":    "1700000000000",
			"updated_at":    "1700000000000",
		}, nil
	}

	col, err := repo.Get(ctx, "t1", "posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Key() != "posts" || col.TenantID() != "t1" {
		t.Fatalf("unexpected identity: %s/%s", col.TenantID(), col.Key())
	}
	if len(col.Fields()) != 1 || col.Fields()[0].Key() != "title" {
		t.Fatalf("unexpected fields: %+v", col.Fields())
	}
	if !col.Fields()[0].Required() {
		t.Error("expected required field")
	}
	if col.Settings().SlugField != "title" {
		t.Errorf("unexpected settings: %+v", col.Settings())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	_, err := repo.Get(ctx, "t1", "nonexistent")
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

// --- Round-trip ---

func TestHashRoundTrip(t *testing.T) {
	col := testCollection(t)

	m, err := collectionToHash(col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := collectionFromHash(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Key() != col.Key() || got.TenantID() != col.TenantID() {
		t.Fatalf("identity mismatch: %s/%s", got.TenantID(), got.Key())
	}
	if len(got.Fields()) != len(col.Fields()) {
		t.Fatalf("expected %d fields, got %d", len(col.Fields()), len(got.Fields()))
	}
	cat, ok := got.FieldByKey("category")
	if !ok {
		t.Fatal("missing category field")
	}
	if !cat.Multiple() || len(cat.Options()) != 2 {
		t.Errorf("unexpected category field: %+v", cat.ToSpec())
	}
	if got.Settings().SlugField != "title" {
		t.Errorf("unexpected settings: %+v", got.Settings())
	}
	if got.CreatedAt() != col.CreatedAt() {
		t.Errorf("created_at mismatch: %d", got.CreatedAt())
	}
}

// --- List ---

func TestList_SortedByCreatedAt(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "strukt:collection:t1:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{"strukt:collection:t1:b", "strukt:collection:t1:a"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return []map[string]string{
			{"tenant_id": "t1", "key": "b", "status": "active", "created_at": "200", "updated_at": "200"},
			{"tenant_id": "t1", "key": "a", "status": "active", "created_at": "100", "updated_at": "100"},
		}, nil
	}

	cols, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(cols))
	}
	if cols[0].Key() != "a" || cols[1].Key() != "b" {
		t.Errorf("unexpected order: %s, %s", cols[0].Key(), cols[1].Key())
	}
}

func TestList_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) { return nil, nil }

	cols, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 0 {
		t.Errorf("expected empty list, got %d", len(cols))
	}
}

// --- Update ---

func TestUpdate_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	err := repo.Update(ctx, testCollection(t))
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestUpdate_SameSchema_NoIndexRebuild(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	existing, err := collectionToHash(col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return existing, nil
	}
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		t.Error("index must not be dropped when schema is unchanged")
		return nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Error("index must not be recreated when schema is unchanged")
		return nil
	}

	if err := repo.Update(ctx, col); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdate_FieldChange_RebuildsIndex(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	existing, err := collectionToHash(col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed, err := col.WithFields([]field.Field{
		field.Reconstruct(field.Spec{Key: "title", Type: field.String}),
		field.Reconstruct(field.Spec{Key: "rating", Type: field.Number}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dropped, created bool
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return existing, nil
	}
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = true
		if name != "strukt:idx:t1:posts" {
			t.Errorf("unexpected index name: %s", name)
		}
		return nil
	}
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = true
		for _, f := range def.Fields {
			if f.Alias == "data_rating" {
				return nil
			}
		}
		t.Error("expected data_rating attribute in rebuilt index")
		return nil
	}

	if err := repo.Update(ctx, changed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dropped || !created {
		t.Errorf("expected index rebuild, dropped=%v created=%v", dropped, created)
	}
}

func TestUpdate_RebuildError_RestoresMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	col := testCollection(t)

	existing, err := collectionToHash(col)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed, err := col.WithFields([]field.Field{
		field.Reconstruct(field.Spec{Key: "title", Type: field.String}),
		field.Reconstruct(field.Spec{Key: "rating", Type: field.Number}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var restored bool
	hsetCalls := 0
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return existing, nil
	}
	ms.hsetFn = func(_ context.Context, _ string, fields map[string]string) error {
		hsetCalls++
		if hsetCalls == 2 && fields["fields_json"] == existing["fields_json"] {
			restored = true
		}
		return nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("index limit reached")
	}

	if err := repo.Update(ctx, changed); err == nil {
		t.Fatal("expected error on index rebuild failure")
	}
	if !restored {
		t.Error("expected metadata rollback to previous fields")
	}
}

// --- Delete ---

func TestDelete_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var delKey, droppedIdx string
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"tenant_id": "t1", "key": "posts", "created_at": "1", "updated_at": "1"}, nil
	}
	ms.delFn = func(_ context.Context, key string) error {
		delKey = key
		return nil
	}
	ms.dropIndexFn = func(_ context.Context, name string) error {
		droppedIdx = name
		return nil
	}

	if err := repo.Delete(ctx, "t1", "posts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delKey != "strukt:collection:t1:posts" {
		t.Errorf("unexpected DEL key: %s", delKey)
	}
	if droppedIdx != "strukt:idx:t1:posts" {
		t.Errorf("unexpected dropped index: %s", droppedIdx)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	err := repo.Delete(ctx, "t1", "posts")
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestDelete_DropError_RestoresMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var restored bool
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"tenant_id": "t1", "key": "posts", "created_at": "1", "updated_at": "1"}, nil
	}
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		return errors.New("busy")
	}
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		restored = true
		return nil
	}

	if err := repo.Delete(ctx, "t1", "posts"); err == nil {
		t.Fatal("expected error on FT.DROPINDEX failure")
	}
	if !restored {
		t.Error("expected metadata rollback")
	}
}

func TestDelete_IndexAlreadyGone_OK(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"tenant_id": "t1", "key": "posts", "created_at": "1", "updated_at": "1"}, nil
	}
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		return db.ErrIndexNotFound
	}

	if err := repo.Delete(ctx, "t1", "posts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
