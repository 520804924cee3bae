package query

import (
	"testing"

	"github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
)

func testCollection(t *testing.T) collection.Collection {
	t.Helper()
	return collection.Reconstruct(
		"t1", "posts", nil, nil,
		[]field.Field{
			field.Reconstruct(field.Spec{Key: "title", Type: field.String, Indexed: true}),
			field.Reconstruct(field.Spec{Key: "summary", Type: field.Text}),
			field.Reconstruct(field.Spec{Key: "views", Type: field.Number}),
			field.Reconstruct(field.Spec{Key: "live", Type: field.Boolean}),
			field.Reconstruct(field.Spec{Key: "published_on", Type: field.Date}),
			field.Reconstruct(field.Spec{Key: "location", Type: field.GeoJSON}),
		},
		collection.Settings{},
		collection.StatusActive, 0, 0,
	)
}

func TestResolveField(t *testing.T) {
	col := testCollection(t)

	tests := []struct {
		name     string
		wantAttr string
		wantKind AttrKind
		temporal bool
	}{
		{"_id", AttrID, KindTag, false},
		{"id", AttrID, KindTag, false},
		{"slug", AttrSlug, KindTag, false},
		{"status", AttrStatus, KindTag, false},
		{"createdAt", AttrCreatedAt, KindNumeric, true},
		{"created_at", AttrCreatedAt, KindNumeric, true},
		{"updatedAt", AttrUpdatedAt, KindNumeric, true},
		{"title", AttrIndexedTitle, KindText, false},
		{"indexed.title", AttrIndexedTitle, KindText, false},
		{"date", AttrIndexedDate, KindNumeric, true},
		{"indexed.tags", AttrIndexedTags, KindTag, false},
		{"summary", "data_summary", KindText, false},
		{"views", "data_views", KindNumeric, false},
		{"data.views", "data_views", KindNumeric, false},
		{"live", "data_live", KindTag, false},
		{"published_on", "data_published_on", KindNumeric, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ResolveField(col, tt.name)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if a.Name != tt.wantAttr || a.Kind != tt.wantKind || a.Temporal != tt.temporal {
				t.Errorf("got %+v", a)
			}
		})
	}
}

func TestResolveField_Rejections(t *testing.T) {
	col := testCollection(t)

	if _, err := ResolveField(col, "bogus"); err == nil {
		t.Error("expected error for unknown field")
	}
	if _, err := ResolveField(col, "location"); err == nil {
		t.Error("expected error for geojson field")
	}
}

func TestCoerceValue(t *testing.T) {
	col := testCollection(t)

	views, _ := ResolveField(col, "views")
	got, err := CoerceValue(views, "42")
	if err != nil || got != float64(42) {
		t.Errorf("numeric string: %v, %v", got, err)
	}

	published, _ := ResolveField(col, "published_on")
	got, err = CoerceValue(published, "2024-03-01")
	if err != nil || got != float64(1709251200000) {
		t.Errorf("temporal: %v, %v", got, err)
	}

	live, _ := ResolveField(col, "live")
	got, err = CoerceValue(live, true)
	if err != nil || got != "true" {
		t.Errorf("boolean: %v, %v", got, err)
	}

	title, _ := ResolveField(col, "title")
	got, err = CoerceValue(title, 7)
	if err != nil || got != "7" {
		t.Errorf("stringified: %v, %v", got, err)
	}

	if _, err := CoerceValue(views, "many"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestResolveSortKey(t *testing.T) {
	col := testCollection(t)

	s, err := ResolveSortKey(col, "-views")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Attr != "data_views" || !s.Desc {
		t.Errorf("got %+v", s)
	}

	s, err = ResolveSortKey(col, "title")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Attr != AttrIndexedTitle || s.Desc {
		t.Errorf("got %+v", s)
	}

	if _, err := ResolveSortKey(col, "-bogus"); err == nil {
		t.Error("expected error for unknown sort key")
	}
}

func TestDefaultSort(t *testing.T) {
	plain := testCollection(t)
	s := DefaultSort(plain)
	if s.Attr != AttrCreatedAt || !s.Desc {
		t.Errorf("fallback: %+v", s)
	}

	configured := collection.Reconstruct(
		"t1", "posts", nil, nil,
		[]field.Field{
			field.Reconstruct(field.Spec{Key: "title", Type: field.String}),
		},
		collection.Settings{DefaultSort: "title"},
		collection.StatusActive, 0, 0,
	)
	s = DefaultSort(configured)
	if s.Attr != AttrIndexedTitle || s.Desc {
		t.Errorf("configured: %+v", s)
	}

	// A broken configured sort falls back instead of failing.
	broken := collection.Reconstruct(
		"t1", "posts", nil, nil, nil,
		collection.Settings{DefaultSort: "-missing"},
		collection.StatusActive, 0, 0,
	)
	s = DefaultSort(broken)
	if s.Attr != AttrCreatedAt || !s.Desc {
		t.Errorf("broken: %+v", s)
	}
}
