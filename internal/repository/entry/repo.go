package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/strukt-cms/strukt/internal/db"
	"github.com/strukt-cms/strukt/internal/domain"
	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	dome "github.com/strukt-cms/strukt/internal/domain/entry"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// maxSortWindow caps how many documents are fetched for client-side
// multi-key ordering.
const maxSortWindow = 1000

// store is the consumer interface for entry documents (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error)
	Count(ctx context.Context, index string, f query.Filter) (int, error)
}

// Repo implements the entry persistence contracts of the usecase layer.
type Repo struct {
	store store
}

// New creates an entry repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save writes an entry document, creating or replacing it wholesale.
// The collection supplies the date fields mirrored into the shadow object.
func (r *Repo) Save(ctx context.Context, col domcol.Collection, e dome.Entry) error {
	doc, err := entryToDoc(col, e)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal entry %s: %w", e.ID(), err)
	}
	if err := r.store.JSONSet(ctx, entryKey(e.TenantID(), e.CollectionKey(), e.ID()), "$", data); err != nil {
		return fmt.Errorf("json.set entry %s: %w", e.ID(), err)
	}
	return nil
}

// Get retrieves an entry by id.
func (r *Repo) Get(ctx context.Context, tenantID, collectionKey, id string) (dome.Entry, error) {
	raw, err := r.store.JSONGet(ctx, entryKey(tenantID, collectionKey, id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dome.Entry{}, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
		}
		return dome.Entry{}, fmt.Errorf("json.get entry %s: %w", id, err)
	}
	doc, err := entryFromDoc(raw)
	if err != nil {
		return dome.Entry{}, err
	}
	return doc.toDomain(), nil
}

// Delete removes an entry document.
func (r *Repo) Delete(ctx context.Context, tenantID, collectionKey, id string) error {
	key := entryKey(tenantID, collectionKey, id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del entry %s: %w", id, err)
	}
	return nil
}

// Find runs a compiled query against the collection's entry index. A single
// sort key is pushed down to the index; two or three keys fetch a bounded
// window and order it client-side. Returns the page of entries and the total
// match count.
func (r *Repo) Find(
	ctx context.Context, tenantID, collectionKey string,
	f query.Filter, sorts []query.Sort, offset, limit int,
) ([]dome.Entry, int, error) {
	fq := &db.FindQuery{
		Index:  indexName(tenantID, collectionKey),
		Filter: f,
		Offset: offset,
		Limit:  limit,
	}
	if len(sorts) == 1 {
		fq.Sort = &sorts[0]
	}

	if len(sorts) <= 1 {
		res, err := r.store.Find(ctx, fq)
		if err != nil {
			return nil, 0, fmt.Errorf("search entries: %w", err)
		}
		entries, err := docsToEntries(res.Entries)
		if err != nil {
			return nil, 0, err
		}
		return entries, res.Total, nil
	}

	// Multi-key ordering: fetch the window with the primary key pushed down,
	// then apply the full comparator in memory.
	fq.Sort = &sorts[0]
	fq.Offset = 0
	fq.Limit = maxSortWindow
	res, err := r.store.Find(ctx, fq)
	if err != nil {
		return nil, 0, fmt.Errorf("search entries: %w", err)
	}

	docs := make([]*entryDoc, 0, len(res.Entries))
	for _, hit := range res.Entries {
		doc, err := entryFromDoc(hit.Doc)
		if err != nil {
			return nil, 0, fmt.Errorf("parse entry %s: %w", hit.Key, err)
		}
		docs = append(docs, doc)
	}

	sortDocs(docs, sorts)

	if offset >= len(docs) {
		return []dome.Entry{}, res.Total, nil
	}
	end := offset + limit
	if end > len(docs) {
		end = len(docs)
	}

	entries := make([]dome.Entry, 0, end-offset)
	for _, doc := range docs[offset:end] {
		entries = append(entries, doc.toDomain())
	}
	return entries, res.Total, nil
}

// Count returns the number of entries matching the filter.
func (r *Repo) Count(ctx context.Context, tenantID, collectionKey string, f query.Filter) (int, error) {
	n, err := r.store.Count(ctx, indexName(tenantID, collectionKey), f)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// FindByIDs bulk-fetches entries by id in one round-trip. Missing ids are
// skipped; the result preserves input order for the ids that resolved.
func (r *Repo) FindByIDs(ctx context.Context, tenantID, collectionKey string, ids []string) ([]dome.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(tenantID, collectionKey, id)
	}

	docs, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("json.get multi entries: %w", err)
	}

	entries := make([]dome.Entry, 0, len(docs))
	for i, raw := range docs {
		if raw == nil {
			continue
		}
		doc, err := entryFromDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("parse entry %s: %w", ids[i], err)
		}
		entries = append(entries, doc.toDomain())
	}
	return entries, nil
}

func docsToEntries(hits []db.FindEntry) ([]dome.Entry, error) {
	entries := make([]dome.Entry, 0, len(hits))
	for _, hit := range hits {
		doc, err := entryFromDoc(hit.Doc)
		if err != nil {
			return nil, fmt.Errorf("parse entry %s: %w", hit.Key, err)
		}
		entries = append(entries, doc.toDomain())
	}
	return entries, nil
}

// sortDocs orders documents by the sort keys in sequence; later keys break
// ties of earlier ones. Numeric attributes compare as numbers, the rest as
// case-folded strings.
func sortDocs(docs []*entryDoc, sorts []query.Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			ni, si, numI := docs[i].sortValue(s.Attr)
			nj, sj, numJ := docs[j].sortValue(s.Attr)

			var less, eq bool
			if numI && numJ {
				less, eq = ni < nj, ni == nj
			} else {
				less, eq = si < sj, si == sj
			}
			if eq {
				continue
			}
			if s.Desc {
				return !less
			}
			return less
		}
		return false
	})
}

// Redis key patterns: strukt:e:{tenant}:{collection}:{id}, strukt:idx:{tenant}:{collection}

func entryKey(tenantID, collectionKey, id string) string {
	return fmt.Sprintf("%se:%s:%s:%s", domain.KeyPrefix, tenantID, collectionKey, id)
}

func indexName(tenantID, collectionKey string) string {
	return fmt.Sprintf("%sidx:%s:%s", domain.KeyPrefix, tenantID, collectionKey)
}
