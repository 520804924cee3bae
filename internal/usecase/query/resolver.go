package query

import (
	"context"
	"errors"
	"sync"

	"github.com/strukt-cms/strukt/internal/domain/entry"
)

// resolver caches the documents referenced by a result page. Each category is
// fetched at most once per query execution, and only when a select path
// actually dereferences it.
type resolver struct {
	entries  map[string]map[string]any // collection key + NUL + entry id
	assets   map[string]map[string]any
	contents map[string]map[string]any
}

func (r *resolver) entry(collectionKey, id string) (map[string]any, bool) {
	doc, ok := r.entries[collectionKey+"\x00"+id]
	return doc, ok
}

func (r *resolver) asset(id string) (map[string]any, bool) {
	doc, ok := r.assets[id]
	return doc, ok
}

func (r *resolver) content(id string) (map[string]any, bool) {
	doc, ok := r.contents[id]
	return doc, ok
}

// resolveRelations collects every referenced identifier across the page in one
// pass, then fetches the three categories concurrently.
func (s *Service) resolveRelations(ctx context.Context, tenantID string, items []entry.Entry, paths []selectPath) (*resolver, error) {
	entryIDs := map[string]map[string]bool{} // per target collection
	assetIDs := map[string]bool{}
	contentIDs := map[string]bool{}

	addEntry := func(collectionKey, id string) {
		if collectionKey == "" || id == "" {
			return
		}
		if entryIDs[collectionKey] == nil {
			entryIDs[collectionKey] = map[string]bool{}
		}
		entryIDs[collectionKey][id] = true
	}

	for _, p := range paths {
		if p.deref == derefNone {
			continue
		}
		for _, e := range items {
			switch {
			case p.kind == pathRelations && p.relCat == "media":
				for _, id := range e.Relations().Media {
					assetIDs[id] = true
				}
			case p.kind == pathRelations && p.relCat == "contents":
				for _, id := range e.Relations().Contents {
					contentIDs[id] = true
				}
			case p.kind == pathRelations && p.relCat == "refs":
				for _, ref := range e.Relations().Refs {
					addEntry(ref.CollectionKey, ref.EntryID)
				}
			case p.kind == pathField && p.deref == derefAssets:
				for _, id := range idsFromValue(e.Data()[p.field.Key()]) {
					assetIDs[id] = true
				}
			case p.kind == pathField && p.deref == derefEntries:
				for _, id := range idsFromValue(e.Data()[p.field.Key()]) {
					addEntry(p.field.Ref(), id)
				}
			}
		}
	}

	res := &resolver{
		entries:  map[string]map[string]any{},
		assets:   map[string]map[string]any{},
		contents: map[string]map[string]any{},
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	if len(assetIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := s.assets.Resolve(ctx, tenantID, keys(assetIDs))
			if err != nil {
				fail(err)
				return
			}
			mu.Lock()
			res.assets = docs
			mu.Unlock()
		}()
	}

	if len(contentIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := s.contents.Resolve(ctx, tenantID, keys(contentIDs))
			if err != nil {
				fail(err)
				return
			}
			mu.Lock()
			res.contents = docs
			mu.Unlock()
		}()
	}

	if len(entryIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for collectionKey, ids := range entryIDs {
				found, err := s.entries.FindByIDs(ctx, tenantID, collectionKey, keys(ids))
				if err != nil {
					fail(err)
					return
				}
				mu.Lock()
				for _, e := range found {
					res.entries[collectionKey+"\x00"+e.ID()] = e.Serialize()
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return res, nil
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
