package query

import (
	"fmt"
	"strings"

	"github.com/strukt-cms/strukt/internal/domain"
	"github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
	"github.com/strukt-cms/strukt/internal/domain/entry"
)

// derefCategory names the lookup a select path needs during projection.
type derefCategory int

const (
	derefNone derefCategory = iota
	derefEntries
	derefAssets
	derefContents
)

type pathKind int

const (
	pathID pathKind = iota
	pathBuiltin
	pathIndexed
	pathRelations
	pathField
)

// selectPath is one classified projection path.
type selectPath struct {
	raw  string
	segs []string
	kind pathKind

	field   field.Field   // set for pathField
	relCat  string        // "media", "contents" or "refs" for pathRelations
	subpath []string      // segments below the dereference point
	deref   derefCategory // lookup needed to evaluate the subpath
}

// classifySelect validates the projection paths against the collection schema.
// Accepted heads: _id/id, built-ins, indexed, relations, data.<key>, or a
// declared field key.
func classifySelect(col collection.Collection, paths []string) ([]selectPath, error) {
	out := make([]selectPath, 0, len(paths))
	for _, raw := range paths {
		segs := strings.Split(raw, ".")
		p := selectPath{raw: raw, segs: segs}

		switch segs[0] {
		case "_id", "id":
			p.kind = pathID

		case "collectionKey", "slug", "status", "createdAt", "updatedAt":
			p.kind = pathBuiltin

		case "indexed":
			p.kind = pathIndexed

		case "relations":
			p.kind = pathRelations
			if len(segs) > 1 {
				switch segs[1] {
				case "media":
					p.relCat = "media"
					if len(segs) > 2 {
						p.deref = derefAssets
						p.subpath = segs[2:]
					}
				case "contents":
					p.relCat = "contents"
					if len(segs) > 2 {
						p.deref = derefContents
						p.subpath = segs[2:]
					}
				case "refs":
					p.relCat = "refs"
					if len(segs) > 2 {
						p.deref = derefEntries
						p.subpath = segs[2:]
					}
				default:
					return nil, domain.NewQueryError("select", raw, fmt.Sprintf("unknown relation category %q", segs[1]))
				}
			}

		default:
			key := segs[0]
			sub := segs[1:]
			if key == "data" {
				if len(segs) < 2 {
					return nil, domain.NewQueryError("select", raw, "data requires a field key")
				}
				key = segs[1]
				sub = segs[2:]
			}
			f, ok := col.FieldByKey(key)
			if !ok {
				return nil, domain.NewQueryError("select", raw, fmt.Sprintf("unknown field %q", key))
			}
			p.kind = pathField
			p.field = f
			p.subpath = sub
			if len(sub) > 0 {
				switch f.FieldType() {
				case field.Ref:
					p.deref = derefEntries
				case field.Media:
					p.deref = derefAssets
				}
			}
		}

		out = append(out, p)
	}
	return out, nil
}

// project renders one entry through the select paths. An empty path list
// returns the full serialized entry.
func project(e entry.Entry, paths []selectPath, res *resolver) map[string]any {
	if len(paths) == 0 {
		return e.Serialize()
	}

	doc := e.Serialize()
	out := map[string]any{}
	for _, p := range paths {
		setPath(out, p.segs, evaluate(e, doc, p, res))
	}
	return out
}

func evaluate(e entry.Entry, doc map[string]any, p selectPath, res *resolver) any {
	switch p.kind {
	case pathID:
		return e.ID()

	case pathBuiltin, pathIndexed:
		v, _ := getPath(doc, p.segs)
		return v

	case pathRelations:
		if p.deref == derefNone {
			v, _ := getPath(doc, p.segs)
			return v
		}
		switch p.relCat {
		case "media":
			return resolveList(e.Relations().Media, p.subpath, res.asset)
		case "contents":
			return resolveList(e.Relations().Contents, p.subpath, res.content)
		case "refs":
			out := make([]any, 0, len(e.Relations().Refs))
			for _, ref := range e.Relations().Refs {
				doc, ok := res.entry(ref.CollectionKey, ref.EntryID)
				if !ok {
					continue
				}
				if v, ok := getPath(doc, p.subpath); ok {
					out = append(out, v)
				}
			}
			return out
		}
		return nil

	case pathField:
		raw := e.Data()[p.field.Key()]
		if p.deref == derefNone {
			if len(p.subpath) == 0 {
				return raw
			}
			if m, ok := raw.(map[string]any); ok {
				v, _ := getPath(m, p.subpath)
				return v
			}
			return nil
		}

		lookup := res.asset
		if p.deref == derefEntries {
			target := p.field.Ref()
			lookup = func(id string) (map[string]any, bool) { return res.entry(target, id) }
		}
		ids := idsFromValue(raw)
		if p.field.Multiple() {
			return resolveList(ids, p.subpath, lookup)
		}
		// Single-valued references resolve to null when the id is missing
		// or the target cannot be found.
		if len(ids) == 0 {
			return nil
		}
		doc, ok := lookup(ids[0])
		if !ok {
			return nil
		}
		v, _ := getPath(doc, p.subpath)
		return v
	}
	return nil
}

// resolveList maps ids through the lookup and walks the subpath, silently
// dropping ids that do not resolve.
func resolveList(ids []string, subpath []string, lookup func(string) (map[string]any, bool)) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		doc, ok := lookup(id)
		if !ok {
			continue
		}
		if v, ok := getPath(doc, subpath); ok {
			out = append(out, v)
		}
	}
	return out
}

// idsFromValue extracts reference identifiers from a normalized field value.
func idsFromValue(v any) []string {
	switch vv := v.(type) {
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// getPath walks a dotted path through nested maps.
func getPath(m map[string]any, segs []string) (any, bool) {
	var cur any = m
	for _, seg := range segs {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath writes a value at a dotted path, creating intermediate maps. A
// scalar already present at an intermediate step is replaced.
func setPath(out map[string]any, segs []string, v any) {
	for _, seg := range segs[:len(segs)-1] {
		next, ok := out[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			out[seg] = next
		}
		out = next
	}
	out[segs[len(segs)-1]] = v
}
