package entry

// NormalizeRelations deduplicates identifier lists and drops invalid members:
// empty ids, and refs missing a collection key or entry id.
func NormalizeRelations(r Relations) Relations {
	out := Relations{
		Contents: dedupIDs(r.Contents),
		Media:    dedupIDs(r.Media),
	}
	seen := make(map[string]bool, len(r.Refs))
	for _, ref := range r.Refs {
		if ref.CollectionKey == "" || ref.EntryID == "" {
			continue
		}
		k := ref.CollectionKey + "\x00" + ref.EntryID
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Refs = append(out.Refs, ref)
	}
	return out
}

func dedupIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
