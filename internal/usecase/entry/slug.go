package entry

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domcol "github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/query"
	"github.com/strukt-cms/strukt/internal/domain/slug"
)

// maxSlugProbes bounds the suffix search before falling back to a random tail.
const maxSlugProbes = 50

// slugCandidate picks the raw slug source: an explicit candidate wins over the
// configured slug field's value.
func slugCandidate(col domcol.Collection, explicit string, data map[string]any) string {
	if explicit != "" {
		return explicit
	}
	if sf := col.Settings().SlugField; sf != "" {
		if v, ok := data[sf].(string); ok {
			return v
		}
	}
	return ""
}

// resolveSlug sanitizes the candidate and finds a free slug within the
// collection, suffixing -1, -2, ... on collisions. No candidate, or a
// candidate that sanitizes to nothing, yields a slug-less entry; only a
// probe budget exhausted by collisions falls back to a random tail.
func (s *Service) resolveSlug(ctx context.Context, col domcol.Collection, candidate, selfID string) (string, error) {
	base := slug.Sanitize(candidate)
	if base == "" {
		return "", nil
	}

	for i := 0; i <= maxSlugProbes; i++ {
		probe := base
		if i > 0 {
			probe = fmt.Sprintf("%s-%d", base, i)
		}
		taken, err := s.slugTaken(ctx, col, probe, selfID)
		if err != nil {
			return "", err
		}
		if !taken {
			return probe, nil
		}
	}

	return randomSlug(base), nil
}

func (s *Service) slugTaken(ctx context.Context, col domcol.Collection, probe, selfID string) (bool, error) {
	f := query.Filter{}.
		And(query.NewMatch(query.AttrSlug, query.KindTag, probe)).
		And(query.NewMatch(query.AttrID, query.KindTag, selfID).Negated())

	n, err := s.repo.Count(ctx, col.TenantID(), col.Key(), f)
	if err != nil {
		return false, fmt.Errorf("slug check %s: %w", probe, err)
	}
	return n > 0, nil
}

func randomSlug(base string) string {
	return base + "-" + uuid.NewString()[:8]
}
