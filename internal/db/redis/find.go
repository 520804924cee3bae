package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/strukt-cms/strukt/internal/db"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// Find runs an indexed document search via FT.SEARCH.
// Documents come back whole; the compiled filter and at most one sort key
// are pushed down to the index.
func (s *Store) Find(ctx context.Context, q *db.FindQuery) (*db.FindResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, fmt.Errorf("offset and limit must be non-negative")
	}

	args := []string{q.Index, renderFilter(q.Filter)}

	if q.Sort != nil {
		dir := "ASC"
		if q.Sort.Desc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.Sort.Attr, dir)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseFindResult(raw)
}

// Count returns the number of matching documents via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, index string, f query.Filter) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").
		Args(index, renderFilter(f), "LIMIT", "0", "0", "DIALECT", "2").
		Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// --- Result parsing ---

func parseFindResult(raw []rueidis.RedisMessage) (*db.FindResult, error) {
	if len(raw) == 0 {
		return &db.FindResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.FindResult{Total: 0}, nil
	}

	entries := make([]db.FindEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.FindEntry{
			Key: key,
			Doc: []byte(docFromFieldPairs(fields)),
		})
	}

	return &db.FindResult{Total: int(total), Entries: entries}, nil
}

// docFromFieldPairs extracts the whole JSON document returned under "$".
func docFromFieldPairs(fields []rueidis.RedisMessage) string {
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil || name != "$" {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		return value
	}
	return ""
}

// --- Filter rendering ---

// renderFilter translates the compiled filter into FT.SEARCH query syntax.
func renderFilter(f query.Filter) string {
	if f.IsEmpty() {
		return "*"
	}

	var parts []string

	for _, cond := range f.Must() {
		parts = append(parts, renderCondition(cond))
	}

	if should := f.Should(); len(should) > 0 {
		group := make([]string, 0, len(should))
		for _, cond := range should {
			group = append(group, renderCondition(cond))
		}
		parts = append(parts, "("+strings.Join(group, " | ")+")")
	}

	return strings.Join(parts, " ")
}

func renderCondition(cond query.Condition) string {
	var body string
	switch {
	case cond.Substr() != "":
		body = renderSubstring(cond)
	case cond.Rng() != nil:
		body = renderRange(cond.Attr(), *cond.Rng())
	default:
		body = renderMatch(cond)
	}
	if cond.Negate() {
		return "-" + body
	}
	return body
}

func renderMatch(cond query.Condition) string {
	values := cond.Values()
	escaped := make([]string, len(values))

	if cond.Kind() == query.KindText {
		// Text attributes match quoted phrases.
		for i, v := range values {
			escaped[i] = `"` + phraseEscaper.Replace(v) + `"`
		}
		return fmt.Sprintf("@%s:(%s)", cond.Attr(), strings.Join(escaped, "|"))
	}

	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", cond.Attr(), strings.Join(escaped, "|"))
}

func renderRange(attr string, r query.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.Min != nil {
		minBound = fmt.Sprintf("%g", *r.Min)
		if r.MinExcl {
			minBound = "(" + minBound
		}
	}
	if r.Max != nil {
		maxBound = fmt.Sprintf("%g", *r.Max)
		if r.MaxExcl {
			maxBound = "(" + maxBound
		}
	}

	return fmt.Sprintf("@%s:[%s %s]", attr, minBound, maxBound)
}

// renderSubstring builds a dialect-2 wildcard infix match; TAG and TEXT
// attributes are case-insensitive by default, which gives the LIKE semantics.
func renderSubstring(cond query.Condition) string {
	pattern := "w'*" + wildcardEscaper.Replace(cond.Substr()) + "*'"
	if cond.Kind() == query.KindText {
		return fmt.Sprintf("@%s:(%s)", cond.Attr(), pattern)
	}
	return fmt.Sprintf("@%s:{%s}", cond.Attr(), pattern)
}

// --- Escaping ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

var phraseEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
)

// wildcardEscaper protects the w'...' literal: quote and backslash, plus the
// wildcard metacharacters themselves.
var wildcardEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`*`, `\*`,
	`?`, `\?`,
)
