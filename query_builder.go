package strukt

import (
	"context"
	"fmt"

	queryuc "github.com/strukt-cms/strukt/internal/usecase/query"
)

// Meta is the pagination envelope returned with every query result.
type Meta struct {
	Total  int
	Limit  int
	Offset int
	Page   int
	Pages  int
}

// QueryResult is one executed query page. Items carry the full serialized
// entry, or only the selected paths when Select was used.
type QueryResult struct {
	Items []map[string]any
	Meta  Meta
}

// QueryBuilder is a fluent builder for collection queries.
type QueryBuilder struct {
	tenant string
	svc    *queryuc.Service
	req    queryuc.Request
}

// Where adds a filter condition. Supported operators:
// = != IN NIN > >= < <= LIKE.
func (b *QueryBuilder) Where(field, op string, value any) *QueryBuilder {
	b.req.Where = append(b.req.Where, queryuc.Where{Field: field, Op: op, Value: value})
	return b
}

// OrderBy adds an ascending sort key.
func (b *QueryBuilder) OrderBy(field string) *QueryBuilder {
	b.req.OrderBy = append(b.req.OrderBy, queryuc.Order{Field: field, Direction: "asc"})
	return b
}

// OrderByDesc adds a descending sort key.
func (b *QueryBuilder) OrderByDesc(field string) *QueryBuilder {
	b.req.OrderBy = append(b.req.OrderBy, queryuc.Order{Field: field, Direction: "desc"})
	return b
}

// Select projects the result down to the named paths. Relation paths with a
// subpath (e.g. "relations.media.url", "author.name") dereference targets.
func (b *QueryBuilder) Select(paths ...string) *QueryBuilder {
	b.req.Select = append(b.req.Select, paths...)
	return b
}

// Limit caps the page size (default 50).
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.req.Limit = n
	return b
}

// Page selects a 1-based page; ignored when Offset is set.
func (b *QueryBuilder) Page(n int) *QueryBuilder {
	b.req.Page = n
	return b
}

// Offset sets an explicit row offset, overriding Page.
func (b *QueryBuilder) Offset(n int) *QueryBuilder {
	b.req.Offset = &n
	return b
}

// Do compiles and executes the query.
func (b *QueryBuilder) Do(ctx context.Context) (*QueryResult, error) {
	res, err := b.svc.Run(ctx, b.tenant, b.req)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", b.req.Collection, err)
	}
	return &QueryResult{
		Items: res.Items,
		Meta: Meta{
			Total:  res.Meta.Total,
			Limit:  res.Meta.Limit,
			Offset: res.Meta.Offset,
			Page:   res.Meta.Page,
			Pages:  res.Meta.Pages,
		},
	}, nil
}
