package strukt

import (
	"context"
	"fmt"
)

// TypedCollection is a generic, schema-first handle on one tenant
// collection. The schema is inferred from T's struct tags at construction.
type TypedCollection[T any] struct {
	name   string
	tenant string
	client *Client
	meta   *schemaMeta
}

// NewCollection creates a typed handle for the given collection key.
// T must be a struct with strukt tags. The schema is parsed once and cached.
func NewCollection[T any](client *Client, tenant, name string) (*TypedCollection[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new collection %q: %w", name, err)
	}
	return &TypedCollection[T]{name: name, tenant: tenant, client: client, meta: meta}, nil
}

// Ensure creates the collection type if it does not exist (idempotent).
// Extra options are appended to the schema inferred from T.
func (c *TypedCollection[T]) Ensure(ctx context.Context, opts ...CollectionOption) error {
	all := append(c.meta.collectionOptions(), opts...)
	if _, err := c.client.Collections(c.tenant).Ensure(ctx, c.name, all...); err != nil {
		return fmt.Errorf("ensure %q: %w", c.name, err)
	}
	return nil
}

// Create validates and stores a typed item, returning it with the
// server-assigned id, slug and normalized values filled in.
func (c *TypedCollection[T]) Create(ctx context.Context, item T, opts ...EntryOption) (T, error) {
	var zero T
	e, err := c.entries().Create(ctx, c.meta.toData(item), opts...)
	if err != nil {
		return zero, err
	}
	return c.decode(e), nil
}

// Get retrieves a typed item by id.
func (c *TypedCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	e, err := c.entries().Get(ctx, id)
	if err != nil {
		return zero, err
	}
	return c.decode(e), nil
}

// GetBySlug retrieves a typed item by slug.
func (c *TypedCollection[T]) GetBySlug(ctx context.Context, slug string) (T, error) {
	var zero T
	e, err := c.entries().GetBySlug(ctx, slug)
	if err != nil {
		return zero, err
	}
	return c.decode(e), nil
}

// Put merges the item's data over the stored entry.
func (c *TypedCollection[T]) Put(ctx context.Context, id string, item T) (T, error) {
	var zero T
	e, err := c.entries().Update(ctx, id, EntryPatch{Data: c.meta.toData(item)})
	if err != nil {
		return zero, err
	}
	return c.decode(e), nil
}

// Delete removes an item by id.
func (c *TypedCollection[T]) Delete(ctx context.Context, id string) error {
	return c.entries().Delete(ctx, id)
}

// Query starts a fluent typed query against the collection.
func (c *TypedCollection[T]) Query() *TypedQuery[T] {
	return &TypedQuery[T]{
		col:     c,
		builder: c.client.Query(c.tenant, c.name),
	}
}

func (c *TypedCollection[T]) entries() *EntryService {
	return c.client.Entries(c.tenant, c.name)
}

func (c *TypedCollection[T]) decode(e Entry) T {
	item, _ := c.meta.fromParts(e.ID, e.Slug, e.Data).(T)
	return item
}

// TypedQuery is a fluent builder for typed collection queries.
type TypedQuery[T any] struct {
	col     *TypedCollection[T]
	builder *QueryBuilder
}

// Where adds a filter condition.
func (q *TypedQuery[T]) Where(field, op string, value any) *TypedQuery[T] {
	q.builder.Where(field, op, value)
	return q
}

// OrderBy adds an ascending sort key.
func (q *TypedQuery[T]) OrderBy(field string) *TypedQuery[T] {
	q.builder.OrderBy(field)
	return q
}

// OrderByDesc adds a descending sort key.
func (q *TypedQuery[T]) OrderByDesc(field string) *TypedQuery[T] {
	q.builder.OrderByDesc(field)
	return q
}

// Limit caps the page size.
func (q *TypedQuery[T]) Limit(n int) *TypedQuery[T] {
	q.builder.Limit(n)
	return q
}

// Page selects a 1-based page.
func (q *TypedQuery[T]) Page(n int) *TypedQuery[T] {
	q.builder.Page(n)
	return q
}

// Do executes the query and decodes each item.
func (q *TypedQuery[T]) Do(ctx context.Context) ([]T, Meta, error) {
	res, err := q.builder.Do(ctx)
	if err != nil {
		return nil, Meta{}, err
	}

	items := make([]T, 0, len(res.Items))
	for _, doc := range res.Items {
		id, _ := doc["id"].(string)
		slug, _ := doc["slug"].(string)
		data, _ := doc["data"].(map[string]any)
		if item, ok := q.col.meta.fromParts(id, slug, data).(T); ok {
			items = append(items, item)
		}
	}
	return items, res.Meta, nil
}
