package db

import (
	"context"
	"time"

	"github.com/strukt-cms/strukt/internal/domain/query"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	JSONStore
	IndexManager
	Finder
	Streamer
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations (schema metadata).
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// JSONStore provides JSON document operations (entries, assets, contents).
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONGetMulti fetches full documents for all keys in one round-trip.
	// Missing keys yield a nil slot; the result aligns with the input order.
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// FindQuery is the input for an indexed document search.
type FindQuery struct {
	Index  string
	Filter query.Filter
	Sort   *query.Sort // at most one key is pushed down; nil keeps index order
	Offset int
	Limit  int
}

// FindEntry is a single document hit.
type FindEntry struct {
	Key string
	Doc []byte // full JSON document
}

// FindResult is the output of Find.
type FindResult struct {
	Total   int
	Entries []FindEntry
}

// Finder provides index-backed document queries.
type Finder interface {
	Find(ctx context.Context, q *FindQuery) (*FindResult, error)
	Count(ctx context.Context, index string, f query.Filter) (int, error)
}

// Streamer appends records to a stream (domain events).
type Streamer interface {
	XAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
}
