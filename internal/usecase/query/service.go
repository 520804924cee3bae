package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strukt-cms/strukt/internal/metrics"
)

// Meta is the pagination envelope returned with every result page.
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Page   int `json:"page"`
	Pages  int `json:"pages"`
}

// Result is one executed query page.
type Result struct {
	Items []map[string]any `json:"items"`
	Meta  Meta             `json:"pagination"`
}

// Service interprets collection query descriptors.
type Service struct {
	entries  EntryFinder
	schema   SchemaReader
	assets   AssetResolver
	contents ContentResolver
	logger   *zap.Logger
}

// New creates a query service.
func New(entries EntryFinder, schema SchemaReader, assets AssetResolver, contents ContentResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{entries: entries, schema: schema, assets: assets, contents: contents, logger: logger}
}

// Run compiles and executes one query. Any invalid clause aborts the whole
// query before the store is touched; no partial results are returned.
func (s *Service) Run(ctx context.Context, tenantID string, in Request) (*Result, error) {
	start := time.Now()
	result, err := s.run(ctx, tenantID, in)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.QueriesTotal.WithLabelValues(in.Collection, status).Inc()
	metrics.QueryDuration.WithLabelValues(in.Collection).Observe(time.Since(start).Seconds())

	return result, err
}

func (s *Service) run(ctx context.Context, tenantID string, in Request) (*Result, error) {
	col, err := s.schema.Get(ctx, tenantID, in.Collection)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	f, err := compileWhere(col, in.Where)
	if err != nil {
		return nil, err
	}
	sorts, err := compileOrder(col, in.OrderBy)
	if err != nil {
		return nil, err
	}
	offset, limit, err := compileWindow(in)
	if err != nil {
		return nil, err
	}
	paths, err := classifySelect(col, in.Select)
	if err != nil {
		return nil, err
	}

	items, total, err := s.entries.Find(ctx, tenantID, col.Key(), f, sorts, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}

	res, err := s.resolveRelations(ctx, tenantID, items, paths)
	if err != nil {
		return nil, fmt.Errorf("resolve relations: %w", err)
	}

	projected := make([]map[string]any, len(items))
	for i, e := range items {
		projected[i] = project(e, paths, res)
	}

	return &Result{
		Items: projected,
		Meta: Meta{
			Total:  total,
			Limit:  limit,
			Offset: offset,
			Page:   offset/limit + 1,
			Pages:  (total + limit - 1) / limit,
		},
	}, nil
}
