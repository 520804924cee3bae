package strukt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strukt-cms/strukt/internal/db"
	dbRedis "github.com/strukt-cms/strukt/internal/db/redis"
	assetrepo "github.com/strukt-cms/strukt/internal/repository/asset"
	contentrepo "github.com/strukt-cms/strukt/internal/repository/content"
	entryrepo "github.com/strukt-cms/strukt/internal/repository/entry"
	eventsrepo "github.com/strukt-cms/strukt/internal/repository/events"
	schemarepo "github.com/strukt-cms/strukt/internal/repository/schema"
	entryuc "github.com/strukt-cms/strukt/internal/usecase/entry"
	queryuc "github.com/strukt-cms/strukt/internal/usecase/query"
	schemauc "github.com/strukt-cms/strukt/internal/usecase/schema"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the strukt SDK entry point. It embeds the full engine over a
// direct database connection, no HTTP server required.
type Client struct {
	store     db.Store
	schemaSvc *schemauc.Service
	entrySvc  *entryuc.Service
	querySvc  *queryuc.Service
	assets    documentStore
	contents  documentStore
}

// documentStore ingests and resolves opaque relation documents (media assets,
// external content records).
type documentStore interface {
	Put(ctx context.Context, tenantID, id string, doc map[string]any) error
	Resolve(ctx context.Context, tenantID string, ids []string) (map[string]map[string]any, error)
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	password string
	logger   *zap.Logger
}

// WithRedis sets the Redis connection addresses.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
	}
}

// WithPassword sets the database password.
func WithPassword(password string) Option {
	return func(c *clientConfig) {
		c.password = password
	}
}

// WithLogger sets the logger used by the embedded services.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// New creates a strukt Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("strukt: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("strukt: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("strukt: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	events := eventsrepo.New(store)
	assets := assetrepo.New(store)
	contents := contentrepo.New(store)

	schemaSvc := schemauc.New(schemarepo.New(store), events, cfg.logger)
	entrySvc := entryuc.New(entryrepo.New(store), schemaSvc, events, cfg.logger)
	querySvc := queryuc.New(entryrepo.New(store), schemaSvc, assets, contents, cfg.logger)

	return &Client{
		store:     store,
		schemaSvc: schemaSvc,
		entrySvc:  entrySvc,
		querySvc:  querySvc,
		assets:    assets,
		contents:  contents,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Collections returns the collection type service for a tenant.
func (c *Client) Collections(tenant string) *CollectionService {
	return &CollectionService{tenant: tenant, svc: c.schemaSvc}
}

// Entries returns the entry service for a tenant's collection.
func (c *Client) Entries(tenant, collection string) *EntryService {
	return &EntryService{tenant: tenant, collection: collection, svc: c.entrySvc}
}

// Query starts a fluent query against a tenant's collection.
func (c *Client) Query(tenant, collection string) *QueryBuilder {
	return &QueryBuilder{tenant: tenant, svc: c.querySvc, req: queryuc.Request{Collection: collection}}
}

// Assets returns the media asset registry for a tenant.
func (c *Client) Assets(tenant string) *DocumentService {
	return &DocumentService{tenant: tenant, kind: "asset", store: c.assets}
}

// Contents returns the external content registry for a tenant.
func (c *Client) Contents(tenant string) *DocumentService {
	return &DocumentService{tenant: tenant, kind: "content", store: c.contents}
}
