// Package inkwell is the public facade over the engine described in
// spec.md: a schema-driven, file-backed entity store with a query
// pipeline, a CRUD engine, transactions, a reactive change bus, and a
// plugin host. Every exported operation here is a thin wrapper that
// delegates to an internal package; errors_map.go translates each
// package's local error type into the single *Error discriminated by Kind
// (errors.go).
package inkwell

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell-db/inkwell/internal/codec"
	"github.com/inkwell-db/inkwell/internal/collate"
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/config"
	"github.com/inkwell-db/inkwell/internal/crud"
	"github.com/inkwell-db/inkwell/internal/entity"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/persistence"
	"github.com/inkwell-db/inkwell/internal/plugin"
	"github.com/inkwell-db/inkwell/internal/query"
	"github.com/inkwell-db/inkwell/internal/reactive"
	"github.com/inkwell-db/inkwell/internal/storage"
	"github.com/inkwell-db/inkwell/internal/telemetry"
	"github.com/inkwell-db/inkwell/internal/txn"
)

// Type aliases let callers declare collections and plugins against this
// package alone, without reaching into any internal path themselves.
type (
	CollectionConfig = collection.Config
	Migration        = collection.Migration
	Relationship     = collection.Relationship
	Hook             = collection.Hook
	IndexSpec        = entity.IndexSpec

	SortSpec        = query.SortSpec
	QueryConfig     = query.Config
	AggregateConfig = query.AggregateConfig
	AggregateResult = query.AggregateResult
	Page            = query.Page
	Item            = query.Item

	Plugin      = plugin.Plugin
	GlobalHooks = crud.GlobalHooks

	WatchResult = reactive.WatchResult
	Watcher     = reactive.Watcher

	DryRunResult = persistence.DryRunResult
)

const (
	RelRef     = collection.Ref
	RelInverse = collection.Inverse

	CascadeRestrict = collection.Restrict
	CascadeDelete   = collection.Cascade
	CascadeSetNull  = collection.SetNull
)

// Database owns every collection's live state, the engines that operate on
// it, and the single writer lock spec.md §5 requires ("the engine
// serializes all mutations on a single writer").
type Database struct {
	collections *collection.Registry
	engine      *crud.Engine
	pipeline    *query.Pipeline
	persist     *persistence.Engine
	bus         *reactive.Bus
	plugins     *plugin.Host
	txns        *txn.Manager
	telemetry   *telemetry.Telemetry
	cfg         config.EngineConfig
	logger      *slog.Logger
	changeWatcher *storage.ExternalChangeWatcher

	writeMu sync.Mutex
}

type openOptions struct {
	configDir            string
	adapter              storage.Adapter
	collections          []collection.Config
	plugins              []*plugin.Plugin
	collator             *collate.Collator
	tracerProvider       trace.TracerProvider
	meterProvider        metric.MeterProvider
	logger               *slog.Logger
	watchExternalChanges bool
}

// Option configures Open.
type Option func(*openOptions)

// WithConfigDir points Open at a directory to search for an optional
// inkwell.yaml (internal/config.Load).
func WithConfigDir(dir string) Option {
	return func(o *openOptions) { o.configDir = dir }
}

// WithAdapter overrides the default filesystem storage.Adapter, e.g. with
// storage.NewMemory() for tests.
func WithAdapter(a storage.Adapter) Option {
	return func(o *openOptions) { o.adapter = a }
}

// WithCollections declares the collections the database opens with. This is
// the programmatic config map spec.md §3 describes ("collections are
// created once at database construction from a config map").
func WithCollections(cfgs ...collection.Config) Option {
	return func(o *openOptions) { o.collections = append(o.collections, cfgs...) }
}

// WithPlugins installs one or more plugins at construction time, after
// collections load but before Open returns.
func WithPlugins(ps ...*plugin.Plugin) Option {
	return func(o *openOptions) { o.plugins = append(o.plugins, ps...) }
}

// WithCollator overrides the default locale-agnostic sort collator.
func WithCollator(c *collate.Collator) Option {
	return func(o *openOptions) { o.collator = c }
}

// WithTelemetry installs real OpenTelemetry providers; either may be nil to
// leave that half a noop. Without this option the engine records nothing
// (spec.md's Non-goals are silent on observability, but an ambient concern
// is still carried — see SPEC_FULL.md §1).
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(o *openOptions) { o.tracerProvider, o.meterProvider = tp, mp }
}

// WithLogger overrides the slog.Logger used by persistence and storage.
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) { o.logger = l }
}

// WithExternalChangeDetection starts an fsnotify watcher over every
// file-backed collection's backing path, logging a warning whenever one
// changes outside the engine's own writes (spec.md §5's atomicity guarantee
// is best-effort and single-process only; this surfaces the out-of-band
// edits it can't protect against instead of leaving the in-memory state
// silently stale).
func WithExternalChangeDetection() Option {
	return func(o *openOptions) { o.watchExternalChanges = true }
}

// Open builds a Database: loads engine config, constructs every declared
// collection, runs the persistence load protocol (spec.md §4.3), installs
// any plugins, and returns a ready-to-use handle. A load-time
// MigrationError or SerializationError aborts construction entirely (spec.md
// §7).
func Open(ctx context.Context, opts ...Option) (*Database, error) {
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.adapter == nil {
		o.adapter = storage.NewFS(o.logger)
	}
	if o.collator == nil {
		o.collator = collate.New("")
	}

	cfg, err := config.Load(o.configDir)
	if err != nil {
		return nil, SerializationError("load inkwell.yaml", err)
	}

	collections := collection.NewRegistry()
	for _, c := range o.collections {
		collections.Add(collection.New(c))
	}

	codecs := codec.NewDefaultRegistry(o.logger)
	tel := telemetry.New(o.tracerProvider, o.meterProvider)

	persist := persistence.New(collections, o.adapter, codecs, cfg.FlushDebounce, o.logger)
	persist.Telemetry = tel
	if err := persist.Load(ctx); err != nil {
		return nil, mapPersistenceError(err)
	}

	bus := reactive.NewBus()
	operators := query.NewOperatorRegistry()
	idGens := idgen.NewRegistry()
	idGens.SetDefault(cfg.DefaultIDGenerator)
	global := &crud.GlobalHooks{}

	pipeline := query.New(collections, o.collator, operators)
	pipeline.Telemetry = tel

	engine := crud.New(collections, idGens, pipeline, bus, global, persist.MarkDirty)
	engine.Telemetry = tel

	host := plugin.NewHost(operators, idGens, global)

	txManager := txn.NewManager(engine, pipeline, bus, persist.MarkDirty)

	db := &Database{
		collections: collections,
		engine:      engine,
		pipeline:    pipeline,
		persist:     persist,
		bus:         bus,
		plugins:     host,
		txns:        txManager,
		telemetry:   tel,
		cfg:         cfg,
		logger:      o.logger,
	}

	for _, p := range o.plugins {
		if err := db.InstallPlugin(p); err != nil {
			return nil, err
		}
	}

	if o.watchExternalChanges {
		if watcher, err := storage.NewExternalChangeWatcher(o.logger, persist.Paths()...); err != nil {
			o.logger.Warn("external change detection unavailable", "error", err)
		} else {
			db.changeWatcher = watcher
		}
	}

	return db, nil
}

// InstallPlugin installs p into the running database (spec.md §4.10).
func (db *Database) InstallPlugin(p *plugin.Plugin) error {
	if err := db.plugins.Install(p, db.persist.Codecs); err != nil {
		return mapPluginError(err)
	}
	return nil
}

// Shutdown runs every installed plugin's Shutdown hook in reverse
// installation order and flushes any pending writes.
func (db *Database) Shutdown(ctx context.Context) error {
	if db.changeWatcher != nil {
		_ = db.changeWatcher.Close()
	}
	pluginErrs := db.plugins.Shutdown()
	flushErr := db.persist.Flush(ctx)
	if len(pluginErrs) > 0 {
		return mapPluginError(pluginErrs[0])
	}
	if flushErr != nil {
		return mapPersistenceError(flushErr)
	}
	return nil
}

// Flush drains every pending debounced write synchronously (spec.md §4.3).
func (db *Database) Flush(ctx context.Context) error {
	if err := db.persist.Flush(ctx); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

// DryRun reports each collection's migration status without writing
// anything (spec.md §4.4, §6).
func (db *Database) DryRun(ctx context.Context) ([]DryRunResult, error) {
	return db.persist.DryRun(ctx)
}

// Collection returns a handle bound to name, or a NotFoundError-shaped
// *Error if no such collection was declared at Open.
func (db *Database) Collection(name string) (*CollectionHandle, error) {
	c, ok := db.collections.Get(name)
	if !ok {
		return nil, &Error{Kind: KindNotFound, Collection: name, Message: "no such collection"}
	}
	return &CollectionHandle{db: db, coll: c, engine: db.engine, pipeline: db.pipeline, bus: db.bus}, nil
}

// Transaction runs fn against an isolated working copy of every collection
// (spec.md §4.8). fn receives a *Tx exposing the same collection API as the
// live database, pointed at the scratch copy. On success the scratch state
// swaps in atomically and every recorded event publishes in order; on any
// error the scratch copy is discarded and the error returns wrapped as a
// TransactionError. Transaction serializes against every other mutation and
// against other transactions via the single writer lock (spec.md §5).
func (db *Database) Transaction(fn func(*Tx) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	runErr := db.txns.Run(func(sess *txn.Session) error {
		return fn(&Tx{session: sess})
	})
	return mapTxnError(runErr)
}
