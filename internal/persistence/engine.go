// Package persistence implements spec.md §4.3/§4.4: grouping collections by
// shared file path, loading whole-file snapshots (running any pending
// migration chain before a collection becomes queryable), and scheduling
// debounced, grouped writes back out through the storage adapter.
package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inkwell-db/inkwell/internal/codec"
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/storage"
	"github.com/inkwell-db/inkwell/internal/telemetry"
)

// Engine owns the load/flush lifecycle for every file-backed collection in
// a registry.
type Engine struct {
	Collections *collection.Registry
	Adapter     storage.Adapter
	Codecs      *codec.Registry
	Debounce    time.Duration
	Telemetry   *telemetry.Telemetry
	logger      *slog.Logger

	mu    sync.Mutex
	dirty map[string]bool
	timer *time.Timer
}

// New builds a persistence Engine. A nil logger uses slog.Default().
func New(collections *collection.Registry, adapter storage.Adapter, codecs *codec.Registry, debounce time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Collections: collections,
		Adapter:     adapter,
		Codecs:      codecs,
		Debounce:    debounce,
		Telemetry:   telemetry.Noop(),
		logger:      logger,
		dirty:       make(map[string]bool),
	}
}

func (e *Engine) telemetry() *telemetry.Telemetry {
	if e.Telemetry != nil {
		return e.Telemetry
	}
	return telemetry.Noop()
}

// Paths returns every distinct backing file path across all file-backed
// collections, for callers (e.g. an external-change watcher) that need to
// observe the same set of files this engine reads and writes.
func (e *Engine) Paths() []string {
	groups := groupsByPath(e.allCollections())
	paths := make([]string, 0, len(groups))
	for path := range groups {
		paths = append(paths, path)
	}
	return paths
}

func (e *Engine) allCollections() []*collection.Collection {
	names := e.Collections.Names()
	out := make([]*collection.Collection, 0, len(names))
	for _, n := range names {
		if c, ok := e.Collections.Get(n); ok {
			out = append(out, c)
		}
	}
	return out
}

// Load runs spec.md §4.3's load protocol for every file-backed collection,
// grouped by shared file path. It must run to completion before the
// database is usable: a MigrationError or SerializationError here aborts
// construction entirely (spec.md §7).
func (e *Engine) Load(ctx context.Context) error {
	groups := groupsByPath(e.allCollections())
	for path, group := range groups {
		if err := e.loadGroup(ctx, path, group); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) loadGroup(ctx context.Context, path string, group []*collection.Collection) error {
	exists, err := e.Adapter.Exists(ctx, path)
	if err != nil {
		return &SerializationError{Path: path, Err: err}
	}
	if !exists {
		// No file yet: every collection in the group starts empty.
		return nil
	}

	data, err := e.Adapter.Read(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil
		}
		return &SerializationError{Path: path, Err: err}
	}

	c, err := codecFor(e.Codecs, path)
	if err != nil {
		return err
	}
	decoded, err := c.Decode(data)
	if err != nil {
		return &SerializationError{Path: path, Err: err}
	}

	split := splitDecoded(group, decoded)

	anyMigrated := false
	for _, coll := range group {
		name := coll.Config.Name
		fileVersion := split.versions[name]
		targetVersion := coll.Config.Version

		if fileVersion > targetVersion {
			return &MigrationError{Collection: name, Reason: ReasonVersionAhead, Step: -1}
		}

		entities := split.entities[name]
		if fileVersion < targetVersion {
			if err := ValidateMigrations(name, targetVersion, coll.Config.Migrations); err != nil {
				return err
			}
			migrated, err := applyMigrations(name, fileVersion, targetVersion, coll.Config.Migrations, entities)
			if err != nil {
				return err
			}
			entities = migrated
			anyMigrated = true
		}

		if err := validateEntities(name, coll, entities); err != nil {
			return err
		}

		ordered := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			ordered = append(ordered, e)
		}
		coll.Store.LoadAll(ordered)
	}

	if anyMigrated {
		return e.writeGroup(ctx, path, group)
	}
	return nil
}

// MarkDirty schedules a debounced flush for collectionName's file group
// (spec.md §4.3: "mutations mark their collection dirty and schedule a
// debounced flush with a configurable delay").
func (e *Engine) MarkDirty(collectionName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty[collectionName] = true
	if e.timer == nil {
		e.timer = time.AfterFunc(e.Debounce, e.onTimerFire)
	}
}

func (e *Engine) onTimerFire() {
	e.mu.Lock()
	e.timer = nil
	e.mu.Unlock()
	if err := e.flushNow(context.Background()); err != nil {
		e.logger.Warn("debounced flush failed", "error", err)
	}
}

// Flush drains every pending debounced write synchronously (spec.md §4.3:
// "a blocking flush() drains pending writes").
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	return e.flushNow(ctx)
}

func (e *Engine) flushNow(ctx context.Context) error {
	e.mu.Lock()
	names := make([]string, 0, len(e.dirty))
	for n := range e.dirty {
		names = append(names, n)
	}
	e.dirty = make(map[string]bool)
	e.mu.Unlock()

	if len(names) == 0 {
		return nil
	}

	dirtySet := make(map[string]bool, len(names))
	for _, n := range names {
		dirtySet[n] = true
	}

	// A flush groups all dirty collections by file path (spec.md §4.3), but
	// must re-encode every collection sharing that path, not just the dirty
	// ones, since the file holds their combined state.
	pathGroups := groupsByPath(e.allCollections())
	touched := make(map[string][]*collection.Collection)
	for path, group := range pathGroups {
		for _, c := range group {
			if dirtySet[c.Config.Name] {
				touched[path] = group
				break
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for path, group := range touched {
		path, group := path, group
		g.Go(func() error {
			return e.writeGroup(gctx, path, group)
		})
	}
	return g.Wait()
}

func (e *Engine) writeGroup(ctx context.Context, path string, group []*collection.Collection) error {
	start := time.Now()
	defer func() { e.telemetry().RecordFlush(ctx, path, time.Since(start)) }()

	c, err := codecFor(e.Codecs, path)
	if err != nil {
		e.logger.Error("persistence: no codec for path, leaving file untouched", "path", path, "error", err)
		return err
	}

	entities := encodeGroup(group)
	data, err := c.Encode(entities)
	if err != nil {
		// spec.md §7: "SerializationError during save: log, leave previous
		// file intact, reschedule."
		e.logger.Error("persistence: encode failed, file left untouched, rescheduling", "path", path, "error", err)
		for _, coll := range group {
			e.MarkDirty(coll.Config.Name)
		}
		return &SerializationError{Path: path, Err: err}
	}

	if err := e.Adapter.Write(ctx, path, data); err != nil {
		e.logger.Error("persistence: write failed, rescheduling", "path", path, "error", err)
		for _, coll := range group {
			e.MarkDirty(coll.Config.Name)
		}
		return err
	}
	return nil
}

// DryRunResult is one collection's migration status (spec.md §6 "Persisted-
// state layout for migration dry-run").
type DryRunResult struct {
	Name              string
	FilePath          string
	CurrentVersion    int
	TargetVersion     int
	Status            string // "up-to-date" | "needs-migration" | "no-file"
	MigrationsToApply []collection.Migration
}

const (
	StatusUpToDate      = "up-to-date"
	StatusNeedsMigration = "needs-migration"
	StatusNoFile         = "no-file"
)

// DryRun implements spec.md §4.4's dryRun(config): report each collection's
// current/target version and the migrations that would run, without
// writing anything.
func (e *Engine) DryRun(ctx context.Context) ([]DryRunResult, error) {
	var out []DryRunResult
	groups := groupsByPath(e.allCollections())
	for path, group := range groups {
		exists, err := e.Adapter.Exists(ctx, path)
		if err != nil {
			return nil, &SerializationError{Path: path, Err: err}
		}
		if !exists {
			for _, c := range group {
				out = append(out, DryRunResult{
					Name: c.Config.Name, FilePath: path,
					CurrentVersion: 0, TargetVersion: c.Config.Version,
					Status: StatusNoFile,
				})
			}
			continue
		}

		data, err := e.Adapter.Read(ctx, path)
		if err != nil {
			return nil, &SerializationError{Path: path, Err: err}
		}
		cod, err := codecFor(e.Codecs, path)
		if err != nil {
			return nil, err
		}
		decoded, err := cod.Decode(data)
		if err != nil {
			return nil, &SerializationError{Path: path, Err: err}
		}
		split := splitDecoded(group, decoded)

		for _, c := range group {
			name := c.Config.Name
			current := split.versions[name]
			target := c.Config.Version
			status := StatusUpToDate
			var toApply []collection.Migration
			if current < target {
				status = StatusNeedsMigration
				for _, m := range sortedChain(c.Config.Migrations) {
					if m.From >= current && m.From < target {
						toApply = append(toApply, m)
					}
				}
			}
			out = append(out, DryRunResult{
				Name: name, FilePath: path,
				CurrentVersion: current, TargetVersion: target,
				Status: status, MigrationsToApply: toApply,
			})
		}
	}
	return out, nil
}
