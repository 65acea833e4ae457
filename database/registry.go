package database

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/logger"
)

// ConfigSource resolves the configuration of a named connection.
type ConfigSource interface {
	DatabaseConfig(ctx context.Context, name string) (*config.DatabaseConfig, error)
}

// StaticConfigs is a ConfigSource backed by a fixed map.
type StaticConfigs map[string]*config.DatabaseConfig

func (s StaticConfigs) DatabaseConfig(_ context.Context, name string) (*config.DatabaseConfig, error) {
	cfg, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("no database configured under %q", name)
	}
	return cfg, nil
}

// Registry opens named connections lazily and keeps them for reuse, closing the
// least recently used one past MaxSize and any left idle longer than IdleTTL.
type Registry struct {
	logger    logger.Logger
	source    ConfigSource
	connector Connector

	mu      sync.Mutex
	entries map[string]*registryEntry
	lru     *list.List
	maxSize int

	idleTTL   time.Duration
	cleanupMu sync.Mutex
	cleanupCh chan struct{}

	group singleflight.Group
}

type registryEntry struct {
	db       *DB
	element  *list.Element
	lastUsed time.Time
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	MaxSize int
	IdleTTL time.Duration
	// Connector overrides NewConnection.
	Connector Connector
}

// NewRegistry creates a registry resolving names through source.
func NewRegistry(source ConfigSource, log logger.Logger, opts RegistryOptions) *Registry {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 16
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Connector == nil {
		opts.Connector = NewConnection
	}
	return &Registry{
		logger:    log,
		source:    source,
		connector: opts.Connector,
		entries:   make(map[string]*registryEntry),
		lru:       list.New(),
		maxSize:   opts.MaxSize,
		idleTTL:   opts.IdleTTL,
	}
}

// Get returns the DB registered under name, opening it on first use. Concurrent
// first calls for one name share a single open.
func (r *Registry) Get(ctx context.Context, name string) (*DB, error) {
	if db := r.lookup(name); db != nil {
		return db, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		if db := r.lookup(name); db != nil {
			return db, nil
		}
		return r.open(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DB), nil
}

func (r *Registry) lookup(name string) *DB {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil
	}
	entry.lastUsed = time.Now()
	r.lru.MoveToFront(entry.element)
	return entry.db
}

func (r *Registry) open(ctx context.Context, name string) (*DB, error) {
	cfg, err := r.source.DatabaseConfig(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database %s: %w", name, err)
	}
	db, err := openWith(r.connector, cfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictLocked()
	r.entries[name] = &registryEntry{db: db, element: r.lru.PushFront(name), lastUsed: time.Now()}

	r.logger.Info().
		Str("name", name).
		Str("db_type", cfg.Type).
		Msg("Opened database connection")
	return db, nil
}

func (r *Registry) evictLocked() {
	if len(r.entries) < r.maxSize {
		return
	}
	oldest := r.lru.Back()
	if oldest == nil {
		return
	}
	name := oldest.Value.(string)
	r.removeLocked(name, "Evicted database connection due to size limit")
}

func (r *Registry) removeLocked(name, reason string) {
	entry := r.entries[name]
	if err := entry.db.Close(); err != nil {
		r.logger.Error().Err(err).Str("name", name).Msg("Error closing database connection")
	}
	delete(r.entries, name)
	r.lru.Remove(entry.element)
	r.logger.Debug().Str("name", name).Msg(reason)
}

// StartCleanup closes idle connections every interval until StopCleanup or Close.
func (r *Registry) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	r.cleanupMu.Lock()
	if r.cleanupCh != nil {
		r.cleanupMu.Unlock()
		return
	}
	done := make(chan struct{})
	r.cleanupCh = done
	r.cleanupMu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.closeIdle()
			case <-done:
				return
			}
		}
	}()
}

// StopCleanup stops the background cleanup started by StartCleanup.
func (r *Registry) StopCleanup() {
	r.cleanupMu.Lock()
	defer r.cleanupMu.Unlock()
	if r.cleanupCh != nil {
		close(r.cleanupCh)
		r.cleanupCh = nil
	}
}

func (r *Registry) closeIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for name, entry := range r.entries {
		if now.Sub(entry.lastUsed) > r.idleTTL {
			r.removeLocked(name, "Closed idle database connection")
		}
	}
}

// Close stops cleanup and closes every open connection.
func (r *Registry) Close() error {
	r.StopCleanup()

	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, entry := range r.entries {
		if err := entry.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing database %s: %w", name, err))
		}
	}
	r.entries = make(map[string]*registryEntry)
	r.lru.Init()
	return errors.Join(errs...)
}

// Size returns the number of open connections.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
