package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"signalhub.app/correlator/internal/faults"
)

// Kind partitions cached vectors by owning entity type.
type Kind string

const (
	KindSignal  Kind = "signal"
	KindFeature Kind = "feature"
	KindFix     Kind = "fix"
)

// Entry is one cached vector together with the hash of the exact text that
// produced it. An entry is valid only while both the content hash and the
// model match; that check is the sole invalidation mechanism, there is no
// TTL.
type Entry struct {
	ID          int64     `json:"id"`
	Vector      []float64 `json:"vector"`
	ContentHash string    `json:"content_hash"`
	Model       string    `json:"model"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DurableStore is the database tier of the cache. Unavailability is
// non-fatal; IsAvailable gates whether the durable path is attempted at
// all.
type DurableStore interface {
	IsAvailable(ctx context.Context) bool
	Get(ctx context.Context, kind Kind, id int64) (*Entry, error)
	GetAll(ctx context.Context, kind Kind) ([]Entry, error)
	Upsert(ctx context.Context, kind Kind, entry Entry) error
	UpsertBatch(ctx context.Context, kind Kind, entries []Entry) []error
	Clear(ctx context.Context, kind Kind) error
}

// Cache is the write-through embedding cache in front of the provider.
// Lookup order is in-memory map, durable store, legacy flat-file store,
// short-circuiting on first valid hit. A missing database never blocks
// the pipeline, it only changes persistence durability.
//
// The cache is an explicit injectable object constructed once per process
// and passed by reference; the in-memory tier is process-local.
type Cache struct {
	mu     sync.RWMutex
	mem    map[Kind]map[int64]Entry
	store  DurableStore
	files  *FileStore
	model  string
	dims   int
	logger *slog.Logger
}

// NewCache builds a cache bound to the configured model. store and files
// may each be nil; every operation degrades to the next available tier.
func NewCache(store DurableStore, files *FileStore, model string, dims int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		mem:    make(map[Kind]map[int64]Entry),
		store:  store,
		files:  files,
		model:  model,
		dims:   dims,
		logger: logger,
	}
}

// Get returns the cached vector for (kind, id) when the stored content
// hash matches contentHash and the stored model matches the configured
// model. Any mismatch is a miss and forces recomputation by the caller.
func (c *Cache) Get(ctx context.Context, kind Kind, id int64, contentHash string) ([]float64, bool) {
	c.mu.RLock()
	entry, ok := c.mem[kind][id]
	c.mu.RUnlock()
	if ok && c.valid(entry, contentHash) {
		return entry.Vector, true
	}

	if c.store != nil && c.store.IsAvailable(ctx) {
		stored, err := c.store.Get(ctx, kind, id)
		if err == nil && stored != nil && c.valid(*stored, contentHash) {
			c.remember(kind, *stored)
			return stored.Vector, true
		}
	}

	if c.files != nil {
		if stored, ok := c.files.Get(kind, id); ok && c.valid(stored, contentHash) {
			c.remember(kind, stored)
			return stored.Vector, true
		}
	}

	return nil, false
}

// Set validates the vector length, writes the in-memory tier immediately
// and then attempts the durable write. A failed durable write degrades to
// the flat-file store rather than losing the computation; degradation is
// surfaced as a warning, never as a failure of the calling operation.
func (c *Cache) Set(ctx context.Context, kind Kind, id int64, contentHash string, vector []float64) error {
	if len(vector) != c.dims {
		return &faults.ValidationError{
			Field:  "vector",
			Reason: fmt.Sprintf("expected %d dimensions for model %s, got %d", c.dims, c.model, len(vector)),
		}
	}

	entry := Entry{
		ID:          id,
		Vector:      vector,
		ContentHash: contentHash,
		Model:       c.model,
		UpdatedAt:   time.Now(),
	}
	c.remember(kind, entry)

	if c.store != nil && c.store.IsAvailable(ctx) {
		err := c.store.Upsert(ctx, kind, entry)
		if err == nil {
			return nil
		}
		c.warnDegraded(ctx, kind, id, err)
	}

	if c.files != nil {
		if err := c.files.Set(kind, entry); err != nil {
			c.logger.WarnContext(ctx, "flat-file cache write failed", "kind", kind, "id", id, "error", err)
		}
	}
	return nil
}

// SetBatch writes entries with per-item independence in a single durable
// round trip. The returned slice is parallel to entries; a nil element
// means that item persisted (or degraded) successfully.
func (c *Cache) SetBatch(ctx context.Context, kind Kind, entries []Entry) []error {
	errs := make([]error, len(entries))
	valid := make([]Entry, 0, len(entries))
	validIdx := make([]int, 0, len(entries))

	for i, entry := range entries {
		if len(entry.Vector) != c.dims {
			errs[i] = &faults.ValidationError{
				Field:  "vector",
				Reason: fmt.Sprintf("expected %d dimensions, got %d", c.dims, len(entry.Vector)),
			}
			continue
		}
		entry.Model = c.model
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = time.Now()
		}
		c.remember(kind, entry)
		valid = append(valid, entry)
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return errs
	}

	if c.store != nil && c.store.IsAvailable(ctx) {
		storeErrs := c.store.UpsertBatch(ctx, kind, valid)
		for j, err := range storeErrs {
			if err != nil {
				c.warnDegraded(ctx, kind, valid[j].ID, err)
				if c.files != nil {
					_ = c.files.Set(kind, valid[j])
				}
			}
		}
		return errs
	}

	if c.files != nil {
		for _, entry := range valid {
			_ = c.files.Set(kind, entry)
		}
	}
	return errs
}

// GetAll returns every valid cached vector for the kind, keyed by owner
// id. Tiers are merged with the higher-durability tier winning on
// conflict; entries for a different model are skipped.
func (c *Cache) GetAll(ctx context.Context, kind Kind) map[int64][]float64 {
	result := make(map[int64][]float64)

	if c.files != nil {
		for _, entry := range c.files.GetAll(kind) {
			if entry.Model == c.model {
				result[entry.ID] = entry.Vector
			}
		}
	}

	if c.store != nil && c.store.IsAvailable(ctx) {
		entries, err := c.store.GetAll(ctx, kind)
		if err != nil {
			c.logger.WarnContext(ctx, "durable cache read failed", "kind", kind, "error", err)
		} else {
			for _, entry := range entries {
				if entry.Model == c.model {
					result[entry.ID] = entry.Vector
				}
			}
		}
	}

	c.mu.RLock()
	for id, entry := range c.mem[kind] {
		if entry.Model == c.model {
			result[id] = entry.Vector
		}
	}
	c.mu.RUnlock()

	return result
}

// Clear drops every tier's entries for the kind.
func (c *Cache) Clear(ctx context.Context, kind Kind) {
	c.mu.Lock()
	delete(c.mem, kind)
	c.mu.Unlock()

	if c.store != nil && c.store.IsAvailable(ctx) {
		if err := c.store.Clear(ctx, kind); err != nil {
			c.logger.WarnContext(ctx, "durable cache clear failed", "kind", kind, "error", err)
		}
	}
	if c.files != nil {
		_ = c.files.Clear(kind)
	}
}

func (c *Cache) valid(entry Entry, contentHash string) bool {
	return entry.ContentHash == contentHash && entry.Model == c.model
}

func (c *Cache) remember(kind Kind, entry Entry) {
	c.mu.Lock()
	if c.mem[kind] == nil {
		c.mem[kind] = make(map[int64]Entry)
	}
	c.mem[kind][entry.ID] = entry
	c.mu.Unlock()
}

func (c *Cache) warnDegraded(ctx context.Context, kind Kind, id int64, err error) {
	degraded := &faults.CacheDegraded{Tier: "file", Err: err}
	c.logger.WarnContext(ctx, "durable cache write failed, degrading",
		"kind", kind, "id", id, "error", degraded)
}
