package embedding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// FileStore is the legacy flat-file cache tier: one JSON file per kind
// under a cache directory. It exists so a missing database only costs
// durability, never the pipeline run. Writes rewrite the whole kind file;
// the corpus per kind is small enough that this stays cheap.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Get(kind Kind, id int64) (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load(kind)
	if err != nil {
		return Entry{}, false
	}
	entry, ok := entries[strconv.FormatInt(id, 10)]
	return entry, ok
}

func (f *FileStore) GetAll(kind Kind) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load(kind)
	if err != nil {
		return nil
	}
	result := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry)
	}
	return result
}

func (f *FileStore) Set(kind Kind, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load(kind)
	if err != nil {
		entries = make(map[string]Entry)
	}
	entries[strconv.FormatInt(entry.ID, 10)] = entry
	return f.save(kind, entries)
}

func (f *FileStore) Clear(kind Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(kind))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FileStore) path(kind Kind) string {
	return filepath.Join(f.dir, string(kind)+".json")
}

func (f *FileStore) load(kind Kind) (map[string]Entry, error) {
	data, err := os.ReadFile(f.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Entry), nil
		}
		return nil, err
	}
	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing cache file %s: %w", f.path(kind), err)
	}
	return entries, nil
}

func (f *FileStore) save(kind Kind, entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	tmp := f.path(kind) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(kind))
}
