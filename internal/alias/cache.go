// Package alias loads the module alias table. The table is owned by the
// caller as an explicit Cache object rather than process-global state, so
// concurrent resolution is safe and tests do not couple through a singleton.
package alias

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/modguard/modguard/internal/models"
	"gopkg.in/yaml.v3"
)

// rawTable mirrors the on-disk document.
type rawTable struct {
	Aliases map[string]models.AliasEntry `yaml:"aliases"`
}

// Cache lazily loads the alias file and serves it read-mostly.
// Invalidate forces a re-load on next access.
type Cache struct {
	path string

	mu     sync.RWMutex
	loaded bool
	table  map[string]models.AliasEntry
}

// NewCache for the given alias file path. An empty path or a missing file
// yields an empty table, not an error.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Table returns the alias table, loading it on first use.
func (c *Cache) Table() (map[string]models.AliasEntry, error) {
	c.mu.RLock()
	if c.loaded {
		t := c.table
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.table, nil
	}

	table, err := load(c.path)
	if err != nil {
		return nil, err
	}
	c.table = table
	c.loaded = true
	return c.table, nil
}

// Invalidate drops the cached table; the next Table call re-reads the file.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.table = nil
}

func load(path string) (map[string]models.AliasEntry, error) {
	if path == "" {
		return map[string]models.AliasEntry{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]models.AliasEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}

	var raw rawTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid alias file %s: %w", path, err)
	}

	table := make(map[string]models.AliasEntry, len(raw.Aliases))
	for key, entry := range raw.Aliases {
		if entry.Canonical == "" {
			return nil, fmt.Errorf("invalid alias file %s: alias %q has no canonical target", path, key)
		}
		// human-declared aliases default to full confidence
		if entry.Confidence == 0 {
			entry.Confidence = 1.0
		}
		if entry.Confidence < 0 || entry.Confidence > 1 {
			return nil, fmt.Errorf("invalid alias file %s: alias %q confidence %v out of range", path, key, entry.Confidence)
		}
		table[key] = entry
	}
	return table, nil
}
