package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MeKo-Tech/omr/internal/template"
)

// Cache builds engines for layouts submitted at request time and keeps the
// most recently used ones, keyed by the hash of the layout bytes.
type Cache struct {
	cfg  Config
	opts Options

	mu      sync.Mutex
	engines *lru.Cache[string, *Engine]
}

// NewCache returns a cache holding at most size engines.
func NewCache(cfg Config, opts Options, size int) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	engines, err := lru.New[string, *Engine](size)
	if err != nil {
		return nil, err
	}
	return &Cache{cfg: cfg, opts: opts, engines: engines}, nil
}

// Get returns the engine for the layout in data, parsing and preparing it on
// first use.
func (c *Cache) Get(data []byte, format template.Format) (*Engine, error) {
	sum := sha256.Sum256(data)
	key := string(format) + ":" + hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.engines.Get(key); ok {
		return e, nil
	}
	scan, err := template.Parse(data, format)
	if err != nil {
		return nil, err
	}
	e, err := New(scan, c.cfg, c.opts)
	if err != nil {
		return nil, err
	}
	if evicted := c.engines.Add(key, e); evicted {
		slog.Debug("Engine cache evicted a layout", "size", c.engines.Len())
	}
	return e, nil
}

// Len reports the number of cached engines.
func (c *Cache) Len() int {
	return c.engines.Len()
}
