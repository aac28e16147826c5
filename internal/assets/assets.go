// Package assets resolves asset bytes, such as shader sources, by name.
// Assets come from an optional override directory first and the
// embedded defaults second.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/logger"
)

//go:embed shaders
var embedded embed.FS

// Shader asset names.
const (
	MeshVertexShader   = "shaders/mesh.vert"
	MeshFragmentShader = "shaders/mesh.frag"
	LineVertexShader   = "shaders/line.vert"
	LineFragmentShader = "shaders/line.frag"
)

// ErrNotFound is returned when no source holds an asset.
var ErrNotFound = errors.New("asset not found")

// Resolver loads assets by slash-separated name.
type Resolver struct {
	dir   string
	base  fs.FS
	cache *Cache
	log   *zap.Logger
}

// NewResolver returns a resolver that looks in dir before the embedded
// defaults. An empty dir uses the defaults only.
func NewResolver(dir string) *Resolver {
	return &Resolver{
		dir:   dir,
		base:  embedded,
		cache: NewCache(),
		log:   logger.Named("assets"),
	}
}

// Dir returns the override directory.
func (r *Resolver) Dir() string { return r.dir }

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Load returns the bytes of the named asset.
func (r *Resolver) Load(name string) ([]byte, error) {
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid asset name %q", name)
	}
	if data, ok := r.cache.Get(name); ok {
		return data, nil
	}

	if r.dir != "" {
		data, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(name)))
		if err == nil {
			r.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}

	data, err := fs.ReadFile(r.base, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading embedded %s: %w", name, err)
	}
	r.cache.Set(name, data)
	return data, nil
}

// LoadString returns the named asset as a string.
func (r *Resolver) LoadString(name string) (string, error) {
	data, err := r.Load(name)
	return string(data), err
}

// Invalidate drops a cached asset so the next Load reads it again.
func (r *Resolver) Invalidate(name string) {
	r.cache.Delete(path.Clean(name))
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item from cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
