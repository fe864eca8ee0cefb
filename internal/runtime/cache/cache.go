// Package cache keeps guest bytecode in a key-value store and the compiled
// form of each script in memory, both keyed by the sha256 of the bytecode.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/tetratelabs/wazero"
)

const dbName = "scout-code"

// Metrics summarizes cache usage.
type Metrics struct {
	Hits     uint64
	Misses   uint64
	Elements uint64
	Pinned   uint64
}

// Cache manages guest bytecode and compiled modules.
type Cache struct {
	mu       sync.RWMutex
	db       dbm.DB
	compiled map[string]wazero.CompiledModule
	pinned   map[string]struct{}

	hits   uint64
	misses uint64
}

// New creates a cache on top of db. A nil db means an in-memory store.
func New(db dbm.DB) *Cache {
	if db == nil {
		db = dbm.NewMemDB()
	}
	return &Cache{
		db:       db,
		compiled: make(map[string]wazero.CompiledModule),
		pinned:   make(map[string]struct{}),
	}
}

// Open creates a cache on the named cometbft-db backend. The memdb backend
// ignores dir.
func Open(backend, dir string) (*Cache, error) {
	if backend == "" || dbm.BackendType(backend) == dbm.MemDBBackend {
		return New(nil), nil
	}
	db, err := dbm.NewDB(dbName, dbm.BackendType(backend), dir)
	if err != nil {
		return nil, fmt.Errorf("opening %s code store in %q: %w", backend, dir, err)
	}
	return New(db), nil
}

// Checksum returns the key a script is stored under.
func Checksum(code []byte) []byte {
	sum := sha256.Sum256(code)
	return sum[:]
}

// Save stores a script and returns its checksum.
func (c *Cache) Save(code []byte) ([]byte, error) {
	checksum := Checksum(code)
	if err := c.db.Set(checksum, code); err != nil {
		return nil, fmt.Errorf("storing code %x: %w", checksum, err)
	}
	return checksum, nil
}

// Load retrieves a script by checksum.
func (c *Cache) Load(checksum []byte) ([]byte, bool, error) {
	code, err := c.db.Get(checksum)
	if err != nil {
		return nil, false, fmt.Errorf("loading code %x: %w", checksum, err)
	}
	return code, code != nil, nil
}

// Compiled returns the compiled module for checksum if there is one.
func (c *Cache) Compiled(checksum []byte) (wazero.CompiledModule, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(checksum)
}

func (c *Cache) lookup(checksum []byte) (wazero.CompiledModule, bool) {
	module, exists := c.compiled[string(checksum)]
	if exists {
		c.hits++
	} else {
		c.misses++
	}
	return module, exists
}

// Compile returns the compiled module for code. On a miss it calls compile
// and stores the code only if compile succeeds, so rejected code is never
// kept. Compilation happens under the cache lock so a script is never
// compiled twice.
func (c *Cache) Compile(ctx context.Context, code []byte, compile func(context.Context, []byte) (wazero.CompiledModule, error)) (wazero.CompiledModule, error) {
	checksum := Checksum(code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if module, ok := c.lookup(checksum); ok {
		return module, nil
	}
	module, err := compile(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := c.Save(code); err != nil {
		_ = module.Close(ctx)
		return nil, err
	}
	c.compiled[string(checksum)] = module
	return module, nil
}

// Pin protects a script from Remove.
func (c *Cache) Pin(checksum []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned[string(checksum)] = struct{}{}
}

// Unpin removes the pin from a script.
func (c *Cache) Unpin(checksum []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pinned, string(checksum))
}

// Remove deletes a script and its compiled module unless it is pinned.
// The compiled module must not be in use.
func (c *Cache) Remove(ctx context.Context, checksum []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := string(checksum)
	if _, isPinned := c.pinned[key]; isPinned {
		return false, nil
	}
	if module, ok := c.compiled[key]; ok {
		delete(c.compiled, key)
		if err := module.Close(ctx); err != nil {
			return false, err
		}
	}
	if err := c.db.Delete(checksum); err != nil {
		return false, fmt.Errorf("deleting code %x: %w", checksum, err)
	}
	return true, nil
}

// Metrics reports hit and miss counts and current sizes.
func (c *Cache) Metrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Metrics{
		Hits:     c.hits,
		Misses:   c.misses,
		Elements: uint64(len(c.compiled)),
		Pinned:   uint64(len(c.pinned)),
	}
}

// Close releases all compiled modules and the underlying store.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, module := range c.compiled {
		if err := module.Close(ctx); err != nil {
			return err
		}
		delete(c.compiled, key)
	}
	return c.db.Close()
}
