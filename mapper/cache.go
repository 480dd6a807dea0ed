// Package mapper builds axon descriptors for Go struct types by reflection.
//
// The axon core never reflects on types; it consumes a Descriptor. This
// package is one way to produce descriptors, with a Cache so each struct type
// is inspected once.
//
// Struct fields map by kind:
//
//	string                    S
//	int*, uint*               I
//	float32, float64          F
//	bool                      B
//	time.Time                 T
//	decimal.Decimal           D
//	pointer to any of these   same code, nullable
//
// Unexported fields and fields of other types are skipped. The tag
// `axon:"name"` renames a field and `axon:"-"` skips it.
package mapper

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/Neumenon/axon/axon"
)

// Cache holds descriptors keyed by Go type.
//
// A Cache is safe for concurrent use. The zero value is ready to use and
// logs through slog.Default.
type Cache struct {
	mu    sync.RWMutex
	descs map[reflect.Type]any // *axon.Descriptor[T]

	logger *slog.Logger
}

// NewCache creates a cache that logs skipped fields and ignored
// conversions to logger at debug level. nil means slog.Default.
func NewCache(logger *slog.Logger) *Cache {
	return &Cache{
		descs:  make(map[reflect.Type]any),
		logger: logger,
	}
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descs)
}

func (c *Cache) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

func (c *Cache) load(rt reflect.Type) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.descs[rt]
	return d, ok
}

// store keeps the first descriptor registered for rt and returns it.
func (c *Cache) store(rt reflect.Type, d any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.descs == nil {
		c.descs = make(map[reflect.Type]any)
	}
	if existing, ok := c.descs[rt]; ok {
		return existing
	}
	c.descs[rt] = d
	return d
}

// For returns the descriptor for T, building and caching it on first use.
// T must be a struct type or a pointer to one; with a pointer type nil items
// serialize as all-null rows.
func For[T any](c *Cache) (*axon.Descriptor[T], error) {
	rt := reflect.TypeFor[T]()
	if d, ok := c.load(rt); ok {
		return d.(*axon.Descriptor[T]), nil
	}

	d, err := build[T](c, rt)
	if err != nil {
		return nil, err
	}
	return c.store(rt, d).(*axon.Descriptor[T]), nil
}
