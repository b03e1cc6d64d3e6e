package services

import (
	"sync"
	"sync/atomic"
)

// CellCache is the shared cell -> state map used by every worker of a run.
//
// Reads never block. Inserts are idempotent: the first value stored for a
// cell is kept and later inserts for the same cell are no-ops, so two
// workers racing to resolve the same cell need no coordination.
type CellCache struct {
	m     sync.Map
	size  atomic.Int64
	fresh sync.Map
}

// NewCellCache seeds a cache with previously persisted cells.
// Seeded cells are not reported by Fresh.
func NewCellCache(seed map[string]string) *CellCache {
	c := &CellCache{}
	for k, v := range seed {
		if _, loaded := c.m.LoadOrStore(k, v); !loaded {
			c.size.Add(1)
		}
	}
	return c
}

// Lookup returns the stored state for cell.
func (c *CellCache) Lookup(cell string) (string, bool) {
	v, ok := c.m.Load(cell)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Insert stores state for cell unless the cell is already present and
// returns the value the cache holds afterwards.
func (c *CellCache) Insert(cell, state string) (stored string, inserted bool) {
	v, loaded := c.m.LoadOrStore(cell, state)
	if loaded {
		return v.(string), false
	}
	c.size.Add(1)
	c.fresh.Store(cell, state)
	return state, true
}

// Len returns the number of cached cells.
func (c *CellCache) Len() int { return int(c.size.Load()) }

// Snapshot copies every cached cell.
func (c *CellCache) Snapshot() map[string]string {
	out := make(map[string]string, c.Len())
	c.m.Range(func(k, v any) bool {
		out[k.(string)] = v.(string)
		return true
	})
	return out
}

// Fresh copies the cells inserted since the cache was created.
func (c *CellCache) Fresh() map[string]string {
	out := make(map[string]string)
	c.fresh.Range(func(k, v any) bool {
		out[k.(string)] = v.(string)
		return true
	})
	return out
}
