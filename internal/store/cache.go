package store

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// TableReader loads table artifacts.
type TableReader interface {
	LoadTable(ctx context.Context, key Key) (domain.Table, error)
}

// CachedTables wraps a TableReader with a cache of decoded tables bounded by
// the number of values held (rows x months), evicting least recently used
// tables first. Report commands read the same clustered tables many times.
type CachedTables struct {
	inner  TableReader
	budget int

	mu     sync.Mutex
	order  *list.List // front is most recently used
	tables map[string]*list.Element
	held   int
}

type cachedTable struct {
	key   string
	table domain.Table
	size  int
}

// NewCachedTables creates a cache decorator around a table reader. A table
// larger than maxValues is passed through uncached; maxValues <= 0 disables
// caching.
func NewCachedTables(inner TableReader, maxValues int) *CachedTables {
	return &CachedTables{
		inner:  inner,
		budget: maxValues,
		order:  list.New(),
		tables: make(map[string]*list.Element),
	}
}

// LoadTable returns a copy of the cached table, loading it on a miss.
// Failed loads are not cached so a later commit can be picked up.
func (c *CachedTables) LoadTable(ctx context.Context, key Key) (domain.Table, error) {
	k := key.String()
	if t, ok := c.get(k); ok {
		return copyTable(t), nil
	}
	t, err := c.inner.LoadTable(ctx, key)
	if err != nil {
		return t, err
	}
	if c.put(k, t) {
		return copyTable(t), nil
	}
	return t, nil
}

// Held returns the number of values currently cached.
func (c *CachedTables) Held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

// Len returns the number of cached tables.
func (c *CachedTables) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *CachedTables) get(k string) (domain.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.tables[k]
	if !ok {
		return domain.Table{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedTable).table, true
}

// put stores t and reports whether it was kept.
func (c *CachedTables) put(k string, t domain.Table) bool {
	size := tableSize(t)
	if size > c.budget {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.tables[k]; ok {
		c.remove(el)
	}
	for c.held+size > c.budget {
		c.remove(c.order.Back())
	}
	c.tables[k] = c.order.PushFront(&cachedTable{key: k, table: t, size: size})
	c.held += size
	return true
}

func (c *CachedTables) remove(el *list.Element) {
	ct := c.order.Remove(el).(*cachedTable)
	delete(c.tables, ct.key)
	c.held -= ct.size
}

func tableSize(t domain.Table) int {
	return max(t.Len()*len(t.Months), 1)
}

func copyTable(t domain.Table) domain.Table {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	return t.Select(rows)
}
