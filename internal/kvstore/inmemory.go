package kvstore

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// inMemoryBacking is the in-memory Backing implementation. Schema and table
// registries use xsync.Map (a lock-free concurrent hash map) so a CREATE
// TABLE in one schema never blocks a concurrent scan of an unrelated table.
type inMemoryBacking struct {
	schemas *xsync.MapOf[string, *inMemorySchema]
}

// NewInMemory returns a fresh, empty in-memory Backing.
func NewInMemory() Backing {
	return &inMemoryBacking{schemas: xsync.NewMapOf[string, *inMemorySchema]()}
}

func (b *inMemoryBacking) CreateSchema(name string) bool {
	_, loaded := b.schemas.LoadOrStore(name, newInMemorySchema())
	return !loaded
}

func (b *inMemoryBacking) DropSchema(name string) bool {
	_, existed := b.schemas.LoadAndDelete(name)
	return existed
}

func (b *inMemoryBacking) WorkWithSchema(name string, fn func(Schema) error) (bool, error) {
	s, ok := b.schemas.Load(name)
	if !ok {
		return false, nil
	}
	return true, fn(s)
}

func (b *inMemoryBacking) Close() error { return nil }

type inMemorySchema struct {
	tables *xsync.MapOf[string, *inMemoryTable]
}

func newInMemorySchema() *inMemorySchema {
	return &inMemorySchema{tables: xsync.NewMapOf[string, *inMemoryTable]()}
}

func (s *inMemorySchema) CreateTable(name string) bool {
	_, loaded := s.tables.LoadOrStore(name, newInMemoryTable())
	return !loaded
}

func (s *inMemorySchema) DropTable(name string) bool {
	_, existed := s.tables.LoadAndDelete(name)
	return existed
}

func (s *inMemorySchema) Empty() bool {
	empty := true
	s.tables.Range(func(string, *inMemoryTable) bool {
		empty = false
		return false
	})
	return empty
}

func (s *inMemorySchema) WorkWithTable(name string, fn func(Table) error) (bool, error) {
	t, ok := s.tables.Load(name)
	if !ok {
		return false, nil
	}
	return true, fn(t)
}

// inMemoryTable is guarded by a reader-writer lock: many concurrent
// readers, a single writer.
type inMemoryTable struct {
	mu      sync.RWMutex
	rows    map[string]Value // keyed by string(Key) for comparability
	counter atomic.Uint64
	indexes map[string][]int
}

func newInMemoryTable() *inMemoryTable {
	return &inMemoryTable{
		rows:    make(map[string]Value),
		indexes: make(map[string][]int),
	}
}

func (t *inMemoryTable) Scan() Cursor {
	t.mu.RLock()
	snapshot := make([]KV, 0, len(t.rows))
	for k, v := range t.rows {
		v := v
		snapshot = append(snapshot, KV{Key: Key(k), Value: &v})
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return string(snapshot[i].Key) < string(snapshot[j].Key)
	})
	return &inMemoryCursor{rows: snapshot, release: t.mu.RUnlock}
}

func (t *inMemoryTable) Insert(values []Value) ([]Key, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]Key, 0, len(values))
	for _, v := range values {
		id := t.counter.Add(1) - 1
		key := recordKey(id)
		t.rows[string(key)] = v
		keys = append(keys, key)
	}
	return keys, nil
}

func (t *inMemoryTable) Delete(keys []Key) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, k := range keys {
		if _, ok := t.rows[string(k)]; ok {
			delete(t.rows, string(k))
			count++
		}
	}
	return count, nil
}

func (t *inMemoryTable) Update(pairs []KV) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, p := range pairs {
		if _, ok := t.rows[string(p.Key)]; !ok {
			continue
		}
		count++
		if p.Value == nil {
			delete(t.rows, string(p.Key))
		} else {
			t.rows[string(p.Key)] = *p.Value
		}
	}
	return count, nil
}

func (t *inMemoryTable) WriteKey(key Key, value *Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if value == nil {
		delete(t.rows, string(key))
		return nil
	}
	t.rows[string(key)] = *value
	return nil
}

func (t *inMemoryTable) CreateIndex(name string, columnOrdinals []int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indexes[name] = columnOrdinals
	return nil
}

type inMemoryCursor struct {
	rows    []KV
	pos     int
	release func()
	closed  bool
}

func (c *inMemoryCursor) Next() (Key, Value, bool) {
	if c.pos >= len(c.rows) {
		return nil, nil, false
	}
	kv := c.rows[c.pos]
	c.pos++
	return kv.Key, *kv.Value, true
}

func (c *inMemoryCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.release()
}
