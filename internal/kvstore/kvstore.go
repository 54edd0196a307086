// Package kvstore is the storage abstraction under the catalog and the
// planner: a Catalog → Schema → Table → (Key, Value) hierarchy with
// cursors, backed interchangeably by an in-memory map (this package's
// Backing implementation) or an embedded ordered KV store
// (internal/kvstore/durable).
package kvstore

import "sqlengine/internal/rowcodec"

// Key is an opaque, packed lookup key. Record-ids, which key both user and
// system-table rows, are packed single UInt64 datums.
type Key = rowcodec.Binary

// Value is a packed row.
type Value = rowcodec.Binary

// KV pairs a key with the value to write there; a nil Value means delete.
type KV struct {
	Key   Key
	Value *Value
}

// Cursor yields (key, value) pairs in Binary order and reflects a snapshot
// of at least the state at its creation. Callers must Close a cursor when
// done with it; Close releases whatever lock or transaction the cursor is
// holding.
type Cursor interface {
	// Next advances the cursor and reports whether a pair was produced.
	Next() (Key, Value, bool)
	Close()
}

// Table is a single table's record store.
type Table interface {
	// Scan returns a Cursor over every (key, value) pair currently in the
	// table, in Binary key order.
	Scan() Cursor
	// Insert assigns each value a fresh, strictly increasing record-id key
	// and returns the keys in insertion order.
	Insert(values []Value) ([]Key, error)
	// Delete removes the given keys and reports how many existed.
	Delete(keys []Key) (int, error)
	// Update applies each (key, value) pair; a nil value deletes that key.
	// Reports how many keys existed prior to the write.
	Update(pairs []KV) (int, error)
	// WriteKey writes (or, if value is nil, deletes) a single key.
	WriteKey(key Key, value *Value) error
	// CreateIndex registers an index over the given column ordinals.
	CreateIndex(name string, columnOrdinals []int) error
}

// Schema is one schema's table registry.
type Schema interface {
	CreateTable(name string) bool
	DropTable(name string) bool
	// Empty reports whether the schema currently has zero tables.
	Empty() bool
	// WorkWithTable applies fn to the named table's handle, returning
	// ran=false if the table doesn't exist (fn is not invoked).
	WorkWithTable(name string, fn func(Table) error) (ran bool, err error)
}

// Backing is the top-level storage handle: one per open catalog/database.
type Backing interface {
	// CreateSchema allocates the physical key-space for name, returning
	// false iff a schema with that name already exists.
	CreateSchema(name string) bool
	// DropSchema removes the physical key-space for name, returning false
	// iff no such schema exists. After DropSchema(s) returns true, a
	// subsequent WorkWithSchema(s, _) returns ran=false.
	DropSchema(name string) bool
	// WorkWithSchema applies fn to the named schema's handle, returning
	// ran=false if the schema doesn't exist (fn is not invoked).
	WorkWithSchema(name string, fn func(Schema) error) (ran bool, err error)
	Close() error
}
