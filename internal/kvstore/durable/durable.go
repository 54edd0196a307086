// Package durable implements the embedded-disk kvstore.Backing over
// go.etcd.io/bbolt. bbolt's nested-bucket model maps directly onto the
// Catalog → Schema → Table → (Key, Value) hierarchy, and bbolt.Cursor
// already iterates in byte order, so no translation layer is needed for
// the Binary-order cursor contract.
package durable

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"sqlengine/internal/kvstore"
	"sqlengine/internal/rowcodec"
)

// recordCounterKey stores the 64-bit next record-id in big-endian. It
// lives alongside the rows but can never collide with a packed record key
// (those start with a datum tag byte, never '_').
var recordCounterKey = []byte("__record_counter")

type backing struct {
	db     *bbolt.DB
	log    *zap.Logger
	schema []byte // the single top-level bucket holding every schema bucket
}

// Open opens (creating if absent) a durable Backing rooted at path. log may
// be nil, in which case a no-op logger is used.
func Open(path string, log *zap.Logger) (kvstore.Backing, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("durable: open %q: %w", path, err)
	}
	log.Info("durable backing opened", zap.String("path", path))
	return &backing{db: db, log: log, schema: []byte("schemas")}, nil
}

func (b *backing) CreateSchema(name string) bool {
	created := false
	_ = b.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(b.schema)
		if err != nil {
			return err
		}
		if root.Bucket([]byte(name)) != nil {
			return nil
		}
		if _, err := root.CreateBucket([]byte(name)); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created
}

func (b *backing) DropSchema(name string) bool {
	dropped := false
	_ = b.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(b.schema)
		if root == nil || root.Bucket([]byte(name)) == nil {
			return nil
		}
		if err := root.DeleteBucket([]byte(name)); err != nil {
			return err
		}
		dropped = true
		return nil
	})
	if dropped {
		b.log.Info("schema dropped", zap.String("schema", name))
	}
	return dropped
}

func (b *backing) WorkWithSchema(name string, fn func(kvstore.Schema) error) (bool, error) {
	var ran bool
	var fnErr error
	err := b.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(b.schema)
		if root == nil {
			return nil
		}
		bucket := root.Bucket([]byte(name))
		if bucket == nil {
			return nil
		}
		ran = true
		fnErr = fn(&schema{tx: tx, bucket: bucket})
		return nil
	})
	if err != nil {
		return ran, err
	}
	return ran, fnErr
}

func (b *backing) Close() error {
	return b.db.Close()
}

type schema struct {
	tx     *bbolt.Tx
	bucket *bbolt.Bucket
}

func (s *schema) CreateTable(name string) bool {
	if s.bucket.Bucket([]byte(name)) != nil {
		return false
	}
	_, err := s.bucket.CreateBucket([]byte(name))
	return err == nil
}

func (s *schema) DropTable(name string) bool {
	if s.bucket.Bucket([]byte(name)) == nil {
		return false
	}
	return s.bucket.DeleteBucket([]byte(name)) == nil
}

func (s *schema) Empty() bool {
	empty := true
	_ = s.bucket.ForEach(func(k, v []byte) error {
		if v == nil { // nested bucket, i.e. a table
			empty = false
		}
		return nil
	})
	return empty
}

func (s *schema) WorkWithTable(name string, fn func(kvstore.Table) error) (bool, error) {
	bucket := s.bucket.Bucket([]byte(name))
	if bucket == nil {
		return false, nil
	}
	return true, fn(&table{bucket: bucket})
}

type table struct {
	bucket *bbolt.Bucket
}

func (t *table) nextCounter(n int) uint64 {
	raw := t.bucket.Get(recordCounterKey)
	var next uint64
	if raw != nil {
		next = binary.BigEndian.Uint64(raw)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next+uint64(n))
	_ = t.bucket.Put(recordCounterKey, buf[:])
	return next
}

func (t *table) Insert(values []kvstore.Value) ([]kvstore.Key, error) {
	start := t.nextCounter(len(values))
	keys := make([]kvstore.Key, 0, len(values))
	for i, v := range values {
		key := recordKey(start + uint64(i))
		if err := t.bucket.Put(key, v); err != nil {
			return keys, fmt.Errorf("durable: insert: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (t *table) Delete(keys []kvstore.Key) (int, error) {
	count := 0
	for _, k := range keys {
		if t.bucket.Get(k) == nil {
			continue
		}
		if err := t.bucket.Delete(k); err != nil {
			return count, fmt.Errorf("durable: delete: %w", err)
		}
		count++
	}
	return count, nil
}

func (t *table) Update(pairs []kvstore.KV) (int, error) {
	count := 0
	for _, p := range pairs {
		if t.bucket.Get(p.Key) == nil {
			continue
		}
		count++
		if p.Value == nil {
			if err := t.bucket.Delete(p.Key); err != nil {
				return count, fmt.Errorf("durable: update(delete): %w", err)
			}
			continue
		}
		if err := t.bucket.Put(p.Key, *p.Value); err != nil {
			return count, fmt.Errorf("durable: update: %w", err)
		}
	}
	return count, nil
}

func (t *table) WriteKey(key kvstore.Key, value *kvstore.Value) error {
	if value == nil {
		return t.bucket.Delete(key)
	}
	return t.bucket.Put(key, *value)
}

func (t *table) CreateIndex(name string, columnOrdinals []int) error {
	indexBucket, err := t.bucket.CreateBucketIfNotExists([]byte("__index_" + name))
	if err != nil {
		return fmt.Errorf("durable: create index %q: %w", name, err)
	}
	buf := make([]byte, 0, len(columnOrdinals)*8)
	for _, ord := range columnOrdinals {
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(ord))
		buf = append(buf, tmp[:]...)
	}
	return indexBucket.Put([]byte("columns"), buf)
}

// Scan materializes every (key, value) pair in the table's bucket into an
// in-order snapshot. bbolt forbids mutating a bucket while a *bbolt.Cursor
// over it is live, so rather than hand back a lazy cursor tied to the
// enclosing transaction, Scan copies eagerly; the result is still a
// snapshot of at least the state at creation, and a WorkWithTable callback
// can freely insert/update/delete after scanning.
func (t *table) Scan() kvstore.Cursor {
	var rows []kvstore.KV
	c := t.bucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if isMetaKey(k) {
			continue
		}
		key := append(kvstore.Key{}, k...)
		val := append(kvstore.Value{}, v...)
		rows = append(rows, kvstore.KV{Key: key, Value: &val})
	}
	return &scanCursor{rows: rows}
}

func isMetaKey(k []byte) bool {
	return len(k) >= 2 && k[0] == '_' && k[1] == '_'
}

type scanCursor struct {
	rows []kvstore.KV
	pos  int
}

func (c *scanCursor) Next() (kvstore.Key, kvstore.Value, bool) {
	if c.pos >= len(c.rows) {
		return nil, nil, false
	}
	kv := c.rows[c.pos]
	c.pos++
	return kv.Key, *kv.Value, true
}

func (c *scanCursor) Close() {}

// recordKey packs a record-id the same way the in-memory backing does: a
// single UInt64 datum. Both backings must agree on the key format so a
// catalog can be copied between them without rekeying.
func recordKey(id uint64) kvstore.Key {
	return rowcodec.Pack([]rowcodec.Datum{rowcodec.U64(id)})
}
