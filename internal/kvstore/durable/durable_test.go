package durable_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlengine/internal/kvstore"
	"sqlengine/internal/kvstore/durable"
	"sqlengine/internal/rowcodec"
)

func openTestBacking(t *testing.T) kvstore.Backing {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	b, err := durable.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestDurableSchemaTableLifecycle(t *testing.T) {
	b := openTestBacking(t)

	assert.True(t, b.CreateSchema("s"))
	assert.False(t, b.CreateSchema("s"))

	ran, err := b.WorkWithSchema("s", func(s kvstore.Schema) error {
		assert.True(t, s.CreateTable("t"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	assert.True(t, b.DropSchema("s"))
	ran, err = b.WorkWithSchema("s", func(kvstore.Schema) error { return nil })
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestDurableInsertScanDeleteUpdate(t *testing.T) {
	b := openTestBacking(t)
	b.CreateSchema("s")
	_, _ = b.WorkWithSchema("s", func(s kvstore.Schema) error {
		s.CreateTable("t")
		return nil
	})

	row := func(n int64) kvstore.Value {
		return rowcodec.Pack([]rowcodec.Datum{rowcodec.I64(n)})
	}

	var keys []kvstore.Key
	_, err := b.WorkWithSchema("s", func(s kvstore.Schema) error {
		_, err := s.WorkWithTable("t", func(tbl kvstore.Table) error {
			ks, err := tbl.Insert([]kvstore.Value{row(1), row(2), row(3)})
			keys = ks
			return err
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, keys, 3)

	_, err = b.WorkWithSchema("s", func(s kvstore.Schema) error {
		_, err := s.WorkWithTable("t", func(tbl kvstore.Table) error {
			cur := tbl.Scan()
			defer cur.Close()
			count := 0
			for {
				_, _, ok := cur.Next()
				if !ok {
					break
				}
				count++
			}
			assert.Equal(t, 3, count)

			n, err := tbl.Delete([]kvstore.Key{keys[0]})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			val := row(99)
			n, err = tbl.Update([]kvstore.KV{{Key: keys[1], Value: &val}})
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			return nil
		})
		return err
	})
	require.NoError(t, err)

	_, err = b.WorkWithSchema("s", func(s kvstore.Schema) error {
		_, err := s.WorkWithTable("t", func(tbl kvstore.Table) error {
			cur := tbl.Scan()
			defer cur.Close()
			count := 0
			for {
				_, _, ok := cur.Next()
				if !ok {
					break
				}
				count++
			}
			assert.Equal(t, 2, count, "one deleted row should leave two")
			return nil
		})
		return err
	})
	require.NoError(t, err)
}
