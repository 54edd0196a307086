package catalog

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"sqlengine/internal/kvstore"
	"sqlengine/internal/rowcodec"
	"sqlengine/internal/sqltype"
)

const (
	tableSchemata = "schemata"
	tableTables   = "tables"
	tableColumns  = "columns"
	tableIndexes  = "indexes"
)

// Every system-table row's *value* is packed with (catalog_name,
// schema_name[, table_name[, ...]]) as its leading fields. Because Pack is
// prefix-safe, a row belongs to a given (catalog, schema, ...) tuple iff
// its packed value starts with pack(thatTuple), which is what lets drops
// cascade with a plain prefix scan.
func hasValuePrefix(value kvstore.Value, prefixFields []rowcodec.Datum) bool {
	prefix := rowcodec.Pack(prefixFields)
	return bytes.HasPrefix(value, prefix)
}

func (c *Catalog) withDefinitionTable(table string, fn func(kvstore.Table) error) error {
	ran, err := c.backing.WorkWithSchema(normalizeName(DefinitionSchema), func(s kvstore.Schema) error {
		ran, err := s.WorkWithTable(table, fn)
		if !ran && err == nil {
			return fmt.Errorf("catalog: system table %q missing (bootstrap did not run)", table)
		}
		return err
	})
	if err == nil && !ran {
		return fmt.Errorf("catalog: %s schema missing (bootstrap did not run)", DefinitionSchema)
	}
	return err
}

// scanPrefixed returns every (key, value) in table whose value starts with
// pack(prefixFields).
func (c *Catalog) scanPrefixed(table string, prefixFields []rowcodec.Datum) ([]kvstore.KV, error) {
	var out []kvstore.KV
	err := c.withDefinitionTable(table, func(t kvstore.Table) error {
		cur := t.Scan()
		defer cur.Close()
		for {
			k, v, ok := cur.Next()
			if !ok {
				break
			}
			if hasValuePrefix(v, prefixFields) {
				out = append(out, kvstore.KV{Key: k, Value: &v})
			}
		}
		return nil
	})
	return out, err
}

// deletePrefixed removes every row in table whose value starts with
// pack(prefixFields) and reports how many rows were removed.
func (c *Catalog) deletePrefixed(table string, prefixFields []rowcodec.Datum) (int, error) {
	rows, err := c.scanPrefixed(table, prefixFields)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	keys := make([]kvstore.Key, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	var deleted int
	err = c.withDefinitionTable(table, func(t kvstore.Table) error {
		n, err := t.Delete(keys)
		deleted = n
		return err
	})
	return deleted, err
}

func strDatum(s string) rowcodec.Datum { return rowcodec.Str(s) }

// --- SCHEMATA(catalog_name, schema_name) ---

func (c *Catalog) schemaExistsInSystemTable(name string) (bool, error) {
	rows, err := c.scanPrefixed(tableSchemata, []rowcodec.Datum{strDatum(c.catalogName), strDatum(name)})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (c *Catalog) insertSchemataRow(name string) error {
	value := rowcodec.Pack([]rowcodec.Datum{strDatum(c.catalogName), strDatum(name)})
	return c.withDefinitionTable(tableSchemata, func(t kvstore.Table) error {
		_, err := t.Insert([]kvstore.Value{value})
		return err
	})
}

// schemaHasTables reports whether any TABLES row is prefixed by this
// catalog+schema, i.e. whether the schema is non-empty for the purpose of
// a non-CASCADE DROP SCHEMA.
func (c *Catalog) schemaHasTables(name string) (bool, error) {
	rows, err := c.scanPrefixed(tableTables, []rowcodec.Datum{strDatum(c.catalogName), strDatum(name)})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// --- TABLES(catalog_name, schema_name, table_name) ---

func (c *Catalog) tableExistsInSystemTable(schema, table string) (bool, error) {
	rows, err := c.scanPrefixed(tableTables, []rowcodec.Datum{strDatum(c.catalogName), strDatum(schema), strDatum(table)})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (c *Catalog) insertTablesRow(schema, table string) error {
	value := rowcodec.Pack([]rowcodec.Datum{strDatum(c.catalogName), strDatum(schema), strDatum(table)})
	return c.withDefinitionTable(tableTables, func(t kvstore.Table) error {
		_, err := t.Insert([]kvstore.Value{value})
		return err
	})
}

// --- COLUMNS(catalog_name, schema_name, table_name, column_name, type_id, chars_len?, ordinal) ---

func (c *Catalog) insertColumnsRow(schema, table string, col ColumnDef) error {
	fields := []rowcodec.Datum{
		strDatum(c.catalogName), strDatum(schema), strDatum(table), strDatum(col.Name),
		rowcodec.U64(col.Type.TypeID()),
	}
	if col.Type.CharsLen != nil {
		fields = append(fields, rowcodec.I64(int64(*col.Type.CharsLen)))
	} else {
		fields = append(fields, rowcodec.Null())
	}
	fields = append(fields, rowcodec.I64(int64(col.Ordinal)))
	value := rowcodec.Pack(fields)
	return c.withDefinitionTable(tableColumns, func(t kvstore.Table) error {
		_, err := t.Insert([]kvstore.Value{value})
		return err
	})
}

func (c *Catalog) columnsInSystemTable(schema, table string) ([]ColumnDef, error) {
	rows, err := c.scanPrefixed(tableColumns, []rowcodec.Datum{strDatum(c.catalogName), strDatum(schema), strDatum(table)})
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnDef, 0, len(rows))
	for _, r := range rows {
		fs := rowcodec.Unpack(*r.Value)
		// fs: catalog, schema, table, column_name, type_id, chars_len?, ordinal
		name := fs[3].Str
		kind := sqltype.Kind(fs[4].U64)
		t := sqltype.SqlType{Kind: kind}
		if !fs[5].IsNull() {
			n := int(fs[5].I64)
			t.CharsLen = &n
		}
		ordinal := int(fs[6].I64)
		cols = append(cols, ColumnDef{Name: name, Type: t, Ordinal: ordinal})
	}
	// COLUMNS rows are inserted in ordinal order but record-id order need
	// not match ordinal order once rows are re-inserted after a drop; sort
	// defensively so callers can always index by position == ordinal.
	sortColumnsByOrdinal(cols)
	return cols, nil
}

func sortColumnsByOrdinal(cols []ColumnDef) {
	for i := 1; i < len(cols); i++ {
		for j := i; j > 0 && cols[j-1].Ordinal > cols[j].Ordinal; j-- {
			cols[j-1], cols[j] = cols[j], cols[j-1]
		}
	}
}

// --- INDEXES(catalog_name, schema_name, table_name, index_name, columns_csv) ---

// Indexes returns every index recorded for schema.table, in record order.
func (c *Catalog) Indexes(schema, table string) ([]IndexDef, error) {
	schema, table = normalizeName(schema), normalizeName(table)
	rows, err := c.scanPrefixed(tableIndexes, []rowcodec.Datum{strDatum(c.catalogName), strDatum(schema), strDatum(table)})
	if err != nil {
		return nil, err
	}
	defs := make([]IndexDef, 0, len(rows))
	for _, r := range rows {
		fs := rowcodec.Unpack(*r.Value)
		// fs: catalog, schema, table, index_name, columns_csv
		defs = append(defs, IndexDef{
			Schema:  schema,
			Table:   table,
			Name:    fs[3].Str,
			Columns: parseOrdinalCSV(fs[4].Str),
		})
	}
	return defs, nil
}

func parseOrdinalCSV(csv string) []int {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (c *Catalog) insertIndexesRow(schema, table, indexName string, columnOrdinals []int) error {
	csv := ""
	for i, ord := range columnOrdinals {
		if i > 0 {
			csv += ","
		}
		csv += fmt.Sprintf("%d", ord)
	}
	value := rowcodec.Pack([]rowcodec.Datum{
		strDatum(c.catalogName), strDatum(schema), strDatum(table), strDatum(indexName), strDatum(csv),
	})
	return c.withDefinitionTable(tableIndexes, func(t kvstore.Table) error {
		_, err := t.Insert([]kvstore.Value{value})
		return err
	})
}
