package planner

import (
	"sqlengine/internal/analyzer"
	"sqlengine/internal/catalog"
	"sqlengine/internal/ir"
	"sqlengine/internal/kvstore"
	"sqlengine/internal/rowcodec"
)

// SelectColumn describes one projected column of a SELECT response.
type SelectColumn struct {
	Name string
	Type string
}

// SelectOutput is the (schema, rows) pair SelectQueryPlan produces.
type SelectOutput struct {
	Columns []SelectColumn
	Rows    [][]ir.TypedValue
}

func withTable(backing kvstore.Backing, schema, table string, fn func(kvstore.Table) error) error {
	_, err := backing.WorkWithSchema(schema, func(s kvstore.Schema) error {
		_, err := s.WorkWithTable(table, fn)
		return err
	})
	return err
}

// RunInsert drives InsertQueryPlan: StaticValues -> StaticExpressionEval ->
// ConstraintValidator -> storage, preserving the value list's order so rows
// acquire sequential record-ids in that order. Each row is written as soon
// as it clears validation, so a later row's evaluation or narrowing failure
// aborts the plan without undoing the rows already inserted.
func RunInsert(backing kvstore.Backing, res *analyzer.InsertResult, params []ir.TypedValue) (int, error) {
	rows := make([]Row[*ir.StaticTypedTree], len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = Row[*ir.StaticTypedTree](r)
	}
	statics := NewStaticValues(rows)
	evaluated := NewStaticExpressionEval(statics, params)
	validated := NewConstraintValidator(evaluated, res.Columns)

	count := 0
	err := withTable(backing, res.Schema, res.Table, func(t kvstore.Table) error {
		for {
			row, ok, err := validated.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			// The validated row is in column-list order; project it back
			// into the table's ordinal layout before packing, so a
			// reordered or partial column list still stores every value
			// under its own ordinal and unlisted columns as Null.
			full := make(Row[rowcodec.Datum], len(res.Def.Columns))
			for i := range full {
				full[i] = rowcodec.Null()
			}
			for i, col := range res.Columns {
				full[col.Ordinal] = row[i]
			}
			// Insert each row as soon as it validates, rather than
			// buffering the whole batch: multi-row DML is not
			// transactional, so a later row's evaluation or
			// narrowing failure must leave every already-validated row
			// persisted, not rolled back.
			keys, err := t.Insert([]kvstore.Value{EncodeRow(full)})
			count += len(keys)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return count, err
}

// RunUpdate drives UpdateQueryPlan: for each scanned (key, row), overlays
// the SET targets' evaluated values onto the row and writes the result
// back under the same key. It visits rows in cursor order and writes before
// advancing, so a row updated here never re-enters the same statement's
// iteration; the scan is read into memory up front so the writes below
// don't perturb the cursor mid-scan.
func RunUpdate(backing kvstore.Backing, def catalog.TableDef, res *analyzer.UpdateResult, params []ir.TypedValue) (int, error) {
	template := make(Row[*ir.DynamicTypedTree], len(def.Columns))
	for _, set := range res.Set {
		template[set.Column.Ordinal] = set.Value
	}

	count := 0
	err := withTable(backing, def.Schema, def.Name, func(t kvstore.Table) error {
		cur := t.Scan()
		// Materialise the scan before writing: a row updated
		// mid-statement must never re-enter the same UPDATE's iteration.
		var snapshot []kvstore.KV
		for {
			k, v, ok := cur.Next()
			if !ok {
				break
			}
			snapshot = append(snapshot, kvstore.KV{Key: k, Value: &v})
		}
		cur.Close()

		for _, kv := range snapshot {
			dynamic := NewDynamicValues(nil, template, def.Columns, params)
			overlaid, err := dynamic.evalOne(*kv.Value)
			if err != nil {
				return err
			}

			validator := NewConstraintValidator(NewRepeater(overlaid), def.Columns)
			narrowed, _, err := validator.Next()
			if err != nil {
				return err
			}
			encoded := EncodeRow(narrowed)
			if err := t.WriteKey(kv.Key, &encoded); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// RunDelete drives DeleteQueryPlan: collect keys first (materialised), then
// delete, so concurrent insertions during the statement are not visible.
func RunDelete(backing kvstore.Backing, schema, table string) (int, error) {
	count := 0
	err := withTable(backing, schema, table, func(t kvstore.Table) error {
		cur := t.Scan()
		keys := NewTableRecordKeys(NewFullTableScan(cur))
		var all []kvstore.Key
		for {
			k, ok, err := keys.Next()
			if err != nil {
				cur.Close()
				return err
			}
			if !ok {
				break
			}
			all = append(all, k)
		}
		cur.Close()

		n, err := t.Delete(all)
		count = n
		return err
	})
	return count, err
}

// RunSelect drives SelectQueryPlan: scan the table and project the
// requested columns, returning rows in cursor order.
func RunSelect(backing kvstore.Backing, def catalog.TableDef, res *analyzer.SelectResult) (*SelectOutput, error) {
	out := &SelectOutput{Columns: make([]SelectColumn, len(res.Columns))}
	for i, c := range res.Columns {
		out.Columns[i] = SelectColumn{Name: c.Name, Type: c.Type.String()}
	}

	err := withTable(backing, def.Schema, def.Name, func(t kvstore.Table) error {
		cur := t.Scan()
		scan := NewFullTableScan(cur)
		defer cur.Close()
		for {
			kv, ok, err := scan.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			full := DecodeRow(*kv.Value, def.Columns)
			row := make([]ir.TypedValue, len(res.Columns))
			for i, c := range res.Columns {
				row[i] = full[c.Ordinal]
			}
			out.Rows = append(out.Rows, row)
		}
		return nil
	})
	return out, err
}
