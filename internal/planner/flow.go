// Package planner implements pull-based query plans built from a small set
// of flow kinds. Each flow has a single Next method; returning ok=false
// signals end-of-stream. Parameter values are bound once per plan (passed
// to the constructor) rather than threaded through every Next call, since
// a plan only ever runs against one fixed parameter set.
package planner

import (
	"sqlengine/internal/catalog"
	"sqlengine/internal/constraints"
	"sqlengine/internal/ir"
	"sqlengine/internal/kvstore"
	"sqlengine/internal/rowcodec"
)

// Flow is the shared pull-iterator shape of the flow kinds. DynamicValues
// does not implement it: its Next also yields the scanned (key, value) pair.
type Flow[T any] interface {
	Next() (T, bool, error)
}

// StaticValues is the source flow for literal INSERT value lists: each
// "tuple" is one row of not-yet-evaluated expression trees.
type StaticValues struct {
	rows []Row[*ir.StaticTypedTree]
	pos  int
}

// Row is a generic row shape reused by several flows below.
type Row[T any] []T

func NewStaticValues(rows []Row[*ir.StaticTypedTree]) *StaticValues {
	return &StaticValues{rows: rows}
}

func (f *StaticValues) Next() (Row[*ir.StaticTypedTree], bool, error) {
	if f.pos >= len(f.rows) {
		return nil, false, nil
	}
	row := f.rows[f.pos]
	f.pos++
	return row, true, nil
}

// FullTableScan is the source flow for SELECT/UPDATE/DELETE: it walks a
// kvstore.Cursor and must be Closed when the caller is done with it.
type FullTableScan struct {
	cursor kvstore.Cursor
}

func NewFullTableScan(cursor kvstore.Cursor) *FullTableScan {
	return &FullTableScan{cursor: cursor}
}

func (f *FullTableScan) Next() (kvstore.KV, bool, error) {
	k, v, ok := f.cursor.Next()
	if !ok {
		return kvstore.KV{}, false, nil
	}
	return kvstore.KV{Key: k, Value: &v}, true, nil
}

func (f *FullTableScan) Close() { f.cursor.Close() }

// StaticExpressionEval evaluates each StaticValues row into typed values,
// against the bound parameter set.
type StaticExpressionEval struct {
	source *StaticValues
	params []ir.TypedValue
}

func NewStaticExpressionEval(source *StaticValues, params []ir.TypedValue) *StaticExpressionEval {
	return &StaticExpressionEval{source: source, params: params}
}

func (f *StaticExpressionEval) Next() (Row[ir.TypedValue], bool, error) {
	row, ok, err := f.source.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make(Row[ir.TypedValue], len(row))
	for i, expr := range row {
		v, err := expr.Eval(f.params)
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, true, nil
}

// DynamicValues evaluates a template row of DynamicTypedTree against each
// row a FullTableScan produces, decoding the scanned value into typed
// column values first.
type DynamicValues struct {
	source   *FullTableScan
	template Row[*ir.DynamicTypedTree]
	columns  []catalog.ColumnDef
	params   []ir.TypedValue
}

func NewDynamicValues(source *FullTableScan, template Row[*ir.DynamicTypedTree], columns []catalog.ColumnDef, params []ir.TypedValue) *DynamicValues {
	return &DynamicValues{source: source, template: template, columns: columns, params: params}
}

func (f *DynamicValues) Next() (Row[ir.TypedValue], kvstore.KV, bool, error) {
	kv, ok, err := f.source.Next()
	if err != nil || !ok {
		return nil, kvstore.KV{}, ok, err
	}
	out, err := f.evalOne(*kv.Value)
	if err != nil {
		return nil, kvstore.KV{}, false, err
	}
	return out, kv, true, nil
}

// evalOne overlays the template onto one already-scanned row's decoded
// value, without pulling from source. Used where the caller already holds
// a materialised snapshot of (key, value) pairs (e.g. UPDATE, which must
// finish scanning before writing any row).
func (f *DynamicValues) evalOne(value kvstore.Value) (Row[ir.TypedValue], error) {
	row := DecodeRow(value, f.columns)
	out := make(Row[ir.TypedValue], len(f.template))
	for i, expr := range f.template {
		if expr == nil {
			out[i] = row[i]
			continue
		}
		v, err := expr.Eval(row, f.params)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Repeater yields the same template value indefinitely; glue for UPDATE SET
// broadcasting a constant across every scanned row.
type Repeater[T any] struct {
	template T
}

func NewRepeater[T any](template T) *Repeater[T] { return &Repeater[T]{template: template} }

func (f *Repeater[T]) Next() (T, bool, error) { return f.template, true, nil }

// ConstraintValidator narrows each incoming typed row against a table's
// column types, producing storage-ready Datums.
type ConstraintValidator struct {
	source  Flow[Row[ir.TypedValue]]
	columns []catalog.ColumnDef
}

func NewConstraintValidator(source Flow[Row[ir.TypedValue]], columns []catalog.ColumnDef) *ConstraintValidator {
	return &ConstraintValidator{source: source, columns: columns}
}

func (f *ConstraintValidator) Next() (Row[rowcodec.Datum], bool, error) {
	row, ok, err := f.source.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make(Row[rowcodec.Datum], len(row))
	for i, v := range row {
		d, err := constraints.Narrow(v, f.columns[i], f.columns[i].Ordinal)
		if err != nil {
			return nil, false, err
		}
		out[i] = d
	}
	return out, true, nil
}

// TableRecordKeys projects the keys out of a FullTableScan, for DELETE.
type TableRecordKeys struct {
	source *FullTableScan
}

func NewTableRecordKeys(source *FullTableScan) *TableRecordKeys { return &TableRecordKeys{source: source} }

func (f *TableRecordKeys) Next() (kvstore.Key, bool, error) {
	kv, ok, err := f.source.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	return kv.Key, true, nil
}

// DecodeRow unpacks a stored row into its typed column values, in ordinal
// order.
func DecodeRow(value kvstore.Value, columns []catalog.ColumnDef) Row[ir.TypedValue] {
	fields := rowcodec.Unpack(value)
	out := make(Row[ir.TypedValue], len(columns))
	for i, col := range columns {
		out[i] = datumToTyped(fields[i], col)
	}
	return out
}

func datumToTyped(d rowcodec.Datum, col catalog.ColumnDef) ir.TypedValue {
	family := col.Type.Family()
	if d.IsNull() {
		return ir.NullValue(family)
	}
	switch d.Kind {
	case rowcodec.KindBool:
		return ir.BoolValue(d.Bool)
	case rowcodec.KindI16:
		return ir.IntValue(family, int64(d.I16))
	case rowcodec.KindI32:
		return ir.IntValue(family, int64(d.I32))
	case rowcodec.KindI64:
		return ir.IntValue(family, d.I64)
	case rowcodec.KindU64:
		return ir.IntValue(family, int64(d.U64))
	case rowcodec.KindF32:
		return ir.FloatValue(family, float64(d.F32))
	case rowcodec.KindF64:
		return ir.FloatValue(family, float64(d.F64))
	case rowcodec.KindStr:
		return ir.StringValue(d.Str)
	default:
		return ir.NullValue(family)
	}
}

// EncodeRow packs a validated row of Datums the way storage expects.
func EncodeRow(row Row[rowcodec.Datum]) rowcodec.Binary {
	return rowcodec.Pack([]rowcodec.Datum(row))
}
