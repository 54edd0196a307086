// Package constraints implements the column-type-to-value narrowing
// rules that run at write time, the only rules the planner's
// ConstraintValidator flow applies before a row reaches storage.
package constraints

import (
	"strings"

	"github.com/shopspring/decimal"

	"sqlengine/internal/catalog"
	"sqlengine/internal/ir"
	"sqlengine/internal/rowcodec"
	"sqlengine/internal/sqltype"
)

var (
	minSmallInt = decimal.NewFromInt(-1 << 15)
	maxSmallInt = decimal.NewFromInt(1<<15 - 1)
	minInteger  = decimal.NewFromInt(-1 << 31)
	maxInteger  = decimal.NewFromInt(1<<31 - 1)
	minBigInt   = decimal.NewFromInt(int64(-1) << 63)
	maxBigInt   = decimal.NewFromInt(1<<63 - 1)
)

// Narrow validates v against col's SqlType and, if accepted, returns the
// Datum that should be written to storage. index is the column's ordinal,
// carried through into MostSpecificTypeMismatchError.
func Narrow(v ir.TypedValue, col catalog.ColumnDef, index int) (rowcodec.Datum, error) {
	if v.IsNull() {
		return rowcodec.Null(), nil
	}

	switch col.Type.Kind {
	case sqltype.KindBool:
		return narrowBool(v, col.Name, index)
	case sqltype.KindSmallInt:
		return narrowInteger(v, col, index, minSmallInt, maxSmallInt, func(n int64) rowcodec.Datum { return rowcodec.I16(int16(n)) })
	case sqltype.KindInteger:
		return narrowInteger(v, col, index, minInteger, maxInteger, func(n int64) rowcodec.Datum { return rowcodec.I32(int32(n)) })
	case sqltype.KindBigInt:
		return narrowInteger(v, col, index, minBigInt, maxBigInt, func(n int64) rowcodec.Datum { return rowcodec.I64(n) })
	case sqltype.KindReal:
		return narrowFloat32(v, col, index)
	case sqltype.KindDoublePrecision:
		return narrowFloat64(v, col, index)
	case sqltype.KindChar:
		return narrowChar(v, col, index)
	case sqltype.KindVarChar:
		return narrowVarChar(v, col, index)
	default:
		return rowcodec.Datum{}, mismatch(v, col, index)
	}
}

func mismatch(v ir.TypedValue, col catalog.ColumnDef, index int) error {
	return &MostSpecificTypeMismatchError{
		Value: v.AsText(), Target: col.Type.String(), ColumnName: col.Name, ColumnIndex: index,
	}
}

func narrowBool(v ir.TypedValue, colName string, index int) (rowcodec.Datum, error) {
	switch {
	case v.Family == sqltype.FamilyBool:
		return rowcodec.Bool(v.Bool), nil
	case v.Family == sqltype.FamilyString:
		lower := strings.ToLower(strings.TrimSpace(v.Str))
		if lower == "true" {
			return rowcodec.Bool(true), nil
		}
		if lower == "false" {
			return rowcodec.Bool(false), nil
		}
		return rowcodec.Datum{}, &ir.InvalidTextRepresentationError{Family: "bool", Text: v.Str}
	default:
		return rowcodec.Datum{}, &MostSpecificTypeMismatchError{Value: v.AsText(), Target: "bool", ColumnName: colName, ColumnIndex: index}
	}
}

func narrowInteger(v ir.TypedValue, col catalog.ColumnDef, index int, min, max decimal.Decimal, make_ func(int64) rowcodec.Datum) (rowcodec.Datum, error) {
	if !v.Family.IsNumeric() {
		return rowcodec.Datum{}, mismatch(v, col, index)
	}
	if !v.Num.Equal(v.Num.Truncate(0)) {
		return rowcodec.Datum{}, &TypeMismatchError{ColumnName: col.Name, Text: v.AsText()}
	}
	// An integer value outside the narrower type's range is reported as
	// MostSpecificTypeMismatch, naming the column and its ordinal, rather
	// than OutOfRange: the value's family promotes to the column's but the
	// most specific storage type cannot hold it.
	if v.Num.LessThan(min) || v.Num.GreaterThan(max) {
		return rowcodec.Datum{}, mismatch(v, col, index)
	}
	return make_(v.Num.IntPart()), nil
}

func narrowFloat32(v ir.TypedValue, col catalog.ColumnDef, index int) (rowcodec.Datum, error) {
	if !v.Family.IsNumeric() {
		return rowcodec.Datum{}, mismatch(v, col, index)
	}
	f, _ := v.Num.Float64()
	if f > 3.4e38 || f < -3.4e38 {
		return rowcodec.Datum{}, &OutOfRangeError{Value: v.AsText(), Target: col.Type.String(), ColumnName: col.Name}
	}
	return rowcodec.F32(float32(f)), nil
}

func narrowFloat64(v ir.TypedValue, col catalog.ColumnDef, index int) (rowcodec.Datum, error) {
	if !v.Family.IsNumeric() {
		return rowcodec.Datum{}, mismatch(v, col, index)
	}
	f, _ := v.Num.Float64()
	return rowcodec.F64(f), nil
}

func narrowChar(v ir.TypedValue, col catalog.ColumnDef, index int) (rowcodec.Datum, error) {
	s, err := stringOf(v, col, index)
	if err != nil {
		return rowcodec.Datum{}, err
	}
	trimmed := strings.TrimRight(s, " ")
	if col.Type.CharsLen != nil && len(trimmed) > *col.Type.CharsLen {
		return rowcodec.Datum{}, &ValueTooLongError{ColumnName: col.Name, Max: *col.Type.CharsLen}
	}
	return rowcodec.Str(trimmed), nil
}

func narrowVarChar(v ir.TypedValue, col catalog.ColumnDef, index int) (rowcodec.Datum, error) {
	s, err := stringOf(v, col, index)
	if err != nil {
		return rowcodec.Datum{}, err
	}
	if col.Type.CharsLen != nil && len(s) > *col.Type.CharsLen {
		return rowcodec.Datum{}, &ValueTooLongError{ColumnName: col.Name, Max: *col.Type.CharsLen}
	}
	return rowcodec.Str(s), nil
}

func stringOf(v ir.TypedValue, col catalog.ColumnDef, index int) (string, error) {
	if v.Family != sqltype.FamilyString {
		return "", mismatch(v, col, index)
	}
	return v.Str, nil
}
