package constraints_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlengine/internal/catalog"
	"sqlengine/internal/constraints"
	"sqlengine/internal/ir"
	"sqlengine/internal/sqltype"
)

func col(name string, t sqltype.SqlType) catalog.ColumnDef {
	return catalog.ColumnDef{Name: name, Type: t}
}

func TestNarrowAcceptsInRangeSmallInt(t *testing.T) {
	d, err := constraints.Narrow(ir.IntValue(sqltype.FamilySmallInt, 123), col("c", sqltype.SmallInt()), 0)
	require.NoError(t, err)
	assert.Equal(t, int16(123), d.I16)
}

func TestNarrowRejectsSmallIntOutOfRange(t *testing.T) {
	_, err := constraints.Narrow(ir.IntValue(sqltype.FamilyInteger, 40000), col("c", sqltype.SmallInt()), 0)
	var mismatch *constraints.MostSpecificTypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "40000", mismatch.Value)
	assert.Equal(t, "c", mismatch.ColumnName)
	assert.Equal(t, 0, mismatch.ColumnIndex)
}

func TestNarrowRejectsRealOutOfRange(t *testing.T) {
	_, err := constraints.Narrow(ir.FloatValue(sqltype.FamilyDouble, 1e39), col("c", sqltype.Real()), 0)
	var oor *constraints.OutOfRangeError
	assert.True(t, errors.As(err, &oor))
}

func TestNarrowRejectsFractionalForIntegerColumn(t *testing.T) {
	_, err := constraints.Narrow(ir.FloatValue(sqltype.FamilyDouble, 1.5), col("c", sqltype.Integer()), 0)
	var mismatch *constraints.TypeMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestNarrowNullPassesThrough(t *testing.T) {
	d, err := constraints.Narrow(ir.NullValue(sqltype.FamilySmallInt), col("c", sqltype.SmallInt()), 0)
	require.NoError(t, err)
	assert.True(t, d.IsNull())
}

func TestNarrowVarCharRejectsTooLong(t *testing.T) {
	_, err := constraints.Narrow(ir.StringValue("hello world"), col("c", sqltype.VarChar(5)), 0)
	var tooLong *constraints.ValueTooLongError
	assert.True(t, errors.As(err, &tooLong))
}

func TestNarrowCharTrimsTrailingSpaces(t *testing.T) {
	d, err := constraints.Narrow(ir.StringValue("ab   "), col("c", sqltype.Char(5)), 0)
	require.NoError(t, err)
	assert.Equal(t, "ab", d.Str)
}

func TestNarrowBoolFromString(t *testing.T) {
	d, err := constraints.Narrow(ir.StringValue("true"), col("flag", sqltype.Bool()), 0)
	require.NoError(t, err)
	assert.True(t, d.Bool)
}

func TestNarrowMostSpecificTypeMismatchOnIncompatibleFamily(t *testing.T) {
	_, err := constraints.Narrow(ir.BoolValue(true), col("c", sqltype.Integer()), 0)
	var mismatch *constraints.MostSpecificTypeMismatchError
	assert.True(t, errors.As(err, &mismatch))
}
