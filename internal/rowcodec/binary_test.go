package rowcodec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlengine/internal/rowcodec"
	"sqlengine/internal/sqltype"
)

func sampleRows() [][]rowcodec.Datum {
	return [][]rowcodec.Datum{
		{},
		{rowcodec.Null()},
		{rowcodec.Bool(true), rowcodec.Bool(false)},
		{rowcodec.I16(-5), rowcodec.I32(123456), rowcodec.I64(-123456789)},
		{rowcodec.U64(42)},
		{rowcodec.F32(3.5), rowcodec.F64(-2.25)},
		{rowcodec.Str(""), rowcodec.Str("hello, 世界")},
		{rowcodec.Typ(sqltype.VarChar(255)), rowcodec.Typ(sqltype.BigInt())},
		{rowcodec.I64(1), rowcodec.Str("a"), rowcodec.Null(), rowcodec.Bool(true)},
	}
}

// TestCodecRoundtrip: unpack(pack(xs)) == xs for every well-typed xs.
func TestCodecRoundtrip(t *testing.T) {
	for i, xs := range sampleRows() {
		xs := xs
		t.Run(t.Name()+string(rune('A'+i)), func(t *testing.T) {
			packed := rowcodec.Pack(xs)
			got := rowcodec.Unpack(packed)
			require.Len(t, got, len(xs))
			for i := range xs {
				assert.True(t, xs[i].Equal(got[i]), "field %d: want %+v got %+v", i, xs[i], got[i])
			}
		})
	}
}

// TestPrefixMonotonicity: pack(xs++ys) starts with pack(xs)
// byte-for-byte.
func TestPrefixMonotonicity(t *testing.T) {
	prefixes := sampleRows()
	suffixes := sampleRows()

	for _, xs := range prefixes {
		for _, ys := range suffixes {
			full := rowcodec.Pack(append(append([]rowcodec.Datum{}, xs...), ys...))
			prefixOnly := rowcodec.Pack(xs)
			require.GreaterOrEqual(t, len(full), len(prefixOnly))
			assert.Equal(t, []byte(prefixOnly), []byte(full)[:len(prefixOnly)])
		}
	}
}

func TestCompareOrdersBytewise(t *testing.T) {
	a := rowcodec.Pack([]rowcodec.Datum{rowcodec.U64(1)})
	b := rowcodec.Pack([]rowcodec.Datum{rowcodec.U64(2)})
	assert.Negative(t, rowcodec.Compare(a, b))
	assert.Positive(t, rowcodec.Compare(b, a))
	assert.Zero(t, rowcodec.Compare(a, a))
}

func TestUnpackTruncatedPanics(t *testing.T) {
	assert.Panics(t, func() {
		rowcodec.Unpack(rowcodec.Binary{byte(rowcodec.TagI64), 1, 2})
	})
}
