// Package rowcodec implements the self-describing Datum value and the
// packed Binary row encoding used uniformly by the catalog, the planner,
// and storage.
package rowcodec

import (
	"math"

	"sqlengine/internal/sqltype"
)

// Tag identifies the wire shape of one encoded field. Values must never
// be renumbered: they are a durable on-disk format once anything has been
// written with the durable backing.
type Tag byte

const (
	TagNull Tag = iota
	TagTrue
	TagFalse
	TagI16
	TagI32
	TagI64
	TagU64
	TagF32
	TagF64
	TagStr
	TagSqlType
)

// Kind is the tag-independent classification of a Datum, collapsing
// TagTrue/TagFalse into one Bool kind the way callers actually want to
// switch on it.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindI16
	KindI32
	KindI64
	KindU64
	KindF32
	KindF64
	KindStr
	KindSqlType
)

// Float64 is an ordered wrapper: unlike IEEE-754 comparisons, two NaNs
// compare equal under it. Key ordering must be deterministic even though
// the engine never intentionally stores a NaN key.
type Float64 float64

// Compare orders a against b with ordinary float comparison, except that
// two NaNs compare equal. A NaN against a non-NaN value also reports 0.
func (a Float64) Compare(b Float64) int {
	if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return 0
	}
	switch {
	case float64(a) < float64(b):
		return -1
	case float64(a) > float64(b):
		return 1
	default:
		return 0
	}
}

type Float32 float32

func (a Float32) Compare(b Float32) int {
	if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Datum is a tagged sum of the storage-level value kinds. Only one of the
// typed fields is meaningful, selected by Kind; the zero value is Null.
type Datum struct {
	Kind    Kind
	Bool    bool
	I16     int16
	I32     int32
	I64     int64
	U64     uint64
	F32     Float32
	F64     Float64
	Str     string
	SqlType sqltype.SqlType
}

func Null() Datum                   { return Datum{Kind: KindNull} }
func Bool(b bool) Datum             { return Datum{Kind: KindBool, Bool: b} }
func I16(v int16) Datum             { return Datum{Kind: KindI16, I16: v} }
func I32(v int32) Datum             { return Datum{Kind: KindI32, I32: v} }
func I64(v int64) Datum             { return Datum{Kind: KindI64, I64: v} }
func U64(v uint64) Datum            { return Datum{Kind: KindU64, U64: v} }
func F32(v float32) Datum           { return Datum{Kind: KindF32, F32: Float32(v)} }
func F64(v float64) Datum           { return Datum{Kind: KindF64, F64: Float64(v)} }
func Str(v string) Datum            { return Datum{Kind: KindStr, Str: v} }
func Typ(t sqltype.SqlType) Datum   { return Datum{Kind: KindSqlType, SqlType: t} }
func (d Datum) IsNull() bool        { return d.Kind == KindNull }

// Equal reports whether d and o carry the same kind and value. Two Null
// datums are equal; two NaN floats are equal (Float32/Float64.Compare).
func (d Datum) Equal(o Datum) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindNull:
		return true
	case KindBool:
		return d.Bool == o.Bool
	case KindI16:
		return d.I16 == o.I16
	case KindI32:
		return d.I32 == o.I32
	case KindI64:
		return d.I64 == o.I64
	case KindU64:
		return d.U64 == o.U64
	case KindF32:
		return d.F32.Compare(o.F32) == 0
	case KindF64:
		return d.F64.Compare(o.F64) == 0
	case KindStr:
		return d.Str == o.Str
	case KindSqlType:
		if d.SqlType.Kind != o.SqlType.Kind {
			return false
		}
		switch {
		case d.SqlType.CharsLen == nil && o.SqlType.CharsLen == nil:
			return true
		case d.SqlType.CharsLen == nil || o.SqlType.CharsLen == nil:
			return false
		default:
			return *d.SqlType.CharsLen == *o.SqlType.CharsLen
		}
	default:
		return false
	}
}
