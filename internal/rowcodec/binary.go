package rowcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"sqlengine/internal/sqltype"
)

// Binary is the packed byte representation of a row: a concatenation of
// per-field (tag byte + payload) encodings. Its byte-wise lexicographic
// order is the order cursors iterate in.
type Binary []byte

// byteOrder is the fixed-width integer/float encoding this codec commits
// to. Big-endian is picked because it keeps fixed-width integer fields in
// the same order as their numeric value, which is convenient (though not
// required, since keys are always a single UInt64 field in this engine)
// for anyone inspecting raw bytes.
var byteOrder = binary.BigEndian

// Pack concatenates the per-datum encodings of fields, in order. Extending
// a packed row with additional fields never rewrites the bytes already
// written for a shared prefix, which is the basis of the catalog's
// prefix-scoped scans.
func Pack(fields []Datum) Binary {
	var buf bytes.Buffer
	for _, f := range fields {
		encodeField(&buf, f)
	}
	out := buf.Bytes()
	if out == nil {
		out = []byte{}
	}
	return Binary(out)
}

func encodeField(buf *bytes.Buffer, d Datum) {
	switch d.Kind {
	case KindNull:
		buf.WriteByte(byte(TagNull))
	case KindBool:
		if d.Bool {
			buf.WriteByte(byte(TagTrue))
		} else {
			buf.WriteByte(byte(TagFalse))
		}
	case KindI16:
		buf.WriteByte(byte(TagI16))
		var tmp [2]byte
		byteOrder.PutUint16(tmp[:], uint16(d.I16))
		buf.Write(tmp[:])
	case KindI32:
		buf.WriteByte(byte(TagI32))
		var tmp [4]byte
		byteOrder.PutUint32(tmp[:], uint32(d.I32))
		buf.Write(tmp[:])
	case KindI64:
		buf.WriteByte(byte(TagI64))
		var tmp [8]byte
		byteOrder.PutUint64(tmp[:], uint64(d.I64))
		buf.Write(tmp[:])
	case KindU64:
		buf.WriteByte(byte(TagU64))
		var tmp [8]byte
		byteOrder.PutUint64(tmp[:], d.U64)
		buf.Write(tmp[:])
	case KindF32:
		buf.WriteByte(byte(TagF32))
		var tmp [4]byte
		byteOrder.PutUint32(tmp[:], f32bits(d.F32))
		buf.Write(tmp[:])
	case KindF64:
		buf.WriteByte(byte(TagF64))
		var tmp [8]byte
		byteOrder.PutUint64(tmp[:], f64bits(d.F64))
		buf.Write(tmp[:])
	case KindStr:
		buf.WriteByte(byte(TagStr))
		var tmp [8]byte
		byteOrder.PutUint64(tmp[:], uint64(len(d.Str)))
		buf.Write(tmp[:])
		buf.WriteString(d.Str)
	case KindSqlType:
		buf.WriteByte(byte(TagSqlType))
		var tmp [8]byte
		byteOrder.PutUint64(tmp[:], d.SqlType.TypeID())
		buf.Write(tmp[:])
		if d.SqlType.CharsLen != nil {
			buf.WriteByte(1)
			var lenBuf [8]byte
			byteOrder.PutUint64(lenBuf[:], uint64(*d.SqlType.CharsLen))
			buf.Write(lenBuf[:])
		} else {
			buf.WriteByte(0)
		}
	default:
		panic(fmt.Sprintf("rowcodec: pack: unknown datum kind %d", d.Kind))
	}
}

// Unpack decodes a full Binary back into its fields. A truncated or
// otherwise malformed input is a programmer error (a corrupt prefix can
// only arise from writing an ill-formed Binary in the first place), so
// Unpack panics rather than returning an error.
func Unpack(b Binary) []Datum {
	r := bytes.NewReader(b)
	var out []Datum
	for r.Len() > 0 {
		out = append(out, decodeField(r))
	}
	return out
}

func decodeField(r *bytes.Reader) Datum {
	tagByte, err := r.ReadByte()
	if err != nil {
		panic(fmt.Sprintf("rowcodec: unpack: truncated input: %v", err))
	}
	switch Tag(tagByte) {
	case TagNull:
		return Null()
	case TagTrue:
		return Bool(true)
	case TagFalse:
		return Bool(false)
	case TagI16:
		return I16(int16(mustUint16(r)))
	case TagI32:
		return I32(int32(mustUint32(r)))
	case TagI64:
		return I64(int64(mustUint64(r)))
	case TagU64:
		return U64(mustUint64(r))
	case TagF32:
		return Datum{Kind: KindF32, F32: f32fromBits(mustUint32(r))}
	case TagF64:
		return Datum{Kind: KindF64, F64: f64fromBits(mustUint64(r))}
	case TagStr:
		n := mustUint64(r)
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			panic(fmt.Sprintf("rowcodec: unpack: truncated string: %v", err))
		}
		return Str(string(buf))
	case TagSqlType:
		typeID := mustUint64(r)
		hasLen, err := r.ReadByte()
		if err != nil {
			panic(fmt.Sprintf("rowcodec: unpack: truncated sqltype: %v", err))
		}
		kind := sqltype.Kind(typeID)
		t := sqltype.SqlType{Kind: kind}
		if hasLen == 1 {
			n := int(mustUint64(r))
			t.CharsLen = &n
		}
		return Typ(t)
	default:
		panic(fmt.Sprintf("rowcodec: unpack: unknown tag %d", tagByte))
	}
}

func mustUint16(r *bytes.Reader) uint16 {
	var tmp [2]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		panic(fmt.Sprintf("rowcodec: unpack: truncated i16: %v", err))
	}
	return byteOrder.Uint16(tmp[:])
}

func mustUint32(r *bytes.Reader) uint32 {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		panic(fmt.Sprintf("rowcodec: unpack: truncated 4-byte field: %v", err))
	}
	return byteOrder.Uint32(tmp[:])
}

func mustUint64(r *bytes.Reader) uint64 {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		panic(fmt.Sprintf("rowcodec: unpack: truncated 8-byte field: %v", err))
	}
	return byteOrder.Uint64(tmp[:])
}

// Compare orders two Binary values byte-wise lexicographically, which is
// the order bbolt's cursor and the in-memory backing's sorted index both
// use.
func Compare(a, b Binary) int {
	return bytes.Compare(a, b)
}
