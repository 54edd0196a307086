package kvstore

import "sqlengine/internal/rowcodec"

// recordKey packs a record-id as a single UInt64 datum, the only key shape
// user rows ever have.
func recordKey(id uint64) Key {
	return rowcodec.Pack([]rowcodec.Datum{rowcodec.U64(id)})
}
