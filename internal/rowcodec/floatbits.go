package rowcodec

import "math"

func f32bits(v Float32) uint32     { return math.Float32bits(float32(v)) }
func f32fromBits(u uint32) Float32 { return Float32(math.Float32frombits(u)) }

func f64bits(v Float64) uint64     { return math.Float64bits(float64(v)) }
func f64fromBits(u uint64) Float64 { return Float64(math.Float64frombits(u)) }
