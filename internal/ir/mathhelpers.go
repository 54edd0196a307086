package ir

import "math"

func sqrtFloat(f float64) float64 { return math.Sqrt(f) }

func cbrtFloat(f float64) float64 { return math.Cbrt(f) }
