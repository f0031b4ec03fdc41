package iseq

import "math"

func f64frombits(bits uint64) float64 { return math.Float64frombits(bits) }
