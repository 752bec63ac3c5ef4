package device

import (
	"math"
	"sync/atomic"
)

// IncWrap atomically increments *v, wrapping to zero once the old value
// reaches limit. It returns the old value, so claims cycle through
// 0..limit inclusive.
func IncWrap(v *atomic.Uint32, limit uint32) uint32 {
	for {
		old := v.Load()
		next := old + 1
		if old >= limit {
			next = 0
		}
		if v.CompareAndSwap(old, next) {
			return old
		}
	}
}

// AddUint32 atomically adds x and returns the old value.
func AddUint32(v *atomic.Uint32, x uint32) uint32 {
	return v.Add(x) - x
}

// AddUint64 atomically adds x and returns the old value.
func AddUint64(v *atomic.Uint64, x uint64) uint64 {
	return v.Add(x) - x
}

// AddFloat32 accumulates x into a float32 stored as raw bits. The
// compare-and-swap loop stands in for a hardware float atomic.
func AddFloat32(v *atomic.Uint32, x float32) float32 {
	for {
		old := v.Load()
		f := math.Float32frombits(old)
		if v.CompareAndSwap(old, math.Float32bits(f+x)) {
			return f
		}
	}
}

// AddFloat64 accumulates x into a float64 stored as raw bits.
func AddFloat64(v *atomic.Uint64, x float64) float64 {
	for {
		old := v.Load()
		f := math.Float64frombits(old)
		if v.CompareAndSwap(old, math.Float64bits(f+x)) {
			return f
		}
	}
}
