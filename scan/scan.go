// Package scan computes prefix sums in a single pass over the input.
//
// The engine is a chained scan with decoupled look-back: blocks claim
// positions in claim order, publish their local aggregate immediately, and
// resolve their running prefix by walking predecessor state windows in
// parallel instead of waiting for a separate partial-sums pass. Input and
// output go through callbacks, so slices, generators and sinks all drive
// the same kernel.
package scan

import (
	"fmt"
	"sync/atomic"

	"github.com/openfluke/sweep/device"
)

// Element is the set of value types the engine can scan.
type Element = device.Element

// Type selects what each output position receives.
type Type int

const (
	// Inclusive writes the sum of elements 0..i to position i.
	Inclusive Type = iota
	// Exclusive writes the sum of elements 0..i-1 to position i; position
	// 0 receives zero.
	Exclusive
)

// Kernel geometry. A block is warpsPerBlock warps, each warp carries
// chunksPerBlock register chunks of device.WarpSize elements, so a block
// covers 4*12*32 = 1536 elements.
const (
	warpsPerBlock  = 4
	chunksPerBlock = 12
)

// chunksOverride shrinks the per-block element count in tests so small
// inputs still spread over many blocks.
var chunksOverride = 0

func blockChunks() int {
	if chunksOverride > 0 {
		return chunksOverride
	}
	return chunksPerBlock
}

// PrefixSum scans n elements. fin(i) supplies element i and must be safe
// to call from multiple goroutines; fout(i, v) receives the scanned value
// for position i exactly once. The return value is the sum of all n
// elements for both scan types.
//
// n <= 0 is a no-op returning zero. n must stay below 2^31; the counter
// and status machinery are sized for 32-bit positions and a larger n is a
// caller bug, so it panics.
func PrefixSum[T Element](n int, fin func(int) T, fout func(int, T), typ Type) T {
	if n <= 0 {
		var zero T
		return zero
	}
	if int64(n) >= 1<<31 {
		panic(fmt.Sprintf("scan: n = %d exceeds 2^31-1", n))
	}

	chunks := blockChunks()
	perBlock := device.WarpSize * warpsPerBlock * chunks
	if n < perBlock {
		return serialScan(n, fin, fout, typ)
	}

	nblocks := (n + perBlock - 1) / perBlock
	e := &engine[T]{
		n:       n,
		chunks:  chunks,
		nblocks: nblocks,
		fin:     fin,
		fout:    fout,
		typ:     typ,
		cells:   newStatusArray[T](nblocks),
		counter: new(atomic.Uint32),
	}

	s := device.NewStream()
	defer s.Close()
	device.Launch(nblocks, warpsPerBlock, s, e.kernel)
	s.Synchronize()
	return e.total
}

// InclusiveSum scans in[:n] into out[:n] and returns the total. in and out
// may be the same slice.
func InclusiveSum[T Element](n int, in, out []T) T {
	return PrefixSum(n,
		func(i int) T { return in[i] },
		func(i int, v T) { out[i] = v },
		Inclusive)
}

// ExclusiveSum scans in[:n] into out[:n] shifted by one and returns the
// total. in and out may be the same slice.
func ExclusiveSum[T Element](n int, in, out []T) T {
	return PrefixSum(n,
		func(i int) T { return in[i] },
		func(i int, v T) { out[i] = v },
		Exclusive)
}

// serialScan is the single-threaded path for inputs below one block. It is
// also the reference the tests compare the parallel engine against.
func serialScan[T Element](n int, fin func(int) T, fout func(int, T), typ Type) T {
	var run T
	for i := 0; i < n; i++ {
		v := fin(i)
		if typ == Exclusive {
			fout(i, run)
			run += v
		} else {
			run += v
			fout(i, run)
		}
	}
	return run
}
