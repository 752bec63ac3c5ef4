package scan

import (
	"math/bits"
	"sync/atomic"

	"github.com/openfluke/sweep/device"
)

// engine carries one launch worth of state. The status cells and the
// virtual-position counter are the only cross-block traffic; total is
// written by the block that owns element n-1 and read after the stream
// drains.
type engine[T Element] struct {
	n       int
	chunks  int
	nblocks int
	fin     func(int) T
	fout    func(int, T)
	typ     Type
	cells   statusArray[T]
	counter *atomic.Uint32
	total   T
}

// kernel is the per-block factory handed to device.Launch. Hardware block
// order is scrambled by the launcher, so the first thing a block does is
// claim its virtual position; positions are claimed in start order, which
// keeps the look-back free of circular waits.
func (e *engine[T]) kernel(b *device.Block) func(int) {
	const W = device.WarpSize
	warps := b.Warps

	var vid int
	warpSums := make([]T, warps)
	warpOffset := make([]T, warps)
	var chunkTotal T
	var exclusivePrefix T

	return func(w int) {
		if w == 0 {
			vid = int(device.IncWrap(e.counter, uint32(e.nblocks-1)))
		}
		b.Sync()
		myVid := vid
		base := myVid * warps * W * e.chunks

		data := make([][]T, e.chunks)
		var lastOrig T
		var sumPrev T
		for c := 0; c < e.chunks; c++ {
			v := make([]T, W)
			for l := 0; l < W; l++ {
				idx := base + c*warps*W + w*W + l
				if idx < e.n {
					v[l] = e.fin(idx)
					if idx == e.n-1 {
						lastOrig = v[l]
					}
				}
			}
			for d := 1; d < W; d <<= 1 {
				s := device.ShuffleUp(v, d)
				for l := d; l < W; l++ {
					v[l] += s[l]
				}
			}
			warpSums[w] = v[W-1]
			b.Sync()
			if w == 0 {
				var run T
				for j := 0; j < warps; j++ {
					warpOffset[j] = run
					run += warpSums[j]
				}
				chunkTotal = run
			}
			b.Sync()
			off := warpOffset[w] + sumPrev
			if e.typ == Exclusive {
				ex := device.ShuffleUp(v, 1)
				ex[0] = 0
				v = ex
			}
			for l := range v {
				v[l] += off
			}
			data[c] = v
			sumPrev += chunkTotal
		}

		// Publication and look-back are warp 0's job; the other warps
		// park at the barrier so nobody spins while holding it.
		if w == 0 {
			if myVid == 0 {
				e.cells.setInclusive(myVid, sumPrev)
			} else {
				e.cells.setAggregate(myVid, sumPrev)
				exclusivePrefix = e.lookBack(myVid)
				e.cells.setInclusive(myVid, exclusivePrefix+sumPrev)
			}
		}
		b.Sync()
		prefix := exclusivePrefix

		for c := 0; c < e.chunks; c++ {
			for l := 0; l < W; l++ {
				idx := base + c*warps*W + w*W + l
				if idx >= e.n {
					continue
				}
				val := data[c][l] + prefix
				e.fout(idx, val)
				if idx == e.n-1 {
					t := val
					if e.typ == Exclusive {
						t += lastOrig
					}
					e.total = t
				}
			}
		}
	}
}

// lookBack resolves the running prefix for virtual block vid. Each round
// inspects a window of WarpSize predecessors, one per lane: every lane
// waits for its cell to publish, a ballot finds the nearest predecessor
// with a full prefix, and a shuffle reduction folds that prefix together
// with the aggregates in front of it. Rounds with no full prefix in the
// window fold all WarpSize aggregates and move the window back.
func (e *engine[T]) lookBack(vid int) T {
	const W = device.WarpSize
	var exclusive T
	for base := vid - 1; ; base -= W {
		done := make([]bool, W)
		vals := make([]T, W)
		for l := 0; l < W; l++ {
			ib := base - l
			if ib < 0 {
				done[l] = true
				continue
			}
			st, v := e.cells.wait(ib)
			done[l] = st == statusInclusive
			vals[l] = v
		}
		stop := bits.TrailingZeros32(device.Ballot(done))
		if stop < W {
			for l := stop + 1; l < W; l++ {
				vals[l] = 0
			}
		}
		for d := W / 2; d > 0; d >>= 1 {
			s := device.ShuffleDown(vals, d)
			for l := range vals {
				vals[l] += s[l]
			}
		}
		exclusive += vals[0]
		if stop < W {
			return exclusive
		}
	}
}
