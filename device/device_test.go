package device

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
)

func TestShuffleUp(t *testing.T) {
	v := make([]int32, WarpSize)
	for i := range v {
		v[i] = int32(i)
	}
	got := ShuffleUp(v, 3)
	for i := range got {
		want := int32(i)
		if i >= 3 {
			want = int32(i - 3)
		}
		if got[i] != want {
			t.Fatalf("lane %d = %d, want %d", i, got[i], want)
		}
	}
}

func TestShuffleDown(t *testing.T) {
	v := make([]uint64, WarpSize)
	for i := range v {
		v[i] = uint64(i * 10)
	}
	got := ShuffleDown(v, 5)
	for i := range got {
		want := uint64(i * 10)
		if i+5 < WarpSize {
			want = uint64((i + 5) * 10)
		}
		if got[i] != want {
			t.Fatalf("lane %d = %d, want %d", i, got[i], want)
		}
	}
}

func TestShuffleXor(t *testing.T) {
	v := make([]float32, WarpSize)
	for i := range v {
		v[i] = float32(i)
	}
	got := ShuffleXor(v, 1)
	for i := range got {
		if got[i] != float32(i^1) {
			t.Fatalf("lane %d = %v, want %v", i, got[i], float32(i^1))
		}
	}
}

func TestBallotEmulationAgrees(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		pred := make([]bool, WarpSize)
		for i := range pred {
			pred[i] = rng.Intn(2) == 1
		}
		direct := Ballot(pred)
		emulated := BallotXor(pred)
		if direct != emulated {
			t.Fatalf("round %d: ballot %#x != emulated %#x", round, direct, emulated)
		}
	}
}

func TestIncWrap(t *testing.T) {
	var c atomic.Uint32
	// limit semantics: claims cycle through 0..limit, returning the old
	// value each time.
	got := []uint32{}
	for i := 0; i < 8; i++ {
		got = append(got, IncWrap(&c, 2))
	}
	want := []uint32{0, 1, 2, 0, 1, 2, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("claim %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestIncWrapConcurrent(t *testing.T) {
	var c atomic.Uint32
	const n = 64
	seen := make([]int32, n)
	var wg sync.WaitGroup
	for g := 0; g < n; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := IncWrap(&c, n-1)
			atomic.AddInt32(&seen[id], 1)
		}()
	}
	wg.Wait()
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("id %d claimed %d times", id, count)
		}
	}
}

func TestAddUintReturnsOld(t *testing.T) {
	var v32 atomic.Uint32
	var v64 atomic.Uint64
	if old := AddUint32(&v32, 7); old != 0 {
		t.Fatalf("first add returned %d, want 0", old)
	}
	if old := AddUint32(&v32, 5); old != 7 {
		t.Fatalf("second add returned %d, want 7", old)
	}
	if old := AddUint64(&v64, 1<<40); old != 0 {
		t.Fatalf("first add returned %d, want 0", old)
	}
	if old := AddUint64(&v64, 1); old != 1<<40 {
		t.Fatalf("second add returned %d, want %d", old, uint64(1)<<40)
	}
}

func TestAddFloat(t *testing.T) {
	var w32 atomic.Uint32
	var w64 atomic.Uint64
	var wg sync.WaitGroup
	for g := 0; g < 100; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			AddFloat32(&w32, 0.5)
			AddFloat64(&w64, 0.25)
		}()
	}
	wg.Wait()
	if f := math.Float32frombits(w32.Load()); f != 50 {
		t.Fatalf("float32 sum = %v, want 50", f)
	}
	if f := math.Float64frombits(w64.Load()); f != 25 {
		t.Fatalf("float64 sum = %v, want 25", f)
	}
}

func TestAlign(t *testing.T) {
	cases := map[int]int{0: 0, 1: 64, 63: 64, 64: 64, 65: 128, 1000: 1024}
	for in, want := range cases {
		if got := Align(in); got != want {
			t.Fatalf("Align(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestArena(t *testing.T) {
	a := NewArena(300)
	b1 := a.Alloc(10)
	if len(b1) != 10 {
		t.Fatalf("len = %d", len(b1))
	}
	if off := a.Offset(); off != 64 {
		t.Fatalf("offset after 10-byte alloc = %d, want 64", off)
	}
	a.Alloc(100)
	if off := a.Offset(); off != 64+128 {
		t.Fatalf("offset = %d, want %d", a.Offset(), 64+128)
	}
	a.Reset()
	if a.Offset() != 0 {
		t.Fatal("reset did not rewind")
	}
}

func TestParallelFor(t *testing.T) {
	const n = 10_001
	counts := make([]int32, n)
	ParallelFor(n, func(i int) {
		atomic.AddInt32(&counts[i], 1)
	})
	for i, c := range counts {
		if c != 1 {
			t.Fatalf("index %d visited %d times", i, c)
		}
	}
}

func TestStreamOrder(t *testing.T) {
	s := NewStream()
	defer s.Close()
	var seq []int
	for i := 0; i < 10; i++ {
		i := i
		s.enqueue(func() { seq = append(seq, i) })
	}
	s.Synchronize()
	for i, v := range seq {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLaunchBarrier(t *testing.T) {
	const grid = 32
	const warps = 4
	const rounds = 50
	results := make([]int32, grid)
	s := NewStream()
	defer s.Close()
	Launch(grid, warps, s, func(b *Block) func(int) {
		shared := make([]int32, warps)
		return func(w int) {
			for r := 0; r < rounds; r++ {
				shared[w]++
				b.Sync()
				if w == 0 {
					var sum int32
					for _, v := range shared {
						sum += v
					}
					// Every warp must have arrived with this round done.
					if sum != int32((r+1)*warps) {
						atomic.StoreInt32(&results[b.Index], -1)
					}
				}
				b.Sync()
			}
			if w == 0 && atomic.LoadInt32(&results[b.Index]) == 0 {
				atomic.StoreInt32(&results[b.Index], 1)
			}
		}
	})
	s.Synchronize()
	for i, r := range results {
		if r != 1 {
			t.Fatalf("block %d saw a barrier violation", i)
		}
	}
}
