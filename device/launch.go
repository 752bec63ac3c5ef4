package device

import (
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Launch runs a grid of blocks on stream s. The kernel is a factory: it is
// called once per block to set up that block's shared state, and the
// returned function is run by one goroutine per warp.
//
// Blocks are handed to a fixed pool of workers in a scrambled order, and
// each worker runs its block to completion before taking the next. A
// kernel that waits on work published by other blocks must therefore order
// its dependencies by claim order, not by hardware block index; a block
// may only wait on state owned by blocks that started before it.
func Launch(grid, warpsPerBlock int, s *Stream, kernel func(b *Block) func(warp int)) {
	if grid <= 0 {
		return
	}
	s.enqueue(func() {
		runGrid(grid, warpsPerBlock, kernel)
	})
}

func runGrid(grid, warpsPerBlock int, kernel func(b *Block) func(warp int)) {
	order := rand.Perm(grid)

	workers := poolSize()
	if workers > grid {
		workers = grid
	}

	var next int
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				if next >= grid {
					mu.Unlock()
					return
				}
				idx := order[next]
				next++
				mu.Unlock()
				runBlock(idx, warpsPerBlock, kernel)
			}
		}()
	}
	wg.Wait()
}

func runBlock(index, warps int, kernel func(b *Block) func(warp int)) {
	b := &Block{Index: index, Warps: warps, bar: newBarrier(warps)}
	body := kernel(b)
	var wg sync.WaitGroup
	wg.Add(warps)
	for w := 0; w < warps; w++ {
		go func(w int) {
			defer wg.Done()
			body(w)
		}(w)
	}
	wg.Wait()
}

// poolSize reports how many workers a grid run may use. SWEEP_WORKERS
// overrides the default of runtime.NumCPU().
func poolSize() int {
	if s := os.Getenv("SWEEP_WORKERS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}
