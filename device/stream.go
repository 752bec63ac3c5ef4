package device

import "sync"

// Stream is an ordered asynchronous work queue. Tasks run one at a time in
// submission order on a dedicated goroutine; Synchronize blocks until every
// task submitted so far has finished.
type Stream struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewStream creates a stream with its worker goroutine running.
func NewStream() *Stream {
	s := &Stream{tasks: make(chan func(), 64)}
	go func() {
		for fn := range s.tasks {
			fn()
			s.wg.Done()
		}
	}()
	return s
}

func (s *Stream) enqueue(fn func()) {
	s.wg.Add(1)
	s.tasks <- fn
}

// Synchronize waits for all previously submitted work to complete.
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

// Close shuts the stream down after draining pending work. A closed stream
// must not be used again.
func (s *Stream) Close() {
	s.once.Do(func() {
		s.wg.Wait()
		close(s.tasks)
	})
}

// ParallelFor runs f(i) for i in [0, n) across the worker pool. It blocks
// until all iterations are done; iteration order is unspecified.
func ParallelFor(n int, f func(i int)) {
	if n <= 0 {
		return
	}
	workers := poolSize()
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(lo int) {
			defer wg.Done()
			hi := lo + chunk
			if hi > n {
				hi = n
			}
			for i := lo; i < hi; i++ {
				f(i)
			}
		}(w * chunk)
	}
	wg.Wait()
}
