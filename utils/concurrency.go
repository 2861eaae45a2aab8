package utils

import (
	"sync"
)

// WorkerPool runs indexed jobs on a bounded number of goroutines and keeps
// the error of every failed job. The loader uses it to read source files in
// parallel.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	errs      map[int]error
}

// NewWorkerPool creates a WorkerPool running at most maxWorkers jobs at a
// time. A non-positive maxWorkers is treated as 1.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		semaphore: make(chan struct{}, maxWorkers),
		errs:      make(map[int]error),
	}
}

// Submit starts job once a slot is free. index identifies the job in the
// error returned by Wait.
func (wp *WorkerPool) Submit(index int, job func() error) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		if err := job(); err != nil {
			wp.mu.Lock()
			wp.errs[index] = err
			wp.mu.Unlock()
		}
	}()
}

// Wait blocks until every submitted job has finished. It returns the index
// and error of the failed job with the lowest index, or (-1, nil).
func (wp *WorkerPool) Wait() (int, error) {
	wp.wg.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	first := -1
	for i := range wp.errs {
		if first == -1 || i < first {
			first = i
		}
	}
	if first == -1 {
		return -1, nil
	}
	return first, wp.errs[first]
}

// KeySet is a thread-safe multiset of string keys that remembers the order
// keys were first seen in.
type KeySet struct {
	mu     sync.RWMutex
	counts map[string]int
	order  []string
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{counts: make(map[string]int)}
}

// Add records key and reports whether it was seen for the first time.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[key]++
	if s.counts[key] > 1 {
		return false
	}
	s.order = append(s.order, key)
	return true
}

// Size returns the number of distinct keys.
func (s *KeySet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Repeated returns the keys added more than once, in first-seen order.
func (s *KeySet) Repeated() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, k := range s.order {
		if s.counts[k] > 1 {
			out = append(out, k)
		}
	}
	return out
}
