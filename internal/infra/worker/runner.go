// File: internal/infra/worker/runner.go
package worker

import (
	"context"
	"errors"
	"sync"
)

// Runner supervises long-lived per-user tasks. Whoever starts a job owns its
// goroutine: the handle stays registered until the task returns, and Wait
// joins everything before shutdown completes.
type Runner struct {
	mu     sync.Mutex
	active map[int64]struct{}
	wg     sync.WaitGroup
}

func NewRunner() *Runner {
	return &Runner{active: map[int64]struct{}{}}
}

// Go starts fn for key. A second Go for the same key while the first is still
// running is refused; the job registry rejects duplicates before this point,
// so hitting it indicates a bookkeeping bug upstream.
func (r *Runner) Go(ctx context.Context, key int64, fn func(ctx context.Context)) error {
	r.mu.Lock()
	if _, ok := r.active[key]; ok {
		r.mu.Unlock()
		return errors.New("task already running for key")
	}
	r.active[key] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.active, key)
			r.mu.Unlock()
			r.wg.Done()
		}()
		fn(ctx)
	}()
	return nil
}

// Running reports whether a task currently holds the key.
func (r *Runner) Running(key int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[key]
	return ok
}

// Wait blocks until every started task has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
