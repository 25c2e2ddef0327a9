// Package worker runs fire-and-forget background tasks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"narrator/internal/infra"
)

// Task is a unit of background work. The context is detached from the
// request that scheduled it.
type Task func(ctx context.Context)

// Executor schedules tasks that outlive the HTTP request.
type Executor interface {
	Submit(name string, task Task) error
	Release()
}

// Pool is an ants-backed Executor. Task panics are logged and never reach
// the caller.
type Pool struct {
	pool   *ants.Pool
	logger infra.Logger
	wg     sync.WaitGroup
}

// NewPool creates a pool. size <= 0 means no upper bound on concurrent tasks.
func NewPool(size int, logger infra.Logger) (*Pool, error) {
	if size <= 0 {
		size = -1
	}
	p := &Pool{logger: logger}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v interface{}) {
		logger.Error().
			Err(fmt.Errorf("%v", v)).
			Bytes("stack", debug.Stack()).
			Msg("worker: task panicked")
	}))
	if err != nil {
		return nil, fmt.Errorf("worker: new pool: %w", err)
	}
	p.pool = pool
	return p, nil
}

// Submit queues task under name. It does not wait for the task to finish.
func (p *Pool) Submit(name string, task Task) error {
	if task == nil {
		return errors.New("worker: nil task")
	}
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		p.logger.Debug().Str("task", name).Msg("worker: task started")
		task(context.Background())
		p.logger.Debug().Str("task", name).Msg("worker: task finished")
	})
	if err != nil {
		p.wg.Done()
		return fmt.Errorf("worker: submit %s: %w", name, err)
	}
	return nil
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Running reports the number of tasks currently executing.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops accepting tasks. Tasks already running keep going.
func (p *Pool) Release() {
	p.pool.Release()
}

// Shutdown waits up to timeout for in-flight tasks, then releases the pool.
// It reports whether every task finished in time.
func (p *Pool) Shutdown(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	finished := true
	select {
	case <-done:
	case <-time.After(timeout):
		finished = false
		p.logger.Warn().Int("running", p.pool.Running()).Msg("worker: shutdown timed out with tasks in flight")
	}
	p.pool.Release()
	return finished
}

// Inline runs tasks synchronously on the caller's goroutine. It is meant for
// tests and one-shot commands.
type Inline struct {
	Logger infra.Logger
}

func (i Inline) Submit(name string, task Task) (err error) {
	if task == nil {
		return errors.New("worker: nil task")
	}
	defer func() {
		if r := recover(); r != nil {
			i.Logger.Error().Err(fmt.Errorf("%v", r)).Str("task", name).Msg("worker: task panicked")
		}
	}()
	task(context.Background())
	return nil
}

func (Inline) Release() {}
