// Package worker provides the concurrency plumbing for source collection:
// a bounded task pool and per-host request pacing.
package worker

import (
	"context"
	"sync"
)

// Task is one unit of collection work.
type Task interface {
	Run(ctx context.Context) Outcome
}

// Outcome reports how a task ended.
type Outcome interface {
	Err() error
}

// Pool runs tasks over a fixed set of workers and collects their outcomes.
// Submit after Shutdown is a no-op; the task is dropped.
type Pool struct {
	workers int
	queue   chan Task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	outcomes []Outcome
}

// NewPool sizes a pool; fewer than one worker gets one.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		queue:   make(chan Task, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			out := task.Run(p.ctx)
			p.mu.Lock()
			p.outcomes = append(p.outcomes, out)
			p.mu.Unlock()
		}
	}
}

// Submit queues a task, blocking while the queue is full.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.ctx.Done():
	case p.queue <- task:
	}
}

// Wait closes the queue, lets the workers drain it, and returns every
// outcome collected so far.
func (p *Pool) Wait() []Outcome {
	close(p.queue)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcomes
}

// Shutdown cancels in-flight tasks and stops the workers without draining
// the queue.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
