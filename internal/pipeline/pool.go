package pipeline

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// JobRunner runs a job to completion.
type JobRunner interface {
	Run(ctx context.Context, job Job) ([]ReportKindResult, error)
}

// Pool admits at most size concurrent jobs; further callers wait for a slot
// or for their context to end.
type Pool struct {
	runner  JobRunner
	sem     *semaphore.Weighted
	size    int64
	waiting atomic.Int64
}

func NewPool(runner JobRunner, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{runner: runner, sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

func (p *Pool) Run(ctx context.Context, job Job) ([]ReportKindResult, error) {
	p.waiting.Add(1)
	err := p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return p.runner.Run(ctx, job)
}

// Waiting reports how many callers are queued for a slot.
func (p *Pool) Waiting() int64 { return p.waiting.Load() }

// Size is the number of concurrent jobs admitted.
func (p *Pool) Size() int64 { return p.size }
