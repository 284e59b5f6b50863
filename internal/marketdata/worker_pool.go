package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// fetchResult is the outcome of a single request
type fetchResult struct {
	Request  Request
	Series   *types.CandleSeries
	Duration time.Duration
	Err      error
}

// workerPool runs a fixed number of workers over a job queue
type workerPool struct {
	workerCount int
	jobQueue    chan Request
	resultQueue chan fetchResult
	wg          sync.WaitGroup
	process     func(ctx context.Context, req Request) fetchResult
}

func newWorkerPool(workerCount, jobBufferSize int, process func(ctx context.Context, req Request) fetchResult) *workerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &workerPool{
		workerCount: workerCount,
		jobQueue:    make(chan Request, jobBufferSize),
		resultQueue: make(chan fetchResult, jobBufferSize),
		process:     process,
	}
}

// start launches the workers; they exit when the job queue is closed
func (wp *workerPool) start(ctx context.Context) {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

// run submits every job, waits for all workers and returns the results
func (wp *workerPool) run(ctx context.Context, jobs []Request) []fetchResult {
	wp.start(ctx)

	go func() {
		for _, job := range jobs {
			wp.jobQueue <- job
		}
		close(wp.jobQueue)
	}()

	go func() {
		wp.wg.Wait()
		close(wp.resultQueue)
	}()

	results := make([]fetchResult, 0, len(jobs))
	for r := range wp.resultQueue {
		results = append(results, r)
	}
	return results
}

// worker processes fetch jobs until the queue drains. Cancellation is
// handled inside process so every job still yields a result.
func (wp *workerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		wp.resultQueue <- wp.process(ctx, job)
	}
}
