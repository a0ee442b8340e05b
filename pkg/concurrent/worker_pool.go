package concurrent

import (
	"sync"
)

type JobFunc[T any, G any] func(job T) G

// WorkerPool runs jobs on a fixed number of goroutines.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan indexed[T]
	results    chan indexed[G]
	wg         sync.WaitGroup
}

type indexed[T any] struct {
	index int
	value T
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan indexed[T], jobQueueSize),
		results:    make(chan indexed[G], jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- indexed[G]{index: job.index, value: jobFunc(job.value)}
	}
}

func (wp *WorkerPool[T, G]) start(jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(jobFunc)
	}
}

// Run executes every job and returns the results in job order. A pool runs once.
func (wp *WorkerPool[T, G]) Run(jobs []T, jobFunc JobFunc[T, G]) []G {
	wp.start(jobFunc)
	go func() {
		for i, job := range jobs {
			wp.jobQueue <- indexed[T]{index: i, value: job}
		}
		close(wp.jobQueue)
	}()
	go func() {
		wp.wg.Wait()
		close(wp.results)
	}()

	out := make([]G, len(jobs))
	for res := range wp.results {
		out[res.index] = res.value
	}
	return out
}
