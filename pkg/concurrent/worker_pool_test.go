package concurrent

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunKeepsJobOrder(t *testing.T) {
	jobs := make([]int, 50)
	for i := range jobs {
		jobs[i] = i
	}
	var calls int64
	wp := NewWorkerPool[int, int](4, len(jobs))
	out := wp.Run(jobs, func(job int) int {
		atomic.AddInt64(&calls, 1)
		return job * job
	})

	assert.Equal(t, int64(50), calls)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestRunWithoutJobs(t *testing.T) {
	wp := NewWorkerPool[int, string](2, 0)
	assert.Empty(t, wp.Run(nil, func(job int) string { return "" }))
}
