package worker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunsEveryJob(t *testing.T) {
	jobs := []int{1, 2, 3, 4, 5, 6, 7}
	batch := Start(context.Background(), 3, jobs, func(n int) int { return n * n })

	got := batch.Wait()
	sort.Ints(got)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49}, got)
	assert.Equal(t, len(jobs), batch.Dispatched())
}

func TestStartBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	jobs := make([]int, 20)

	batch := Start(context.Background(), 4, jobs, func(int) struct{} {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}
	})
	batch.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestStartNoJobs(t *testing.T) {
	batch := Start(context.Background(), 4, []int(nil), func(n int) int { return n })
	assert.Empty(t, batch.Wait())
}

func TestStartCancelStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)

	var once sync.Once
	batch := Start(ctx, 1, []int{0, 1, 2, 3}, func(n int) int {
		once.Do(started.Done)
		<-release
		return n
	})

	started.Wait()
	cancel()
	close(release)

	got := batch.Wait()
	require.NotEmpty(t, got)
	assert.Less(t, len(got), 4)
	assert.Equal(t, len(got), batch.Dispatched())
}

func TestDoneClosesAfterWorkersReturn(t *testing.T) {
	var finished atomic.Int32
	batch := Start(context.Background(), 2, []int{1, 2, 3}, func(n int) int {
		finished.Add(1)
		return n
	})

	select {
	case <-batch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("batch never completed")
	}
	assert.Equal(t, int32(3), finished.Load())
}
