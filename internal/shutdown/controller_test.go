package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProc struct {
	terminated atomic.Int32
	err        error
}

func (p *fakeProc) Terminate() error {
	p.terminated.Add(1)
	return p.err
}

func TestInterruptTerminatesInFlight(t *testing.T) {
	c := New(context.Background(), zaptest.NewLogger(t))
	a, b := &fakeProc{}, &fakeProc{err: errors.New("already gone")}
	c.Track(a)
	c.Track(b)
	require.Equal(t, 2, c.InFlight())

	c.Interrupt()

	assert.True(t, c.Interrupted())
	assert.Equal(t, int32(1), a.terminated.Load())
	assert.Equal(t, int32(1), b.terminated.Load())
	assert.Zero(t, c.InFlight())
	assert.Error(t, c.Context().Err())
}

func TestInterruptIsIdempotent(t *testing.T) {
	c := New(context.Background(), nil)
	p := &fakeProc{}
	c.Track(p)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Interrupt()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.terminated.Load())
}

func TestReleasedProcessIsNotTerminated(t *testing.T) {
	c := New(context.Background(), nil)
	p := &fakeProc{}
	release := c.Track(p)
	release()

	c.Interrupt()
	assert.Zero(t, p.terminated.Load())
}

func TestTrackAfterInterruptTerminatesImmediately(t *testing.T) {
	c := New(context.Background(), nil)
	c.Interrupt()

	p := &fakeProc{}
	release := c.Track(p)
	release()

	assert.Equal(t, int32(1), p.terminated.Load())
	assert.Zero(t, c.InFlight())
}

func TestCleanupRunsOnceInReverseOrder(t *testing.T) {
	c := New(context.Background(), nil)
	var order []int
	c.OnCleanup(func() { order = append(order, 1) })
	c.OnCleanup(func() { order = append(order, 2) })
	c.OnCleanup(func() { order = append(order, 3) })

	c.Cleanup()
	c.Cleanup()

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	c := New(parent, nil)
	cancel()
	assert.Error(t, c.Context().Err())
	assert.False(t, c.Interrupted())
}
