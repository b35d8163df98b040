package progress

import "sync/atomic"

// Counter is the frame counter shared by all workers. Workers only add to it;
// the monitor only reads it.
type Counter struct {
	n atomic.Int64
}

// NewCounter returns a counter starting at zero.
func NewCounter() *Counter {
	return &Counter{}
}

// Inc adds one.
func (c *Counter) Inc() {
	c.n.Add(1)
}

// Add adds delta.
func (c *Counter) Add(delta int64) {
	c.n.Add(delta)
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	return c.n.Load()
}
