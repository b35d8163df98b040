package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"go.uber.org/zap"
)

// Terminator is a process (or anything else) that can be forcibly stopped.
type Terminator = interface {
	Terminate() error
}

// Controller coordinates an interrupt: it stops new work from being
// dispatched, kills every tracked process, and runs cleanup callbacks once.
// Every method is safe for concurrent use and may be called repeatedly.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu          sync.Mutex
	nextID      int
	inflight    map[int]Terminator
	interrupted bool
	cleanups    []func()

	cleanupOnce sync.Once
}

// New returns a controller whose Context is derived from parent.
func New(parent context.Context, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Controller{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		inflight: make(map[int]Terminator),
	}
}

// Context is cancelled when the controller is interrupted.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Interrupted reports whether Interrupt has been called.
func (c *Controller) Interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupted
}

// Track registers t until the returned release func is called. If the
// controller was already interrupted, t is terminated right away.
func (c *Controller) Track(t Terminator) (release func()) {
	c.mu.Lock()
	if c.interrupted {
		c.mu.Unlock()
		c.terminate(t)
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.inflight[id] = t
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
	}
}

// InFlight reports how many tracked processes are still registered.
func (c *Controller) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// OnCleanup registers fn to run during Cleanup. Callbacks run in reverse
// registration order.
func (c *Controller) OnCleanup(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, fn)
}

// Interrupt cancels the context and terminates every tracked process. Only
// the first call does anything.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	if c.interrupted {
		c.mu.Unlock()
		return
	}
	c.interrupted = true
	victims := make([]Terminator, 0, len(c.inflight))
	for id, t := range c.inflight {
		victims = append(victims, t)
		delete(c.inflight, id)
	}
	c.mu.Unlock()

	c.cancel()
	c.logger.Warn("interrupt received, terminating decoders", zap.Int("inflight", len(victims)))
	for _, t := range victims {
		c.terminate(t)
	}
}

func (c *Controller) terminate(t Terminator) {
	if err := t.Terminate(); err != nil {
		c.logger.Debug("terminate failed", zap.Error(err))
	}
}

// Cleanup runs the registered callbacks exactly once. Concurrent callers wait
// for the first one to finish.
func (c *Controller) Cleanup() {
	c.cleanupOnce.Do(func() {
		c.mu.Lock()
		fns := make([]func(), len(c.cleanups))
		copy(fns, c.cleanups)
		c.mu.Unlock()

		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	})
}

// Watch calls Interrupt when any of sigs arrives. The returned func stops
// watching and releases the context.
func (c *Controller) Watch(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)
	quit := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-ch:
				c.logger.Info("received signal", zap.String("signal", sig.String()))
				c.Interrupt()
			case <-quit:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
			c.cancel()
		})
	}
}
