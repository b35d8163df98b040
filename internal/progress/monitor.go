package progress

import "time"

// DefaultInterval is how often the monitor polls the counter.
const DefaultInterval = 200 * time.Millisecond

// Update is one progress step. Delta is what was added since the previous
// update; Done is the counter value it was read at.
type Update struct {
	Delta int64
	Done  int64
	Total int64
}

// Sink consumes progress updates. It is only called from the monitor goroutine.
type Sink interface {
	Progress(u Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

// Progress calls f(u).
func (f SinkFunc) Progress(u Update) { f(u) }

// Reader is the read side of a Counter.
type Reader interface {
	Load() int64
}

// Monitor polls a counter and forwards deltas to a sink.
type Monitor struct {
	counter  Reader
	total    int64
	interval time.Duration
	sink     Sink
	last     int64
}

// NewMonitor creates a monitor. total is the expected frame count and is only
// passed through to the sink.
func NewMonitor(counter Reader, total int64, interval time.Duration, sink Sink) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		counter:  counter,
		total:    total,
		interval: interval,
		sink:     sink,
	}
}

// Run polls until done is closed, i.e. every worker has returned, then
// flushes whatever is left. The deltas it emits always sum to the returned
// final value.
func (m *Monitor) Run(done <-chan struct{}) int64 {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return m.flush()
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	current := m.counter.Load()
	if current <= m.last {
		return
	}
	delta := current - m.last
	m.last = current
	if m.sink != nil {
		m.sink.Progress(Update{Delta: delta, Done: current, Total: m.total})
	}
}

func (m *Monitor) flush() int64 {
	m.poll()
	return m.last
}
