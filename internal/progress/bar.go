package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar renders updates as a terminal progress bar. The displayed count never
// exceeds the expected total even when more frames than probed arrive.
type Bar struct {
	mu    sync.Mutex
	w     io.Writer
	bar   *progressbar.ProgressBar
	total int64
	shown int64
	done  bool
}

// NewBar creates a bar writing to w. A non-positive total renders a spinner.
func NewBar(w io.Writer, total int64) *Bar {
	max := total
	if max <= 0 {
		max = -1
	}
	bar := progressbar.NewOptions64(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Processing frames"),
		progressbar.OptionSetItsString("frame"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Bar{w: w, bar: bar, total: total}
}

// Progress implements Sink.
func (b *Bar) Progress(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	step := clampStep(b.shown, u.Delta, b.total)
	if step <= 0 {
		return
	}
	b.shown += step
	_ = b.bar.Add64(step)
}

// Shown returns the value currently displayed.
func (b *Bar) Shown() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shown
}

// Finish completes the bar and moves the cursor past it. Safe to call twice.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	_ = b.bar.Finish()
	_, _ = io.WriteString(b.w, "\n")
}

// clampStep limits delta so shown+step stays within total when total is known.
func clampStep(shown, delta, total int64) int64 {
	if delta <= 0 {
		return 0
	}
	if total <= 0 {
		return delta
	}
	if shown+delta > total {
		return total - shown
	}
	return delta
}
