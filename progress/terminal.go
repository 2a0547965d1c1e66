package progress

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Terminal is a Sink that redraws a single status line via mpb, throttled
// so a fast-moving conversion doesn't flood the terminal with redraws.
type Terminal struct {
	progress *mpb.Progress
	bar      *mpb.Bar
	status   atomic.Pointer[string]
}

// NewTerminal starts a throttled status spinner writing to out (typically
// os.Stderr). minPeriod sets mpb's own redraw interval, so Report calls
// more frequent than that are coalesced by mpb rather than this type.
func NewTerminal(out io.Writer, minPeriod time.Duration) *Terminal {
	t := &Terminal{
		progress: mpb.New(
			mpb.WithOutput(out),
			mpb.WithAutoRefresh(),
			mpb.WithRefreshRate(minPeriod),
		),
	}
	empty := ""
	t.status.Store(&empty)

	t.bar = t.progress.New(0,
		mpb.SpinnerStyle(),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				return *t.status.Load()
			}),
		),
	)
	return t
}

// Report sets the current status line. mpb's own refresh cadence
// (minPeriod from NewTerminal) determines how often it actually redraws.
func (t *Terminal) Report(status string) {
	t.status.Store(&status)
	t.bar.Increment()
}

// Close stops the underlying progress renderer. Safe to call once, after
// all Report calls are done.
func (t *Terminal) Close() {
	t.bar.SetTotal(-1, true)
	t.bar.Abort(false)
	t.progress.Wait()
}
