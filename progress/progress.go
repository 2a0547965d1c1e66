// Package progress defines the ProgressSink seam the core conversion loop
// reports status strings through, plus a throttled terminal renderer.
package progress

import "github.com/dustin/go-humanize"

// Sink accepts status strings describing conversion progress. The core
// conversion loop holds exactly one Sink reference, injected at stage
// construction, and never reads process-wide state to report progress.
type Sink interface {
	Report(status string)
}

// NopSink discards every status string. Useful for tests and for
// --no-progress runs.
type NopSink struct{}

func (NopSink) Report(string) {}

// ReportBytes reports prefix followed by a human-readable byte count
// (for example "1.5 kB").
func ReportBytes(sink Sink, prefix string, n uint64) {
	sink.Report(prefix + humanize.Bytes(n))
}
