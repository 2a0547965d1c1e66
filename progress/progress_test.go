package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	reports []string
}

func (r *recordingSink) Report(status string) { r.reports = append(r.reports, status) }

func TestNopSinkDiscardsReports(t *testing.T) {
	var s NopSink
	require.NotPanics(t, func() { s.Report("anything") })
}

func TestReportBytesFormatsHumanReadable(t *testing.T) {
	sink := &recordingSink{}
	ReportBytes(sink, "wrote ", 1536)
	require.Len(t, sink.reports, 1)
	require.Contains(t, sink.reports[0], "wrote ")
	require.Contains(t, sink.reports[0], "kB")
}

func TestRecordingSinkAcceptsMultipleReports(t *testing.T) {
	sink := &recordingSink{}
	sink.Report("rev 1")
	sink.Report("rev 2")
	require.Equal(t, []string{"rev 1", "rev 2"}, sink.reports)
}
