package main

import (
	"io"

	"github.com/sirupsen/logrus"
)

// fileHook mirrors every log entry at or above minLevel into an
// additional writer, letting --log-file capture a different (typically
// more verbose) level than the stderr output.
type fileHook struct {
	out       io.Writer
	formatter logrus.Formatter
	minLevel  logrus.Level
}

func newFileHook(out io.Writer, minLevel logrus.Level) logrus.Hook {
	return &fileHook{out: out, formatter: &logrus.TextFormatter{}, minLevel: minLevel}
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.minLevel+1]
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}
