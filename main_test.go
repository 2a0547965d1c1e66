package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFileHookOnlyFiresAtOrAboveConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	hook := newFileHook(&buf, logrus.InfoLevel)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // silence stderr output for the test
	logger.AddHook(hook)
	logger.SetLevel(logrus.TraceLevel)

	logger.Debug("should not appear")
	logger.Info("should appear")

	require.NotContains(t, buf.String(), "should not appear")
	require.Contains(t, buf.String(), "should appear")
}

func TestFileHookLevelsIncludesEverythingAtLeastAsSevere(t *testing.T) {
	hook := newFileHook(nil, logrus.WarnLevel)
	levels := hook.Levels()
	require.Contains(t, levels, logrus.ErrorLevel)
	require.Contains(t, levels, logrus.WarnLevel)
	require.NotContains(t, levels, logrus.InfoLevel)
}
