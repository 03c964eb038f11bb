package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultWithOutput(LevelInfo, &buf)

	l.Info("push applied", "clientId", "alice", "ops", 3, "conflicts", 1)

	out := buf.String()
	require.Contains(t, out, "push applied")
	require.Contains(t, out, "clientId=alice")
	require.Contains(t, out, "ops=3")
	require.Contains(t, out, "conflicts=1")
}

func TestDefaultLevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultWithOutput(LevelWarn, &buf)

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("visible", "reason", "test")

	out := buf.String()
	require.False(t, strings.Contains(out, "should not appear"))
	require.Contains(t, out, "visible")
	require.Contains(t, out, "reason=test")
}

func TestNoOpDiscardsEverything(t *testing.T) {
	var l Logger = NoOp{}
	l.Debug("x")
	l.Info("y", "k", "v")
	l.Warn("z")
	l.Error("w")
}
