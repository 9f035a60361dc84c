package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	})
	return buf
}

func TestQuietModeOnlyWarns(t *testing.T) {
	buf := capture(t, false)

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)

	assert.Equal(t, "[WARN] warn 3\n", buf.String())
}

func TestVerboseModeWritesAllLevels(t *testing.T) {
	buf := capture(t, true)

	Debug("chunks=%d", 4)
	Info("ingested %s", "doc")

	assert.Contains(t, buf.String(), "[DEBUG] chunks=4\n")
	assert.Contains(t, buf.String(), "[INFO] ingested doc\n")
}

func TestLeavingVerboseModeSilencesInfo(t *testing.T) {
	buf := capture(t, true)
	Info("first")
	SetVerbose(false)
	Info("second")
	Warn("third")

	assert.Equal(t, "[INFO] first\n[WARN] third\n", buf.String())
}
