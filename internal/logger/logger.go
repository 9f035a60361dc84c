// Package logger writes the rag CLI's diagnostics to stderr. Warnings, such as
// a failed ingestion summary or a download that is not a PDF, always print.
// Indexing and retrieval details print only under -v/--verbose.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
)

var prefixes = [...]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
}

var (
	mu        sync.Mutex
	threshold = levelWarn
	output    io.Writer = os.Stderr
)

// SetVerbose lowers the threshold to debug, or restores warnings only.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		threshold = levelDebug
	} else {
		threshold = levelWarn
	}
}

// SetOutput redirects diagnostics; nil restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

func Debug(format string, args ...any) { logf(levelDebug, format, args...) }

func Info(format string, args ...any) { logf(levelInfo, format, args...) }

func Warn(format string, args ...any) { logf(levelWarn, format, args...) }

func logf(l level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < threshold {
		return
	}
	fmt.Fprintf(output, prefixes[l]+format+"\n", args...)
}
