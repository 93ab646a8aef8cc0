package logging

import (
	"io"
	"os"
	"sync"
)

// swappableWriter is an io.Writer whose destination can be replaced at
// runtime. Every component logger writes its console output through the
// same instance, so one call redirects all of them.
type swappableWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

// Write implements the io.Writer interface.
func (sw *swappableWriter) Write(p []byte) (n int, err error) {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.w.Write(p)
}

func (sw *swappableWriter) set(w io.Writer) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.w = w
}

var consoleOutput = &swappableWriter{w: os.Stderr}

// SetConsoleOutput redirects the console sink of every component logger.
// Passing nil restores os.Stderr.
func SetConsoleOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	consoleOutput.set(w)
}
