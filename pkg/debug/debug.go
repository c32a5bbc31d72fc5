// Package debug provides conditional debug logging for gcv.
//
// Debug logging is enabled by setting GCV_DEBUG:
//
//	GCV_DEBUG=1 gcv graph.json
//
// The canvas owns the terminal while it runs, so GCV_DEBUG_FILE can point
// the log at a file instead of stderr. When disabled every function is a
// no-op.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[GCV_DEBUG] "

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
	logFile *os.File
)

func init() {
	if os.Getenv("GCV_DEBUG") == "" {
		return
	}
	enabled = true
	if path := os.Getenv("GCV_DEBUG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			logFile = f
			logger = log.New(f, prefix, log.Ltime|log.Lmicroseconds)
			return
		}
	}
	logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
}

// Close releases the GCV_DEBUG_FILE handle, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	return err
}

func active() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if l := active(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message.
func LogTiming(name string, d time.Duration) {
	if l := active(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogIf writes a debug message only if cond is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs entry and exit with timing:
//
//	defer debug.LogEnterExit("reload")()
func LogEnterExit(name string) func() {
	l := active()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	if l := active(); l != nil {
		l.Printf("%s: %T = %s", name, v, fmt.Sprintf("%+v", v))
	}
}
