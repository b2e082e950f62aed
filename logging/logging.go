// Package logging wraps github.com/google/logger, the logger the teacher
// repo initializes once in main, with a per-subsystem name and the
// once-per-minute rate limiting the error handling design requires for
// per-tile failures (NotFound/UpstreamError must never flood the log).
package logging

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"
)

// Init sets up the process-wide google/logger sink. verbose mirrors the
// teacher's defLog boolean; toSyslog is always false since this repo never
// ships a syslog-aware deployment target.
func Init(verbose bool) func() {
	l := logger.Init("martin", verbose, false, nil)
	return func() { l.Close() }
}

// Logger is a named wrapper around the global google/logger sink.
type Logger struct {
	name string
}

// For returns a Logger tagged with name, e.g. logging.For("mbtiles").
func For(name string) *Logger {
	return &Logger{name: name}
}

func (l *Logger) Infof(format string, args ...any) {
	logger.Infof("[%s] %s", l.name, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	logger.Errorf("[%s] %s", l.name, fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...any) {
	logger.Warningf("[%s] %s", l.name, fmt.Sprintf(format, args...))
}

// limiter rate-limits one warning per (source-id, kind) pair per minute, as
// required by the error handling design so a hot, permanently-broken
// source cannot flood the log.
type limiter struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

var warnLimiter = &limiter{seen: make(map[string]time.Time)}

// RateLimited logs a WARN at most once per minute for the given
// (sourceID, kind) pair.
func (l *Logger) RateLimited(sourceID, kind, format string, args ...any) {
	key := sourceID + "|" + kind
	now := time.Now()

	warnLimiter.mu.Lock()
	last, ok := warnLimiter.seen[key]
	if ok && now.Sub(last) < time.Minute {
		warnLimiter.mu.Unlock()
		return
	}
	warnLimiter.seen[key] = now
	warnLimiter.mu.Unlock()

	l.Warningf(format, args...)
}
