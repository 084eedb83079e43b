package logger

import (
	"context"
	"sync"
	"testing"
)

// recordingLogger captures entries for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, msg)
}

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *recordingLogger) Debug(msg string, _ ...any)       { r.record(msg) }
func (r *recordingLogger) Info(msg string, _ ...any)        { r.record(msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)        { r.record(msg) }
func (r *recordingLogger) Error(msg string, _ ...any)       { r.record(msg) }
func (r *recordingLogger) With(...any) Logger               { return r }
func (r *recordingLogger) WithContext(context.Context) Logger { return r }

func TestWrapAsyncDisabledReturnsBase(t *testing.T) {
	base := &recordingLogger{}
	if got := WrapAsync(base, AsyncConfig{}); got != Logger(base) {
		t.Error("expected the base logger back when async is disabled")
	}
}

func TestAsyncLoggerDeliversAllEntries(t *testing.T) {
	base := &recordingLogger{}
	l := WrapAsync(base, AsyncConfig{Enabled: true, QueueSize: 16, WorkerCount: 2}).(*AsyncLogger)

	for i := 0; i < 100; i++ {
		l.Info("entry")
	}
	l.Close()

	if got := base.count(); got != 100 {
		t.Errorf("expected 100 entries after close, got %d", got)
	}
}

func TestAsyncLoggerWritesSynchronouslyAfterClose(t *testing.T) {
	base := &recordingLogger{}
	l := WrapAsync(base, AsyncConfig{Enabled: true}).(*AsyncLogger)
	l.Close()

	l.Error("late entry")
	if got := base.count(); got != 1 {
		t.Errorf("expected entry written synchronously after close, got %d", got)
	}
}

func TestAsyncLoggerCloseIsIdempotent(t *testing.T) {
	l := WrapAsync(&recordingLogger{}, AsyncConfig{Enabled: true}).(*AsyncLogger)
	l.Close()
	l.Close()
}
