package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

// AsyncConfig configures the async wrapper. The access log middleware uses it
// to keep request handling off the log write path.
type AsyncConfig struct {
	Enabled      bool
	QueueSize    int
	WorkerCount  int
	DropWhenFull bool
}

type asyncLevel int

const (
	asyncDebug asyncLevel = iota
	asyncInfo
	asyncWarn
	asyncError
)

type asyncEntry struct {
	base  Logger
	level asyncLevel
	msg   string
	args  []any
}

type asyncDispatcher struct {
	entries      chan asyncEntry
	dropWhenFull bool
	wg           sync.WaitGroup
	stopOnce     sync.Once
	stopped      atomic.Bool
}

// AsyncLogger queues entries and writes them through worker goroutines.
// After Close, entries are written synchronously instead of dropped.
type AsyncLogger struct {
	base       Logger
	dispatcher *asyncDispatcher
}

// WrapAsync wraps base with async dispatch when cfg.Enabled is set; otherwise
// it returns base unchanged.
func WrapAsync(base Logger, cfg AsyncConfig) Logger {
	if !cfg.Enabled {
		return base
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}

	dispatcher := &asyncDispatcher{
		entries:      make(chan asyncEntry, queueSize),
		dropWhenFull: cfg.DropWhenFull,
	}
	for i := 0; i < workerCount; i++ {
		dispatcher.wg.Add(1)
		go func() {
			defer dispatcher.wg.Done()
			for entry := range dispatcher.entries {
				write(entry.base, entry.level, entry.msg, entry.args...)
			}
		}()
	}

	return &AsyncLogger{base: base, dispatcher: dispatcher}
}

// Debug queues a debug-level entry.
func (l *AsyncLogger) Debug(msg string, args ...any) { l.enqueue(asyncDebug, msg, args...) }

// Info queues an info-level entry.
func (l *AsyncLogger) Info(msg string, args ...any) { l.enqueue(asyncInfo, msg, args...) }

// Warn queues a warn-level entry.
func (l *AsyncLogger) Warn(msg string, args ...any) { l.enqueue(asyncWarn, msg, args...) }

// Error queues an error-level entry.
func (l *AsyncLogger) Error(msg string, args ...any) { l.enqueue(asyncError, msg, args...) }

// With returns a child logger sharing this logger's dispatcher.
func (l *AsyncLogger) With(args ...any) Logger {
	return &AsyncLogger{base: l.base.With(args...), dispatcher: l.dispatcher}
}

// WithContext returns a child logger sharing this logger's dispatcher.
func (l *AsyncLogger) WithContext(ctx context.Context) Logger {
	return &AsyncLogger{base: l.base.WithContext(ctx), dispatcher: l.dispatcher}
}

// Close drains the queue and stops the workers.
func (l *AsyncLogger) Close() {
	l.dispatcher.stop()
}

func (l *AsyncLogger) enqueue(level asyncLevel, msg string, args ...any) {
	if l.dispatcher.stopped.Load() {
		write(l.base, level, msg, args...)
		return
	}

	entry := asyncEntry{base: l.base, level: level, msg: msg, args: args}
	if l.dispatcher.dropWhenFull {
		select {
		case l.dispatcher.entries <- entry:
		default:
		}
		return
	}
	l.dispatcher.entries <- entry
}

func write(base Logger, level asyncLevel, msg string, args ...any) {
	switch level {
	case asyncDebug:
		base.Debug(msg, args...)
	case asyncInfo:
		base.Info(msg, args...)
	case asyncWarn:
		base.Warn(msg, args...)
	case asyncError:
		base.Error(msg, args...)
	}
}

func (d *asyncDispatcher) stop() {
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.entries)
		d.wg.Wait()
	})
}
