// Package logger provides a non-blocking, typed async logger: producers
// enqueue tagged log events onto an SPSC queue without blocking, and a
// background goroutine drains the queue into a zap.Logger sink on a fixed
// poll interval.
package logger

import (
	"time"

	"github.com/abdoElHodaky/nitek-ome/internal/lowlatency/queue"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// drainInterval is the background worker's poll period; the logger is
	// not on the trading hot path so this latency is acceptable.
	drainInterval = 10 * time.Millisecond

	// queueCapacity must be a power of two (queue.New enforces this).
	queueCapacity = 1 << 16

	maxFields = 4
)

// event is the fixed-size record carried on the logger's internal SPSC
// queue. It holds at most maxFields zap.Field values inline so enqueuing a
// log line performs no heap allocation beyond whatever the caller already
// allocated to build those fields (e.g. a formatted string argument).
type event struct {
	level   zapcore.Level
	msg     string
	fields  [maxFields]zap.Field
	nfields int
}

// AsyncLogger decouples a producer's log call from the cost of formatting
// and writing it. Close drains the queue and joins the background worker.
type AsyncLogger struct {
	sink  *zap.Logger
	q     *queue.SPSC[event]
	done  chan struct{}
	joinC chan struct{}
}

// New creates an async logger that drains into sink. name identifies this
// logger's queue for fatal diagnostics (queue misuse is always a code
// defect, never a runtime condition to recover from).
func New(sink *zap.Logger, name string) *AsyncLogger {
	l := &AsyncLogger{
		sink:  sink,
		q:     queue.New[event](queueCapacity, name, sink),
		done:  make(chan struct{}),
		joinC: make(chan struct{}),
	}
	go l.drain()
	return l
}

// Log enqueues a log event without blocking. Dropped fields beyond
// maxFields are truncated rather than allocating a slice on the hot path.
func (l *AsyncLogger) Log(level zapcore.Level, msg string, fields ...zap.Field) {
	slot := l.q.NextToWrite()
	slot.level = level
	slot.msg = msg
	n := len(fields)
	if n > maxFields {
		n = maxFields
	}
	slot.nfields = n
	for i := 0; i < n; i++ {
		slot.fields[i] = fields[i]
	}
	l.q.CommitWrite()
}

func (l *AsyncLogger) Debug(msg string, fields ...zap.Field) { l.Log(zapcore.DebugLevel, msg, fields...) }
func (l *AsyncLogger) Info(msg string, fields ...zap.Field)  { l.Log(zapcore.InfoLevel, msg, fields...) }
func (l *AsyncLogger) Warn(msg string, fields ...zap.Field)  { l.Log(zapcore.WarnLevel, msg, fields...) }

// Fatal logs synchronously (bypassing the queue) and terminates the
// process: invariant violations are not something the background drain
// loop should ever need to catch up to.
func (l *AsyncLogger) Fatal(msg string, fields ...zap.Field) {
	l.sink.Fatal(msg, fields...)
}

// drain empties the queue into the sink every drainInterval until Close is
// called, then performs one final drain before returning.
func (l *AsyncLogger) drain() {
	defer close(l.joinC)
	for {
		select {
		case <-l.done:
			l.flushAll()
			return
		default:
			l.flushAll()
			time.Sleep(drainInterval)
		}
	}
}

func (l *AsyncLogger) flushAll() {
	for {
		slot := l.q.NextToRead()
		if slot == nil {
			return
		}
		l.sink.Check(slot.level, slot.msg).Write(slot.fields[:slot.nfields]...)
		l.q.CommitRead()
	}
}

// Close waits for the queue to drain, then joins the background worker.
func (l *AsyncLogger) Close() {
	close(l.done)
	<-l.joinC
}
