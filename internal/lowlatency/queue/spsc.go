// Package queue implements a wait-free single-producer/single-consumer ring
// queue of fixed-size records, "borrow slot" style: the producer writes
// directly into the slot returned by NextToWrite and publishes it with
// CommitWrite; the consumer reads the slot returned by NextToRead and
// releases it with CommitRead.
//
// There is no ordering guarantee across distinct queues, only within one:
// the consumer observes writes in the order the producer committed them.
// Capacity is fixed at construction and is a static, unenforced contract
// between exactly one producer goroutine and exactly one consumer goroutine.
package queue

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// cacheLinePad is sized to separate hot counters onto their own cache lines,
// preventing false sharing between the producer's writePos and the
// consumer's readPos.
const cacheLinePad = 64 - 8

// SPSC is a fixed-capacity ring buffer of T for exactly one producer and one
// consumer goroutine. Capacity must be sized so the producer never laps the
// consumer; NextToWrite does not itself check for overflow, the caller
// guarantees capacity is never exceeded.
type SPSC[T any] struct {
	buf  []T
	mask uint64

	_        [cacheLinePad]byte
	writePos atomic.Uint64
	_        [cacheLinePad]byte
	readPos  atomic.Uint64
	_        [cacheLinePad]byte

	logger *zap.Logger
	name   string
}

// New creates a queue of the given capacity, which must be a power of two
// so slot indices can be computed with a bitmask instead of a modulo.
func New[T any](capacity int, name string, logger *zap.Logger) *SPSC[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		logger.Fatal("queue capacity must be a power of two",
			zap.String("queue", name), zap.Int("capacity", capacity))
	}
	return &SPSC[T]{
		buf:    make([]T, capacity),
		mask:   uint64(capacity - 1),
		logger: logger,
		name:   name,
	}
}

// NextToWrite returns a pointer to the slot the producer should write into.
// The pointer is always valid; if the queue is full the slot aliases one
// not yet consumed and the write silently overwrites it — capacity must be
// sized to make that unreachable in practice.
func (q *SPSC[T]) NextToWrite() *T {
	return &q.buf[q.writePos.Load()&q.mask]
}

// CommitWrite publishes the slot last returned by NextToWrite. Writes to
// the slot's memory happen-before this call is observed by the consumer.
func (q *SPSC[T]) CommitWrite() {
	q.writePos.Add(1)
}

// NextToRead returns a pointer to the next unread slot, or nil if the queue
// is empty.
func (q *SPSC[T]) NextToRead() *T {
	if q.writePos.Load() == q.readPos.Load() {
		return nil
	}
	return &q.buf[q.readPos.Load()&q.mask]
}

// CommitRead releases the slot last returned by NextToRead. Reading the
// slot's memory happens-before this call. Calling it with nothing pending
// is a logic error and is fatal.
func (q *SPSC[T]) CommitRead() {
	read := q.readPos.Load()
	if read == q.writePos.Load() {
		q.logger.Fatal("queue read-index underflow", zap.String("queue", q.name))
	}
	q.readPos.Store(read + 1)
}

// Size returns the observable number of records pending consumption.
func (q *SPSC[T]) Size() int {
	return int(q.writePos.Load() - q.readPos.Load())
}

// Cap returns the queue's fixed capacity.
func (q *SPSC[T]) Cap() int {
	return len(q.buf)
}
