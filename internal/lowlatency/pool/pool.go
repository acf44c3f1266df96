// Package pool provides a fixed-capacity object pool that hands out stable
// slot indices instead of pointers, so intrusive structures built on top of
// it (price levels, orders) can embed prev/next links as plain integers.
//
// The hot path never touches the system allocator: New reserves a
// contiguous arena once, and Allocate/Deallocate only flip an in-use flag
// and zero the slot in place (Allocate then runs the caller's init function).
package pool

import "go.uber.org/zap"

// NilIndex is the reserved "no slot" index, analogous to a null pointer.
const NilIndex uint32 = ^uint32(0)

// Pool is a fixed-capacity arena of T, indexed by uint32 slot.
//
// Pool is not safe for concurrent use: callers on the matching-engine
// thread own it exclusively, same as the book and queues it backs.
type Pool[T any] struct {
	slots  []T
	used   []bool
	cursor uint32
	nUsed  int
	logger *zap.Logger
	name   string
}

// New reserves a pool of the given capacity. logger is used to report fatal
// exhaustion/corruption; name identifies the pool in those log lines (e.g.
// "orders[AAPL]", "priceLevels[AAPL]").
func New[T any](capacity int, name string, logger *zap.Logger) *Pool[T] {
	return &Pool[T]{
		slots:  make([]T, capacity),
		used:   make([]bool, capacity),
		logger: logger,
		name:   name,
	}
}

// Cap returns the pool's fixed capacity.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// Used returns the number of slots currently allocated.
func (p *Pool[T]) Used() int { return p.nUsed }

// Free returns the number of slots currently available.
func (p *Pool[T]) Free() int { return len(p.slots) - p.nUsed }

// Allocate finds a free slot, runs init in place on it, marks it in-use and
// returns its stable index. Exhaustion is fatal: pool capacities are sized
// for the worst case and running out indicates a misconfiguration, not a
// recoverable condition.
func (p *Pool[T]) Allocate(init func(*T)) uint32 {
	cap := uint32(len(p.slots))
	for i := uint32(0); i < cap; i++ {
		idx := (p.cursor + i) % cap
		if !p.used[idx] {
			p.used[idx] = true
			p.cursor = (idx + 1) % cap
			p.nUsed++
			var zero T
			p.slots[idx] = zero
			init(&p.slots[idx])
			return idx
		}
	}
	p.logger.Fatal("pool exhausted",
		zap.String("pool", p.name),
		zap.Int("capacity", len(p.slots)),
	)
	return NilIndex // unreachable: Fatal exits the process
}

// Deallocate returns a slot to the free set, zeroing it in place.
// Deallocating a slot that is not in use is a double-free and is fatal.
func (p *Pool[T]) Deallocate(idx uint32) {
	if idx == NilIndex || int(idx) >= len(p.slots) || !p.used[idx] {
		p.logger.Fatal("pool double-free or invalid slot",
			zap.String("pool", p.name),
			zap.Uint32("index", idx),
		)
		return
	}
	var zero T
	p.slots[idx] = zero
	p.used[idx] = false
	p.nUsed--
}

// At returns a pointer to the live value at idx. Callers must only pass
// indices they know to be in-use; this is the unchecked fast path.
func (p *Pool[T]) At(idx uint32) *T {
	return &p.slots[idx]
}

// InUse reports whether idx currently holds a live value.
func (p *Pool[T]) InUse(idx uint32) bool {
	return idx != NilIndex && int(idx) < len(p.slots) && p.used[idx]
}
