// Package ring provides the bounded circular buffer that hands samples from the
// producer to the consumer.
//
// The buffer keeps one slot permanently empty so that head == tail always
// means empty and (tail+1) mod capacity == head always means full; there is no
// separate element count. A Buffer created with capacity C therefore holds at
// most C-1 values.
//
// Push blocks while the buffer is full and Pop blocks while it is empty. Both
// honor context cancellation and return ErrBufferClosed once Destroy has been
// called. Snapshot never blocks and never changes the buffer.
package ring

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/ringplot/internal/errors"
)

// MaxCapacity is the largest capacity New accepts.
const MaxCapacity = 1 << 26

// Slot is one occupied position of the ring: its absolute index into the
// storage and the value held there.
type Slot[T any] struct {
	Index int
	Value T
}

// Buffer is a fixed-capacity FIFO ring shared by one producer and one
// consumer. All methods are safe for concurrent use.
type Buffer[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond // "has space"
	notEmpty *sync.Cond // "has data"

	storage  []T
	capacity int
	head     int // next slot to pop
	tail     int // next slot to push
	closed   bool
}

// New allocates a buffer with the given number of physical slots.
// It returns an *errors.AllocationError when capacity is below 2, above
// MaxCapacity, or the storage cannot be obtained.
func New[T any](capacity int) (b *Buffer[T], err error) {
	if capacity < 2 {
		return nil, errors.NewAllocationError(capacity, errors.ErrCapacityTooSmall)
	}
	if capacity > MaxCapacity {
		return nil, errors.NewAllocationError(capacity, errors.ErrCapacityTooLarge)
	}

	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = errors.NewAllocationError(capacity, fmt.Errorf("%v", r))
		}
	}()

	b = &Buffer[T]{
		storage:  make([]T, capacity),
		capacity: capacity,
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)
	return b, nil
}

func (b *Buffer[T]) fullLocked() bool {
	return (b.tail+1)%b.capacity == b.head
}

func (b *Buffer[T]) emptyLocked() bool {
	return b.head == b.tail
}

// wakeAll wakes every waiter so it can re-check its predicate, the context
// and the closed flag.
func (b *Buffer[T]) wakeAll() {
	b.mu.Lock()
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
	b.mu.Unlock()
}

// waitLocked blocks on cond while blocked() holds. It must be called with mu
// held and returns with mu held.
func (b *Buffer[T]) waitLocked(ctx context.Context, cond *sync.Cond, blocked func() bool) error {
	if b.closed {
		return errors.ErrBufferClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !blocked() {
		return nil
	}

	// Broadcast under the lock so a cancellation between the ctx check and
	// cond.Wait is not lost.
	stop := context.AfterFunc(ctx, b.wakeAll)
	defer stop()

	for blocked() {
		cond.Wait()
		if b.closed {
			return errors.ErrBufferClosed
		}
		if err := ctx.Err(); err != nil {
			// Hand a wake-up we may have consumed to the next waiter.
			if !blocked() {
				cond.Signal()
			}
			return err
		}
	}
	return nil
}

// Push appends value at the tail, blocking while the buffer is full.
func (b *Buffer[T]) Push(ctx context.Context, value T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.waitLocked(ctx, b.notFull, b.fullLocked); err != nil {
		return err
	}

	b.storage[b.tail] = value
	b.tail = (b.tail + 1) % b.capacity
	b.notEmpty.Signal()
	return nil
}

// Pop removes and returns the value at the head, blocking while the buffer is
// empty.
func (b *Buffer[T]) Pop(ctx context.Context) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if err := b.waitLocked(ctx, b.notEmpty, b.emptyLocked); err != nil {
		return zero, err
	}
	return b.popLocked(), nil
}

// TryPop removes and returns the head value if one is present.
func (b *Buffer[T]) TryPop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.emptyLocked() {
		var zero T
		return zero, false
	}
	return b.popLocked(), true
}

func (b *Buffer[T]) popLocked() T {
	var zero T
	value := b.storage[b.head]
	b.storage[b.head] = zero
	b.head = (b.head + 1) % b.capacity
	b.notFull.Signal()
	return value
}

// Snapshot returns the occupied slots from head up to, but excluding, tail in
// ring order. It returns nil once the buffer is destroyed.
func (b *Buffer[T]) Snapshot() []Slot[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	return b.appendSlotsLocked(make([]Slot[T], 0, b.lenLocked()))
}

// SnapshotInto is Snapshot that reuses dst's backing array.
func (b *Buffer[T]) SnapshotInto(dst []Slot[T]) []Slot[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst = dst[:0]
	if b.closed {
		return dst
	}
	return b.appendSlotsLocked(dst)
}

func (b *Buffer[T]) appendSlotsLocked(dst []Slot[T]) []Slot[T] {
	for i := b.head; i != b.tail; i = (i + 1) % b.capacity {
		dst = append(dst, Slot[T]{Index: i, Value: b.storage[i]})
	}
	return dst
}

// Destroy releases the storage and wakes every blocked Push and Pop, which then
// return ErrBufferClosed. Calling it again has no effect.
func (b *Buffer[T]) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.storage = nil
	b.head, b.tail = 0, 0
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
}

// Closed reports whether Destroy has been called.
func (b *Buffer[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the number of values currently held.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

func (b *Buffer[T]) lenLocked() int {
	return (b.tail - b.head + b.capacity) % b.capacity
}

// Cap returns the number of physical slots.
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// Usable returns the maximum number of values the buffer can hold, Cap()-1.
func (b *Buffer[T]) Usable() int {
	return b.capacity - 1
}
