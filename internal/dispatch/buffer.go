package dispatch

import (
	"sync"
)

// GrowableBuffer is a thread-safe queue that automatically doubles its
// capacity when it reaches 70% full. Processors drain it in batches, so it
// absorbs feed bursts without dropping messages.
type GrowableBuffer[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool
}

// NewGrowableBuffer creates a new buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &GrowableBuffer[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send adds an item to the buffer, growing it when near capacity.
// Returns false if the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++

	b.cond.Signal()
	return true
}

// Receive removes and returns an item, blocking until one is available or
// the buffer is closed and drained.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 && b.closed {
		var zero T
		return zero, false
	}

	return b.takeLocked(), true
}

// TryReceive attempts to receive without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.takeLocked(), true
}

// DrainTo removes up to max items (all items when max <= 0) and returns them.
func (b *GrowableBuffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = b.takeLocked()
	}
	return result
}

// Close closes the buffer. After closing, Send returns false and receivers
// drain the remaining items before seeing the closed signal.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the current number of queued items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// takeLocked removes the head item. Must be called with the lock held and
// count > 0.
func (b *GrowableBuffer[T]) takeLocked() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero // clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	return item
}

// grow doubles the buffer capacity. Must be called with the lock held.
func (b *GrowableBuffer[T]) grow() {
	newCapacity := b.capacity * 2
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
}
