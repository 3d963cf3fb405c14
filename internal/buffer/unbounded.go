// Package buffer provides an unbounded queue for concurrent streaming.
package buffer

import "sync"

// Unbounded is a queue whose Send never blocks, regardless of whether a
// consumer is reading. A background goroutine drains queued items to the
// receive channel, which closes after Close once the queue is empty.
//
//	buf := buffer.NewUnbounded[int]()
//	go func() {
//	    for v := range buf.Receive() {
//	        use(v)
//	    }
//	}()
//	buf.Send(1) // never blocks
//	buf.Close()
type Unbounded[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	out    chan T
}

// NewUnbounded returns a buffer ready for Send.
func NewUnbounded[T any]() *Unbounded[T] {
	b := &Unbounded[T]{
		queue: make([]T, 0, 32),
		out:   make(chan T, 1),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.drain()
	return b
}

func (b *Unbounded[T]) drain() {
	for {
		item, ok := b.next()
		if !ok {
			close(b.out)
			return
		}
		b.out <- item
	}
}

// next blocks until an item is available or the buffer is closed and empty.
func (b *Unbounded[T]) next() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.queue) == 0 {
		var zero T
		return zero, false
	}
	item := b.queue[0]
	b.queue = b.queue[1:]
	return item, true
}

// Send enqueues an item. It never blocks; sends after Close are dropped.
func (b *Unbounded[T]) Send(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, item)
	b.cond.Signal()
}

// Receive returns the channel items are drained to. It closes after Close
// once all queued items have been delivered.
func (b *Unbounded[T]) Receive() <-chan T {
	return b.out
}

// Close stops accepting items. Safe to call more than once.
func (b *Unbounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cond.Signal()
}

// Len reports the number of queued, undelivered items.
func (b *Unbounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
