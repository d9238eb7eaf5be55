package history

import "sync"

// queue is a thread-safe FIFO ring that doubles its capacity when 70% full,
// up to max entries. Past max the oldest entry is overwritten.
type queue[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int
	count int
	max   int

	dropped int64
}

func newQueue[T any](initial, max int) *queue[T] {
	if max < 1 {
		max = 1
	}
	if initial < 1 {
		initial = 1
	}
	if initial > max {
		initial = max
	}
	return &queue[T]{buf: make([]T, initial), max: max}
}

// push appends item and returns the queue length afterwards.
func (q *queue[T]) push(item T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count >= q.max {
		// Full: overwrite the oldest.
		q.buf[q.head] = item
		q.head = (q.head + 1) % len(q.buf)
		q.dropped++
		return q.count
	}

	if threshold := max(len(q.buf)*70/100, 1); q.count+1 >= threshold && len(q.buf) < q.max {
		q.grow()
	}

	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
	return q.count
}

// drain removes up to n entries (all if n <= 0) in FIFO order.
func (q *queue[T]) drain(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}
	if n <= 0 || n > q.count {
		n = q.count
	}

	out := make([]T, n)
	var zero T
	for i := range n {
		out[i] = q.buf[q.head]
		q.buf[q.head] = zero
		q.head = (q.head + 1) % len(q.buf)
	}
	q.count -= n
	return out
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *queue[T]) droppedCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// grow doubles capacity, capped at max. Must be called with mu held.
func (q *queue[T]) grow() {
	size := min(len(q.buf)*2, q.max)
	buf := make([]T, size)
	for i := range q.count {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
