package monitor

// ring is a fixed-capacity drop-oldest buffer. Not safe for concurrent use;
// owners guard it with their own mutex.
type ring[T any] struct {
	buf   []T
	head  int // oldest element
	count int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

// push appends an item, evicting the oldest when full.
func (r *ring[T]) push(item T) {
	tail := (r.head + r.count) % len(r.buf)
	r.buf[tail] = item
	if r.count < len(r.buf) {
		r.count++
		return
	}
	// Full: the slot we just wrote was the oldest.
	r.head = (r.head + 1) % len(r.buf)
}

// items returns the buffered entries, oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

func (r *ring[T]) len() int {
	return r.count
}
