package parallel

// Buffers holds one append-only slice per worker. Each worker touches only
// its own slot; Merge must run after the pool has been waited on.
type Buffers[T any] struct {
	parts [][]T
}

// NewBuffers allocates buffers for the given worker count.
func NewBuffers[T any](workers int) *Buffers[T] {
	if workers <= 0 {
		workers = 1
	}
	return &Buffers[T]{parts: make([][]T, workers)}
}

// Append adds v to the buffer of worker.
func (b *Buffers[T]) Append(worker int, v T) {
	b.parts[worker] = append(b.parts[worker], v)
}

// Merge concatenates all buffers in worker order.
func (b *Buffers[T]) Merge() []T {
	n := 0
	for _, p := range b.parts {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range b.parts {
		out = append(out, p...)
	}
	return out
}
