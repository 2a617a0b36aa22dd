package command

import "sync"

// Queue is an unbounded FIFO safe for concurrent producers. The tick loop is
// the only consumer.
type Queue struct {
	mu    sync.Mutex
	items []Envelope
}

// NewQueue returns an empty queue.
func NewQueue() *Queue { return &Queue{} }

// Push enqueues cmd and returns its envelope.
func (q *Queue) Push(cmd Command, source string) Envelope {
	env := Wrap(cmd, source)
	q.mu.Lock()
	q.items = append(q.items, env)
	q.mu.Unlock()
	return env
}

// Drain removes and returns every queued envelope in submission order.
func (q *Queue) Drain() []Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the current backlog.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
