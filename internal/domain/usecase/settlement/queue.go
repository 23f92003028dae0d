package settlement

import (
	"sync"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// IntentQueue is the bounded FIFO ingress to the settlement worker.
// Submit holds the mutex across the channel send, so dequeue order equals the order
// in which Submit calls return.
type IntentQueue struct {
	mu     sync.Mutex
	ch     chan *entity.Intent
	closed bool
}

// NewIntentQueue creates a queue holding at most capacity intents
func NewIntentQueue(capacity int) *IntentQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &IntentQueue{ch: make(chan *entity.Intent, capacity)}
}

// Submit enqueues an intent without blocking
func (q *IntentQueue) Submit(intent *entity.Intent) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", errs.ErrQueueClosed
	}
	select {
	case q.ch <- intent:
		return intent.ID(), nil
	default:
		return "", errs.ErrQueueSaturated
	}
}

// Intents is the consumer side; it is closed after Close once drained
func (q *IntentQueue) Intents() <-chan *entity.Intent {
	return q.ch
}

// Close stops accepting intents. Intents already accepted stay readable.
func (q *IntentQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Len returns the number of intents waiting
func (q *IntentQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity
func (q *IntentQueue) Cap() int {
	return cap(q.ch)
}
