package evaluator

import (
	"sync"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/observability"
)

// Progress reports how many rows of a run have completed.
// Completed never decreases within a run.
type Progress struct {
	RunID     string         `json:"run_id"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	Row       int            `json:"row"`               // row that just completed
	Symbol    string         `json:"symbol,omitempty"`  // symbol of that row
	Outcome   domain.Outcome `json:"outcome,omitempty"` // outcome of that row
	Done      bool           `json:"done"`
}

// Fraction returns Completed / Total, or 1 for an empty run.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// DefaultSubscriberBuffer is the channel capacity given to each subscriber.
const DefaultSubscriberBuffer = 64

// Broadcaster fans progress events out to subscribers without blocking the
// publisher. A subscriber whose buffer is full misses that event.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Progress
	nextID int
	buffer int
}

// NewBroadcaster creates a Broadcaster. A non-positive buffer uses DefaultSubscriberBuffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:   make(map[int]chan Progress),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned cancel func unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Progress, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Progress, b.buffer)
	b.subs[id] = ch
	observability.SetProgressSubscribers(len(b.subs))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			observability.SetProgressSubscribers(len(b.subs))
		})
	}
	return ch, cancel
}

// Publish delivers p to every subscriber with buffer space.
func (b *Broadcaster) Publish(p Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unsubscribes everyone.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	observability.SetProgressSubscribers(0)
}
