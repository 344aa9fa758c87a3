package events

import (
	"sync"

	"go.uber.org/zap"

	"orderboard/internal/domain"
)

// Broker fans committed order events out to SSE subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event and refetches the
// board on its next message.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan domain.OrderEvent
	nextID      uint64
	closed      bool
	bufferSize  int
	logger      *zap.Logger
}

func NewBroker(bufferSize int, logger *zap.Logger) *Broker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Broker{
		subscribers: make(map[uint64]chan domain.OrderEvent),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe returns a channel of events and a function that releases it.
// After Close the channel comes back already closed.
func (b *Broker) Subscribe() (<-chan domain.OrderEvent, func()) {
	ch := make(chan domain.OrderEvent, b.bufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Close ends every subscription so open event streams return.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	b.logger.Info("order event broker closed")
}

func (b *Broker) Publish(event domain.OrderEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("dropping order event for slow subscriber",
				zap.Uint64("subscriberId", id),
				zap.String("eventType", string(event.Type)),
				zap.Uint64("orderId", event.OrderID),
			)
		}
	}
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
