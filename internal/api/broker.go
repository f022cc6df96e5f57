package api

import "sync"

// Event is one schedule lifecycle notification streamed to subscribers.
type Event struct {
	Type string         `json:"type"` // schedule.generated, schedule.applied
	Date string         `json:"date"`
	Data map[string]any `json:"data,omitempty"`
}

// EventBroker fans schedule events out to websocket subscribers, keyed by
// schedule date.
type EventBroker interface {
	Subscribe(date string) chan Event
	Unsubscribe(date string, ch chan Event)
	Publish(date string, evt Event)
}

// Broker is the in-memory default.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(date string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[date] == nil {
		b.subs[date] = map[chan Event]struct{}{}
	}
	b.subs[date][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(date string, ch chan Event) {
	b.mu.Lock()
	if m := b.subs[date]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, date)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(date string, evt Event) {
	b.mu.Lock()
	for ch := range b.subs[date] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
