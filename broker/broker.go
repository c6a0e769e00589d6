// Package broker fans out proxy events to any number of subscribers (the
// web UI's SSE stream, the terminal tap client, hot-key alerting) without
// letting a slow subscriber block the proxy that publishes them.
package broker

import "github.com/halvorsen/memcached-relay/proxy"

// Broker is a non-blocking pub/sub fan-out for proxy.Event.
type Broker struct {
	capacity int
	sub      chan chan proxy.Event
	unsub    chan chan proxy.Event
	publish  chan proxy.Event
}

// New creates a Broker whose per-subscriber channels are buffered to
// capacity. A subscriber that falls behind that buffer drops events rather
// than backpressuring the publisher.
func New(capacity int) *Broker {
	b := &Broker{
		capacity: capacity,
		sub:      make(chan chan proxy.Event),
		unsub:    make(chan chan proxy.Event),
		publish:  make(chan proxy.Event, capacity),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	subscribers := make(map[chan proxy.Event]bool)
	for {
		select {
		case ch := <-b.sub:
			subscribers[ch] = true
		case ch := <-b.unsub:
			delete(subscribers, ch)
			close(ch)
		case ev := <-b.publish:
			for ch := range subscribers {
				select {
				case ch <- ev:
				default:
				}
			}
		}
	}
}

// Publish delivers ev to every current subscriber. It never blocks on the
// proxy's behalf: if the broker's internal queue is full, the event is
// dropped.
func (b *Broker) Publish(ev proxy.Event) {
	select {
	case b.publish <- ev:
	default:
	}
}

// Subscribe registers a new subscriber and returns its event channel along
// with an unsubscribe function that must be called when the subscriber is
// done listening.
func (b *Broker) Subscribe() (<-chan proxy.Event, func()) {
	ch := make(chan proxy.Event, b.capacity)
	b.sub <- ch
	return ch, func() {
		b.unsub <- ch
	}
}
