package bridge

import (
	"sync"

	"keybridge/internal/event"
)

// Subscriptions fan delivered events out to additional consumers beside
// the primary handler. Sends are non-blocking: a subscriber whose channel
// is full misses the event, and the miss is counted in the bridge stats.
// Fan-out happens on the dispatch goroutine, after the handler call, so a
// single subscriber sees events in delivery order.
//
// Subscriber channels are owned by the caller and are never closed by the
// bridge.

type subscriber struct {
	id     string
	ch     chan<- event.Event
	filter *event.Type // nil means all event types
}

type subscribers struct {
	mu   sync.RWMutex
	list []subscriber
}

// Subscribe registers ch to receive every delivered event.
func (b *Bridge) Subscribe(id string, ch chan<- event.Event) error {
	return b.subs.add(subscriber{id: id, ch: ch})
}

// SubscribePressed registers ch to receive key-press events only.
func (b *Bridge) SubscribePressed(id string, ch chan<- event.Event) error {
	t := event.Press
	return b.subs.add(subscriber{id: id, ch: ch, filter: &t})
}

// SubscribeReleased registers ch to receive key-release events only.
func (b *Bridge) SubscribeReleased(id string, ch chan<- event.Event) error {
	t := event.Release
	return b.subs.add(subscriber{id: id, ch: ch, filter: &t})
}

// Unsubscribe removes a subscriber by id.
func (b *Bridge) Unsubscribe(id string) error {
	return b.subs.remove(id)
}

func (s *subscribers) add(sub subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.list {
		if existing.id == sub.id {
			return ErrSubscriberExists
		}
	}
	s.list = append(s.list, sub)
	return nil
}

func (s *subscribers) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.list {
		if sub.id == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return nil
		}
	}
	return ErrSubscriberNotFound
}

// publish sends ev to every matching subscriber without blocking and
// returns the number of skipped sends.
func (s *subscribers) publish(ev event.Event) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skipped := 0
	for _, sub := range s.list {
		if sub.filter != nil && *sub.filter != ev.Type {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			skipped++
		}
	}
	return skipped
}
