package store

import "github.com/vkuksa/supermarkets/internal/model"

// subscriberBuffer is the per-subscriber event channel capacity. Slow
// subscribers drop events rather than block store operations.
const subscriberBuffer = 16

// Subscribe registers for change events emitted after successful
// mutations. The returned cancel function must be called to release the
// subscription; the channel is closed by it.
func (s *Store) Subscribe() (<-chan model.ChangeEvent, func()) {
	ch := make(chan model.ChangeEvent, subscriberBuffer)

	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subsMu.Unlock()
	}

	return ch, cancel
}

// publish delivers an event to all subscribers without blocking.
func (s *Store) publish(ev model.ChangeEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
