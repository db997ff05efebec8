package updater

import "sync"

// stream is a typed publish/subscribe channel. Subscribing returns an
// unsubscribe handle; publication invokes handlers in registration order.
type stream[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []streamSub[T]
}

type streamSub[T any] struct {
	id int
	fn func(T)
}

// subscribe registers fn and returns a function that removes it.
func (s *stream[T]) subscribe(fn func(T)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, streamSub[T]{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.subs {
			if s.subs[i].id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// publish delivers v to all current subscribers.
func (s *stream[T]) publish(v T) {
	s.mu.Lock()
	subs := append([]streamSub[T](nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}
