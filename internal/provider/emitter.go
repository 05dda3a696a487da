package provider

import (
	"sort"
	"sync"
)

// Emitter fans a notification out to registered listeners. Handlers run
// synchronously on the emitting goroutine, in registration order, outside
// the emitter's lock so they may unsubscribe themselves.
type Emitter[T any] struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(T)
}

// Subscribe registers fn and returns its unsubscribe handle.
func (e *Emitter[T]) Subscribe(fn func(T)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.handlers[id] = fn
	return &subscription{cancel: func() { e.remove(id) }}
}

// Emit delivers v to every current listener.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.handlers))
	for id := range e.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.handlers[id])
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of live listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

func (e *Emitter[T]) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, id)
}

type subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe is idempotent.
func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}
