package api

import "sync"

// Invalidation describes why the cached session was dropped.
type Invalidation struct {
	Method string
	Path   string
	Reason string
}

// Events is the session-invalidated bus. The client publishes on every 401
// from an intercepted call; the session manager subscribes.
type Events struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Invalidation)
}

// NewEvents returns an empty bus.
func NewEvents() *Events {
	return &Events{subs: make(map[int]func(Invalidation))}
}

// Subscribe registers fn and returns a function that removes it.
func (e *Events) Subscribe(fn func(Invalidation)) (cancel func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Publish calls every subscriber on the caller's goroutine, in no
// particular order, after releasing the lock.
func (e *Events) Publish(inv Invalidation) {
	e.mu.RLock()
	fns := make([]func(Invalidation), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(inv)
	}
}
