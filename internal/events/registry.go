// Package events implements the listener registries used to deliver decoded
// stream events to callers.
package events

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Listener receives events of type T.
type Listener[T any] func(event T)

// Handle identifies one registration. Unsubscribe is idempotent.
type Handle interface {
	Unsubscribe()
}

// Registry is a concurrent-safe set of listeners for one event type.
// Listeners run synchronously, in registration order, on the publishing
// goroutine. A panicking listener is recovered and logged; delivery to the
// remaining listeners continues.
type Registry[T any] struct {
	// topic names the registry in logs
	topic string

	// listenersMu protects listeners and nextID
	listenersMu sync.RWMutex
	listeners   []entry[T]
	nextID      uint64

	logger *logrus.Entry
}

type entry[T any] struct {
	id uint64
	fn Listener[T]
}

// NewRegistry creates an empty registry labelled with topic.
func NewRegistry[T any](topic string) *Registry[T] {
	return &Registry[T]{
		topic:  topic,
		logger: logrus.WithFields(logrus.Fields{"component": "events", "topic": topic}),
	}
}

// Subscribe registers fn and returns the handle that removes it.
func (r *Registry[T]) Subscribe(fn Listener[T]) Handle {
	if fn == nil {
		return handleFunc(func() {})
	}

	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, entry[T]{id: id, fn: fn})

	var once sync.Once
	return handleFunc(func() {
		once.Do(func() { r.remove(id) })
	})
}

func (r *Registry[T]) remove(id uint64) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	for i, e := range r.listeners {
		if e.id == id {
			// copy so in-flight Publish snapshots stay intact
			next := make([]entry[T], 0, len(r.listeners)-1)
			next = append(next, r.listeners[:i]...)
			r.listeners = append(next, r.listeners[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every listener registered at call time and
// returns the number of listeners that panicked.
func (r *Registry[T]) Publish(event T) int {
	r.listenersMu.RLock()
	snapshot := r.listeners
	r.listenersMu.RUnlock()

	failed := 0
	for _, e := range snapshot {
		if err := r.invoke(e.fn, event); err != nil {
			failed++
			r.logger.WithError(err).Error("Listener failed")
		}
	}
	return failed
}

func (r *Registry[T]) invoke(fn Listener[T], event T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panic: %v", p)
		}
	}()
	fn(event)
	return nil
}

// Len returns the number of registered listeners.
func (r *Registry[T]) Len() int {
	r.listenersMu.RLock()
	defer r.listenersMu.RUnlock()
	return len(r.listeners)
}

// Clear drops every listener.
func (r *Registry[T]) Clear() {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = nil
}

type handleFunc func()

func (h handleFunc) Unsubscribe() { h() }
