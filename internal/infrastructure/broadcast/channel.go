// Package broadcast provides a most-recent-value multicast channel.
//
// A Channel holds the latest published value and an ordered registry of
// listeners. Every Publish replaces the value and notifies listeners
// synchronously, in registration order, on the publishing goroutine. A
// listener registered after a publish is handed the current value right away,
// so early and late subscribers observe the same snapshot.
//
// Subscriptions must be released with Close when the owning view goes away.
package broadcast

import (
	"sync"
)

type Listener[T any] func(T)

type settings struct {
	onPublish func(name string)
}

type Option func(*settings)

// WithPublishHook is called once per publish, before listeners run.
func WithPublishHook(fn func(name string)) Option {
	return func(s *settings) {
		s.onPublish = fn
	}
}

type Channel[T any] struct {
	name string
	cfg  settings

	// pubMu serializes publishes so listeners see one total order.
	pubMu sync.Mutex

	mu        sync.RWMutex
	value     T
	hasValue  bool
	nextID    uint64
	listeners []*Subscription[T]
	closed    bool
}

func New[T any](name string, opts ...Option) *Channel[T] {
	c := &Channel[T]{name: name}
	for _, o := range opts {
		o(&c.cfg)
	}
	return c
}

func (c *Channel[T]) Name() string {
	return c.name
}

// Value returns the last published value.
func (c *Channel[T]) Value() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.hasValue
}

// Publish stores v and notifies every active listener. Listeners must not
// call Publish or Subscribe on the same channel; closing their own or any
// other subscription is fine.
func (c *Channel[T]) Publish(v T) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.value = v
	c.hasValue = true
	listeners := make([]*Subscription[T], len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	if c.cfg.onPublish != nil {
		c.cfg.onPublish(c.name)
	}

	for _, l := range listeners {
		l.deliver(v)
	}
}

// Subscribe registers fn. If a value has been published, fn is called with it
// before Subscribe returns.
func (c *Channel[T]) Subscribe(fn Listener[T]) *Subscription[T] {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	sub := &Subscription[T]{id: c.nextID, ch: c, fn: fn}
	c.nextID++
	if c.closed {
		sub.released = true
		c.mu.Unlock()
		return sub
	}
	c.listeners = append(c.listeners, sub)
	v, ok := c.value, c.hasValue
	c.mu.Unlock()

	if ok {
		sub.deliver(v)
	}
	return sub
}

// Len reports the number of active subscriptions.
func (c *Channel[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

// Close releases every subscription. Later publishes are ignored.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	listeners := c.listeners
	c.listeners = nil
	c.closed = true
	c.mu.Unlock()

	for _, l := range listeners {
		l.markReleased()
	}
}

func (c *Channel[T]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

type Subscription[T any] struct {
	id uint64
	ch *Channel[T]
	fn Listener[T]

	mu       sync.Mutex
	released bool
}

func (s *Subscription[T]) deliver(v T) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return
	}
	s.fn(v)
}

func (s *Subscription[T]) markReleased() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// Close releases the subscription. It is safe to call more than once and
// from inside the listener itself.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()
	s.ch.remove(s.id)
}

func (s *Subscription[T]) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
