// Package views renders the published state to a terminal. Each view owns
// its subscriptions and releases them on Close.
package views

import (
	"fmt"
	"io"
	"sync"
)

// Console serializes writes from views and the command loop.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// Render runs fn with exclusive access to the writer.
func (c *Console) Render(fn func(w io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.w)
}

// Scope releases everything added to it, last first. Close is idempotent.
type Scope struct {
	mu      sync.Mutex
	closers []func()
}

func (s *Scope) Add(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

func (s *Scope) Close() {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
