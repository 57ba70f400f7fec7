// Package closer shuts down a group of resources in reverse order of
// registration.
package closer

import (
	"errors"
	"sync"
)

type (
	Closer interface {
		Close() error
	}

	// CloserFunc adapts a function to Closer
	CloserFunc func() error

	CloserGroup struct {
		mu      sync.Mutex
		closers []Closer
	}
)

func (f CloserFunc) Close() error {
	return f()
}

func NewCloserGroup(closers ...Closer) *CloserGroup {
	return &CloserGroup{
		closers: closers,
	}
}

// Add registers c after the closers already in the group.
func (c *CloserGroup) Add(closers ...Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closers = append(c.closers, closers...)
}

// Close closes everything, the most recently added first, and joins the
// errors. A closed group is empty.
func (c *CloserGroup) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
