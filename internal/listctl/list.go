// Package listctl keeps ordered collections of repeating form items, each
// with an opaque identity that survives inserts, removals and moves.
//
// Identities are bookkeeping only. Validation paths address items by
// position, never by key.
package listctl

import (
	"github.com/google/uuid"
)

// Key identifies an item for the lifetime of its list.
type Key string

// Item pairs a value with its identity.
type Item[T any] struct {
	Key   Key
	Value T
}

// Option configures a List.
type Option func(*options)

type options struct {
	newKey func() Key
}

// WithKeySource replaces the UUID generator, mostly for deterministic tests.
// The source must never repeat itself; List still guards against repeats.
func WithKeySource(next func() Key) Option {
	return func(o *options) {
		o.newKey = next
	}
}

func defaultKey() Key {
	return Key(uuid.NewString())
}

// List is an ordered collection. It is not safe for concurrent mutation; the
// editor owning it processes one event at a time.
type List[T any] struct {
	items  []Item[T]
	issued map[Key]struct{}
	newKey func() Key
}

func New[T any](opts ...Option) *List[T] {
	o := options{newKey: defaultKey}
	for _, opt := range opts {
		opt(&o)
	}
	return &List[T]{
		issued: make(map[Key]struct{}),
		newKey: o.newKey,
	}
}

// Append adds v at the end under a fresh key and returns that key.
func (l *List[T]) Append(v T) Key {
	key := l.fresh()
	l.items = append(l.items, Item[T]{Key: key, Value: v})
	return key
}

// Adopt appends v keeping an identity issued earlier, for example one echoed
// back by a submission. Empty or already used keys are replaced with a fresh
// one. The key actually used is returned.
func (l *List[T]) Adopt(key Key, v T) Key {
	if _, taken := l.issued[key]; key == "" || taken {
		key = l.fresh()
	} else {
		l.issued[key] = struct{}{}
	}
	l.items = append(l.items, Item[T]{Key: key, Value: v})
	return key
}

func (l *List[T]) fresh() Key {
	for {
		key := l.newKey()
		if _, taken := l.issued[key]; key == "" || taken {
			continue
		}
		l.issued[key] = struct{}{}
		return key
	}
}

// Remove drops the item with key. Its key is never handed out again.
func (l *List[T]) Remove(key Key) bool {
	i := l.Index(key)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

// Move places the item with key at position to, shifting the others.
func (l *List[T]) Move(key Key, to int) bool {
	from := l.Index(key)
	if from < 0 || to < 0 || to >= len(l.items) {
		return false
	}
	item := l.items[from]
	l.items = append(l.items[:from], l.items[from+1:]...)
	l.items = append(l.items[:to], append([]Item[T]{item}, l.items[to:]...)...)
	return true
}

// Index returns the current position of key, or -1.
func (l *List[T]) Index(key Key) int {
	for i, item := range l.items {
		if item.Key == key {
			return i
		}
	}
	return -1
}

func (l *List[T]) Get(key Key) (T, bool) {
	if i := l.Index(key); i >= 0 {
		return l.items[i].Value, true
	}
	var zero T
	return zero, false
}

// Update applies fn to the value stored under key.
func (l *List[T]) Update(key Key, fn func(*T)) bool {
	i := l.Index(key)
	if i < 0 {
		return false
	}
	fn(&l.items[i].Value)
	return true
}

func (l *List[T]) Len() int {
	return len(l.items)
}

// Items returns a copy of the items in order.
func (l *List[T]) Items() []Item[T] {
	out := make([]Item[T], len(l.items))
	copy(out, l.items)
	return out
}

// Values returns the values in order.
func (l *List[T]) Values() []T {
	out := make([]T, len(l.items))
	for i, item := range l.items {
		out[i] = item.Value
	}
	return out
}
