package randomset

import (
	"io"
	"sync"
)

// Synchronized guards a Set with a single mutex. Random takes the same lock as
// the mutating operations since drawing advances the random source.
type Synchronized[T comparable] struct {
	mu  sync.Mutex
	set *Set[T]
}

func NewSynchronized[T comparable](opts ...Option) *Synchronized[T] {
	return &Synchronized[T]{set: New[T](opts...)}
}

func (s *Synchronized[T]) Insert(x T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Insert(x)
}

func (s *Synchronized[T]) Remove(x T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Remove(x)
}

func (s *Synchronized[T]) Contains(x T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Contains(x)
}

func (s *Synchronized[T]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Size()
}

func (s *Synchronized[T]) Random() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Random()
}

func (s *Synchronized[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Items()
}

func (s *Synchronized[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.Clear()
}

func (s *Synchronized[T]) Fprint(w io.Writer) error {
	return writeString(w, s.String()+"\n")
}

func (s *Synchronized[T]) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.String()
}
