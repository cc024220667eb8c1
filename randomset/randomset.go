// Package randomset implements a set that supports constant time insertion,
// removal and uniform random selection of its elements.
//
// Elements live in a dense slice (the pick list) so that a random position can
// be drawn directly, and a map records the position of every element so that an
// arbitrary element can be found and swapped with the last slot before the slice
// is shrunk by one.
package randomset

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/amirrezaask/randomset/errors"
	"github.com/davecgh/go-spew/spew"
)

var (
	ErrNotFound = errors.New("element not found")
	ErrEmpty    = errors.New("set is empty")
)

// Set is a collection of unique elements. The zero value is not usable, create
// sets with New. A Set is not safe for concurrent use, see Synchronized.
type Set[T comparable] struct {
	index map[T]int
	items []T
	rng   *rand.Rand
}

type Option func(*options)

type options struct {
	source   rand.Source
	capacity int
}

// NewSource returns the deterministic source WithSeed installs.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// WithSeed makes the sequence returned by Random reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.source = NewSource(seed)
	}
}

// WithSource makes Random draw from src.
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithCapacity preallocates room for n elements.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

func New[T comparable](opts ...Option) *Set[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if o.capacity < 0 {
		o.capacity = 0
	}

	return &Set[T]{
		index: make(map[T]int, o.capacity),
		items: make([]T, 0, o.capacity),
		rng:   rand.New(o.source),
	}
}

// Insert adds x at the end of the pick list. Inserting a member is a no-op.
// It reports whether x was added.
func (s *Set[T]) Insert(x T) bool {
	if _, exists := s.index[x]; exists {
		return false
	}
	s.index[x] = len(s.items)
	s.items = append(s.items, x)

	return true
}

// Remove deletes x by moving the last element into its slot. The set is left
// untouched when x is not a member.
func (s *Set[T]) Remove(x T) error {
	p, exists := s.index[x]
	if !exists {
		return errors.Wrap(ErrNotFound, "cannot remove %v", x)
	}

	last := len(s.items) - 1
	moved := s.items[last]
	s.items[p] = moved
	s.index[moved] = p

	delete(s.index, x)
	var zero T
	s.items[last] = zero
	s.items = s.items[:last]

	return nil
}

func (s *Set[T]) Contains(x T) bool {
	_, exists := s.index[x]
	return exists
}

func (s *Set[T]) Size() int {
	return len(s.index)
}

// Random returns an element drawn uniformly from the set.
func (s *Set[T]) Random() (T, error) {
	if len(s.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}

	return s.items[s.rng.IntN(len(s.items))], nil
}

// Items returns a copy of the elements in pick-list order.
func (s *Set[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Set[T]) Clear() {
	clear(s.index)
	clear(s.items)
	s.items = s.items[:0]
}

// Fprint writes the elements as {e1,e2,...,en} followed by a newline.
func (s *Set[T]) Fprint(w io.Writer) error {
	return writeString(w, s.String()+"\n")
}

func writeString(w io.Writer, str string) error {
	_, err := io.WriteString(w, str)
	return errors.Wrap(err, "cannot print random set")
}

func (s *Set[T]) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, x := range s.items {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprint(&sb, x)
	}
	sb.WriteByte('}')

	return sb.String()
}

// Dump writes the pick list and the index for debugging.
func (s *Set[T]) Dump(w io.Writer) {
	spew.Fdump(w, struct {
		Items []T
		Index map[T]int
	}{s.items, s.index})
}
