package store

import (
	"context"

	"github.com/amirrezaask/randomset/randomset"
)

type memoryStore[T comparable] struct {
	set *randomset.Synchronized[T]
}

func NewMemory[T comparable](opts ...randomset.Option) Store[T] {
	return &memoryStore[T]{
		set: randomset.NewSynchronized[T](opts...),
	}
}

func (m *memoryStore[T]) Insert(ctx context.Context, x T) error {
	m.set.Insert(x)
	return nil
}

func (m *memoryStore[T]) Remove(ctx context.Context, x T) error {
	return m.set.Remove(x)
}

func (m *memoryStore[T]) Contains(ctx context.Context, x T) (bool, error) {
	return m.set.Contains(x), nil
}

func (m *memoryStore[T]) Size(ctx context.Context) (int, error) {
	return m.set.Size(), nil
}

func (m *memoryStore[T]) Random(ctx context.Context) (T, error) {
	return m.set.Random()
}

func (m *memoryStore[T]) Items(ctx context.Context) ([]T, error) {
	return m.set.Items(), nil
}
