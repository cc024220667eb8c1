// Package store provides context-aware RandomSet backends: in-process memory,
// Redis sets and SQL tables.
package store

import (
	"context"

	"github.com/amirrezaask/randomset/randomset"
)

var (
	ErrNotFound = randomset.ErrNotFound
	ErrEmpty    = randomset.ErrEmpty
)

type Store[T comparable] interface {
	// Insert adds x. Inserting a member is a no-op.
	Insert(ctx context.Context, x T) error
	// Remove deletes x, returning ErrNotFound when x is not a member.
	Remove(ctx context.Context, x T) error
	Contains(ctx context.Context, x T) (bool, error)
	Size(ctx context.Context) (int, error)
	// Random returns a uniformly chosen member, or ErrEmpty.
	Random(ctx context.Context) (T, error)
	Items(ctx context.Context) ([]T, error)
}
