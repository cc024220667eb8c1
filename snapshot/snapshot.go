// Package snapshot copies the contents of a store to and from object storage.
package snapshot

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/store"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotFound = errors.New("snapshot not found")

type Blob interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// Get returns ErrNotFound when there is no object called name.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}

type Snapshot[T any] struct {
	Namespace string    `json:"namespace"`
	TakenAt   time.Time `json:"taken_at"`
	Elements  []T       `json:"elements"`
}

// Save writes every element of s to the object called name and returns how
// many were written.
func Save[T comparable](ctx context.Context, s store.Store[T], b Blob, name, namespace string) (int, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "cannot read elements for snapshot %s", name)
	}
	if items == nil {
		items = []T{}
	}

	bs, err := json.Marshal(Snapshot[T]{Namespace: namespace, TakenAt: time.Now().UTC(), Elements: items})
	if err != nil {
		return 0, errors.Wrap(err, "cannot encode snapshot %s", name)
	}
	if err := b.Put(ctx, name, bytes.NewReader(bs), int64(len(bs))); err != nil {
		return 0, err
	}

	return len(items), nil
}

// Restore inserts every element of the snapshot called name into s. Elements
// already in s are left as they are.
func Restore[T comparable](ctx context.Context, s store.Store[T], b Blob, name string) (Snapshot[T], error) {
	var snap Snapshot[T]
	r, err := b.Get(ctx, name)
	if err != nil {
		return snap, err
	}
	defer r.Close()

	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return snap, errors.Wrap(err, "cannot decode snapshot %s", name)
	}
	for _, x := range snap.Elements {
		if err := s.Insert(ctx, x); err != nil {
			return snap, errors.Wrap(err, "cannot restore snapshot %s", name)
		}
	}

	return snap, nil
}
