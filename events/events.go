// Package events announces changes of a store to a message broker.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/store"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	OpInsert = "insert"
	OpRemove = "remove"
)

type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

type Event[T any] struct {
	Op        string    `json:"op"`
	Namespace string    `json:"namespace"`
	Element   T         `json:"element"`
	At        time.Time `json:"at"`
}

// RoutingKey is the key events of op are published with, e.g. randomset.insert.
func RoutingKey(op string) string {
	return "randomset." + op
}

type publishing[T comparable] struct {
	store.Store[T]
	publisher Publisher
	namespace string
	now       func() time.Time
}

// Publishing publishes an Event after every successful Insert and Remove of s.
// Publishing failures are logged and do not fail the operation, which has
// already been applied.
func Publishing[T comparable](s store.Store[T], p Publisher, namespace string) store.Store[T] {
	return &publishing[T]{
		Store:     s,
		publisher: p,
		namespace: namespace,
		now:       time.Now,
	}
}

func (p *publishing[T]) Insert(ctx context.Context, x T) error {
	if err := p.Store.Insert(ctx, x); err != nil {
		return err
	}
	p.publish(ctx, OpInsert, x)
	return nil
}

func (p *publishing[T]) Remove(ctx context.Context, x T) error {
	if err := p.Store.Remove(ctx, x); err != nil {
		return err
	}
	p.publish(ctx, OpRemove, x)
	return nil
}

func (p *publishing[T]) publish(ctx context.Context, op string, x T) {
	body, err := json.Marshal(Event[T]{Op: op, Namespace: p.namespace, Element: x, At: p.now()})
	if err != nil {
		slog.Error("cannot encode store event", "op", op, "err", err)
		return
	}
	if err := p.publisher.Publish(ctx, RoutingKey(op), body); err != nil {
		slog.Error("cannot publish store event", "op", op, "err", errors.Wrap(err, "namespace %s", p.namespace))
	}
}
