package store

import (
	"context"

	"github.com/amirrezaask/randomset/errors"
	"github.com/redis/go-redis/v9"
)

// redisStore keeps the elements in a single Redis set. Every operation maps to
// one command, so a failed Remove never mutates the set.
type redisStore[T comparable] struct {
	*redis.Client
	key   string
	codec Codec[T]
}

func NewRedis[T comparable](client *redis.Client, key string, codec Codec[T]) Store[T] {
	if codec == nil {
		codec = JSONCodec[T]{}
	}
	return &redisStore[T]{
		Client: client,
		key:    key,
		codec:  codec,
	}
}

func (r *redisStore[T]) Insert(ctx context.Context, x T) error {
	member, err := r.codec.Encode(x)
	if err != nil {
		return err
	}
	return errors.Wrap(r.SAdd(ctx, r.key, member).Err(), "error in redis store insert")
}

func (r *redisStore[T]) Remove(ctx context.Context, x T) error {
	member, err := r.codec.Encode(x)
	if err != nil {
		return err
	}
	removed, err := r.SRem(ctx, r.key, member).Result()
	if err != nil {
		return errors.Wrap(err, "error in redis store remove")
	}
	if removed == 0 {
		return errors.Wrap(ErrNotFound, "cannot remove %v", x)
	}

	return nil
}

func (r *redisStore[T]) Contains(ctx context.Context, x T) (bool, error) {
	member, err := r.codec.Encode(x)
	if err != nil {
		return false, err
	}
	ok, err := r.SIsMember(ctx, r.key, member).Result()
	return ok, errors.Wrap(err, "error in redis store contains")
}

func (r *redisStore[T]) Size(ctx context.Context) (int, error) {
	n, err := r.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "error in redis store size")
	}
	return int(n), nil
}

func (r *redisStore[T]) Random(ctx context.Context) (T, error) {
	var zero T
	member, err := r.SRandMember(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return zero, ErrEmpty
	}
	if err != nil {
		return zero, errors.Wrap(err, "error in redis store random")
	}

	return r.codec.Decode(member)
}

func (r *redisStore[T]) Items(ctx context.Context) ([]T, error) {
	members, err := r.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "error in redis store items")
	}
	out := make([]T, 0, len(members))
	for _, m := range members {
		x, err := r.codec.Decode(m)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}

	return out, nil
}
