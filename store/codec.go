package store

import (
	"github.com/amirrezaask/randomset/errors"
	jsoniter "github.com/json-iterator/go"
)

// Codec turns elements into the strings stored by remote backends. Equal
// elements must encode to equal strings.
type Codec[T any] interface {
	Encode(x T) (string, error)
	Decode(s string) (T, error)
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(x T) (string, error) {
	bs, err := json.Marshal(x)
	if err != nil {
		return "", errors.Wrap(err, "cannot encode element %v", x)
	}
	return string(bs), nil
}

func (JSONCodec[T]) Decode(s string) (T, error) {
	var x T
	if err := json.UnmarshalFromString(s, &x); err != nil {
		return x, errors.Wrap(err, "cannot decode element %q", s)
	}
	return x, nil
}
