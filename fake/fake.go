// Package fake generates distinct elements for tests.
package fake

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
)

// Faker returns a gofakeit generator. A zero seed gives a random sequence.
func Faker(seed uint64) *gofakeit.Faker {
	return gofakeit.New(seed)
}

// Words returns n distinct words.
func Words(n int) []string {
	f := gofakeit.New(0)
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		w := f.Word()
		if _, dup := seen[w]; dup {
			// the dictionary is finite, suffix to keep going
			w = fmt.Sprintf("%s-%d", w, len(out))
			if _, dup := seen[w]; dup {
				continue
			}
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}

	return out
}

// Int64s returns n distinct integers.
func Int64s(n int) []int64 {
	f := gofakeit.New(0)
	seen := make(map[int64]struct{}, n)
	out := make([]int64, 0, n)
	for len(out) < n {
		v := f.Int64()
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}

// Amount returns an integer in [min, max].
func Amount(min, max int) int {
	return gofakeit.Number(min, max)
}
