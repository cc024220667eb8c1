package randomset

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/fake"
	"github.com/matryer/is"
)

// assertBijection checks that the index and the pick list describe each other.
func assertBijection[T comparable](is *is.I, s *Set[T]) {
	is.Helper()
	is.Equal(s.Size(), len(s.items))
	is.Equal(len(s.index), len(s.items))
	for p, x := range s.items {
		pos, ok := s.index[x]
		is.True(ok)   // element in pick list missing from index
		is.Equal(pos, p)
	}
}

func TestInsert(t *testing.T) {
	t.Run("appends in insertion order", func(t *testing.T) {
		is := is.New(t)
		s := New[int64]()
		for _, x := range []int64{1, 3, 6, 8} {
			is.True(s.Insert(x))
		}
		is.Equal(s.Items(), []int64{1, 3, 6, 8})
		is.Equal(s.Size(), 4)
		assertBijection(is, s)
	})

	t.Run("inserting a member twice is a no-op", func(t *testing.T) {
		is := is.New(t)
		s := New[string]()
		is.True(s.Insert("a"))
		is.True(!s.Insert("a"))
		is.Equal(s.Size(), 1)
		is.True(s.Contains("a"))
		is.Equal(s.Items(), []string{"a"})
		assertBijection(is, s)
	})
}

func TestRemove(t *testing.T) {
	t.Run("last element is swapped into the hole", func(t *testing.T) {
		is := is.New(t)
		s := New[int64]()
		for _, x := range []int64{1, 3, 6, 8} {
			s.Insert(x)
		}

		is.NoErr(s.Remove(6))
		is.Equal(s.Items(), []int64{1, 3, 8})
		is.Equal(s.Size(), 3)
		is.True(!s.Contains(6))
		assertBijection(is, s)

		err := s.Remove(6)
		is.True(errors.Is(err, ErrNotFound))
	})

	t.Run("removing the only element empties the set", func(t *testing.T) {
		is := is.New(t)
		s := New[int]()
		s.Insert(5)

		is.NoErr(s.Remove(5))
		is.Equal(s.Size(), 0)
		is.Equal(len(s.items), 0)
		is.Equal(len(s.index), 0)
		assertBijection(is, s)
	})

	t.Run("removing the element in the last slot", func(t *testing.T) {
		is := is.New(t)
		s := New[int]()
		s.Insert(1)
		s.Insert(2)
		s.Insert(3)

		is.NoErr(s.Remove(3))
		is.Equal(s.Items(), []int{1, 2})
		assertBijection(is, s)
	})

	t.Run("failed remove leaves the set untouched", func(t *testing.T) {
		is := is.New(t)
		s := New[int]()
		s.Insert(1)
		s.Insert(2)

		err := s.Remove(42)
		is.True(errors.Is(err, ErrNotFound))
		is.True(strings.Contains(err.Error(), "42"))
		is.Equal(s.Items(), []int{1, 2})
		assertBijection(is, s)
	})

	t.Run("remove on an empty set", func(t *testing.T) {
		is := is.New(t)
		s := New[int]()
		is.True(errors.Is(s.Remove(1), ErrNotFound))
		is.Equal(s.Size(), 0)
	})
}

func TestRandom(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		is := is.New(t)
		s := New[int64]()
		_, err := s.Random()
		is.True(errors.Is(err, ErrEmpty))
		is.Equal(s.Size(), 0)
	})

	t.Run("only members are returned", func(t *testing.T) {
		is := is.New(t)
		s := New[int64](WithSeed(7))
		for _, x := range []int64{1, 3, 6, 8} {
			s.Insert(x)
		}
		is.NoErr(s.Remove(6))
		for i := 0; i < 1000; i++ {
			x, err := s.Random()
			is.NoErr(err)
			is.True(s.Contains(x))
		}
	})

	t.Run("selection is uniform", func(t *testing.T) {
		is := is.New(t)
		const draws = 100_000
		s := New[string](WithSeed(42))
		words := fake.Words(8)
		for _, w := range words {
			s.Insert(w)
		}
		is.NoErr(s.Remove(words[3]))

		counts := map[string]int{}
		for i := 0; i < draws; i++ {
			x, err := s.Random()
			is.NoErr(err)
			counts[x]++
		}

		is.Equal(len(counts), s.Size())
		expected := 1 / float64(s.Size())
		for x, c := range counts {
			freq := float64(c) / draws
			if math.Abs(freq-expected) > 0.01 {
				t.Fatalf("element %q picked with frequency %.4f, expected %.4f", x, freq, expected)
			}
		}
	})

	t.Run("same seed gives the same sequence", func(t *testing.T) {
		is := is.New(t)
		a, b := New[int](WithSeed(99)), New[int](WithSeed(99))
		for i := 0; i < 50; i++ {
			a.Insert(i)
			b.Insert(i)
		}
		for i := 0; i < 100; i++ {
			x, err := a.Random()
			is.NoErr(err)
			y, err := b.Random()
			is.NoErr(err)
			is.Equal(x, y)
		}
	})

	t.Run("injected source drives the picks", func(t *testing.T) {
		is := is.New(t)
		a, b := New[int](WithSeed(5)), New[int](WithSource(NewSource(5)))
		for i := 0; i < 50; i++ {
			a.Insert(i)
			b.Insert(i)
		}
		for i := 0; i < 100; i++ {
			x, err := a.Random()
			is.NoErr(err)
			y, err := b.Random()
			is.NoErr(err)
			is.Equal(x, y)
		}
	})
}

func TestBijectionUnderRandomOperations(t *testing.T) {
	is := is.New(t)
	f := fake.Faker(1)
	s := New[int](WithSeed(1), WithCapacity(64))
	shadow := map[int]bool{}

	for i := 0; i < 5000; i++ {
		x := f.Number(0, 63)
		if f.Bool() {
			s.Insert(x)
			shadow[x] = true
		} else {
			err := s.Remove(x)
			if shadow[x] {
				is.NoErr(err)
				delete(shadow, x)
			} else {
				is.True(errors.Is(err, ErrNotFound))
			}
		}
		is.Equal(s.Size(), len(shadow))
	}

	assertBijection(is, s)
	for x := range shadow {
		is.True(s.Contains(x))
	}
}

func TestClear(t *testing.T) {
	is := is.New(t)
	s := New[int]()
	s.Insert(1)
	s.Insert(2)
	s.Clear()

	is.Equal(s.Size(), 0)
	is.Equal(s.String(), "{}")
	is.True(s.Insert(1))
	assertBijection(is, s)
}

func TestFprint(t *testing.T) {
	is := is.New(t)
	s := New[int64]()
	for _, x := range []int64{1, 3, 6, 8} {
		s.Insert(x)
	}
	is.NoErr(s.Remove(6))

	var buf bytes.Buffer
	is.NoErr(s.Fprint(&buf))
	is.Equal(buf.String(), "{1,3,8}\n")

	buf.Reset()
	is.NoErr(New[int]().Fprint(&buf))
	is.Equal(buf.String(), "{}\n")
}

func TestDump(t *testing.T) {
	is := is.New(t)
	s := New[string]()
	s.Insert("alpha")
	s.Insert("beta")

	var buf bytes.Buffer
	s.Dump(&buf)
	is.True(strings.Contains(buf.String(), "alpha"))
	is.True(strings.Contains(buf.String(), "Index"))
}
