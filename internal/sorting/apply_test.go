package sorting

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyInPlace_MatchesApply(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	for _, n := range []int{0, 1, 2, 3, 7, 64, 257} {
		src := make([]string, n)
		for i := range src {
			src[i] = string(rune('A' + i%26))
		}
		index := Identity(n)
		rng.Shuffle(n, func(i, j int) { index[i], index[j] = index[j], index[i] })
		before := append([]int(nil), index...)

		want := make([]string, n)
		Apply(want, src, index)

		buf := append([]string(nil), src...)
		ApplyInPlace(buf, index)

		require.Equal(t, want, buf, "n=%d", n)
		assert.Equal(t, before, index, "index map restored")
	}
}

func TestApply_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { Apply(make([]int, 2), make([]int, 3), Identity(3)) })
	assert.Panics(t, func() { Apply(make([]int, 3), make([]int, 2), Identity(3)) })
	assert.Panics(t, func() { ApplyInPlace(make([]int, 2), Identity(3)) })
}

func TestSortBy(t *testing.T) {
	type user struct {
		name string
		age  int
	}
	users := []user{{"ann", 31}, {"bob", 25}, {"cid", 31}, {"dan", 19}}

	got := SortBy(users, func(u user) int { return u.age }, Descending)
	assert.Equal(t, []user{{"ann", 31}, {"cid", 31}, {"bob", 25}, {"dan", 19}}, got)

	// source untouched
	assert.Equal(t, "ann", users[0].name)
	assert.Equal(t, "dan", users[3].name)

	assert.Empty(t, SortBy([]user{}, func(u user) int { return u.age }, Ascending))
	assert.Equal(t, []user{{"x", 1}}, SortBy([]user{{"x", 1}}, func(u user) int { return u.age }, Ascending))
}

func TestSortInPlace(t *testing.T) {
	buf := []int{5, 3, 5, 1}
	tags := []string{"a", "b", "c", "d"}
	// Sort tags by the numbers, descending.
	SortInPlace(tags, Ordered[int]{Values: buf, Dir: Descending})
	assert.Equal(t, []string{"a", "c", "b", "d"}, tags)
}

func TestScratch_RentRelease(t *testing.T) {
	s := RentIndex(5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s.Index)
	s.Index[0] = 99
	s.Release()
	assert.Nil(t, s.Index)
	s.Release() // no-op

	// A fresh rental is always the identity, whatever was left behind.
	s2 := RentIndex(3)
	defer s2.Release()
	assert.Equal(t, []int{0, 1, 2}, s2.Index)

	s3 := RentIndex(0)
	defer s3.Release()
	assert.Empty(t, s3.Index)
}
