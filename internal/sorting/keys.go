package sorting

import "golang.org/x/exp/constraints"

// Direction is the ordering direction of one key.
type Direction int8

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Keys is one dense key buffer. Compare orders the keys of source positions
// i and j with the buffer's direction already applied.
type Keys interface {
	Len() int
	Compare(i, j int) int
}

// Ordered is a key buffer of naturally ordered values.
type Ordered[K constraints.Ordered] struct {
	Values []K
	Dir    Direction
}

func (o Ordered[K]) Len() int { return len(o.Values) }

func (o Ordered[K]) Compare(i, j int) int {
	if o.Dir == Descending {
		return compareOrdered(o.Values[j], o.Values[i])
	}
	return compareOrdered(o.Values[i], o.Values[j])
}

// Func is a key buffer ordered by an explicit comparator.
type Func[K any] struct {
	Values []K
	Cmp    func(a, b K) int
	Dir    Direction
}

func (f Func[K]) Len() int { return len(f.Values) }

func (f Func[K]) Compare(i, j int) int {
	if f.Dir == Descending {
		return f.Cmp(f.Values[j], f.Values[i])
	}
	return f.Cmp(f.Values[i], f.Values[j])
}

// compareOrdered orders NaN before every other value so floating point keys
// still form a total order.
func compareOrdered[K constraints.Ordered](a, b K) int {
	aNaN := a != a
	bNaN := b != b
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// comparer orders two source positions. Implementations must break every
// tie so that compare(i, j) == 0 only when i == j.
type comparer interface {
	compare(i, j int) int
}

type multiKey []Keys

func (m multiKey) compare(i, j int) int {
	for _, k := range m {
		if c := k.Compare(i, j); c != 0 {
			return c
		}
	}
	return i - j
}

type orderedKey[K constraints.Ordered] struct {
	values []K
	desc   bool
}

func (o orderedKey[K]) compare(i, j int) int {
	var c int
	if o.desc {
		c = compareOrdered(o.values[j], o.values[i])
	} else {
		c = compareOrdered(o.values[i], o.values[j])
	}
	if c != 0 {
		return c
	}
	return i - j
}
