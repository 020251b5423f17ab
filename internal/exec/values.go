package exec

import (
	"cmp"
	"fmt"
)

// rank groups values that compare with each other. Values of different
// ranks order by rank.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int, float64:
		return 2
	case string:
		return 3
	}
	return 4
}

// compareValues is the total order used for "any" keys and for min/max.
// Ints and floats compare numerically; NaN sorts before every number.
func compareValues(a, b any) int {
	if ra, rb := rank(a), rank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
		return cmp.Compare(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, float64(y))
		}
		return cmp.Compare(x, b.(float64))
	case string:
		return cmp.Compare(x, b.(string))
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// summer adds numeric values, staying integral until a float shows up.
type summer struct {
	isum    int
	fsum    float64
	isFloat bool
}

func (s *summer) add(v any) error {
	switch n := v.(type) {
	case int:
		if s.isFloat {
			s.fsum += float64(n)
		} else {
			s.isum += n
		}
	case float64:
		if !s.isFloat {
			s.fsum = float64(s.isum)
			s.isFloat = true
		}
		s.fsum += n
	default:
		return &RuntimeError{Code: ErrCodeNotNumeric, Message: fmt.Sprintf("cannot sum %T", v)}
	}
	return nil
}

func (s *summer) value() any {
	if s.isFloat {
		return s.fsum
	}
	return s.isum
}

func (s *summer) float() float64 {
	if s.isFloat {
		return s.fsum
	}
	return float64(s.isum)
}
