package exec

import (
	"fmt"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/plan"
	"github.com/roach88/chainfuse/internal/sorting"
)

// Key types accepted on ordering nodes.
const (
	KeyInt    = "int"
	KeyFloat  = "float"
	KeyString = "string"
	KeyAny    = "any"
)

// SortDirection maps a chain key direction onto the sort engine's. Any
// value but chain.Descending sorts ascending, matching Direction.String.
func SortDirection(d chain.Direction) sorting.Direction {
	if d == chain.Descending {
		return sorting.Descending
	}
	return sorting.Ascending
}

func keyTypeError(k plan.SortKey, v any) error {
	return &RuntimeError{Code: ErrCodeKeyType, Message: fmt.Sprintf("key %v (%T) is not %s", v, v, k.KeyType), Fn: k.Fn}
}

// extractKeys evaluates fn once per element into a dense key buffer of the
// declared key type.
func extractKeys(k plan.SortKey, fn KeyFunc, elems []any) (sorting.Keys, error) {
	dir := SortDirection(k.Dir)
	switch k.KeyType {
	case KeyInt:
		vals := make([]int, len(elems))
		for i, e := range elems {
			v, err := fn(e)
			if err != nil {
				return nil, err
			}
			n, ok := v.(int)
			if !ok {
				return nil, keyTypeError(k, v)
			}
			vals[i] = n
		}
		return sorting.Ordered[int]{Values: vals, Dir: dir}, nil
	case KeyFloat:
		vals := make([]float64, len(elems))
		for i, e := range elems {
			v, err := fn(e)
			if err != nil {
				return nil, err
			}
			switch v := v.(type) {
			case float64:
				vals[i] = v
			case int:
				vals[i] = float64(v)
			default:
				return nil, keyTypeError(k, v)
			}
		}
		return sorting.Ordered[float64]{Values: vals, Dir: dir}, nil
	case KeyString:
		vals := make([]string, len(elems))
		for i, e := range elems {
			v, err := fn(e)
			if err != nil {
				return nil, err
			}
			s, ok := v.(string)
			if !ok {
				return nil, keyTypeError(k, v)
			}
			vals[i] = s
		}
		return sorting.Ordered[string]{Values: vals, Dir: dir}, nil
	case KeyAny:
		vals := make([]any, len(elems))
		for i, e := range elems {
			v, err := fn(e)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return sorting.Func[any]{Values: vals, Cmp: compareValues, Dir: dir}, nil
	}
	return nil, &RuntimeError{Code: ErrCodeKeyType, Message: fmt.Sprintf("unknown key type %q", k.KeyType), Fn: k.Fn}
}

func extractAll(keys []plan.SortKey, elems []any, reg *Registry) ([]sorting.Keys, error) {
	out := make([]sorting.Keys, len(keys))
	for i, k := range keys {
		fn, err := reg.key(k.Fn)
		if err != nil {
			return nil, err
		}
		if out[i], err = extractKeys(k, fn, elems); err != nil {
			return nil, err
		}
	}
	return out, nil
}
