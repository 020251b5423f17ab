package exec

import (
	"fmt"
	"strconv"
)

type (
	// Predicate decides whether an element passes.
	Predicate func(v any) bool
	// Selector maps an element to a new value.
	Selector func(v any) any
	// Flattener maps an element to zero or more elements.
	Flattener func(v any) []any
	// KeyFunc extracts a sort key. Its result must match the key type
	// declared on the ordering node; an element it cannot key is an error.
	KeyFunc func(v any) (any, error)
	// TypeTest reports whether an element belongs to a named type.
	TypeTest func(v any) bool
	// Fold combines an accumulator with the next element.
	Fold func(acc, v any) (any, error)
)

// Registry resolves the function names carried by operators and terminals.
type Registry struct {
	Predicates map[string]Predicate
	Selectors  map[string]Selector
	Flatteners map[string]Flattener
	Keys       map[string]KeyFunc
	Types      map[string]TypeTest
	Folds      map[string]Fold
	Seeds      map[string]any
}

func lookup[F any](m map[string]F, kind, name string) (F, error) {
	f, ok := m[name]
	if !ok {
		var zero F
		return zero, errUnknownFunction(kind, name)
	}
	return f, nil
}

func (r *Registry) predicate(name string) (Predicate, error) {
	return lookup(r.Predicates, "predicate", name)
}

func (r *Registry) selector(name string) (Selector, error) {
	return lookup(r.Selectors, "selector", name)
}

func (r *Registry) flattener(name string) (Flattener, error) {
	return lookup(r.Flatteners, "flattener", name)
}

func (r *Registry) key(name string) (KeyFunc, error) {
	return lookup(r.Keys, "key selector", name)
}

func (r *Registry) typeTest(name string) (TypeTest, error) {
	return lookup(r.Types, "type", name)
}

func (r *Registry) fold(name string) (Fold, error) {
	return lookup(r.Folds, "fold", name)
}

func (r *Registry) seed(name string) (any, error) {
	return lookup(r.Seeds, "seed", name)
}

// asInt unwraps an int element. Builtins treat anything else as a
// non-match (predicates) or pass it through unchanged (selectors).
func asInt(v any) (int, bool) {
	n, ok := v.(int)
	return n, ok
}

func intPredicate(f func(int) bool) Predicate {
	return func(v any) bool {
		n, ok := asInt(v)
		return ok && f(n)
	}
}

func intSelector(f func(int) int) Selector {
	return func(v any) any {
		if n, ok := asInt(v); ok {
			return f(n)
		}
		return v
	}
}

// selectorKey keys elements by a selector. Non-int elements pass through
// and are checked against the declared key type.
func selectorKey(f func(int) int) KeyFunc {
	sel := intSelector(f)
	return func(v any) (any, error) { return sel(v), nil }
}

// intKey keys int elements only; anything else fails with KEY_TYPE.
func intKey(name string, f func(int) any) KeyFunc {
	return func(v any) (any, error) {
		n, ok := asInt(v)
		if !ok {
			return nil, &RuntimeError{Code: ErrCodeKeyType, Message: fmt.Sprintf("element %v (%T) is not an int", v, v), Fn: name}
		}
		return f(n), nil
	}
}

// intFold folds ints only; anything else fails with NOT_NUMERIC.
func intFold(name string, f func(acc, n int) int) Fold {
	return func(acc, v any) (any, error) {
		a, ok := asInt(acc)
		if !ok {
			return nil, &RuntimeError{Code: ErrCodeNotNumeric, Message: fmt.Sprintf("accumulator %v (%T) is not an int", acc, acc), Fn: name}
		}
		n, ok := asInt(v)
		if !ok {
			return nil, &RuntimeError{Code: ErrCodeNotNumeric, Message: fmt.Sprintf("element %v (%T) is not an int", v, v), Fn: name}
		}
		return f(a, n), nil
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Builtins returns a registry of integer functions.
func Builtins() *Registry {
	return &Registry{
		Predicates: map[string]Predicate{
			"even":     intPredicate(func(n int) bool { return n%2 == 0 }),
			"odd":      intPredicate(func(n int) bool { return n%2 != 0 }),
			"positive": intPredicate(func(n int) bool { return n > 0 }),
			"small":    intPredicate(func(n int) bool { return abs(n) < 50 }),
			"nonzero":  intPredicate(func(n int) bool { return n != 0 }),
		},
		Selectors: map[string]Selector{
			"identity": func(v any) any { return v },
			"double":   intSelector(func(n int) int { return 2 * n }),
			"negate":   intSelector(func(n int) int { return -n }),
			"mod3":     intSelector(func(n int) int { return n % 3 }),
			"inc":      intSelector(func(n int) int { return n + 1 }),
		},
		Flatteners: map[string]Flattener{
			"pair": func(v any) []any {
				n, ok := asInt(v)
				if !ok {
					return []any{v}
				}
				return []any{n, n + 1}
			},
			"digits": func(v any) []any {
				n, ok := asInt(v)
				if !ok {
					return nil
				}
				s := strconv.Itoa(abs(n))
				out := make([]any, len(s))
				for i := range s {
					out[i] = int(s[i] - '0')
				}
				return out
			},
		},
		Keys: map[string]KeyFunc{
			"self":  selectorKey(func(n int) int { return n }),
			"mod3":  selectorKey(func(n int) int { return n % 3 }),
			"mod10": selectorKey(func(n int) int { return n % 10 }),
			"neg":   selectorKey(func(n int) int { return -n }),
			"text":  intKey("text", func(n int) any { return strconv.Itoa(n) }),
			"ratio": intKey("ratio", func(n int) any { return float64(n) / 3 }),
		},
		Types: map[string]TypeTest{
			"int": func(v any) bool {
				_, ok := v.(int)
				return ok
			},
			"string": func(v any) bool {
				_, ok := v.(string)
				return ok
			},
			"any": func(any) bool { return true },
		},
		Folds: map[string]Fold{
			"add": intFold("add", func(acc, n int) int { return acc + n }),
			"max": intFold("max", func(acc, n int) int { return max(acc, n) }),
		},
		Seeds: map[string]any{
			"zero": 0,
			"one":  1,
		},
	}
}
