package exec

import (
	"fmt"

	"github.com/roach88/chainfuse/internal/buffer"
	"github.com/roach88/chainfuse/internal/chain"
)

// collector consumes the elements reaching a terminal. add returns false
// once the result is settled and no further element can change it.
type collector interface {
	add(v any) (bool, error)
	result() (any, error)
}

// newCollector resolves the terminal's functions and returns its consumer.
// backward reports that elements arrive last to first.
func newCollector(t chain.Terminal, reg *Registry, backward bool) (collector, error) {
	var pred Predicate
	var sel Selector
	var err error

	switch t.Kind {
	case chain.First, chain.FirstOrDefault, chain.Last, chain.LastOrDefault,
		chain.Single, chain.SingleOrDefault, chain.Any, chain.All, chain.Count:
		if t.Fn != "" {
			if pred, err = reg.predicate(t.Fn); err != nil {
				return nil, err
			}
		}
	case chain.Sum, chain.Min, chain.Max, chain.Average, chain.ToMap:
		if t.Fn != "" {
			if sel, err = reg.selector(t.Fn); err != nil {
				return nil, err
			}
		}
	}

	switch t.Kind {
	case chain.ToArray, chain.ToList:
		return &materialize{out: buffer.New[any]()}, nil
	case chain.ToSet:
		return &materialize{out: buffer.New[any](), seen: map[any]struct{}{}}, nil
	case chain.ToMap:
		return &toMap{key: sel, m: map[any]any{}}, nil
	case chain.First, chain.FirstOrDefault, chain.Last, chain.LastOrDefault, chain.Single, chain.SingleOrDefault:
		return &locate{kind: t.Kind, pred: pred, backward: backward}, nil
	case chain.Any:
		return &exists{pred: pred}, nil
	case chain.All:
		return &forAll{pred: pred, ok: true}, nil
	case chain.Count:
		return &count{pred: pred}, nil
	case chain.Sum, chain.Average:
		return &sum{sel: sel, average: t.Kind == chain.Average}, nil
	case chain.Min, chain.Max:
		return &extreme{sel: sel, max: t.Kind == chain.Max}, nil
	case chain.Aggregate:
		fold, err := reg.fold(t.Fn)
		if err != nil {
			return nil, err
		}
		agg := &aggregate{fold: fold}
		if t.Seed != "" {
			if agg.acc, err = reg.seed(t.Seed); err != nil {
				return nil, err
			}
			agg.started = true
		}
		return agg, nil
	}
	return nil, &chain.ContractError{Code: chain.ErrCodeUnknownTerminal, Index: -1, Message: fmt.Sprintf("unknown terminal kind %d", int(t.Kind))}
}

type materialize struct {
	out  *buffer.Growable[any]
	seen map[any]struct{}
}

func (c *materialize) add(v any) (bool, error) {
	if c.seen != nil {
		if _, dup := c.seen[v]; dup {
			return true, nil
		}
		c.seen[v] = struct{}{}
	}
	c.out.Add(v)
	return true, nil
}

func (c *materialize) result() (any, error) {
	return c.out.ToArray(), nil
}

type toMap struct {
	key Selector
	m   map[any]any
}

func (c *toMap) add(v any) (bool, error) {
	k := c.key(v)
	if _, dup := c.m[k]; dup {
		return false, &RuntimeError{Code: ErrCodeDuplicateKey, Message: fmt.Sprintf("key %v already present", k)}
	}
	c.m[k] = v
	return true, nil
}

func (c *toMap) result() (any, error) {
	return c.m, nil
}

type locate struct {
	kind     chain.TerminalKind
	pred     Predicate
	backward bool
	found    bool
	value    any
}

func (c *locate) add(v any) (bool, error) {
	if c.pred != nil && !c.pred(v) {
		return true, nil
	}
	switch c.kind {
	case chain.Single, chain.SingleOrDefault:
		if c.found {
			return false, errMultipleElements()
		}
		c.found, c.value = true, v
		return true, nil
	case chain.Last, chain.LastOrDefault:
		c.found, c.value = true, v
		return !c.backward, nil
	}
	c.found, c.value = true, v
	return false, nil
}

func (c *locate) result() (any, error) {
	if c.found {
		return c.value, nil
	}
	switch c.kind {
	case chain.FirstOrDefault, chain.LastOrDefault, chain.SingleOrDefault:
		return nil, nil
	}
	return nil, errNoElements()
}

type exists struct {
	pred  Predicate
	found bool
}

func (c *exists) add(v any) (bool, error) {
	if c.pred == nil || c.pred(v) {
		c.found = true
		return false, nil
	}
	return true, nil
}

func (c *exists) result() (any, error) { return c.found, nil }

type forAll struct {
	pred Predicate
	ok   bool
}

func (c *forAll) add(v any) (bool, error) {
	if !c.pred(v) {
		c.ok = false
		return false, nil
	}
	return true, nil
}

func (c *forAll) result() (any, error) { return c.ok, nil }

type count struct {
	pred Predicate
	n    int
}

func (c *count) add(v any) (bool, error) {
	if c.pred == nil || c.pred(v) {
		c.n++
	}
	return true, nil
}

func (c *count) result() (any, error) { return c.n, nil }

type sum struct {
	sel     Selector
	average bool
	total   summer
	n       int
}

func (c *sum) add(v any) (bool, error) {
	if c.sel != nil {
		v = c.sel(v)
	}
	if err := c.total.add(v); err != nil {
		return false, err
	}
	c.n++
	return true, nil
}

func (c *sum) result() (any, error) {
	if !c.average {
		return c.total.value(), nil
	}
	if c.n == 0 {
		return nil, errNoElements()
	}
	return c.total.float() / float64(c.n), nil
}

type extreme struct {
	sel   Selector
	max   bool
	found bool
	best  any
}

func (c *extreme) add(v any) (bool, error) {
	if c.sel != nil {
		v = c.sel(v)
	}
	if !c.found {
		c.found, c.best = true, v
		return true, nil
	}
	d := compareValues(v, c.best)
	if (c.max && d > 0) || (!c.max && d < 0) {
		c.best = v
	}
	return true, nil
}

func (c *extreme) result() (any, error) {
	if !c.found {
		return nil, errNoElements()
	}
	return c.best, nil
}

type aggregate struct {
	fold    Fold
	acc     any
	started bool
}

func (c *aggregate) add(v any) (bool, error) {
	if !c.started {
		c.acc, c.started = v, true
		return true, nil
	}
	acc, err := c.fold(c.acc, v)
	if err != nil {
		return false, err
	}
	c.acc = acc
	return true, nil
}

func (c *aggregate) result() (any, error) {
	if !c.started {
		return nil, errNoElements()
	}
	return c.acc, nil
}
