package chain

import (
	"fmt"
	"strings"
)

// OpKind identifies an intermediate operator.
type OpKind int

// Operator kinds. The declaration order is the total order used when
// listing trie children.
const (
	OpIdentity OpKind = iota + 1
	OpFilter
	OpTakeWhile
	OpSkipWhile
	OpMap
	OpFlattenMap
	OpTypeFilter
	OpTypeCast
	OpSortBy
	OpRefineSortBy
)

var opKindNames = map[OpKind]string{
	OpIdentity:     "identity",
	OpFilter:       "filter",
	OpTakeWhile:    "take_while",
	OpSkipWhile:    "skip_while",
	OpMap:          "map",
	OpFlattenMap:   "flatten_map",
	OpTypeFilter:   "type_filter",
	OpTypeCast:     "type_cast",
	OpSortBy:       "sort_by",
	OpRefineSortBy: "refine_sort_by",
}

func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Valid reports whether k is a known operator kind.
func (k OpKind) Valid() bool {
	_, ok := opKindNames[k]
	return ok
}

// ParseOpKind maps a snake_case name to its OpKind.
func ParseOpKind(name string) (OpKind, error) {
	for k, n := range opKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operator kind %q", name)
}

// IsOrdering reports whether k belongs to an ordering run (SortBy plus
// trailing RefineSortBy nodes).
func (k OpKind) IsOrdering() bool {
	return k == OpSortBy || k == OpRefineSortBy
}

// ChangesType reports whether k changes the element type flowing through it.
func (k OpKind) ChangesType() bool {
	switch k {
	case OpMap, OpFlattenMap, OpTypeFilter, OpTypeCast:
		return true
	}
	return false
}

// PreservesSize reports whether the output count of k is statically derivable
// from its input count.
func (k OpKind) PreservesSize() bool {
	switch k {
	case OpIdentity, OpMap, OpTypeCast, OpSortBy, OpRefineSortBy:
		return true
	}
	return false
}

// IsOrderSensitive reports whether the result of k depends on the order in
// which elements are visited. Order-insensitive operators act on each element
// independently and can run inside a backward loop.
func (k OpKind) IsOrderSensitive() bool {
	switch k {
	case OpIdentity, OpMap, OpFilter, OpTypeFilter, OpTypeCast:
		return false
	}
	return true
}

// Direction is the ordering direction of a sort key.
type Direction int

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

// ParseDirection accepts "asc", "ascending", "desc" and "descending".
// An empty string means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("unknown sort direction %q", s)
}

// Op is one intermediate operator node.
//
// Fn names the predicate, selector, flattening selector or key selector.
// KeyType and Dir are only meaningful for ordering kinds; Target is the type
// name tested by TypeFilter and TypeCast.
type Op struct {
	Kind    OpKind    `json:"kind"`
	Fn      string    `json:"fn,omitempty"`
	KeyType string    `json:"key_type,omitempty"`
	Dir     Direction `json:"dir,omitempty"`
	Target  string    `json:"target,omitempty"`
}

func (o Op) String() string {
	switch {
	case o.Kind.IsOrdering():
		return fmt.Sprintf("%s(%s:%s %s)", o.Kind, o.Fn, o.KeyType, o.Dir)
	case o.Kind == OpTypeFilter || o.Kind == OpTypeCast:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Target)
	case o.Fn != "":
		return fmt.Sprintf("%s(%s)", o.Kind, o.Fn)
	}
	return o.Kind.String()
}

// TerminalKind identifies the terminal closing a chain.
type TerminalKind int

// Terminal kinds, grouped as bulk-materialize, locate, existential and
// aggregate. Declaration order is the trie child order among terminals.
const (
	ToArray TerminalKind = iota + 1
	ToList
	ToSet
	ToMap
	First
	FirstOrDefault
	Last
	LastOrDefault
	Single
	SingleOrDefault
	Any
	All
	Count
	Sum
	Min
	Max
	Average
	Aggregate
)

var terminalNames = map[TerminalKind]string{
	ToArray:         "to_array",
	ToList:          "to_list",
	ToSet:           "to_set",
	ToMap:           "to_map",
	First:           "first",
	FirstOrDefault:  "first_or_default",
	Last:            "last",
	LastOrDefault:   "last_or_default",
	Single:          "single",
	SingleOrDefault: "single_or_default",
	Any:             "any",
	All:             "all",
	Count:           "count",
	Sum:             "sum",
	Min:             "min",
	Max:             "max",
	Average:         "average",
	Aggregate:       "aggregate",
}

func (k TerminalKind) String() string {
	if name, ok := terminalNames[k]; ok {
		return name
	}
	return fmt.Sprintf("terminal(%d)", int(k))
}

// Valid reports whether k is a known terminal kind.
func (k TerminalKind) Valid() bool {
	_, ok := terminalNames[k]
	return ok
}

// ParseTerminalKind maps a snake_case name to its TerminalKind.
func ParseTerminalKind(name string) (TerminalKind, error) {
	for k, n := range terminalNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown terminal kind %q", name)
}

// ScanDirection is the loop direction a terminal requires of the final piece.
type ScanDirection int

const (
	Forward ScanDirection = iota
	Backward
)

// Direction returns the scan direction the terminal demands. Last variants
// can be satisfied by scanning from the end; Single must see every element
// to detect a second match, so it stays forward like everything else.
func (k TerminalKind) Direction() ScanDirection {
	if k == Last || k == LastOrDefault {
		return Backward
	}
	return Forward
}

// IsLocateFirst reports whether k is First or FirstOrDefault.
func (k TerminalKind) IsLocateFirst() bool {
	return k == First || k == FirstOrDefault
}

// IsMaterialize reports whether k produces a collection.
func (k TerminalKind) IsMaterialize() bool {
	switch k {
	case ToArray, ToList, ToSet, ToMap:
		return true
	}
	return false
}

// Terminal closes a chain. Fn is the optional predicate (locate, existential,
// count), selector (sum, min, max, average, to_map key) or fold function
// (aggregate). Seed names the aggregate seed, if any.
type Terminal struct {
	Kind TerminalKind `json:"kind"`
	Fn   string       `json:"fn,omitempty"`
	Seed string       `json:"seed,omitempty"`
}

func (t Terminal) String() string {
	switch {
	case t.Fn != "" && t.Seed != "":
		return fmt.Sprintf("%s(%s, seed=%s)", t.Kind, t.Fn, t.Seed)
	case t.Fn != "":
		return fmt.Sprintf("%s(%s)", t.Kind, t.Fn)
	}
	return t.Kind.String()
}

// Source describes the capabilities of the collection a chain starts from.
type Source struct {
	// HasStaticCount reports whether the source knows its count in O(1).
	HasStaticCount bool `json:"static_count"`

	// HasIndexedAccess reports whether the source supports random access.
	HasIndexedAccess bool `json:"indexed"`
}

func (s Source) String() string {
	return fmt.Sprintf("source(static_count=%t, indexed=%t)", s.HasStaticCount, s.HasIndexedAccess)
}

// Chain is one recognized operator chain. Chains are immutable once built;
// callers must not mutate Ops after handing a chain to the planner.
type Chain struct {
	Source   Source   `json:"source"`
	Ops      []Op     `json:"ops"`
	Terminal Terminal `json:"terminal"`
}

func (c Chain) String() string {
	var b strings.Builder
	b.WriteString(c.Source.String())
	for _, op := range c.Ops {
		b.WriteString(" → ")
		b.WriteString(op.String())
	}
	b.WriteString(" → ")
	b.WriteString(c.Terminal.String())
	return b.String()
}
