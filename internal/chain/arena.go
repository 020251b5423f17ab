package chain

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/dchest/siphash"
)

// siphash keys for the intern table; any fixed pair works, the table
// resolves collisions by comparing canonical bytes.
const (
	internK0 = 0x5d1ec810febed702
	internK1 = 0x40fd7fee17262f71
)

// OpRef is the index of an interned operator in an Arena.
type OpRef int32

// PathID identifies a trie position: the prefix of operators from a source
// root down to (and including) one operator.
type PathID int32

// NoOp marks root positions, which hold no operator.
const NoOp OpRef = -1

// Leaf identifies one chain stored in the arena: the trie position of its
// last operator plus the terminal closing it.
type Leaf struct {
	Path     PathID
	Terminal Terminal
}

// Entry is one child of a trie position, either an operator leading to a
// deeper position or a terminal closing the chain at this position.
type Entry struct {
	// Path is the child position for operators, or the owning position for
	// terminals.
	Path PathID

	Ref OpRef
	Op  Op

	IsTerminal bool
	Terminal   Terminal

	// Derived is set on a to_list terminal whose position also requests
	// to_array: the list is synthesized from the array result instead of
	// being planned separately.
	Derived bool
}

type trieNode struct {
	source   Source
	parent   PathID
	op       OpRef
	children map[OpRef]PathID
	terms    []Terminal
}

// Arena interns operators and stores chains as paths of interned references,
// merging shared prefixes.
//
// Thread-safety: inserts are serialized by a mutex; reads take a read lock,
// so an arena being filled by parallel analysis can be read concurrently.
type Arena struct {
	mu sync.RWMutex

	ops    []Op
	canon  [][]byte
	hashes []string
	intern map[[2]uint64][]OpRef

	nodes []trieNode
	roots map[Source]PathID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		intern: make(map[[2]uint64][]OpRef),
		roots:  make(map[Source]PathID),
	}
}

// Intern returns the reference of op, adding it if no structurally equal
// operator was interned before.
func (a *Arena) Intern(op Op) OpRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.internLocked(op)
}

func (a *Arena) internLocked(op Op) OpRef {
	canon := op.Canonical()
	lo, hi := siphash.Hash128(internK0, internK1, canon)
	key := [2]uint64{lo, hi}
	for _, ref := range a.intern[key] {
		if bytes.Equal(a.canon[ref], canon) {
			return ref
		}
	}
	ref := OpRef(len(a.ops))
	a.ops = append(a.ops, op)
	a.canon = append(a.canon, canon)
	a.hashes = append(a.hashes, hashWithDomain(DomainOp, canon))
	a.intern[key] = append(a.intern[key], ref)
	return ref
}

// Op returns the interned operator for ref.
func (a *Arena) Op(ref OpRef) Op {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ops[ref]
}

// OpHash returns the content-addressed ID of the interned operator ref.
func (a *Arena) OpHash(ref OpRef) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hashes[ref]
}

// Len returns the number of distinct interned operators.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ops)
}

// Positions returns the number of trie positions, roots included.
func (a *Arena) Positions() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes)
}

// AddChain validates c and stores it, reusing every position of the longest
// prefix already present. Adding the same chain twice returns the same Leaf.
func (a *Arena) AddChain(c Chain) (Leaf, error) {
	if err := Validate(c); err != nil {
		return Leaf{}, fmt.Errorf("add chain: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pos, ok := a.roots[c.Source]
	if !ok {
		pos = a.newNode(trieNode{source: c.Source, parent: -1, op: NoOp})
		a.roots[c.Source] = pos
	}
	for _, op := range c.Ops {
		ref := a.internLocked(op)
		next, ok := a.nodes[pos].children[ref]
		if !ok {
			next = a.newNode(trieNode{source: c.Source, parent: pos, op: ref})
			if a.nodes[pos].children == nil {
				a.nodes[pos].children = make(map[OpRef]PathID)
			}
			a.nodes[pos].children[ref] = next
		}
		pos = next
	}

	node := &a.nodes[pos]
	found := false
	for _, t := range node.terms {
		if t == c.Terminal {
			found = true
			break
		}
	}
	if !found {
		node.terms = append(node.terms, c.Terminal)
	}
	return Leaf{Path: pos, Terminal: c.Terminal}, nil
}

func (a *Arena) newNode(n trieNode) PathID {
	a.nodes = append(a.nodes, n)
	return PathID(len(a.nodes) - 1)
}

// Root returns the root position for chains over src.
func (a *Arena) Root(src Source) (PathID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.roots[src]
	return p, ok
}

// Children lists the entries below p: operators first, ordered by kind and
// then canonical encoding, followed by terminals ordered by kind, function
// and seed.
func (a *Arena) Children(p PathID) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.childrenLocked(p)
}

func (a *Arena) childrenLocked(p PathID) []Entry {
	node := a.nodes[p]
	entries := make([]Entry, 0, len(node.children)+len(node.terms))

	refs := make([]OpRef, 0, len(node.children))
	for ref := range node.children {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		oi, oj := a.ops[refs[i]], a.ops[refs[j]]
		if oi.Kind != oj.Kind {
			return oi.Kind < oj.Kind
		}
		return bytes.Compare(a.canon[refs[i]], a.canon[refs[j]]) < 0
	})
	for _, ref := range refs {
		entries = append(entries, Entry{Path: node.children[ref], Ref: ref, Op: a.ops[ref]})
	}

	terms := append([]Terminal(nil), node.terms...)
	sort.Slice(terms, func(i, j int) bool {
		ti, tj := terms[i], terms[j]
		if ti.Kind != tj.Kind {
			return ti.Kind < tj.Kind
		}
		if ti.Fn != tj.Fn {
			return ti.Fn < tj.Fn
		}
		return ti.Seed < tj.Seed
	})
	hasArray := false
	for _, t := range terms {
		if t.Kind == ToArray {
			hasArray = true
		}
	}
	for _, t := range terms {
		entries = append(entries, Entry{
			Path:       p,
			Ref:        NoOp,
			IsTerminal: true,
			Terminal:   t,
			Derived:    hasArray && t.Kind == ToList,
		})
	}
	return entries
}

// Chain reconstructs the root-to-leaf chain identified by leaf.
func (a *Arena) Chain(leaf Leaf) Chain {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var refs []OpRef
	pos := leaf.Path
	for a.nodes[pos].op != NoOp {
		refs = append(refs, a.nodes[pos].op)
		pos = a.nodes[pos].parent
	}
	var ops []Op
	if len(refs) > 0 {
		ops = make([]Op, len(refs))
	}
	for i, ref := range refs {
		ops[len(refs)-1-i] = a.ops[ref]
	}
	return Chain{Source: a.nodes[leaf.Path].source, Ops: ops, Terminal: leaf.Terminal}
}

// Leaves enumerates every stored chain that needs its own plan, depth first
// in child order. Derived to_list terminals are skipped.
func (a *Arena) Leaves() []Leaf {
	a.mu.RLock()
	defer a.mu.RUnlock()

	srcs := make([]Source, 0, len(a.roots))
	for s := range a.roots {
		srcs = append(srcs, s)
	}
	sort.Slice(srcs, func(i, j int) bool {
		return sourceRank(srcs[i]) < sourceRank(srcs[j])
	})

	var leaves []Leaf
	var walk func(p PathID)
	walk = func(p PathID) {
		for _, e := range a.childrenLocked(p) {
			switch {
			case !e.IsTerminal:
				walk(e.Path)
			case !e.Derived:
				leaves = append(leaves, Leaf{Path: e.Path, Terminal: e.Terminal})
			}
		}
	}
	for _, s := range srcs {
		walk(a.roots[s])
	}
	return leaves
}

func sourceRank(s Source) int {
	r := 0
	if s.HasStaticCount {
		r |= 2
	}
	if s.HasIndexedAccess {
		r |= 1
	}
	return r
}
