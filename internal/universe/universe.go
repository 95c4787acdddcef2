// Package universe implements the data model shared by every relation in a
// command's translation: atoms, the fixed universe they inhabit, tuples
// over atoms, tuple sets, and per-relation bounds.
package universe

import (
	"fmt"
	"sort"
	"strings"
)

// Atom is an indivisible element of the universe, identified by a small
// integer index and a human-readable name.
type Atom struct {
	Index int
	Name  string
	Sig   string // name of the signature this atom belongs to
}

func (a Atom) String() string { return a.Name }

// Universe is the ordered sequence of atoms in scope for one command,
// fixed at command-start and immutable thereafter, plus the contiguous
// index range allocated to each signature (and, transitively, its
// subtypes).
type Universe struct {
	atoms  []Atom
	ranges map[string][2]int // sigName -> [start, end)
}

// Builder incrementally constructs a Universe by appending atoms grouped
// by signature; each call to AddAtoms contributes one contiguous range.
type Builder struct {
	u Universe
}

func NewBuilder() *Builder {
	return &Builder{u: Universe{ranges: map[string][2]int{}}}
}

// AddAtoms appends n freshly-named atoms ("sigName$i") belonging to sigName
// and records the contiguous range they occupy.
func (b *Builder) AddAtoms(sigName string, n int) {
	start := len(b.u.atoms)
	for i := 0; i < n; i++ {
		idx := len(b.u.atoms)
		b.u.atoms = append(b.u.atoms, Atom{
			Index: idx,
			Name:  fmt.Sprintf("%s$%d", sigName, i),
			Sig:   sigName,
		})
	}
	b.u.ranges[sigName] = [2]int{start, len(b.u.atoms)}
}

// ExtendRange widens sigName's range to the smallest [start, end) span
// covering both its current range and the given one, or registers the
// given range if sigName has none yet (used so a signature's range also
// covers its descendants' atoms).
func (b *Builder) ExtendRange(sigName string, start, end int) {
	if cur, ok := b.u.ranges[sigName]; ok {
		if start < cur[0] {
			cur[0] = start
		}
		if end > cur[1] {
			cur[1] = end
		}
		b.u.ranges[sigName] = cur
		return
	}
	b.u.ranges[sigName] = [2]int{start, end}
}

func (b *Builder) Build() *Universe { return &b.u }

// Size returns the number of atoms allocated so far.
func (b *Builder) Size() int { return len(b.u.atoms) }

// Atoms returns the full ordered atom sequence.
func (u *Universe) Atoms() []Atom { return u.atoms }

// Size returns the number of atoms in the universe.
func (u *Universe) Size() int { return len(u.atoms) }

// Atom returns the atom at index i.
func (u *Universe) Atom(i int) Atom { return u.atoms[i] }

// AtomsOf returns the atoms belonging to sigName's allocated range.
func (u *Universe) AtomsOf(sigName string) []Atom {
	r, ok := u.ranges[sigName]
	if !ok {
		return nil
	}
	return u.atoms[r[0]:r[1]]
}

// RangeOf returns the [start, end) atom-index range allocated to sigName.
func (u *Universe) RangeOf(sigName string) (int, int, bool) {
	r, ok := u.ranges[sigName]
	return r[0], r[1], ok
}

// AtomTuple is an ordered sequence of atom indices.
type AtomTuple []int

// Arity returns len(t).
func (t AtomTuple) Arity() int { return len(t) }

func (t AtomTuple) Equal(o AtomTuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// Less implements the canonical lexicographic ordering over tuples of
// equal arity.
func (t AtomTuple) Less(o AtomTuple) bool {
	for i := 0; i < len(t) && i < len(o); i++ {
		if t[i] != o[i] {
			return t[i] < o[i]
		}
	}
	return len(t) < len(o)
}

func (t AtomTuple) String() string {
	parts := make([]string, len(t))
	for i, a := range t {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Concat returns a new tuple formed by appending o's indices to t's.
func (t AtomTuple) Concat(o AtomTuple) AtomTuple {
	out := make(AtomTuple, 0, len(t)+len(o))
	out = append(out, t...)
	out = append(out, o...)
	return out
}

// TupleSet is a set of AtomTuples of the same arity, stored in canonical
// (lexicographic) order.
type TupleSet struct {
	Arity  int
	Tuples []AtomTuple
}

// NewTupleSet returns an empty TupleSet of the given arity.
func NewTupleSet(arity int) *TupleSet {
	return &TupleSet{Arity: arity}
}

// Add inserts t (must have the set's arity) keeping canonical order,
// ignoring duplicates.
func (ts *TupleSet) Add(t AtomTuple) {
	if len(t) != ts.Arity && ts.Arity != 0 {
		panic("universe: tuple arity mismatch")
	}
	i := sort.Search(len(ts.Tuples), func(i int) bool { return !ts.Tuples[i].Less(t) })
	if i < len(ts.Tuples) && ts.Tuples[i].Equal(t) {
		return
	}
	ts.Tuples = append(ts.Tuples, nil)
	copy(ts.Tuples[i+1:], ts.Tuples[i:])
	ts.Tuples[i] = t
}

// Contains reports whether t is a member.
func (ts *TupleSet) Contains(t AtomTuple) bool {
	i := sort.Search(len(ts.Tuples), func(i int) bool { return !ts.Tuples[i].Less(t) })
	return i < len(ts.Tuples) && ts.Tuples[i].Equal(t)
}

// Len returns the number of tuples.
func (ts *TupleSet) Len() int { return len(ts.Tuples) }

// Union returns the set union of a and b (both must share an arity, or
// be empty).
func Union(a, b *TupleSet) *TupleSet {
	arity := a.Arity
	if arity == 0 {
		arity = b.Arity
	}
	out := NewTupleSet(arity)
	for _, t := range a.Tuples {
		out.Add(t)
	}
	for _, t := range b.Tuples {
		out.Add(t)
	}
	return out
}

// CrossProduct returns the cartesian product {u.concat(v) | u in a, v in b}.
func CrossProduct(a, b *TupleSet) *TupleSet {
	out := NewTupleSet(a.Arity + b.Arity)
	for _, u := range a.Tuples {
		for _, v := range b.Tuples {
			out.Add(u.Concat(v))
		}
	}
	return out
}

func (ts *TupleSet) String() string {
	parts := make([]string, len(ts.Tuples))
	for i, t := range ts.Tuples {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RelationBounds pairs the must-be-present (Lower) and may-be-present
// (Upper) tuple sets for one relation. Invariant: Lower is a subset of
// Upper.
type RelationBounds struct {
	Name  string
	Arity int
	Lower *TupleSet
	Upper *TupleSet
}

// NewRelationBounds returns bounds with empty lower and the given upper.
func NewRelationBounds(name string, upper *TupleSet) *RelationBounds {
	return &RelationBounds{
		Name:  name,
		Arity: upper.Arity,
		Lower: NewTupleSet(upper.Arity),
		Upper: upper,
	}
}
