// Package boolmatrix implements the symbolic boolean-matrix engine: each
// relation value is represented as a TupleSet of candidate tuples (the
// relation's upper bound) paired with one BooleanValue per tuple giving its
// membership. Matrices are immutable once allocated; every operation
// returns a new matrix or formula.
package boolmatrix

import (
	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/sat"
	"github.com/ralloy/ralloy/internal/universe"
)

// BooleanValue is the membership value of one tuple in one matrix. In a
// matrix allocated by New or Constant it is either a boolean constant (for
// tuples forced in or out by the relation's bounds) or a fresh
// propositional variable's literal (for tuples in the interior,
// upper-bound-minus-lower-bound); in a matrix produced by an operator it
// is the compound formula built from the operands' memberships. It is
// represented directly as a *cnf.Formula so it composes with the rest of
// the boolean-formula algebra without conversion.
type BooleanValue = *cnf.Formula

// Matrix represents one relation's value at one point (one state, for a
// constant relation; one state of a temporal relation, held by the trace
// package).
type Matrix struct {
	Arity   int
	Tuples  *universe.TupleSet // the upper bound: every tuple with a non-false membership
	members map[string]BooleanValue
}

func tupleKey(t universe.AtomTuple) string { return t.String() }

// New allocates a Matrix over the given bounds: tuples in Lower get
// constant-true membership, tuples in Upper-minus-Lower get a fresh
// variable allocated from b. Tuples outside Upper are implicitly
// constant-false (see Mem).
func New(b *cnf.Builder, bounds *universe.RelationBounds) *Matrix {
	m := &Matrix{
		Arity:   bounds.Arity,
		Tuples:  bounds.Upper,
		members: make(map[string]BooleanValue, bounds.Upper.Len()),
	}
	for _, t := range bounds.Upper.Tuples {
		if bounds.Lower.Contains(t) {
			m.members[tupleKey(t)] = cnf.True
		} else {
			v := b.NewVar()
			m.members[tupleKey(t)] = cnf.FromLiteral(sat.PositiveLiteral(v))
		}
	}
	return m
}

// Constant returns a Matrix of the given arity whose entire contents is
// fixed (used for e.g. the identity relation `iden`, or any relation
// fully determined without a fresh SAT variable).
func Constant(arity int, tuples *universe.TupleSet) *Matrix {
	m := &Matrix{Arity: arity, Tuples: tuples, members: make(map[string]BooleanValue, tuples.Len())}
	for _, t := range tuples.Tuples {
		m.members[tupleKey(t)] = cnf.True
	}
	return m
}

// Mem returns the membership formula of tuple t: cnf.False if t is outside
// the matrix's upper bound, else the stored BooleanValue.
func (m *Matrix) Mem(t universe.AtomTuple) BooleanValue {
	if v, ok := m.members[tupleKey(t)]; ok {
		return v
	}
	return cnf.False
}

// WithMembership returns a copy of m with tuple t's membership replaced
// by v (t must already be in m's upper bound). Used to build the
// singleton matrices that stand for a bound quantifier variable, whose
// membership tracks the enclosing domain relation rather than a bare
// constant.
func (m *Matrix) WithMembership(t universe.AtomTuple, v BooleanValue) *Matrix {
	out := &Matrix{Arity: m.Arity, Tuples: m.Tuples, members: make(map[string]BooleanValue, len(m.members))}
	for k, mv := range m.members {
		out.members[k] = mv
	}
	out.members[tupleKey(t)] = v
	return out
}

// Each calls f for every tuple in the matrix's upper bound.
func (m *Matrix) Each(f func(t universe.AtomTuple, v BooleanValue)) {
	for _, t := range m.Tuples.Tuples {
		f(t, m.members[tupleKey(t)])
	}
}

// candidateUnion returns the union of the upper bounds of a and b: any
// tuple that could be a member of the union/intersection/etc result.
func candidateUnion(a, b *Matrix) *universe.TupleSet {
	return universe.Union(a.Tuples, b.Tuples)
}

func newResult(arity int, tuples *universe.TupleSet, fn func(t universe.AtomTuple) BooleanValue) *Matrix {
	m := &Matrix{Arity: arity, Tuples: universe.NewTupleSet(arity), members: map[string]BooleanValue{}}
	for _, t := range tuples.Tuples {
		v := fn(t)
		if v == cnf.False {
			continue
		}
		m.Tuples.Add(t)
		m.members[tupleKey(t)] = v
	}
	return m
}

// Union returns the elementwise OR of a and b.
func Union(a, b *Matrix) *Matrix {
	cand := candidateUnion(a, b)
	return newResult(a.Arity, cand, func(t universe.AtomTuple) BooleanValue {
		return cnf.Or(a.Mem(t), b.Mem(t))
	})
}

// Intersect returns the elementwise AND of a and b.
func Intersect(a, b *Matrix) *Matrix {
	cand := candidateUnion(a, b)
	return newResult(a.Arity, cand, func(t universe.AtomTuple) BooleanValue {
		return cnf.And(a.Mem(t), b.Mem(t))
	})
}

// Difference returns a tuples not in b: a AND NOT b, elementwise.
func Difference(a, b *Matrix) *Matrix {
	return newResult(a.Arity, a.Tuples, func(t universe.AtomTuple) BooleanValue {
		return cnf.And(a.Mem(t), cnf.Not(b.Mem(t)))
	})
}

// Override returns a ++ b: for tuples whose first atom is a "left atom" of
// some tuple in b's upper bound, b's membership wins; otherwise a's does.
func Override(a, b *Matrix) *Matrix {
	overridden := make(map[int]bool)
	for _, t := range b.Tuples.Tuples {
		overridden[t[0]] = true
	}
	cand := candidateUnion(a, b)
	return newResult(a.Arity, cand, func(t universe.AtomTuple) BooleanValue {
		if overridden[t[0]] {
			return b.Mem(t)
		}
		return a.Mem(t)
	})
}

// Transpose returns the transpose of a binary matrix.
func Transpose(a *Matrix) *Matrix {
	if a.Arity != 2 {
		panic("boolmatrix: Transpose requires a binary relation")
	}
	cand := universe.NewTupleSet(2)
	for _, t := range a.Tuples.Tuples {
		cand.Add(universe.AtomTuple{t[1], t[0]})
	}
	return newResult(2, cand, func(t universe.AtomTuple) BooleanValue {
		return a.Mem(universe.AtomTuple{t[1], t[0]})
	})
}

// Product returns the cartesian product a->b: arity(a)+arity(b), with
// membership of (u,v) = a.Mem(u) AND b.Mem(v).
func Product(a, b *Matrix) *Matrix {
	cand := universe.CrossProduct(a.Tuples, b.Tuples)
	return newResult(a.Arity+b.Arity, cand, func(t universe.AtomTuple) BooleanValue {
		u, v := t[:a.Arity], t[a.Arity:]
		return cnf.And(a.Mem(u), b.Mem(v))
	})
}

// Join returns the relational join a.b: arity(a)+arity(b)-2, where
// membership of (t) is the disjunction, over every join atom x shared by
// a's last column and b's first column, of a containing (t[:m-1], x) AND
// b containing (x, t[m-1:]).
func Join(univ *universe.Universe, a, b *Matrix) *Matrix {
	m, n := a.Arity, b.Arity
	outArity := m + n - 2
	if outArity < 1 {
		panic("boolmatrix: Join requires arity(a)+arity(b) > 2")
	}

	// Candidate join atoms: any atom appearing as a's last column or b's
	// first column.
	joinAtoms := map[int]bool{}
	for _, t := range a.Tuples.Tuples {
		joinAtoms[t[m-1]] = true
	}
	for _, t := range b.Tuples.Tuples {
		joinAtoms[t[0]] = true
	}

	cand := universe.NewTupleSet(outArity)
	for _, t := range a.Tuples.Tuples {
		for _, u := range b.Tuples.Tuples {
			if t[m-1] != u[0] {
				continue
			}
			cand.Add(t[:m-1].Concat(u[1:]))
		}
	}

	return newResult(outArity, cand, func(t universe.AtomTuple) BooleanValue {
		left := universe.AtomTuple(t[:m-1])
		right := universe.AtomTuple(t[m-1:])
		var disj []*cnf.Formula
		for x := range joinAtoms {
			lt := append(append(universe.AtomTuple{}, left...), x)
			rt := append(universe.AtomTuple{x}, right...)
			disj = append(disj, cnf.And(a.Mem(lt), b.Mem(rt)))
		}
		return cnf.Or(disj...)
	})
}

// TransitiveClosure iterates Join(a, a) up to the universe's size and
// unions the results, computing the fixpoint a^ (a^1 ∪ a^2 ∪ ... ∪ a^n).
func TransitiveClosure(univ *universe.Universe, a *Matrix) *Matrix {
	if a.Arity != 2 {
		panic("boolmatrix: TransitiveClosure requires a binary relation")
	}
	result := a
	power := a
	n := univ.Size()
	if n == 0 {
		n = 1
	}
	for i := 1; i < n; i++ {
		power = Join(univ, power, a)
		result = Union(result, power)
	}
	return result
}

// ReflexiveTransitiveClosure returns a* = a^ ∪ iden, where iden is the
// identity relation over univ.
func ReflexiveTransitiveClosure(univ *universe.Universe, a *Matrix) *Matrix {
	return Union(TransitiveClosure(univ, a), Iden(univ))
}

// Iden returns the (constant) identity relation over univ's atoms.
func Iden(univ *universe.Universe) *Matrix {
	ts := universe.NewTupleSet(2)
	for _, at := range univ.Atoms() {
		ts.Add(universe.AtomTuple{at.Index, at.Index})
	}
	return Constant(2, ts)
}

// Equals returns a formula asserting a == b (as sets): every candidate
// tuple's membership must agree.
func Equals(a, b *Matrix) *cnf.Formula {
	cand := candidateUnion(a, b)
	var conj []*cnf.Formula
	for _, t := range cand.Tuples {
		conj = append(conj, cnf.Iff(a.Mem(t), b.Mem(t)))
	}
	return cnf.And(conj...)
}

// Subset returns a formula asserting a ⊆ b.
func Subset(a, b *Matrix) *cnf.Formula {
	var conj []*cnf.Formula
	for _, t := range a.Tuples.Tuples {
		conj = append(conj, cnf.Implies(a.Mem(t), b.Mem(t)))
	}
	return cnf.And(conj...)
}

// Empty returns a formula asserting a has no members.
func Empty(a *Matrix) *cnf.Formula {
	var conj []*cnf.Formula
	for _, t := range a.Tuples.Tuples {
		conj = append(conj, cnf.Not(a.Mem(t)))
	}
	return cnf.And(conj...)
}

// NonEmpty returns a formula asserting a has at least one member.
func NonEmpty(a *Matrix) *cnf.Formula {
	var disj []*cnf.Formula
	for _, t := range a.Tuples.Tuples {
		disj = append(disj, a.Mem(t))
	}
	return cnf.Or(disj...)
}
