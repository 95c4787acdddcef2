// Package cnf implements Tseitin encoding of boolean formula DAGs into
// conjunctive normal form clauses fed to an internal/sat.Solver.
package cnf

import (
	"fmt"
	"strings"

	"github.com/ralloy/ralloy/internal/sat"
)

// Kind identifies the shape of a Formula node.
type Kind int

const (
	KConst Kind = iota
	KLit
	KAnd
	KOr
	KNot
	KImplies
	KIff
	KIte
)

// Formula is a node in a boolean formula DAG. Formulas are built via the
// values and constructors below (True, False, FromLiteral, And, Or, Not,
// Implies, Iff, Ite) and are
// immutable once constructed; structural sharing (the same *Formula
// appearing as a child of several parents) is encouraged, and CNFBuilder
// memoizes by node identity so shared subformulas are encoded once.
type Formula struct {
	Kind     Kind
	Const    bool
	Lit      sat.Literal
	Children []*Formula // and/or: any length >= 0; not/ite-cond: [0]; implies/iff: [a, b]; ite: [cond, then, else]
}

// True is the constant tautology.
var True = &Formula{Kind: KConst, Const: true}

// False is the constant contradiction.
var False = &Formula{Kind: KConst, Const: false}

// FromLiteral wraps an existing solver literal as a formula leaf.
func FromLiteral(l sat.Literal) *Formula {
	return &Formula{Kind: KLit, Lit: l}
}

// And returns the conjunction of subs. And() is True; And(f) is f.
func And(subs ...*Formula) *Formula {
	switch len(subs) {
	case 0:
		return True
	case 1:
		return subs[0]
	default:
		return &Formula{Kind: KAnd, Children: subs}
	}
}

// Or returns the disjunction of subs. Or() is False; Or(f) is f.
func Or(subs ...*Formula) *Formula {
	switch len(subs) {
	case 0:
		return False
	case 1:
		return subs[0]
	default:
		return &Formula{Kind: KOr, Children: subs}
	}
}

// Not returns the negation of f.
func Not(f *Formula) *Formula {
	if f.Kind == KConst {
		if f.Const {
			return False
		}
		return True
	}
	if f.Kind == KNot {
		return f.Children[0]
	}
	return &Formula{Kind: KNot, Children: []*Formula{f}}
}

// Implies returns a formula equivalent to (a => b).
func Implies(a, b *Formula) *Formula {
	return &Formula{Kind: KImplies, Children: []*Formula{a, b}}
}

// Iff returns a formula equivalent to (a <=> b).
func Iff(a, b *Formula) *Formula {
	return &Formula{Kind: KIff, Children: []*Formula{a, b}}
}

// Ite returns a formula equivalent to (if cond then then else els).
func Ite(cond, then, els *Formula) *Formula {
	return &Formula{Kind: KIte, Children: []*Formula{cond, then, els}}
}

// AtMostOne returns a formula asserting that at most one of lits holds,
// via the pairwise encoding (O(n^2) clauses, appropriate for the small
// exactly-one encodings used by loop selectors and multiplicity
// constraints in this package's callers).
func AtMostOne(lits ...*Formula) *Formula {
	var cs []*Formula
	for i := 0; i < len(lits); i++ {
		for j := i + 1; j < len(lits); j++ {
			cs = append(cs, Or(Not(lits[i]), Not(lits[j])))
		}
	}
	return And(cs...)
}

// ExactlyOne returns a formula asserting that exactly one of lits holds.
func ExactlyOne(lits ...*Formula) *Formula {
	return And(Or(lits...), AtMostOne(lits...))
}

func (f *Formula) String() string {
	switch f.Kind {
	case KConst:
		if f.Const {
			return "true"
		}
		return "false"
	case KLit:
		return f.Lit.String()
	case KNot:
		return "not(" + f.Children[0].String() + ")"
	case KAnd:
		return join("and", f.Children)
	case KOr:
		return join("or", f.Children)
	case KImplies:
		return fmt.Sprintf("implies(%s, %s)", f.Children[0], f.Children[1])
	case KIff:
		return fmt.Sprintf("iff(%s, %s)", f.Children[0], f.Children[1])
	case KIte:
		return fmt.Sprintf("ite(%s, %s, %s)", f.Children[0], f.Children[1], f.Children[2])
	default:
		return "?"
	}
}

func join(op string, fs []*Formula) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}
