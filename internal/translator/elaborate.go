package translator

import (
	"fmt"

	"github.com/ralloy/ralloy/internal/boolmatrix"
	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/model"
	"github.com/ralloy/ralloy/internal/universe"
)

// RelationLookup resolves a qualified relation name ("Sig" or
// "Sig.field") to its current boolean matrix at the given trace state.
// Constant relations ignore state; internal/trace supplies one
// implementation per state for variable relations.
type RelationLookup interface {
	Relation(qualifiedName string, state int) *boolmatrix.Matrix
}

// TemporalHook elaborates a temporal (LTL) Formula node. Supplied by
// internal/ltl, which wraps an Elaborator to add lasso-aware
// unrolling; left nil, a temporal node is a translation error since plain
// (non-trace) translation has no notion of "next state".
type TemporalHook func(e *Elaborator, f *model.Formula, state int) (*cnf.Formula, error)

// Elaborator recursively lowers Expr/Formula/IntExpr nodes into
// boolmatrix.Matrix / *cnf.Formula / boolmatrix.BitVector values, given a
// RelationLookup for named relations and a binding environment for
// quantifier/comprehension variables.
type Elaborator struct {
	Universe *universe.Universe
	Builder  *cnf.Builder
	Lookup   RelationLookup
	IntBits  int
	Temporal TemporalHook

	st *model.SymbolTable
}

// NewElaborator returns an Elaborator bound to st (for predicate/assertion
// lookup) and the given supporting objects.
func NewElaborator(st *model.SymbolTable, univ *universe.Universe, b *cnf.Builder, lookup RelationLookup, intBits int) *Elaborator {
	return &Elaborator{Universe: univ, Builder: b, Lookup: lookup, IntBits: intBits, st: st}
}

type bindings map[string]*boolmatrix.Matrix

// ElaborateExpr evaluates a relational expression at the given trace
// state under the current variable bindings.
func (e *Elaborator) ElaborateExpr(expr *model.Expr, state int, binds bindings) (*boolmatrix.Matrix, error) {
	switch expr.Kind {
	case model.ExprSigRef:
		m := e.Lookup.Relation(expr.Name, state)
		if m == nil {
			return nil, fmt.Errorf("translator: undeclared relation %q", expr.Name)
		}
		return m, nil
	case model.ExprFieldRef:
		m := e.Lookup.Relation(expr.Name, state)
		if m == nil {
			return nil, fmt.Errorf("translator: undeclared relation %q", expr.Name)
		}
		return m, nil
	case model.ExprVarRef:
		m, ok := binds[expr.Name]
		if !ok {
			return nil, fmt.Errorf("translator: unbound variable %q", expr.Name)
		}
		return m, nil
	case model.ExprIdenRef:
		return boolmatrix.Iden(e.Universe), nil
	case model.ExprUnivRef:
		ts := universe.NewTupleSet(1)
		for _, a := range e.Universe.Atoms() {
			ts.Add(universe.AtomTuple{a.Index})
		}
		return boolmatrix.Constant(1, ts), nil
	case model.ExprNoneRef:
		return boolmatrix.Constant(1, universe.NewTupleSet(1)), nil
	}

	if expr.Left == nil {
		return nil, fmt.Errorf("translator: malformed expression (kind %d)", expr.Kind)
	}
	left, err := e.ElaborateExpr(expr.Left, state, binds)
	if err != nil {
		return nil, err
	}

	switch expr.Kind {
	case model.ExprTranspose:
		return boolmatrix.Transpose(left), nil
	case model.ExprClosure:
		return boolmatrix.TransitiveClosure(e.Universe, left), nil
	case model.ExprReflexiveClosure:
		return boolmatrix.ReflexiveTransitiveClosure(e.Universe, left), nil
	}

	if expr.Right == nil {
		return nil, fmt.Errorf("translator: malformed binary expression (kind %d)", expr.Kind)
	}
	right, err := e.ElaborateExpr(expr.Right, state, binds)
	if err != nil {
		return nil, err
	}

	switch expr.Kind {
	case model.ExprUnion:
		return boolmatrix.Union(left, right), nil
	case model.ExprIntersect:
		return boolmatrix.Intersect(left, right), nil
	case model.ExprDifference:
		return boolmatrix.Difference(left, right), nil
	case model.ExprOverride:
		return boolmatrix.Override(left, right), nil
	case model.ExprJoin:
		return boolmatrix.Join(e.Universe, left, right), nil
	case model.ExprProduct:
		return boolmatrix.Product(left, right), nil
	default:
		return nil, fmt.Errorf("translator: unsupported expression kind %d", expr.Kind)
	}
}

// ElaborateFormula evaluates a boolean constraint at the given trace
// state.
func (e *Elaborator) ElaborateFormula(f *model.Formula, state int, binds bindings) (*cnf.Formula, error) {
	switch f.Kind {
	case model.FTrue:
		return cnf.True, nil
	case model.FFalse:
		return cnf.False, nil
	case model.FNot:
		c, err := e.ElaborateFormula(f.Left, state, binds)
		if err != nil {
			return nil, err
		}
		return cnf.Not(c), nil
	case model.FAnd:
		l, err := e.ElaborateFormula(f.Left, state, binds)
		if err != nil {
			return nil, err
		}
		r, err := e.ElaborateFormula(f.Right, state, binds)
		if err != nil {
			return nil, err
		}
		return cnf.And(l, r), nil
	case model.FOr:
		l, err := e.ElaborateFormula(f.Left, state, binds)
		if err != nil {
			return nil, err
		}
		r, err := e.ElaborateFormula(f.Right, state, binds)
		if err != nil {
			return nil, err
		}
		return cnf.Or(l, r), nil
	case model.FImplies:
		l, err := e.ElaborateFormula(f.Left, state, binds)
		if err != nil {
			return nil, err
		}
		r, err := e.ElaborateFormula(f.Right, state, binds)
		if err != nil {
			return nil, err
		}
		return cnf.Implies(l, r), nil
	case model.FIff:
		l, err := e.ElaborateFormula(f.Left, state, binds)
		if err != nil {
			return nil, err
		}
		r, err := e.ElaborateFormula(f.Right, state, binds)
		if err != nil {
			return nil, err
		}
		return cnf.Iff(l, r), nil
	case model.FEqual:
		a, err := e.ElaborateExpr(f.ExprA, state, binds)
		if err != nil {
			return nil, err
		}
		b, err := e.ElaborateExpr(f.ExprB, state, binds)
		if err != nil {
			return nil, err
		}
		return boolmatrix.Equals(a, b), nil
	case model.FSubset, model.FIn:
		a, err := e.ElaborateExpr(f.ExprA, state, binds)
		if err != nil {
			return nil, err
		}
		b, err := e.ElaborateExpr(f.ExprB, state, binds)
		if err != nil {
			return nil, err
		}
		return boolmatrix.Subset(a, b), nil
	case model.FNoExpr:
		a, err := e.ElaborateExpr(f.ExprA, state, binds)
		if err != nil {
			return nil, err
		}
		return boolmatrix.Empty(a), nil
	case model.FSomeExpr:
		a, err := e.ElaborateExpr(f.ExprA, state, binds)
		if err != nil {
			return nil, err
		}
		return boolmatrix.NonEmpty(a), nil
	case model.FOneExpr, model.FLoneExpr:
		a, err := e.ElaborateExpr(f.ExprA, state, binds)
		if err != nil {
			return nil, err
		}
		return e.cardinalityFormula(a, f.Kind == model.FOneExpr), nil
	case model.FIntLt:
		a, err := e.ElaborateInt(f.IntA, state, binds)
		if err != nil {
			return nil, err
		}
		b, err := e.ElaborateInt(f.IntB, state, binds)
		if err != nil {
			return nil, err
		}
		return boolmatrix.Lt(a, b), nil
	case model.FIntEqual:
		a, err := e.ElaborateInt(f.IntA, state, binds)
		if err != nil {
			return nil, err
		}
		b, err := e.ElaborateInt(f.IntB, state, binds)
		if err != nil {
			return nil, err
		}
		return boolmatrix.Eq(a, b), nil
	case model.FQuantified:
		return e.elaborateQuantified(f, state, binds)
	case model.FPredRef:
		pred, ok := e.st.Predicates[f.RefName]
		if !ok {
			return nil, fmt.Errorf("translator: undeclared predicate %q", f.RefName)
		}
		return e.ElaborateFormula(&pred.Body, state, binds)
	default:
		if e.Temporal == nil {
			return nil, fmt.Errorf("translator: temporal formula (kind %d) requires a trace-aware elaborator", f.Kind)
		}
		return e.Temporal(e, f, state)
	}
}

// cardinalityFormula asserts that a's cardinality is exactly one (if one
// is true) or at most one (if false), via the pairwise ExactlyOne/
// AtMostOne encodings over a's membership bits directly (cheaper than
// going through the full adder-tree Cardinality bit-vector for a
// one/lone check).
func (e *Elaborator) cardinalityFormula(a *boolmatrix.Matrix, exactlyOne bool) *cnf.Formula {
	var mems []*cnf.Formula
	a.Each(func(_ universe.AtomTuple, v boolmatrix.BooleanValue) {
		mems = append(mems, v)
	})
	if exactlyOne {
		return cnf.ExactlyOne(mems...)
	}
	return cnf.AtMostOne(mems...)
}

func (e *Elaborator) elaborateQuantified(f *model.Formula, state int, binds bindings) (*cnf.Formula, error) {
	if len(f.QuantVars) == 0 {
		return e.ElaborateFormula(f.QuantBody, state, binds)
	}

	decl := f.QuantVars[0]
	rest := f.QuantVars[1:]
	domain, err := e.ElaborateExpr(decl.Type, state, binds)
	if err != nil {
		return nil, err
	}

	var indicators []*cnf.Formula
	var err2 error
	domain.Each(func(t universe.AtomTuple, mem boolmatrix.BooleanValue) {
		if err2 != nil {
			return
		}
		nb := make(bindings, len(binds)+1)
		for k, v := range binds {
			nb[k] = v
		}
		nb[decl.Name] = singletonMatrix(domain.Arity, t, mem)

		inner := &model.Formula{Kind: model.FQuantified, QuantMult: f.QuantMult, QuantVars: rest, QuantBody: f.QuantBody}
		var body *cnf.Formula
		body, err2 = e.elaborateQuantified(inner, state, nb)
		if err2 != nil {
			return
		}

		switch f.QuantMult {
		case model.MultSetOf: // "all"
			indicators = append(indicators, cnf.Implies(mem, body))
		default:
			indicators = append(indicators, cnf.And(mem, body))
		}
	})
	if err2 != nil {
		return nil, err2
	}

	switch f.QuantMult {
	case model.MultSetOf:
		return cnf.And(indicators...), nil
	case model.MultSome:
		return cnf.Or(indicators...), nil
	case model.MultOne:
		return cnf.ExactlyOne(indicators...), nil
	case model.MultLone:
		return cnf.AtMostOne(indicators...), nil
	default:
		return nil, fmt.Errorf("translator: unsupported quantifier multiplicity %v", f.QuantMult)
	}
}

// singletonMatrix builds a one-tuple matrix standing for a bound
// quantifier variable: t's membership is mem (not necessarily constant
// true, since the domain itself may be a variable relation), every other
// tuple is implicitly false.
func singletonMatrix(arity int, t universe.AtomTuple, mem boolmatrix.BooleanValue) *boolmatrix.Matrix {
	ts := universe.NewTupleSet(arity)
	ts.Add(t)
	m := boolmatrix.Constant(arity, ts)
	return m.WithMembership(t, mem)
}
