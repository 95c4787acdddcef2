package translator

import (
	"fmt"

	"github.com/ralloy/ralloy/internal/boolmatrix"
	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/model"
	"github.com/ralloy/ralloy/internal/universe"
)

// ConstantLookup implements RelationLookup for a single, non-temporal
// state: every relation (signature or field) maps to one matrix,
// regardless of the state argument. internal/trace supplies the
// multi-state implementation used when a command's scope calls for more
// than one step.
type ConstantLookup struct {
	relations map[string]*boolmatrix.Matrix
}

// NewConstantLookup builds a ConstantLookup from st's declared
// signatures and fields, allocating one fresh Matrix per relation from
// bounds via b.
func NewConstantLookup(st *model.SymbolTable, bounds map[string]*universe.RelationBounds, b *cnf.Builder) *ConstantLookup {
	l := &ConstantLookup{relations: make(map[string]*boolmatrix.Matrix, len(bounds))}
	for name, rb := range bounds {
		l.relations[name] = boolmatrix.New(b, rb)
	}
	return l
}

func (l *ConstantLookup) Relation(name string, _ int) *boolmatrix.Matrix {
	return l.relations[name]
}

// Relations exposes the underlying map, for callers (internal/extract)
// that need to decode every relation's final value from a model.
func (l *ConstantLookup) Relations() map[string]*boolmatrix.Matrix { return l.relations }

// FieldMultiplicityFormula asserts the multiplicity declared on f's
// trailing column: for every tuple of f's preceding columns, exactly one
// (Mult one), at most one (lone), or at least one (some) matching
// trailing value. Only binary fields (owner -> one column) are
// supported; higher-arity fields carry no automatic multiplicity
// constraint.
func FieldMultiplicityFormula(f *model.FieldDecl, m *boolmatrix.Matrix) *cnf.Formula {
	if f.Mult == model.MultSetOf || f.Arity() != 2 {
		return cnf.True
	}

	byOwner := map[int][]*cnf.Formula{}
	var owners []int
	m.Each(func(t universe.AtomTuple, v boolmatrix.BooleanValue) {
		if _, ok := byOwner[t[0]]; !ok {
			owners = append(owners, t[0])
		}
		byOwner[t[0]] = append(byOwner[t[0]], v)
	})

	var conj []*cnf.Formula
	for _, o := range owners {
		mems := byOwner[o]
		switch f.Mult {
		case model.MultOne:
			conj = append(conj, cnf.ExactlyOne(mems...))
		case model.MultLone:
			conj = append(conj, cnf.AtMostOne(mems...))
		case model.MultSome:
			conj = append(conj, cnf.Or(mems...))
		}
	}
	return cnf.And(conj...)
}

// AssertSignatureFacts posts every top-level fact and every field's
// multiplicity constraint against lookup at the given state.
func AssertSignatureFacts(e *Elaborator, st *model.SymbolTable, lookup *ConstantLookup, state int) error {
	for _, name := range st.SigOrder() {
		for _, f := range st.Sigs[name].Fields {
			m := lookup.Relation(qualifiedFieldName(name, f.Name), state)
			e.Builder.AssertTrue(FieldMultiplicityFormula(f, m))
		}
	}
	for i := range st.Facts {
		c, err := e.ElaborateFormula(&st.Facts[i], state, nil)
		if err != nil {
			return fmt.Errorf("translator: elaborating fact %d: %w", i, err)
		}
		e.Builder.AssertTrue(c)
	}
	return nil
}

// TranslateRun elaborates cmd's target predicate (plus every declared
// fact and field multiplicity constraint) against a freshly allocated
// single-state universe, and asserts it as a top-level constraint on b.
// It returns the lookup so callers can later decode a satisfying
// assignment back into an instance.
func TranslateRun(st *model.SymbolTable, cmd *model.Command, b *cnf.Builder) (*universe.Universe, *ConstantLookup, error) {
	univ := AllocateUniverse(st, cmd.Scope)
	bounds, err := AllocateBounds(st, univ)
	if err != nil {
		return nil, nil, err
	}
	lookup := NewConstantLookup(st, bounds, b)
	e := NewElaborator(st, univ, b, lookup, cmd.Scope.IntBits)

	if err := AssertSignatureFacts(e, st, lookup, 0); err != nil {
		return nil, nil, err
	}

	if cmd.TargetName != "" {
		pred, ok := st.Predicates[cmd.TargetName]
		if !ok {
			return nil, nil, fmt.Errorf("translator: undeclared predicate %q", cmd.TargetName)
		}
		c, err := e.ElaborateFormula(&pred.Body, 0, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("translator: elaborating predicate %q: %w", cmd.TargetName, err)
		}
		b.AssertTrue(c)
	}

	return univ, lookup, nil
}

// TranslateCheck elaborates cmd's target assertion's negation (plus facts
// and multiplicity constraints): a model found for the negation is a
// counterexample to the assertion.
func TranslateCheck(st *model.SymbolTable, cmd *model.Command, b *cnf.Builder) (*universe.Universe, *ConstantLookup, error) {
	univ := AllocateUniverse(st, cmd.Scope)
	bounds, err := AllocateBounds(st, univ)
	if err != nil {
		return nil, nil, err
	}
	lookup := NewConstantLookup(st, bounds, b)
	e := NewElaborator(st, univ, b, lookup, cmd.Scope.IntBits)

	if err := AssertSignatureFacts(e, st, lookup, 0); err != nil {
		return nil, nil, err
	}

	assertion, ok := st.Assertions[cmd.TargetName]
	if !ok {
		return nil, nil, fmt.Errorf("translator: undeclared assertion %q", cmd.TargetName)
	}
	c, err := e.ElaborateFormula(&assertion.Body, 0, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("translator: elaborating assertion %q: %w", cmd.TargetName, err)
	}
	b.AssertTrue(cnf.Not(c))

	return univ, lookup, nil
}
