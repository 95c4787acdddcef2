// Package translator elaborates a model.SymbolTable under a
// model.CommandScope into the boolean-matrix/CNF representation consumed
// by the SAT solver: signature and field bounds, multiplicity
// constraints, and the recursive Expr/Formula/IntExpr evaluator.
package translator

import (
	"fmt"

	"github.com/ralloy/ralloy/internal/model"
	"github.com/ralloy/ralloy/internal/universe"
)

// AllocateUniverse assigns a contiguous range of atoms to every
// non-subset signature (roots and extends-children, depth-first so each
// abstract ancestor's range ends up the exact union of its descendants'
// ranges) per scope. Subset ("in") signatures mint no atoms of their own
// and are resolved against their parents' ranges separately, in
// AllocateBounds.
func AllocateUniverse(st *model.SymbolTable, scope model.CommandScope) *universe.Universe {
	b := universe.NewBuilder()

	var roots []string
	for _, name := range st.SigOrder() {
		sig := st.Sigs[name]
		if sig.Extends == "" && len(sig.SubsetParents) == 0 {
			roots = append(roots, name)
		}
	}

	var allocate func(name string)
	allocate = func(name string) {
		sig := st.Sigs[name]
		start := b.Size()
		if !sig.Abstract {
			count := scope.DefaultScope
			if c, ok := scope.TypeScopes[name]; ok {
				count = c
			}
			if sig.ScopeHint > 0 {
				count = sig.ScopeHint
			}
			b.AddAtoms(name, count)
		}
		for _, child := range st.ChildrenOf(name) {
			allocate(child)
		}
		b.ExtendRange(name, start, b.Size())
	}

	for _, r := range roots {
		allocate(r)
	}

	return b.Build()
}

func rangeTuples(univ *universe.Universe, sigName string) *universe.TupleSet {
	start, end, ok := univ.RangeOf(sigName)
	ts := universe.NewTupleSet(1)
	if !ok {
		return ts
	}
	for i := start; i < end; i++ {
		ts.Add(universe.AtomTuple{i})
	}
	return ts
}

// AllocateBounds computes the RelationBounds of every signature and field
// in st under univ: ordinary (root/extends) signatures have a population
// fixed by the scope (Lower == Upper); subset signatures have a free
// population drawn from the union of their parents' ranges (Lower
// empty); fields are free relations over the cross product of their
// owner's and column types' ranges.
func AllocateBounds(st *model.SymbolTable, univ *universe.Universe) (map[string]*universe.RelationBounds, error) {
	bounds := make(map[string]*universe.RelationBounds)

	for _, name := range st.SigOrder() {
		sig := st.Sigs[name]
		if len(sig.SubsetParents) > 0 {
			upper := universe.NewTupleSet(1)
			for _, p := range sig.SubsetParents {
				upper = universe.Union(upper, rangeTuples(univ, p))
			}
			bounds[name] = universe.NewRelationBounds(name, upper)
			continue
		}
		upper := rangeTuples(univ, name)
		rb := universe.NewRelationBounds(name, upper)
		rb.Lower = upper // population is fixed by the scope allocation
		bounds[name] = rb
	}

	for _, name := range st.SigOrder() {
		for _, f := range st.Sigs[name].Fields {
			cols := []*universe.TupleSet{rangeTuples(univ, name)}
			for _, t := range f.Type {
				cols = append(cols, rangeTuples(univ, t))
			}
			upper := cols[0]
			for _, c := range cols[1:] {
				upper = universe.CrossProduct(upper, c)
			}
			key := qualifiedFieldName(name, f.Name)
			bounds[key] = universe.NewRelationBounds(key, upper)
		}
	}

	return bounds, nil
}

func qualifiedFieldName(owner, field string) string {
	return fmt.Sprintf("%s.%s", owner, field)
}
