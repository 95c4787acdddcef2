// Package extract decodes a satisfying SAT assignment back into a
// relational instance (for a temporal command, one instance holding the
// relations of every trace state under distinct qualified names) and
// drives enumeration of further, distinct solutions via blocking clauses.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ralloy/ralloy/internal/boolmatrix"
	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/sat"
	"github.com/ralloy/ralloy/internal/universe"
)

// Instance is the decoded value of every relation in the decoded relation
// set: a map from qualified relation name to the concrete tuples that
// hold in the model.
type Instance struct {
	Universe  *universe.Universe
	Relations map[string][]universe.AtomTuple
}

// String renders the instance as a sequence of "name = {tuples}" lines in
// sorted relation-name order, for deterministic output.
func (in *Instance) String() string {
	names := make([]string, 0, len(in.Relations))
	for n := range in.Relations {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		tuples := in.Relations[n]
		parts := make([]string, len(tuples))
		for i, t := range tuples {
			parts[i] = t.String()
		}
		fmt.Fprintf(&b, "%s = {%s}\n", n, strings.Join(parts, ", "))
	}
	return b.String()
}

// Decode reads off the concrete tuples of every relation in relations
// under an assignment (valueOf gives each literal's truth value;
// NextInstance passes one backed by the solver's latest saved model).
func Decode(univ *universe.Universe, relations map[string]*boolmatrix.Matrix, valueOf func(sat.Literal) bool) *Instance {
	in := &Instance{Universe: univ, Relations: make(map[string][]universe.AtomTuple, len(relations))}
	for name, m := range relations {
		var tuples []universe.AtomTuple
		m.Each(func(t universe.AtomTuple, v boolmatrix.BooleanValue) {
			if evalConst(v, valueOf) {
				tuples = append(tuples, t)
			}
		})
		in.Relations[name] = tuples
	}
	return in
}

// evalConst evaluates a membership BooleanValue against the given
// assignment. It handles only constants and bare literals, which is what
// matrices allocated by boolmatrix.New/Constant hold; it panics on the
// compound formulas held by matrices derived through operators.
func evalConst(v boolmatrix.BooleanValue, valueOf func(sat.Literal) bool) bool {
	switch v.Kind {
	case cnf.KConst:
		return v.Const
	case cnf.KLit:
		return valueOf(v.Lit)
	default:
		panic("extract: matrix membership value is not a constant or literal")
	}
}

// Enumerator drives repeated calls to the solver to produce a sequence of
// distinct instances, each blocked from recurring by a freshly added
// clause negating the full prior assignment.
type Enumerator struct {
	solver    *sat.Solver
	univ      *universe.Universe
	relations map[string]*boolmatrix.Matrix
}

// NewEnumerator returns an Enumerator over the given solver and relation
// set (the relations of a single decoded state, or of every state of a
// temporal trace flattened under distinct qualified names).
func NewEnumerator(s *sat.Solver, univ *universe.Universe, relations map[string]*boolmatrix.Matrix) *Enumerator {
	return &Enumerator{solver: s, univ: univ, relations: relations}
}

// NextInstance solves once more (blocking every instance already
// returned by this Enumerator) and decodes the result, or returns nil,
// false once the problem is unsatisfiable.
func (en *Enumerator) NextInstance(solve func() sat.LBool) (*Instance, bool, error) {
	status := solve()
	switch status {
	case sat.False:
		return nil, false, nil
	case sat.Unknown:
		return nil, false, fmt.Errorf("extract: solve was cancelled before completion")
	}

	model := en.solver.Models[len(en.solver.Models)-1]
	valueOf := func(l sat.Literal) bool {
		v := model[l.VarID()]
		if l.IsPositive() {
			return v
		}
		return !v
	}

	in := Decode(en.univ, en.relations, valueOf)

	if err := en.solver.AddBlockingClause(model); err != nil {
		return nil, false, fmt.Errorf("extract: blocking prior instance: %w", err)
	}

	return in, true, nil
}
