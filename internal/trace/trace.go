// Package trace builds the bounded lasso trace a temporal command is
// unrolled over: K states, each holding one boolean matrix per relation
// (shared across states for constant relations, fresh per state for
// variable ones), plus an optional loop back to an earlier state encoded
// by a bank of mutually-exclusive loop-selector variables.
package trace

import (
	"github.com/ralloy/ralloy/internal/boolmatrix"
	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/sat"
	"github.com/ralloy/ralloy/internal/universe"
)

// Trace holds K states of a bounded model and, if RequiresLoop, the
// selector variables asserting exactly one loop-back point (or none, if
// the command never dereferences the trace past state K-1 and no loop is
// needed for a terminating bounded check).
type Trace struct {
	Universe     *universe.Universe
	K            int
	RequiresLoop bool

	// LoopVar[i] holds the formula asserting "the trace loops from state
	// K-1 back to state i". Exactly one is true when RequiresLoop.
	LoopVar []*cnf.Formula

	relations map[string]*TemporalRelation
}

// TemporalRelation is one signature or field's value across every trace
// state.
type TemporalRelation struct {
	Name       string
	Arity      int
	IsVariable bool
	States     []*boolmatrix.Matrix // len 1 if !IsVariable (shared across all states)
}

// AtState returns the relation's value at state s (clamped to the single
// shared matrix if the relation is not variable).
func (r *TemporalRelation) AtState(s int) *boolmatrix.Matrix {
	if !r.IsVariable {
		return r.States[0]
	}
	return r.States[s]
}

// Build allocates a Trace of k states over univ: each relation named in
// bounds gets one Matrix per state if variable is true for it (per
// isVariable), else a single matrix shared by every state.
func Build(univ *universe.Universe, bounds map[string]*universe.RelationBounds, isVariable map[string]bool, b *cnf.Builder, k int, requiresLoop bool) *Trace {
	t := &Trace{
		Universe:     univ,
		K:            k,
		RequiresLoop: requiresLoop,
		relations:    make(map[string]*TemporalRelation, len(bounds)),
	}

	for name, rb := range bounds {
		variable := isVariable[name]
		tr := &TemporalRelation{Name: name, Arity: rb.Arity, IsVariable: variable}
		if variable {
			tr.States = make([]*boolmatrix.Matrix, k)
			for s := 0; s < k; s++ {
				tr.States[s] = boolmatrix.New(b, rb)
			}
		} else {
			tr.States = []*boolmatrix.Matrix{boolmatrix.New(b, rb)}
		}
		t.relations[name] = tr
	}

	if requiresLoop {
		t.LoopVar = make([]*cnf.Formula, k)
		for i := 0; i < k; i++ {
			v := b.NewVar()
			t.LoopVar[i] = cnf.FromLiteral(sat.PositiveLiteral(v))
		}
		b.AssertTrue(cnf.ExactlyOne(t.LoopVar...))
	}

	return t
}

// Relation returns the named temporal relation, or nil if undeclared.
func (t *Trace) Relation(name string) *TemporalRelation { return t.relations[name] }

// Relations exposes every temporal relation, keyed by qualified name, for
// decoding.
func (t *Trace) Relations() map[string]*TemporalRelation { return t.relations }

// LookupAt returns a translator.RelationLookup view of the trace fixed at
// the given "current" state; used by the plain (non-temporal) elaborator
// when evaluating a sub-formula within a fixed trace position.
func (t *Trace) LookupAt(state int) stateLookup {
	return stateLookup{t: t, state: state}
}

type stateLookup struct {
	t     *Trace
	state int
}

func (l stateLookup) Relation(name string, _ int) *boolmatrix.Matrix {
	tr := l.t.relations[name]
	if tr == nil {
		return nil
	}
	return tr.AtState(l.state)
}

// LoopsTo returns the formula asserting that the trace's successor of
// state K-1 is state i (true only when RequiresLoop and i is the actual
// loop target). Used by the LTL unroller to build "next(K-1) = i"
// disjunctions.
func (t *Trace) LoopsTo(i int) *cnf.Formula {
	if !t.RequiresLoop || i < 0 || i >= t.K {
		return cnf.False
	}
	return t.LoopVar[i]
}

// NextStates returns every state that could follow s, each paired with
// the condition under which it is the actual successor: s+1 under
// cnf.True if s < K-1; otherwise every state i under LoopVar[i] when
// RequiresLoop, or nil when the trace does not loop.
func (t *Trace) NextStates(s int) []StateCond {
	if s < t.K-1 {
		return []StateCond{{State: s + 1, Cond: cnf.True}}
	}
	if !t.RequiresLoop {
		return nil
	}
	out := make([]StateCond, t.K)
	for i := 0; i < t.K; i++ {
		out[i] = StateCond{State: i, Cond: t.LoopVar[i]}
	}
	return out
}

// StateCond pairs a concrete trace state with the formula under which a
// lasso successor/predecessor relation actually points there.
type StateCond struct {
	State int
	Cond  *cnf.Formula
}

// PrevStates returns every state that could precede s, each paired with
// its condition: s-1 under cnf.True when s > 0 and, when RequiresLoop,
// the last state K-1 under LoopVar[s] (the loop-back edge into s).
func (t *Trace) PrevStates(s int) []StateCond {
	var out []StateCond
	if s > 0 {
		out = append(out, StateCond{State: s - 1, Cond: cnf.True})
	}
	if t.RequiresLoop {
		out = append(out, StateCond{State: t.K - 1, Cond: t.LoopVar[s]})
	}
	return out
}
