// Package ltl unrolls bounded linear temporal logic formulas over a
// lasso-shaped trace (internal/trace): future operators (after, always,
// eventually, until, releases) and past operators (before, historically,
// once, since, triggered) are expanded into propositional formulas over
// the trace's concrete states, honoring the loop-selector disjunction at
// the trace's final state.
package ltl

import (
	"fmt"

	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/model"
	"github.com/ralloy/ralloy/internal/trace"
	"github.com/ralloy/ralloy/internal/translator"
)

// NewElaborator returns a translator.Elaborator whose Temporal hook
// unrolls LTL formulas against tr, and whose RelationLookup resolves
// relations at whatever state the hook is currently evaluating.
func NewElaborator(st *model.SymbolTable, tr *trace.Trace, b *cnf.Builder, intBits int) *translator.Elaborator {
	lookup := tr.LookupAt(0) // placeholder state; Temporal hook below always passes the real state explicitly
	e := translator.NewElaborator(st, tr.Universe, b, lookup, intBits)
	e.Temporal = func(e *translator.Elaborator, f *model.Formula, state int) (*cnf.Formula, error) {
		return unroll(e, tr, f, state)
	}
	return e
}

// unroll dispatches on f.Kind, re-entering e.ElaborateFormula (via a
// state-shifted lookup) for the sub-formula(s) at the derived state(s).
func unroll(e *translator.Elaborator, tr *trace.Trace, f *model.Formula, state int) (*cnf.Formula, error) {
	at := func(body *model.Formula, s int) (*cnf.Formula, error) {
		e.Lookup = tr.LookupAt(s)
		return e.ElaborateFormula(body, s, nil)
	}

	switch f.Kind {
	case model.FAfter:
		var disj []*cnf.Formula
		for _, sc := range tr.NextStates(state) {
			c, err := at(f.Left, sc.State)
			if err != nil {
				return nil, err
			}
			disj = append(disj, cnf.And(sc.Cond, c))
		}
		return cnf.Or(disj...), nil

	case model.FBefore:
		if state == 0 {
			return cnf.False, nil
		}
		return at(f.Left, state-1)

	case model.FAlways:
		return conjOverReachable(e, tr, f.Left, state, at)

	case model.FEventually:
		return disjOverReachable(e, tr, f.Left, state, at)

	case model.FHistorically:
		return conjOverPast(e, tr, f.Left, state, at)

	case model.FOnce:
		return disjOverPast(e, tr, f.Left, state, at)

	case model.FUntil:
		return untilFrom(e, tr, f.Left, f.Right, state, at)

	case model.FReleases:
		// p releases q == not (not p until not q)
		u, err := untilFrom(e, tr, negate(f.Left), negate(f.Right), state, at)
		if err != nil {
			return nil, err
		}
		return cnf.Not(u), nil

	case model.FSince:
		return sinceUpTo(e, tr, f.Left, f.Right, state, at)

	case model.FTriggered:
		s, err := sinceUpTo(e, tr, negate(f.Left), negate(f.Right), state, at)
		if err != nil {
			return nil, err
		}
		return cnf.Not(s), nil

	default:
		return nil, fmt.Errorf("ltl: unsupported temporal formula kind %d", f.Kind)
	}
}

func negate(f *model.Formula) *model.Formula {
	return &model.Formula{Kind: model.FNot, Left: f}
}

// lassoBranch is one candidate continuation of the trace from the state
// unroll evaluates a future operator at: the ordered sequence of states
// that continuation visits before it starts repeating, paired with the
// formula under which that continuation is the one actually taken.
type lassoBranch struct {
	Cond   *cnf.Formula
	States []int
}

// lassoBranches enumerates every way the trace can continue forward from
// state. Without a loop there is exactly one branch, the linear run to
// K-1. With a loop, every candidate loop target l contributes a branch:
// the trace still runs state..K-1 first, then wraps to l and continues
// forward, so states l..state-1 are revisited (for l < state) before the
// cycle repeats the same ground already covered. A future operator
// evaluated at state under loop target l must therefore also be
// constrained over that revisited span: each branch below already
// carries those states alongside the plain forward run.
func lassoBranches(tr *trace.Trace, state int) []lassoBranch {
	prefix := make([]int, 0, tr.K-state)
	for i := state; i < tr.K; i++ {
		prefix = append(prefix, i)
	}
	if !tr.RequiresLoop {
		return []lassoBranch{{Cond: cnf.True, States: prefix}}
	}
	out := make([]lassoBranch, tr.K)
	for l := 0; l < tr.K; l++ {
		states := append([]int(nil), prefix...)
		for i := l; i < state; i++ {
			states = append(states, i)
		}
		out[l] = lassoBranch{Cond: tr.LoopVar[l], States: states}
	}
	return out
}

func conjOverReachable(e *translator.Elaborator, tr *trace.Trace, body *model.Formula, state int, at func(*model.Formula, int) (*cnf.Formula, error)) (*cnf.Formula, error) {
	var conj []*cnf.Formula
	for _, br := range lassoBranches(tr, state) {
		for _, s := range br.States {
			c, err := at(body, s)
			if err != nil {
				return nil, err
			}
			conj = append(conj, cnf.Implies(br.Cond, c))
		}
	}
	return cnf.And(conj...), nil
}

func disjOverReachable(e *translator.Elaborator, tr *trace.Trace, body *model.Formula, state int, at func(*model.Formula, int) (*cnf.Formula, error)) (*cnf.Formula, error) {
	var disj []*cnf.Formula
	for _, br := range lassoBranches(tr, state) {
		var inner []*cnf.Formula
		for _, s := range br.States {
			c, err := at(body, s)
			if err != nil {
				return nil, err
			}
			inner = append(inner, c)
		}
		disj = append(disj, cnf.And(br.Cond, cnf.Or(inner...)))
	}
	return cnf.Or(disj...), nil
}

// pastStates returns every state from 0 to state inclusive (the trace's
// prefix is always linear and loop-free, since the loop point only
// affects states at or after K-1's successor).
func pastStates(state int) []int {
	out := make([]int, 0, state+1)
	for i := 0; i <= state; i++ {
		out = append(out, i)
	}
	return out
}

func conjOverPast(e *translator.Elaborator, tr *trace.Trace, body *model.Formula, state int, at func(*model.Formula, int) (*cnf.Formula, error)) (*cnf.Formula, error) {
	var conj []*cnf.Formula
	for _, s := range pastStates(state) {
		c, err := at(body, s)
		if err != nil {
			return nil, err
		}
		conj = append(conj, c)
	}
	return cnf.And(conj...), nil
}

func disjOverPast(e *translator.Elaborator, tr *trace.Trace, body *model.Formula, state int, at func(*model.Formula, int) (*cnf.Formula, error)) (*cnf.Formula, error) {
	var disj []*cnf.Formula
	for _, s := range pastStates(state) {
		c, err := at(body, s)
		if err != nil {
			return nil, err
		}
		disj = append(disj, c)
	}
	return cnf.Or(disj...), nil
}

// untilFrom encodes "left until right" at state: right holds at some
// state reachable on the branch the trace actually takes, with left
// holding at every state the branch visits strictly before it. Each
// lasso branch is walked in its own visitation order (state..K-1, then,
// for loop target l < state, the wrapped l..state-1 tail), since that
// order is what "strictly between" means once the trace has looped.
func untilFrom(e *translator.Elaborator, tr *trace.Trace, left, right *model.Formula, state int, at func(*model.Formula, int) (*cnf.Formula, error)) (*cnf.Formula, error) {
	var disj []*cnf.Formula
	for _, br := range lassoBranches(tr, state) {
		var branchDisj []*cnf.Formula
		for i, s := range br.States {
			r, err := at(right, s)
			if err != nil {
				return nil, err
			}
			conj := []*cnf.Formula{r}
			for j := 0; j < i; j++ {
				l, err := at(left, br.States[j])
				if err != nil {
					return nil, err
				}
				conj = append(conj, l)
			}
			branchDisj = append(branchDisj, cnf.And(conj...))
		}
		disj = append(disj, cnf.And(br.Cond, cnf.Or(branchDisj...)))
	}
	return cnf.Or(disj...), nil
}

// sinceUpTo encodes "left since right" at state: right held at some past
// state s' <= state, with left holding at every state strictly between
// s' and state.
func sinceUpTo(e *translator.Elaborator, tr *trace.Trace, left, right *model.Formula, state int, at func(*model.Formula, int) (*cnf.Formula, error)) (*cnf.Formula, error) {
	past := pastStates(state)
	var disj []*cnf.Formula
	for i := len(past) - 1; i >= 0; i-- {
		s := past[i]
		r, err := at(right, s)
		if err != nil {
			return nil, err
		}
		conj := []*cnf.Formula{r}
		for j := i + 1; j < len(past); j++ {
			l, err := at(left, past[j])
			if err != nil {
				return nil, err
			}
			conj = append(conj, l)
		}
		disj = append(disj, cnf.And(conj...))
	}
	return cnf.Or(disj...), nil
}
