package trace

import (
	"context"
	"testing"

	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/sat"
	"github.com/ralloy/ralloy/internal/universe"
)

type sink struct{ s *sat.Solver }

func (sk *sink) AddVariable() int                   { return sk.s.AddVariable() }
func (sk *sink) AddClause(lits []sat.Literal) error { return sk.s.AddClause(lits) }

func upper(n int) *universe.TupleSet {
	ts := universe.NewTupleSet(1)
	for i := 0; i < n; i++ {
		ts.Add(universe.AtomTuple{i})
	}
	return ts
}

func TestBuildSharesConstantSharesOneMatrix(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := universe.NewBuilder()
	univ.AddAtoms("A", 2)
	u := univ.Build()

	bounds := map[string]*universe.RelationBounds{"Const": universe.NewRelationBounds("Const", upper(2))}
	tr := Build(u, bounds, map[string]bool{"Const": false}, b, 3, false)

	rel := tr.Relation("Const")
	if rel.AtState(0) != rel.AtState(2) {
		t.Errorf("non-variable relation should share one matrix across all states")
	}
}

func TestBuildVariableGetsPerStateMatrices(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := universe.NewBuilder()
	univ.AddAtoms("A", 2)
	u := univ.Build()

	bounds := map[string]*universe.RelationBounds{"Var": universe.NewRelationBounds("Var", upper(2))}
	tr := Build(u, bounds, map[string]bool{"Var": true}, b, 3, false)

	rel := tr.Relation("Var")
	if rel.AtState(0) == rel.AtState(1) {
		t.Errorf("variable relation should have distinct matrices per state")
	}
}

func TestLoopSelectorsAreExactlyOne(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := universe.NewBuilder()
	univ.AddAtoms("A", 1)
	u := univ.Build()

	tr := Build(u, map[string]*universe.RelationBounds{}, map[string]bool{}, b, 3, true)

	if tr.LoopsTo(0) == cnf.False {
		t.Fatalf("LoopsTo(0) should be a real selector variable when RequiresLoop")
	}
	if s.Solve(context.Background()) != sat.True {
		t.Fatalf("exactly-one loop selector bank should be satisfiable")
	}
	model := s.Models[len(s.Models)-1]
	selected := 0
	for _, lv := range tr.LoopVar {
		if model[lv.Lit.VarID()] {
			selected++
		}
	}
	if selected != 1 {
		t.Errorf("%d loop selectors true in the model, want exactly 1", selected)
	}
}

func TestNextStatesNoLoopTerminatesAtLastState(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := universe.NewBuilder()
	univ.AddAtoms("A", 1)
	u := univ.Build()
	tr := Build(u, map[string]*universe.RelationBounds{}, map[string]bool{}, b, 3, false)

	if got := tr.NextStates(0); len(got) != 1 || got[0].State != 1 {
		t.Errorf("NextStates(0) = %v, want single successor state 1", got)
	}
	if got := tr.NextStates(2); got != nil {
		t.Errorf("NextStates(last) without a loop should be empty, got %v", got)
	}
}

func TestNextStatesWithLoopFansOutOverAllTargets(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := universe.NewBuilder()
	univ.AddAtoms("A", 1)
	u := univ.Build()
	tr := Build(u, map[string]*universe.RelationBounds{}, map[string]bool{}, b, 3, true)

	got := tr.NextStates(2)
	if len(got) != 3 {
		t.Fatalf("NextStates(K-1) with loop = %d branches, want 3", len(got))
	}
}

func TestPrevStatesIncludesLoopbackOnlyWhenLooping(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := universe.NewBuilder()
	univ.AddAtoms("A", 1)
	u := univ.Build()
	tr := Build(u, map[string]*universe.RelationBounds{}, map[string]bool{}, b, 3, true)

	got := tr.PrevStates(0)
	if len(got) != 1 || got[0].State != 2 {
		t.Errorf("PrevStates(0) = %v, want only the loopback from state K-1", got)
	}

	got = tr.PrevStates(1)
	if len(got) != 2 || got[0].State != 0 || got[1].State != 2 {
		t.Errorf("PrevStates(1) = %v, want [direct predecessor 0, loopback from 2]", got)
	}
}
