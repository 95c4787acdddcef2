package boolmatrix

import (
	"context"
	"testing"

	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/sat"
	"github.com/ralloy/ralloy/internal/universe"
)

func atoms(n int) *universe.Universe {
	b := universe.NewBuilder()
	b.AddAtoms("A", n)
	return b.Build()
}

func upperAll(n int) *universe.TupleSet {
	ts := universe.NewTupleSet(1)
	for i := 0; i < n; i++ {
		ts.Add(universe.AtomTuple{i})
	}
	return ts
}

func TestUnionIntersectDifference(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})

	rb := universe.NewRelationBounds("r", upperAll(3))
	a := New(b, rb)
	c := New(b, rb)

	u := Union(a, c)
	if u.Tuples.Len() != 3 {
		t.Fatalf("Union upper bound has %d tuples, want 3", u.Tuples.Len())
	}

	b.AssertTrue(a.Mem(universe.AtomTuple{0}))
	b.AssertTrue(cnf.Not(c.Mem(universe.AtomTuple{0})))
	b.AssertTrue(cnf.Not(a.Mem(universe.AtomTuple{1})))
	b.AssertTrue(cnf.Not(c.Mem(universe.AtomTuple{1})))

	inter := Intersect(a, c)
	diff := Difference(a, c)

	b.AssertTrue(u.Mem(universe.AtomTuple{0}))
	b.AssertTrue(cnf.Not(inter.Mem(universe.AtomTuple{0})))
	b.AssertTrue(diff.Mem(universe.AtomTuple{0}))
	b.AssertTrue(cnf.Not(u.Mem(universe.AtomTuple{1})))

	if s.Solve(context.Background()) != sat.True {
		t.Fatalf("expected satisfiable")
	}
}

func TestJoinComposesRelations(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := atoms(3)

	rb := universe.NewRelationBounds("r", universe.CrossProduct(upperAll(3), upperAll(3)))
	r := New(b, rb)

	// Force r = {(0,1), (1,2)}; r.r should contain (0,2).
	forceBinary(b, r, univ, map[[2]int]bool{
		{0, 1}: true, {1, 2}: true,
	})

	joined := Join(univ, r, r)
	b.AssertTrue(joined.Mem(universe.AtomTuple{0, 2}))

	if s.Solve(context.Background()) != sat.True {
		t.Fatalf("expected join(r, r) to contain (0, 2)")
	}
}

func TestTransposeSwapsColumns(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := atoms(2)

	rb := universe.NewRelationBounds("r", universe.CrossProduct(upperAll(2), upperAll(2)))
	r := New(b, rb)
	forceBinary(b, r, univ, map[[2]int]bool{{0, 1}: true})

	tr := Transpose(r)
	b.AssertTrue(tr.Mem(universe.AtomTuple{1, 0}))
	b.AssertTrue(cnf.Not(tr.Mem(universe.AtomTuple{0, 1})))

	if s.Solve(context.Background()) != sat.True {
		t.Fatalf("expected transpose to hold (1,0) and not (0,1)")
	}
}

func TestTransitiveClosure(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})
	univ := atoms(3)

	rb := universe.NewRelationBounds("r", universe.CrossProduct(upperAll(3), upperAll(3)))
	r := New(b, rb)
	forceBinary(b, r, univ, map[[2]int]bool{{0, 1}: true, {1, 2}: true})

	tc := TransitiveClosure(univ, r)
	b.AssertTrue(tc.Mem(universe.AtomTuple{0, 2}))
	b.AssertTrue(cnf.Not(tc.Mem(universe.AtomTuple{2, 0})))

	if s.Solve(context.Background()) != sat.True {
		t.Fatalf("expected (0,2) in transitive closure of {(0,1),(1,2)}")
	}
}

func TestEmptyNonEmptySubset(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(&sink{s})

	rb := universe.NewRelationBounds("r", upperAll(2))
	r := New(b, rb)

	b.AssertTrue(NonEmpty(r))
	b.AssertTrue(Subset(r, Constant(1, upperAll(2))))

	if s.Solve(context.Background()) != sat.True {
		t.Fatalf("nonempty r subset of univ should be satisfiable")
	}
}

// forceBinary asserts r's membership for exactly the given (a,b) pairs
// over univ's full atom range, true where listed and false elsewhere.
func forceBinary(b *cnf.Builder, r *Matrix, univ *universe.Universe, want map[[2]int]bool) {
	for _, t1 := range univ.Atoms() {
		for _, t2 := range univ.Atoms() {
			tup := universe.AtomTuple{t1.Index, t2.Index}
			if want[[2]int{t1.Index, t2.Index}] {
				b.AssertTrue(r.Mem(tup))
			} else {
				b.AssertTrue(cnf.Not(r.Mem(tup)))
			}
		}
	}
}

type sink struct{ s *sat.Solver }

func (sk *sink) AddVariable() int                     { return sk.s.AddVariable() }
func (sk *sink) AddClause(lits []sat.Literal) error { return sk.s.AddClause(lits) }
