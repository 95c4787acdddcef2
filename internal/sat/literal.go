// Package sat implements an embedded conflict-driven clause-learning (CDCL)
// SAT solver: watched-literal unit propagation, first-UIP conflict analysis
// with LBD-scored learned clauses, VSIDS branching with phase saving, Luby
// restarts, and activity-based clause database reduction.
package sat

import "fmt"

// Variable is a 0-based propositional variable index. Variables are
// allocated densely starting at 0 via Solver.AddVariable.
type Variable int

// Literal is a signed propositional literal. The encoding packs the
// variable index and sign into a single int so that Literal can be used
// directly as an index into watch lists and assignment arrays: for
// variable v, PositiveLiteral(v) == 2*v and NegativeLiteral(v) == 2*v+1.
type Literal int

// PositiveLiteral returns the literal asserting that variable v is true.
func PositiveLiteral(v int) Literal {
	return Literal(v * 2)
}

// NegativeLiteral returns the literal asserting that variable v is false.
func NegativeLiteral(v int) Literal {
	return Literal(v*2 + 1)
}

// VarID returns the ID of the literal's variable.
func (l Literal) VarID() int {
	return int(l) / 2
}

// IsPositive reports whether l asserts the positive polarity of its
// variable (i.e. is not a negation).
func (l Literal) IsPositive() bool {
	return l&1 == 0
}

// Opposite returns the negation of l.
func (l Literal) Opposite() Literal {
	return l ^ 1
}

func (l Literal) String() string {
	if l.IsPositive() {
		return fmt.Sprintf("%d", l.VarID())
	}
	return fmt.Sprintf("-%d", l.VarID())
}

// ClauseRef identifies a clause owned by the Solver. It is either a
// pointer to an original/learned clause or nil for decisions and other
// assignments without a reason clause.
type ClauseRef = *Clause
