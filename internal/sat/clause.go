package sat

import "strings"

// Clause is a contiguous sequence of literals plus the bookkeeping needed
// for watched-literal propagation and activity-based database reduction.
//
// Invariant: for a non-deleted, non-unit clause, positions 0 and 1 are the
// two currently watched literals.
type Clause struct {
	sliceRef *[]Literal
	literals []Literal

	activity float64

	// lbd is the literal block distance: the number of distinct decision
	// levels among the clause's literals at the time it was learned. Lower
	// is better; ReduceDB uses it to break ties between equally active
	// clauses.
	lbd int

	isLearned  bool
	isDeleted  bool
	isProtected bool
}

// newClause allocates a Clause, recycling its literal backing slice from
// the pool sized for len(lits).
func newClause(lits []Literal, learned bool) *Clause {
	c := &Clause{isLearned: learned}
	c.sliceRef = allocLiterals(len(lits))
	c.literals = (*c.sliceRef)[:0]
	c.literals = append(c.literals, lits...)
	return c
}

// NewClause constructs and (if non-trivial) watches a new clause from
// tmpLiterals. The returned bool is false if the clause is empty after
// filtering, or is a unit clause whose literal is already false under the
// current assignment; a nil Clause with ok==true means the
// clause was subsumed by an existing assignment or unit-propagated
// immediately and need not be stored.
//
// tmpLiterals is mutated in place (for original clauses: deduplicated and
// filtered against root-level assignments).
func NewClause(s *Solver, tmpLiterals []Literal, learned bool) (*Clause, bool) {
	size := len(tmpLiterals)

	if !learned {
		seen := map[Literal]struct{}{}
		for i := size - 1; i >= 0; i-- {
			if _, ok := seen[tmpLiterals[i].Opposite()]; ok {
				return nil, true // tautological clause, always true
			}
			if _, ok := seen[tmpLiterals[i]]; ok {
				size--
				tmpLiterals[i], tmpLiterals[size] = tmpLiterals[size], tmpLiterals[i]
				continue
			}
			seen[tmpLiterals[i]] = struct{}{}

			switch s.LitValue(tmpLiterals[i]) {
			case True:
				return nil, true
			case False:
				size--
				tmpLiterals[i], tmpLiterals[size] = tmpLiterals[size], tmpLiterals[i]
			}
		}
		tmpLiterals = tmpLiterals[:size]
	}

	switch size {
	case 0:
		return nil, false
	case 1:
		return nil, s.enqueue(tmpLiterals[0], nil)
	default:
		c := newClause(tmpLiterals, learned)

		if learned {
			c.lbd = countDistinctLevels(s, c.literals)

			maxLevel, wl := -1, -1
			for i := 1; i < len(c.literals); i++ {
				if lvl := s.level[c.literals[i].VarID()]; lvl > maxLevel {
					maxLevel = lvl
					wl = i
				}
			}
			c.literals[wl], c.literals[1] = c.literals[1], c.literals[wl]
		}

		s.watch(c, c.literals[0].Opposite(), c.literals[1])
		s.watch(c, c.literals[1].Opposite(), c.literals[0])

		return c, true
	}
}

// countDistinctLevels computes the clause's LBD: the number of distinct
// decision levels among its literals.
func countDistinctLevels(s *Solver, lits []Literal) int {
	seen := make(map[int]struct{}, len(lits))
	for _, l := range lits {
		seen[s.level[l.VarID()]] = struct{}{}
	}
	return len(seen)
}

// Literals returns the clause's literals. The returned slice must not be
// retained across calls that may mutate the clause (Propagate, Simplify).
func (c *Clause) Literals() []Literal { return c.literals }

// Len returns the number of literals currently in the clause.
func (c *Clause) Len() int { return len(c.literals) }

// LBD returns the clause's literal block distance.
func (c *Clause) LBD() int { return c.lbd }

// IsLearned reports whether the clause was derived by conflict analysis.
func (c *Clause) IsLearned() bool { return c.isLearned }

func (c *Clause) locked(s *Solver) bool {
	return s.reason[c.literals[0].VarID()] == c
}

// Remove unwatches and frees the clause's backing storage.
func (c *Clause) Remove(s *Solver) {
	c.isDeleted = true
	s.unwatch(c, c.literals[0].Opposite())
	s.unwatch(c, c.literals[1].Opposite())
	if c.sliceRef != nil {
		freeLiterals(c.sliceRef)
		c.sliceRef = nil
	}
	c.literals = nil
}

// Simplify drops literals falsified at the root level and reports whether
// the clause is satisfied at the root (in which case it should be removed).
func (c *Clause) Simplify(s *Solver) bool {
	j := 0
	for _, l := range c.literals {
		switch s.LitValue(l) {
		case True:
			return true
		case False:
			// discard
		case Unknown:
			c.literals[j] = l
			j++
		}
	}
	c.literals = c.literals[:j]
	return false
}

// Propagate is invoked when the watched literal l's negation just became
// true. It either finds a new literal to watch, detects the clause is
// already satisfied, enqueues the forced literal, or (by returning false)
// signals that the clause is now a conflict.
func (c *Clause) Propagate(s *Solver, l Literal) bool {
	opp := l.Opposite()
	if c.literals[0] == opp {
		c.literals[0], c.literals[1] = c.literals[1], opp
	}

	if s.LitValue(c.literals[0]) == True {
		s.watch(c, l, c.literals[0])
		return true
	}

	for i := 2; i < len(c.literals); i++ {
		if s.LitValue(c.literals[i]) != False {
			c.literals[1], c.literals[i] = c.literals[i], l.Opposite()
			s.watch(c, c.literals[1].Opposite(), c.literals[0])
			return true
		}
	}

	s.watch(c, l, c.literals[0])
	return s.enqueue(c.literals[0], c)
}

// ExplainFailure returns the clause negated, used as the seed of conflict
// analysis when the clause itself is falsified.
func (c *Clause) ExplainFailure(s *Solver) []Literal {
	out := s.tmpReason[:0]
	for _, l := range c.literals {
		out = append(out, l.Opposite())
	}
	s.tmpReason = out
	if c.isLearned {
		s.BumpClauseActivity(c)
	}
	return out
}

// ExplainAssign returns the reason for the clause's propagated literal
// (literals[0]): the negation of every other literal in the clause.
func (c *Clause) ExplainAssign(s *Solver) []Literal {
	out := s.tmpReason[:0]
	for _, l := range c.literals[1:] {
		out = append(out, l.Opposite())
	}
	s.tmpReason = out
	if c.isLearned {
		s.BumpClauseActivity(c)
	}
	return out
}

func (c *Clause) String() string {
	if len(c.literals) == 0 {
		return "Clause[]"
	}
	sb := strings.Builder{}
	sb.WriteString("Clause[")
	sb.WriteString(c.literals[0].String())
	for _, l := range c.literals[1:] {
		sb.WriteByte(' ')
		sb.WriteString(l.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
