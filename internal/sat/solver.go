package sat

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// watcher is a clause attached to the watch list of one of its two watched
// literals.
type watcher struct {
	clause *Clause
	// guard is the clause's other watched literal. If it is currently true
	// the clause need not be inspected during propagation, which avoids
	// touching (and potentially paging in) the clause's full literal slice.
	guard Literal
}

// Options configures a Solver.
type Options struct {
	ClauseDecay   float64
	VariableDecay float64
	PhaseSaving   bool
	LubyBase      int
	ReduceDBBase  int
}

// DefaultOptions mirrors common MiniSat-family defaults.
var DefaultOptions = Options{
	ClauseDecay:   0.999,
	VariableDecay: 0.95,
	PhaseSaving:   true,
	LubyBase:      100,
	ReduceDBBase:  2000,
}

// Solver is an embedded CDCL SAT solver over a clause database built
// incrementally via AddVariable/AddClause.
type Solver struct {
	// Clause database: constraints (original clauses) and learnts, plus
	// per-literal watch lists.
	constraints []*Clause
	learnts     []*Clause
	watchers    [][]watcher

	clauseInc   float64
	clauseDecay float64

	order *VarOrder

	propQueue *propQueue

	// assigns[lit] is the value of literal lit (derived values are kept in
	// sync for both polarities to avoid branching in LitValue).
	assigns []LBool

	// Trail and per-variable bookkeeping.
	trail    []Literal
	trailLim []int
	reason   []*Clause
	level    []int

	unsat bool

	TotalConflicts  int64
	TotalRestarts   int64
	TotalDecisions  int64
	TotalIterations int64

	luby       *lubyGenerator
	conflictEMA restartEMA

	reduceDBBase  int
	nextReduceCap int

	seenVar     resetSet
	tmpWatchers []watcher
	tmpLearnts  []Literal
	tmpReason   []Literal

	// Models collected by successive Solve calls (used by enumeration).
	Models [][]bool

	verbose bool
}

// NewDefaultSolver returns a Solver configured with DefaultOptions.
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

// NewSolver returns an empty Solver configured with the given options.
func NewSolver(opts Options) *Solver {
	lubyBase := opts.LubyBase
	if lubyBase <= 0 {
		lubyBase = 100
	}
	reduceDBBase := opts.ReduceDBBase
	if reduceDBBase <= 0 {
		reduceDBBase = 2000
	}
	return &Solver{
		clauseInc:     1,
		clauseDecay:   opts.ClauseDecay,
		order:         NewVarOrder(opts.VariableDecay, opts.PhaseSaving),
		propQueue:     newPropQueue(128),
		luby:          newLubyGenerator(lubyBase),
		conflictEMA:   newRestartEMA(0.95),
		reduceDBBase:  reduceDBBase,
		nextReduceCap: reduceDBBase,
	}
}

func (s *Solver) decisionLevel() int { return len(s.trailLim) }

func (s *Solver) PositiveLiteral(v int) Literal { return PositiveLiteral(v) }
func (s *Solver) NegativeLiteral(v int) Literal { return NegativeLiteral(v) }

func (s *Solver) NumVariables() int  { return len(s.assigns) / 2 }
func (s *Solver) NumAssigns() int    { return len(s.trail) }
func (s *Solver) NumConstraints() int { return len(s.constraints) }
func (s *Solver) NumLearnts() int    { return len(s.learnts) }

func (s *Solver) VarValue(v int) LBool     { return s.assigns[PositiveLiteral(v)] }
func (s *Solver) LitValue(l Literal) LBool { return s.assigns[l] }

// AddVariable allocates and returns the index of a fresh variable.
func (s *Solver) AddVariable() int {
	v := s.NumVariables()
	s.watchers = append(s.watchers, nil, nil)
	s.reason = append(s.reason, nil)
	s.level = append(s.level, -1)
	s.assigns = append(s.assigns, Unknown, Unknown)
	s.seenVar.Expand()
	s.order.NewVar()
	return v
}

func (s *Solver) watch(c *Clause, on Literal, guard Literal) {
	s.watchers[on] = append(s.watchers[on], watcher{clause: c, guard: guard})
}

func (s *Solver) unwatch(c *Clause, on Literal) {
	ws := s.watchers[on]
	j := 0
	for i := range ws {
		if ws[i].clause != c {
			ws[j] = ws[i]
			j++
		}
	}
	s.watchers[on] = ws[:j]
}

// AddClause adds an original (non-learned) clause. It may only be called
// at decision level 0. Adding the empty clause is permitted and marks the
// solver unconditionally UNSAT.
func (s *Solver) AddClause(clause []Literal) error {
	if s.decisionLevel() != 0 {
		return fmt.Errorf("sat: AddClause called at decision level %d, must be 0", s.decisionLevel())
	}
	c, ok := NewClause(s, clause, false)
	if c != nil {
		s.constraints = append(s.constraints, c)
	}
	if !ok {
		s.unsat = true
	}
	return nil
}

// Simplify removes clauses satisfied at the root level. It must only be
// called at decision level 0 with an empty propagation queue.
func (s *Solver) Simplify() bool {
	if s.decisionLevel() != 0 {
		log.Fatalf("sat: Simplify called at non-root decision level %d", s.decisionLevel())
	}
	if s.propQueue.Size() != 0 {
		log.Fatal("sat: Simplify called with a non-empty propagation queue")
	}
	if s.unsat || s.Propagate() != nil {
		s.unsat = true
		return false
	}
	s.simplifySlice(&s.learnts)
	s.simplifySlice(&s.constraints)
	return true
}

func (s *Solver) simplifySlice(clauses *[]*Clause) {
	cs := *clauses
	j := 0
	for i := range cs {
		if cs[i].Simplify(s) {
			cs[i].Remove(s)
		} else {
			cs[j] = cs[i]
			j++
		}
	}
	*clauses = cs[:j]
}

// ReduceDB discards roughly the least-active, non-locked half of the
// learned clause database.
func (s *Solver) ReduceDB() {
	if len(s.learnts) == 0 {
		return
	}
	sort.Slice(s.learnts, func(i, j int) bool {
		li, lj := s.learnts[i], s.learnts[j]
		if li.activity != lj.activity {
			return li.activity < lj.activity // least active sorts first, for removal
		}
		return li.lbd > lj.lbd // worse (higher) LBD breaks ties
	})

	half := len(s.learnts) / 2
	j := 0
	for i := 0; i < len(s.learnts); i++ {
		c := s.learnts[i]
		if i < half && !c.locked(s) && !c.isProtected {
			c.Remove(s)
			continue
		}
		c.isProtected = false
		s.learnts[j] = c
		j++
	}
	s.learnts = s.learnts[:j]
}

// Propagate performs unit propagation until fixpoint or conflict. It
// returns the conflicting clause, or nil if propagation reached fixpoint.
func (s *Solver) Propagate() *Clause {
	for s.propQueue.Size() > 0 {
		l := s.propQueue.Pop()

		s.tmpWatchers = append(s.tmpWatchers[:0], s.watchers[l]...)
		s.watchers[l] = s.watchers[l][:0]

		for i, w := range s.tmpWatchers {
			if s.LitValue(w.guard) == True {
				s.watchers[l] = append(s.watchers[l], w)
				continue
			}
			if w.clause.Propagate(s, l) {
				continue
			}
			s.watchers[l] = append(s.watchers[l], s.tmpWatchers[i+1:]...)
			s.propQueue.Clear()
			return s.tmpWatchers[i].clause
		}
	}
	return nil
}

func (s *Solver) enqueue(l Literal, from *Clause) bool {
	switch s.LitValue(l) {
	case False:
		return false
	case True:
		return true
	default:
		v := l.VarID()
		s.assigns[l] = True
		s.assigns[l.Opposite()] = False
		s.level[v] = s.decisionLevel()
		s.reason[v] = from
		s.trail = append(s.trail, l)
		s.propQueue.Push(l)
		return true
	}
}

func (s *Solver) explain(c *Clause, l Literal) []Literal {
	if l == -1 {
		return c.ExplainFailure(s)
	}
	return c.ExplainAssign(s)
}

// analyze performs first-UIP conflict analysis starting from the given
// conflicting clause, returning the learned clause (with the UIP's
// negation at position 0) and the backtrack level.
func (s *Solver) analyze(confl *Clause) ([]Literal, int) {
	pathCount := 0

	s.tmpLearnts = append(s.tmpLearnts[:0], -1) // reserve slot for the UIP
	nextIdx := len(s.trail) - 1

	l := Literal(-1)
	s.seenVar.Clear()
	backtrackLevel := 0

	for {
		for _, q := range s.explain(confl, l) {
			v := q.VarID()
			if s.seenVar.Contains(v) {
				continue
			}
			s.seenVar.Add(v)
			s.order.Bump(v)

			if s.level[v] == s.decisionLevel() {
				pathCount++
				continue
			}
			s.tmpLearnts = append(s.tmpLearnts, q.Opposite())
			if lvl := s.level[v]; lvl > backtrackLevel {
				backtrackLevel = lvl
			}
		}

		for {
			l = s.trail[nextIdx]
			nextIdx--
			if s.seenVar.Contains(l.VarID()) {
				confl = s.reason[l.VarID()]
				break
			}
		}

		pathCount--
		if pathCount <= 0 {
			break
		}
	}

	s.tmpLearnts[0] = l.Opposite()
	return s.tmpLearnts, backtrackLevel
}

// record installs a learned clause, enqueuing its first literal (the UIP's
// negation) with the clause as its reason.
func (s *Solver) record(clause []Literal) {
	c, _ := NewClause(s, clause, true)
	s.enqueue(clause[0], c)
	if c != nil {
		s.learnts = append(s.learnts, c)
	}
}

func (s *Solver) undoOne() {
	l := s.trail[len(s.trail)-1]
	v := l.VarID()

	s.order.Reinsert(v, s.assigns[l])
	s.assigns[l] = Unknown
	s.assigns[l.Opposite()] = Unknown
	s.reason[v] = nil
	s.level[v] = -1

	s.trail = s.trail[:len(s.trail)-1]
}

func (s *Solver) assume(l Literal) bool {
	s.trailLim = append(s.trailLim, len(s.trail))
	return s.enqueue(l, nil)
}

func (s *Solver) cancel() {
	n := len(s.trail) - s.trailLim[len(s.trailLim)-1]
	for ; n != 0; n-- {
		s.undoOne()
	}
	s.trailLim = s.trailLim[:len(s.trailLim)-1]
}

func (s *Solver) cancelUntil(level int) {
	for s.decisionLevel() > level {
		s.cancel()
	}
}

func (s *Solver) BumpClauseActivity(c *Clause) {
	c.activity += s.clauseInc
	if c.activity > 1e100 {
		s.clauseInc *= 1e-100
		for _, l := range s.learnts {
			l.activity *= 1e-100
		}
	}
}

func (s *Solver) decayClauseActivity() {
	s.clauseInc *= s.clauseDecay
}

func (s *Solver) saveModel() {
	model := make([]bool, s.NumVariables())
	for v := range model {
		lb := s.VarValue(v)
		if lb == Unknown {
			log.Fatal("sat: saveModel called with an incomplete assignment")
		}
		model[v] = lb == True
	}
	s.Models = append(s.Models, model)
}

// Solve searches for a satisfying assignment, honoring cooperative
// cancellation via ctx. It returns True (sat, see Models), False (unsat),
// or Unknown (cancelled).
func (s *Solver) Solve(ctx context.Context) LBool {
	if s.unsat {
		return False
	}

	restartThreshold := s.luby.Next()
	conflictsSinceRestart := int64(0)

	for {
		select {
		case <-ctx.Done():
			s.cancelUntil(0)
			return Unknown
		default:
		}

		s.TotalIterations++

		conflict := s.Propagate()
		if conflict != nil {
			s.TotalConflicts++
			conflictsSinceRestart++
			s.conflictEMA.Add(1)

			if s.decisionLevel() == 0 {
				s.unsat = true
				return False
			}

			learnt, backtrackLevel := s.analyze(conflict)
			s.cancelUntil(backtrackLevel)
			s.record(learnt)

			s.decayClauseActivity()
			s.order.Decay()

			if conflictsSinceRestart >= restartThreshold {
				s.TotalRestarts++
				s.cancelUntil(0)
				conflictsSinceRestart = 0
				restartThreshold = s.luby.Next()
			}

			if int64(len(s.learnts)) > s.nextReduceCap {
				s.ReduceDB()
				s.nextReduceCap += s.nextReduceCap/10 + s.reduceDBBase
			}

			continue
		}

		s.conflictEMA.Add(0)

		if s.decisionLevel() == 0 {
			s.Simplify()
		}

		if s.NumAssigns() == s.NumVariables() {
			s.saveModel()
			s.cancelUntil(0)
			return True
		}

		lit, ok := s.order.Select(s)
		if !ok {
			s.saveModel()
			s.cancelUntil(0)
			return True
		}
		s.TotalDecisions++
		s.assume(lit)
	}
}

// AddBlockingClause appends a clause negating the given full assignment
// (one literal per variable, in variable order) so that a subsequent Solve
// call cannot return the same model again. Used by the enumeration driver.
func (s *Solver) AddBlockingClause(model []bool) error {
	clause := make([]Literal, len(model))
	for v, val := range model {
		if val {
			clause[v] = NegativeLiteral(v)
		} else {
			clause[v] = PositiveLiteral(v)
		}
	}
	return s.AddClause(clause)
}

func (s *Solver) String() string {
	return fmt.Sprintf(
		"Solver{vars=%d constraints=%d learnts=%d conflicts=%d restarts=%d}",
		s.NumVariables(), s.NumConstraints(), s.NumLearnts(), s.TotalConflicts, s.TotalRestarts,
	)
}
