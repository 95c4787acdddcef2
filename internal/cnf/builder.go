package cnf

import (
	"github.com/ralloy/ralloy/internal/sat"
)

// solverSink is the minimal surface CNFBuilder needs from a SAT solver.
// Mirrors the small consumer-defined interfaces used throughout this
// codebase's teacher (dimacsWritter, SATSolver) rather than depending on
// the concrete *sat.Solver type.
type solverSink interface {
	AddVariable() int
	AddClause([]sat.Literal) error
}

// Builder Tseitin-encodes BooleanFormula DAGs into CNF clauses added to an
// underlying SAT solver. It allocates one fresh variable per distinct
// compound subformula (memoized by node identity, so a shared subformula
// is encoded exactly once) and exposes AssertTrue to post a formula as a
// top-level constraint.
type Builder struct {
	solver  solverSink
	memo    map[*Formula]sat.Literal
	nVars   int
	trueLit sat.Literal // lazily allocated; valid only once hasTrue is set
	hasTrue bool
}

// NewBuilder returns a Builder that allocates variables and clauses on s.
func NewBuilder(s solverSink) *Builder {
	return &Builder{
		solver: s,
		memo:   make(map[*Formula]sat.Literal),
	}
}

// NewVar allocates and returns a fresh variable not tied to any formula
// node, for callers (the translator, trace encoder) that need raw
// variables outside the Formula DAG (e.g. interior BooleanMatrix cells,
// loop selectors).
func (b *Builder) NewVar() int {
	b.nVars++
	return b.solver.AddVariable()
}

func (b *Builder) addClause(lits ...sat.Literal) {
	_ = b.solver.AddClause(lits)
}

// Encode returns the literal equivalent to f, Tseitin-encoding f (and any
// not-yet-encoded subformula) into the clause database as a side effect.
// Constants and bare literals never allocate a variable; compound nodes
// are memoized by pointer identity.
func (b *Builder) Encode(f *Formula) sat.Literal {
	switch f.Kind {
	case KConst:
		return b.constLiteral(f.Const)
	case KLit:
		return f.Lit
	}

	if lit, ok := b.memo[f]; ok {
		return lit
	}

	var lit sat.Literal
	switch f.Kind {
	case KNot:
		lit = b.Encode(f.Children[0]).Opposite()
		b.memo[f] = lit
		return lit
	case KAnd:
		lit = b.encodeAnd(f.Children)
	case KOr:
		lit = b.encodeOr(f.Children)
	case KImplies:
		lit = b.encodeOr([]*Formula{Not(f.Children[0]), f.Children[1]})
	case KIff:
		a := b.Encode(f.Children[0])
		c := b.Encode(f.Children[1])
		lit = b.encodeIff(a, c)
	case KIte:
		lit = b.encodeIte(f.Children[0], f.Children[1], f.Children[2])
	default:
		panic("cnf: invalid formula kind")
	}

	b.memo[f] = lit
	return lit
}

// constLiteral returns a literal standing for the boolean constant v. A
// single unit variable is lazily allocated and asserted true on first use
// so that constants can be used anywhere a literal is expected without
// special-casing every call site.
func (b *Builder) constLiteral(v bool) sat.Literal {
	if !b.hasTrue {
		vid := b.solver.AddVariable()
		b.trueLit = sat.PositiveLiteral(vid)
		b.addClause(b.trueLit)
		b.hasTrue = true
	}
	if v {
		return b.trueLit
	}
	return b.trueLit.Opposite()
}

func (b *Builder) encodeAnd(children []*Formula) sat.Literal {
	lits := make([]sat.Literal, len(children))
	for i, c := range children {
		lits[i] = b.Encode(c)
	}
	t := sat.PositiveLiteral(b.solver.AddVariable())

	// t => each lit
	for _, l := range lits {
		b.addClause(t.Opposite(), l)
	}
	// (all lits) => t
	clause := make([]sat.Literal, 0, len(lits)+1)
	for _, l := range lits {
		clause = append(clause, l.Opposite())
	}
	clause = append(clause, t)
	b.addClause(clause...)

	return t
}

func (b *Builder) encodeOr(children []*Formula) sat.Literal {
	lits := make([]sat.Literal, len(children))
	for i, c := range children {
		lits[i] = b.Encode(c)
	}
	t := sat.PositiveLiteral(b.solver.AddVariable())

	// each lit => t
	for _, l := range lits {
		b.addClause(l.Opposite(), t)
	}
	// t => (some lit)
	clause := make([]sat.Literal, 0, len(lits)+1)
	clause = append(clause, t.Opposite())
	clause = append(clause, lits...)
	b.addClause(clause...)

	return t
}

func (b *Builder) encodeIff(a, c sat.Literal) sat.Literal {
	t := sat.PositiveLiteral(b.solver.AddVariable())
	b.addClause(t.Opposite(), a.Opposite(), c)
	b.addClause(t.Opposite(), a, c.Opposite())
	b.addClause(t, a, c)
	b.addClause(t, a.Opposite(), c.Opposite())
	return t
}

func (b *Builder) encodeIte(condF, thenF, elseF *Formula) sat.Literal {
	cond := b.Encode(condF)
	then := b.Encode(thenF)
	els := b.Encode(elseF)
	t := sat.PositiveLiteral(b.solver.AddVariable())

	// t <=> (cond ? then : else)
	b.addClause(t.Opposite(), cond.Opposite(), then)
	b.addClause(t.Opposite(), cond, els)
	b.addClause(t, cond.Opposite(), then.Opposite())
	b.addClause(t, cond, els.Opposite())

	return t
}

// AssertTrue posts f as a top-level constraint. For and/or roots, the
// definitional variable is bypassed and the appropriate clauses are added
// directly; otherwise Encode is called and the resulting literal is
// asserted as a unit clause.
func (b *Builder) AssertTrue(f *Formula) {
	switch f.Kind {
	case KConst:
		if !f.Const {
			b.addClause() // empty clause: unconditional UNSAT
		}
		return
	case KAnd:
		for _, c := range f.Children {
			b.AssertTrue(c)
		}
		return
	case KOr:
		lits := make([]sat.Literal, len(f.Children))
		for i, c := range f.Children {
			lits[i] = b.Encode(c)
		}
		b.addClause(lits...)
		return
	default:
		b.addClause(b.Encode(f))
	}
}
